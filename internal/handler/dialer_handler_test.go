package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/calleyai/coldcall-gateway/internal/dialer"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireJSONBody(t *testing.T, r *http.Request, v interface{}) {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}

func TestStartCallWithoutDialerAnswers503(t *testing.T) {
	h := NewDialerHandler(testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/start-call", strings.NewReader(`{"phone_number":"+15550001"}`))
	rec := httptest.NewRecorder()
	h.HandleStartCall(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp startCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestStartCallRejectsMissingNumber(t *testing.T) {
	cfg := testConfig()
	cfg.TwilioAccountSID = "AC000"
	cfg.TwilioAuthToken = "secret"
	cfg.TwilioFromNumber = "+15550000"
	h := NewDialerHandler(cfg, dialer.NewDialer(cfg))

	for _, body := range []string{`{"row":"7"}`, `{broken`} {
		req := httptest.NewRequest(http.MethodPost, "/start-call", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleStartCall(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestStatusCallbackRelaysToAutomation(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireJSONBody(t, r, &got)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.StatusWebhookURL = ts.URL
	h := NewDialerHandler(cfg, nil)

	form := url.Values{"CallSid": {"CA300"}, "CallStatus": {"completed"}}
	req := httptest.NewRequest(http.MethodPost, "/twilio-status-callback?row=7", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{
		"row":         "7",
		"call_sid":    "CA300",
		"call_status": "completed",
	}, got)
}

func TestStatusCallbackWithoutRelayTargetStillAccepts(t *testing.T) {
	h := NewDialerHandler(testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/twilio-status-callback", nil)
	rec := httptest.NewRecorder()
	h.HandleStatusCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootAnswersHealthLine(t *testing.T) {
	hm := &HandlerManager{cfg: testConfig()}
	router := mux.NewRouter()
	router.HandleFunc("/", hm.handleRoot).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Twilio media stream server is running")
}
