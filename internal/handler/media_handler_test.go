package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// The upgrade must succeed through the assembled router, middleware included,
// not just against the bare handler.
func TestMediaStreamUpgradesThroughRouter(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIRealtimeURL = "ws://127.0.0.1:1" // model dial fails fast after the upgrade

	reg := registry.New(nil)
	hm := NewHandlerManager(cfg, reg, webhook.NewClient("http://127.0.0.1:1"), nil, nil)
	router := mux.NewRouter()
	hm.SetupAllRoutes(router)

	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/media-stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}
