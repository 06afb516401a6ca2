package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/dialer"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// DialerHandler exposes outbound dialing to the automation service and
// relays Twilio call-status callbacks back to it.
type DialerHandler struct {
	cfg        *config.GatewayConfig
	dialer     *dialer.Dialer
	httpClient *http.Client
}

// NewDialerHandler creates a dialer handler. d may be nil when Twilio
// credentials are not configured; /start-call then answers 503.
func NewDialerHandler(cfg *config.GatewayConfig, d *dialer.Dialer) *DialerHandler {
	return &DialerHandler{
		cfg:        cfg,
		dialer:     d,
		httpClient: &http.Client{Timeout: config.DefaultWebhookTimeout},
	}
}

type startCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	Row         string `json:"row"`
}

type startCallResponse struct {
	Status  string `json:"status"`
	CallSID string `json:"call_sid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleStartCall places one outbound call.
func (h *DialerHandler) HandleStartCall(w http.ResponseWriter, r *http.Request) {
	if h.dialer == nil {
		writeJSON(w, http.StatusServiceUnavailable, startCallResponse{
			Status: "error", Error: "outbound dialing is not configured",
		})
		return
	}

	var req startCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		writeJSON(w, http.StatusBadRequest, startCallResponse{
			Status: "error", Error: "phone_number is required",
		})
		return
	}

	callSID, err := h.dialer.PlaceCall(r.Context(), req.PhoneNumber, req.Row)
	if err != nil {
		logger.Base().Error("failed to place outbound call",
			zap.String("phone_number", req.PhoneNumber), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, startCallResponse{
			Status: "error", Error: "failed to place call",
		})
		return
	}

	writeJSON(w, http.StatusOK, startCallResponse{Status: "calling", CallSID: callSID})
}

// HandleStatusCallback receives Twilio call-status callbacks and forwards
// them to the automation status webhook so the lead sheet stays current.
func (h *DialerHandler) HandleStatusCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Warn("failed to parse status callback form", zap.Error(err))
	}

	callSID := r.FormValue("CallSid")
	callStatus := r.FormValue("CallStatus")
	row := r.URL.Query().Get("row")

	logger.Base().Info("call status update",
		zap.String("call_sid", callSID),
		zap.String("call_status", callStatus),
		zap.String("row", row))

	if h.cfg.StatusWebhookURL != "" {
		payload, _ := json.Marshal(map[string]string{
			"row":         row,
			"call_sid":    callSID,
			"call_status": callStatus,
		})
		resp, err := h.httpClient.Post(h.cfg.StatusWebhookURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			logger.Base().Warn("failed to relay call status",
				zap.String("call_sid", callSID), zap.Error(err))
		} else {
			resp.Body.Close()
		}
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
