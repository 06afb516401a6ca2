package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/internal/prompts"
	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// CallHandler answers Twilio voice webhooks with stream TwiML.
type CallHandler struct {
	cfg      *config.GatewayConfig
	webhook  *webhook.Client
	registry *registry.Registry
}

// NewCallHandler creates a call handler.
func NewCallHandler(cfg *config.GatewayConfig, whClient *webhook.Client, reg *registry.Registry) *CallHandler {
	return &CallHandler{cfg: cfg, webhook: whClient, registry: reg}
}

// TwiML document types. Attribute values pass through encoding/xml so
// automation-supplied greetings cannot break the markup.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// HandleIncomingCall resolves the opening line, registers the session and
// answers with `<Connect><Stream>` TwiML so Twilio opens the media stream.
func (h *CallHandler) HandleIncomingCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Warn("failed to parse twilio voice webhook form", zap.Error(err))
	}

	callerNumber := r.FormValue("From")
	if callerNumber == "" {
		callerNumber = "Unknown"
	}
	callSID := r.FormValue("CallSid")

	firstMessage, threadID := h.resolveGreeting(r, callerNumber)

	if callSID != "" {
		sess := domain.NewSession(callSID, callerNumber, firstMessage)
		sess.ThreadID = threadID
		h.registry.Create(sess)
	} else {
		logger.Base().Warn("voice webhook without CallSid, session deferred to stream start",
			zap.String("caller_number", callerNumber))
	}

	doc := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{
				URL: fmt.Sprintf("wss://%s/media-stream", h.cfg.PublicHost),
				Parameters: []twimlParameter{
					{Name: "firstMessage", Value: firstMessage},
					{Name: "callerNumber", Value: callerNumber},
				},
			},
		},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		logger.Base().Error("failed to marshal twiml", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(xml.Header))
	w.Write(body)

	logger.Base().Info("incoming call answered",
		zap.String("call_sid", callSID),
		zap.String("caller_number", callerNumber),
		zap.String("first_message", firstMessage))
}

// resolveGreeting fetches a personalized opening line from the automation
// service. Delivery failures and malformed replies fall back to the fixed
// default greeting; only a parsed reply may supply the opening line.
func (h *CallHandler) resolveGreeting(r *http.Request, callerNumber string) (string, string) {
	reply, _, err := h.webhook.SendStructured(r.Context(), webhook.RouteResolveGreeting, callerNumber, "empty")
	if err != nil || reply == nil {
		logger.Base().Warn("greeting webhook failed, using default greeting",
			zap.String("caller_number", callerNumber), zap.Error(err))
		return prompts.DefaultGreeting, ""
	}

	threadID := reply.Thread
	if reply.FirstMessage != "" {
		return reply.FirstMessage, threadID
	}
	if reply.Message != "" {
		return reply.Message, threadID
	}
	return prompts.DefaultGreeting, threadID
}
