package handler

import (
	"fmt"
	"net/http"

	"github.com/calleyai/coldcall-gateway/internal/bridge"
	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/dispatch"
	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/repository"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MediaHandler accepts Twilio media-stream WebSocket connections and wires
// each one to a fresh OpenAI Realtime connection through a bridge.
type MediaHandler struct {
	cfg      *config.GatewayConfig
	registry *registry.Registry
	webhook  *webhook.Client
	repo     *repository.CallRepository
	upgrader websocket.Upgrader
}

// NewMediaHandler creates a media handler. repo may be nil when persistence
// is not configured.
func NewMediaHandler(cfg *config.GatewayConfig, reg *registry.Registry, whClient *webhook.Client, repo *repository.CallRepository) *MediaHandler {
	return &MediaHandler{
		cfg:      cfg,
		registry: reg,
		webhook:  whClient,
		repo:     repo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleMediaStream upgrades the Twilio connection, links it to the session
// registered at /incoming-call and runs the bridge until either side hangs
// up. The handler returns only when the call is over.
func (h *MediaHandler) HandleMediaStream(w http.ResponseWriter, r *http.Request) {
	twilioConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Error("failed to upgrade media stream connection", zap.Error(err))
		return
	}

	sess := h.lookupSession(r)

	modelConn, err := h.dialRealtime()
	if err != nil {
		logger.Base().Error("failed to connect to realtime api",
			zap.String("call_sid", sess.CallSID), zap.Error(err))
		twilioConn.Close()
		h.registry.Remove(sess.CallSID)
		return
	}

	var recorder bridge.CallRecorder
	if h.repo != nil {
		recorder = h.repo
	}

	b := bridge.New(bridge.Config{
		Session:    sess,
		Registry:   h.registry,
		Telephony:  twilioConn,
		Model:      modelConn,
		Dispatcher: dispatch.NewDispatcher(h.webhook),
		Webhook:    h.webhook,
		Recorder:   recorder,
		Voice:      h.cfg.Voice,
	})

	if err := b.Run(r.Context()); err != nil {
		logger.Base().Warn("bridge terminated with error",
			zap.String("call_sid", sess.CallSID), zap.Error(err))
	}
}

// lookupSession resolves the session for an accepted media stream. Twilio
// sends the call SID as a header on the upgrade request; when it is missing
// or unknown a degraded session is created so the call still runs, minus the
// greeting context resolved at /incoming-call.
func (h *MediaHandler) lookupSession(r *http.Request) *domain.Session {
	callSID := r.Header.Get("X-Twilio-Call-Sid")
	if callSID != "" {
		if sess := h.registry.Get(callSID); sess != nil {
			return sess
		}
		logger.Base().Warn("media stream for unregistered call sid",
			zap.String("call_sid", callSID))
	} else {
		logger.Base().Warn("media stream without call sid header")
	}

	key := callSID
	if key == "" {
		key = "degraded-" + uuid.NewString()
	}
	sess := domain.NewSession(key, "", "")
	sess.Degraded = true
	h.registry.Create(sess)
	return sess
}

// dialRealtime opens the OpenAI Realtime WebSocket for one call.
func (h *MediaHandler) dialRealtime() (*websocket.Conn, error) {
	wsURL := fmt.Sprintf("%s?model=%s", h.cfg.OpenAIRealtimeURL, h.cfg.OpenAIModel)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+h.cfg.OpenAIAPIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: config.DefaultConnectionTimeout}
	conn, _, err := dialer.Dial(wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}
	return conn, nil
}
