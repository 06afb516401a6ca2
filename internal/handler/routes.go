package handler

import (
	"net/http"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/dialer"
	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/repository"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/gorilla/mux"
)

// HandlerManager holds all HTTP handlers and their shared dependencies.
type HandlerManager struct {
	cfg           *config.GatewayConfig
	callHandler   *CallHandler
	mediaHandler  *MediaHandler
	dialerHandler *DialerHandler
}

// NewHandlerManager wires the handlers. repo and d may be nil.
func NewHandlerManager(cfg *config.GatewayConfig, reg *registry.Registry, whClient *webhook.Client, repo *repository.CallRepository, d *dialer.Dialer) *HandlerManager {
	return &HandlerManager{
		cfg:           cfg,
		callHandler:   NewCallHandler(cfg, whClient, reg),
		mediaHandler:  NewMediaHandler(cfg, reg, whClient, repo),
		dialerHandler: NewDialerHandler(cfg, d),
	}
}

// SetupAllRoutes registers every route on the router.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)
	if hm.cfg.EnableCORS {
		router.Use(CORSMiddleware)
	}

	router.HandleFunc("/", hm.handleRoot).Methods("GET")
	router.HandleFunc("/incoming-call", hm.callHandler.HandleIncomingCall).Methods("GET", "POST")
	router.HandleFunc("/media-stream", hm.mediaHandler.HandleMediaStream)
	router.HandleFunc("/start-call", hm.dialerHandler.HandleStartCall).Methods("POST")
	router.HandleFunc("/twilio-status-callback", hm.dialerHandler.HandleStatusCallback).Methods("POST")
}

// handleRoot answers health probes.
func (hm *HandlerManager) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message": "Twilio media stream server is running"}`))
}
