package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/dialer"
	"github.com/calleyai/coldcall-gateway/internal/handler"
	"github.com/calleyai/coldcall-gateway/internal/registry"
	"github.com/calleyai/coldcall-gateway/internal/repository"
	"github.com/calleyai/coldcall-gateway/internal/webhook"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"github.com/calleyai/coldcall-gateway/pkg/redis"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server is the cold-call gateway HTTP server.
type Server struct {
	config *config.GatewayConfig
	router *mux.Router
}

// NewServer wires all services and handlers.
func NewServer(cfg *config.GatewayConfig) *Server {
	reg := registry.New(buildPresence(cfg))
	whClient := webhook.NewClient(cfg.AutomationWebhookURL)

	repo := buildRepository()
	d := dialer.NewDialer(cfg)

	router := mux.NewRouter()
	handlerManager := handler.NewHandlerManager(cfg, reg, whClient, repo, d)
	handlerManager.SetupAllRoutes(router)

	return &Server{config: cfg, router: router}
}

// buildPresence connects the Redis presence mirror when REDIS_HOST is set.
// Presence is best-effort; the gateway runs fine without it.
func buildPresence(cfg *config.GatewayConfig) *registry.Presence {
	if os.Getenv("REDIS_HOST") == "" {
		logger.Base().Info("redis not configured, session presence mirror disabled")
		return nil
	}

	redisSvc, err := redis.NewService(redis.LoadConfigFromEnv())
	if err != nil {
		logger.Base().Warn("failed to connect to redis, session presence mirror disabled", zap.Error(err))
		return nil
	}
	return registry.NewPresence(redisSvc, cfg.InstanceID)
}

// buildRepository opens the call-record database when DB_HOST is set. The
// webhook transcript flush works without it.
func buildRepository() *repository.CallRepository {
	if os.Getenv("DB_HOST") == "" {
		logger.Base().Info("database not configured, call record persistence disabled")
		return nil
	}

	repo, err := repository.NewCallRepositoryFromEnv()
	if err != nil {
		logger.Base().Warn("failed to connect to database, call record persistence disabled", zap.Error(err))
		return nil
	}
	return repo
}

// Start starts the HTTP server. Read/write timeouts are generous because the
// media-stream handler holds its connection for the length of a call.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		IdleTimeout: 60 * time.Second,
	}

	logger.Base().Info("starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// .env is optional in deployed environments
	_ = godotenv.Load()

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("failed to initialize zap logger, falling back to std log")
	}
	defer logger.Sync()

	cfg := config.LoadGatewayConfig()

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Base().Fatal("server stopped", zap.Error(err))
	}
}
