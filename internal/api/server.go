package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/api/handlers"
	"sentinel-worker-go/internal/api/middleware"
	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/services"
)

type Server struct {
	config    *config.Config
	container *services.ServiceContainer
	router    *gin.Engine
	server    *http.Server

	healthHandler    *handlers.HealthHandler
	streamHandler    *handlers.StreamHandler
	incidentsHandler *handlers.IncidentsHandler
	systemHandler    *handlers.SystemHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		config:           cfg,
		container:        container,
		router:           gin.New(),
		healthHandler:    handlers.NewHealthHandler(cfg, container.ClassifierSvc, container.MessagingSvc),
		streamHandler:    handlers.NewStreamHandler(cfg, container.PipelineSvc),
		incidentsHandler: handlers.NewIncidentsHandler(container.Tracker),
		systemHandler:    handlers.NewSystemHandler(cfg, container.PipelineSvc),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestID())
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting Sentinel Worker API")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight dispatches
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("🛑 Stopping Sentinel Worker API")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	return s.container.Shutdown(ctx)
}
