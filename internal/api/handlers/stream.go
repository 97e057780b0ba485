package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
	"sentinel-worker-go/internal/services/pipeline"
	"sentinel-worker-go/internal/services/streamcapture"
)

// StreamHandler owns the live analysis websocket. Each connection opens the
// camera, drives the frame loop, and streams one JSON result per frame until
// the client disconnects.
type StreamHandler struct {
	cfg      *config.Config
	pipeline *pipeline.Service
	upgrader websocket.Upgrader

	// Overridable in tests; defaults to the camera capture
	newSource func(cfg *config.Config) (models.FrameSource, error)
}

func NewStreamHandler(cfg *config.Config, pipelineSvc *pipeline.Service) *StreamHandler {
	return &StreamHandler{
		cfg:      cfg,
		pipeline: pipelineSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newSource: func(cfg *config.Config) (models.FrameSource, error) {
			return streamcapture.NewSource(cfg)
		},
	}
}

// @Summary Live analysis stream
// @Description Upgrade to websocket and stream per-frame analysis results
// @Tags stream
// @Success 101
// @Router /ws [get]
func (h *StreamHandler) LiveStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Live stream client connected")

	source, err := h.newSource(h.cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open frame source")
		conn.WriteJSON(gin.H{"error": "camera unavailable"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read pump: the client sends nothing meaningful, but a read error is the
	// disconnect signal that stops the frame loop.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := h.pipeline.Run(ctx, source, func(result *models.FrameResult) error {
		return conn.WriteJSON(result)
	}); err != nil {
		log.Error().Err(err).Msg("Frame loop ended with error")
	}

	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Live stream client disconnected")
}
