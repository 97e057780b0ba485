package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/services/classifier"
	"sentinel-worker-go/internal/services/messaging"
)

type HealthHandler struct {
	cfg        *config.Config
	classifier *classifier.Service
	messaging  *messaging.Service
}

func NewHealthHandler(cfg *config.Config, classifierSvc *classifier.Service, messagingSvc *messaging.Service) *HealthHandler {
	return &HealthHandler{
		cfg:        cfg,
		classifier: classifierSvc,
		messaging:  messagingSvc,
	}
}

type HealthResponse struct {
	Status     string `json:"status" example:"healthy"`
	WorkerID   string `json:"worker_id" example:"sentinel-1"`
	Classifier string `json:"classifier" example:"connected"`
	Messaging  string `json:"messaging" example:"connected"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"sentinel-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check worker health and downstream classifier connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	classifierStatus := "connected"
	if err := h.classifier.HealthCheck(ctx); err != nil {
		classifierStatus = "unavailable"
	}

	messagingStatus := "disabled"
	if h.messaging != nil {
		messagingStatus = "disconnected"
		if h.messaging.IsConnected() {
			messagingStatus = "connected"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		WorkerID:   h.cfg.WorkerID,
		Classifier: classifierStatus,
		Messaging:  messagingStatus,
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.cfg.WorkerID,
		Status:   "running",
		Version:  h.cfg.Version,
		Capabilities: []string{
			"accident_detection",
			"severity_scoring",
			"queue_estimation",
			"agent_dispatch",
			"evidence_capture",
		},
	})
}
