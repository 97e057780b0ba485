package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/services/pipeline"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	cfg      *config.Config
	pipeline *pipeline.Service
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(cfg *config.Config, pipelineSvc *pipeline.Service) *SystemHandler {
	return &SystemHandler{
		cfg:      cfg,
		pipeline: pipelineSvc,
	}
}

// @Summary Get system stats
// @Description Get pipeline counters and runtime statistics
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := h.pipeline.Stats()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pipeline": gin.H{
			"frames_processed":  stats.FramesProcessed,
			"frames_skipped":    stats.FramesSkipped,
			"alerts_raised":     stats.AlertsRaised,
			"agent_triggers":    stats.AgentTriggers,
			"evidence_captures": stats.EvidenceCaptures,
			"uptime_seconds":    int64(time.Since(stats.StartedAt).Seconds()),
		},
		"system": gin.H{
			"worker_id":  h.cfg.WorkerID,
			"memory_mb":  m.Alloc / 1024 / 1024,
			"cpu_cores":  runtime.NumCPU(),
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
		"timestamp": time.Now().Unix(),
	})
}
