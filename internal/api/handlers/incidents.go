package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sentinel-worker-go/internal/incidents"
	"sentinel-worker-go/internal/models"
)

type IncidentsHandler struct {
	tracker *incidents.Tracker
}

func NewIncidentsHandler(tracker *incidents.Tracker) *IncidentsHandler {
	return &IncidentsHandler{tracker: tracker}
}

type HotspotsResponse struct {
	Hotspots  []models.Incident `json:"hotspots"`
	Count     int               `json:"count"`
	Timestamp int64             `json:"timestamp"`
}

// @Summary Incident hotspots
// @Description Get the recent incident history used for the heatmap overlay
// @Tags incidents
// @Accept json
// @Produce json
// @Success 200 {object} HotspotsResponse
// @Router /incidents/hotspots [get]
func (h *IncidentsHandler) GetHotspots(c *gin.Context) {
	hotspots := h.tracker.Hotspots()

	c.JSON(http.StatusOK, HotspotsResponse{
		Hotspots:  hotspots,
		Count:     len(hotspots),
		Timestamp: time.Now().Unix(),
	})
}
