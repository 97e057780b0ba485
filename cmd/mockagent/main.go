// Command mockagent simulates the downstream emergency-dispatch agent for
// local development: the token exchange, the assistant message endpoint, and
// an accident analysis API that produces dispatch strategies without calling
// a real LLM service.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := 9100
	if v := os.Getenv("MOCK_AGENT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handleHealth)
	router.POST("/identity/token", handleToken)
	router.POST("/v2/assistants/:id/message", handleAssistantMessage)
	router.POST("/v1/analyze", handleAnalyze)
	router.GET("/v1/incidents/history", handleIncidentHistory)

	log.Info().Int("port", port).Msg("🤖 Mock agent service listening")
	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal().Err(err).Msg("Mock agent failed")
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"service":   "mock-agent",
		"mock_mode": true,
		"timestamp": time.Now().Format(time.RFC3339),
		"message":   "Mock agent service is operational",
	})
}

// handleToken mimics the IAM apikey-for-token exchange
func handleToken(c *gin.Context) {
	if c.PostForm("apikey") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "apikey required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": fmt.Sprintf("mock-token-%d", time.Now().Unix()),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

type assistantMessageRequest struct {
	Input struct {
		MessageType string `json:"message_type"`
		Text        string `json:"text"`
	} `json:"input"`
}

func handleAssistantMessage(c *gin.Context) {
	var req assistantMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message payload"})
		return
	}

	log.Info().
		Str("assistant_id", c.Param("id")).
		Str("text", req.Input.Text).
		Msg("Assistant message received")

	c.JSON(http.StatusOK, gin.H{
		"output": gin.H{
			"generic": []gin.H{
				{
					"response_type": "text",
					"text":          "Alert received. Emergency services have been notified and dispatch is underway.",
				},
			},
		},
	})
}

type analyzeRequest struct {
	Confidence         float64  `json:"confidence"`
	VehicleCount       int      `json:"vehicle_count"`
	SeverityIndicators []string `json:"severity_indicators"`
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
}

func handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis payload"})
		return
	}
	if req.Confidence == 0 {
		req.Confidence = 0.8
	}
	if req.VehicleCount == 0 {
		req.VehicleCount = 2
	}

	analysis := analyzeAccident(req)

	log.Info().
		Str("severity", analysis.SeverityLevel).
		Str("priority", analysis.DispatchPriority).
		Msg("Analysis complete")

	c.JSON(http.StatusOK, analysis)
}

func handleIncidentHistory(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	c.JSON(http.StatusOK, incidentHistory(limit))
}
