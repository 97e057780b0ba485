package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
)

// Service is the HTTP client for the external detection model. The model is a
// black box: it takes a frame and returns labeled, confidence-scored bounding
// boxes. Everything past that contract lives on the inference server.
type Service struct {
	cfg     *config.Config
	baseURL string
	client  *http.Client
}

type detectRequest struct {
	CameraID      string  `json:"camera_id"`
	Image         string  `json:"image"` // base64-encoded JPEG
	MinConfidence float64 `json:"min_confidence"`
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
	ModelName  string             `json:"model_name,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewService creates a classifier client for the configured inference endpoint
func NewService(cfg *config.Config) *Service {
	log.Info().Str("url", cfg.ClassifierURL).Msg("Initializing classifier client")

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.ClassifierURL, "/"),
		client:  &http.Client{Timeout: cfg.ClassifierTimeout},
	}
}

// Detect runs the detector on one frame. Failures are transient: the caller
// skips the frame and retries on the next cycle.
func (s *Service) Detect(ctx context.Context, frameData []byte, minConfidence float64) ([]models.Detection, error) {
	reqBody, err := json.Marshal(detectRequest{
		CameraID:      s.cfg.CameraID,
		Image:         base64.StdEncoding.EncodeToString(frameData),
		MinConfidence: minConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", models.ErrClassifier, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/detect", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrClassifier, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrClassifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference returned status %d", models.ErrClassifier, resp.StatusCode)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrClassifier, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", models.ErrClassifier, out.Error)
	}

	log.Debug().
		Int("detections", len(out.Detections)).
		Dur("inference_time", time.Since(start)).
		Msg("Classifier response received")

	return out.Detections, nil
}

// HealthCheck probes the inference endpoint
func (s *Service) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier health check returned status %d", resp.StatusCode)
	}
	return nil
}
