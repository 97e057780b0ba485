package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
)

// Service archives alerting frames and pushes them to the notification
// channel. The archive write is the success criterion: a frame that cannot be
// written is a failed capture (and does not consume the evidence cooldown),
// while notification failures are logged and skipped for that evidence only.
type Service struct {
	cfg    *config.Config
	client *http.Client
}

// NewService creates the evidence sink and its archive directory
func NewService(cfg *config.Config) (*Service, error) {
	if err := os.MkdirAll(filepath.Join(cfg.EvidenceDir, "crashes"), 0o755); err != nil {
		return nil, fmt.Errorf("create evidence directory: %w", err)
	}

	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.DispatchTimeout},
	}, nil
}

// Capture writes the evidence image to the archive and then notifies the
// channel with the photo and the camera location. Returns an error only when
// the archive write fails.
func (s *Service) Capture(ctx context.Context, ev models.Evidence) error {
	if len(ev.Image) == 0 {
		return fmt.Errorf("%w: empty frame", models.ErrEvidenceWrite)
	}

	filename := fmt.Sprintf("evidence_%s_%s_crash.jpg",
		ev.Timestamp.Format("20060102_150405"), ev.Severity)
	path := filepath.Join(s.cfg.EvidenceDir, "crashes", filename)

	if err := os.WriteFile(path, ev.Image, 0o644); err != nil {
		return fmt.Errorf("%w: %v", models.ErrEvidenceWrite, err)
	}

	log.Info().
		Str("camera_id", ev.CameraID).
		Str("path", path).
		Int("bytes", len(ev.Image)).
		Msg("📸 Evidence archived")

	if s.cfg.BotToken == "" {
		log.Debug().Msg("Bot token not configured, skipping evidence notification")
		return nil
	}

	caption := fmt.Sprintf("🚨 SENTINEL ALERT\nSeverity: %s\nInfo: %s\nTime: %s",
		ev.Severity, ev.Caption, ev.Timestamp.Format("20060102_150405"))

	if err := s.sendPhoto(ctx, ev.Image, filename, caption); err != nil {
		log.Error().Err(err).Str("camera_id", ev.CameraID).Msg("Evidence photo send failed")
		return nil
	}

	if err := s.sendLocation(ctx, ev.Location); err != nil {
		log.Error().Err(err).Str("camera_id", ev.CameraID).Msg("Evidence location send failed")
	}

	return nil
}

// sendPhoto posts the evidence image with its caption to the bot channel
func (s *Service) sendPhoto(ctx context.Context, image []byte, filename, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", s.cfg.BotChatID); err != nil {
		return err
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return err
	}

	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", strings.TrimRight(s.cfg.BotAPIURL, "/"), s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("photo send returned status %d: %s", resp.StatusCode, msg)
	}

	log.Debug().Msg("Evidence photo delivered")
	return nil
}

// sendLocation posts the camera coordinates to the bot channel
func (s *Service) sendLocation(ctx context.Context, loc models.Location) error {
	form := url.Values{}
	form.Set("chat_id", s.cfg.BotChatID)
	form.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	form.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', -1, 64))

	endpoint := fmt.Sprintf("%s/bot%s/sendLocation", strings.TrimRight(s.cfg.BotAPIURL, "/"), s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("location send returned status %d", resp.StatusCode)
	}

	log.Debug().Msg("Evidence location delivered")
	return nil
}
