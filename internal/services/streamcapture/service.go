// Package streamcapture adapts an OpenCV VideoCapture into the pipeline's
// frame source contract. It handles webcam device indexes and RTSP URLs,
// JPEG-encodes each frame, and resets the decoder after persistent read
// failures.
package streamcapture

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
)

const maxConsecutiveErrors = 10

// Source reads frames from a camera device or RTSP stream
type Source struct {
	cfg      *config.Config
	cameraID string
	url      string

	mu                sync.Mutex
	cap               *gocv.VideoCapture
	img               gocv.Mat
	frameID           int64
	consecutiveErrors int
	closed            bool
}

// NewSource opens the configured camera. A numeric URL is treated as a local
// device index, anything else as an FFmpeg-backed stream URL.
func NewSource(cfg *config.Config) (*Source, error) {
	s := &Source{
		cfg:      cfg,
		cameraID: cfg.CameraID,
		url:      cfg.CameraURL,
		img:      gocv.NewMat(),
	}

	if err := s.open(); err != nil {
		s.img.Close()
		return nil, err
	}

	return s, nil
}

// ReadFrame reads and JPEG-encodes the next frame. Transient read failures
// return models.ErrSourceUnavailable; the caller owns retry pacing. A
// persistent failure run triggers one decoder reset before giving up on the
// frame.
func (s *Source) ReadFrame(ctx context.Context) (*models.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, models.ErrSourceClosed
	}

	if !s.cap.Read(&s.img) || s.img.Empty() {
		s.consecutiveErrors++
		if s.consecutiveErrors >= maxConsecutiveErrors {
			log.Warn().
				Str("camera_id", s.cameraID).
				Int("consecutive_errors", s.consecutiveErrors).
				Msg("Too many consecutive read failures, resetting decoder")
			if err := s.reset(); err != nil {
				return nil, fmt.Errorf("%w: decoder reset failed: %v", models.ErrSourceUnavailable, err)
			}
			s.consecutiveErrors = 0
		}
		return nil, fmt.Errorf("%w: frame read failed", models.ErrSourceUnavailable)
	}

	s.consecutiveErrors = 0
	s.frameID++

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.img)
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg encode failed: %v", models.ErrSourceUnavailable, err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return &models.RawFrame{
		CameraID:  s.cameraID,
		FrameID:   s.frameID,
		Data:      data,
		Width:     s.img.Cols(),
		Height:    s.img.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Close releases the capture device. Subsequent reads return ErrSourceClosed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.img.Close()
	if s.cap != nil {
		if err := s.cap.Close(); err != nil {
			return err
		}
		s.cap = nil
	}

	log.Info().Str("camera_id", s.cameraID).Msg("Frame source closed")
	return nil
}

func (s *Source) open() error {
	if idx, err := strconv.Atoi(strings.TrimSpace(s.url)); err == nil {
		cap, err := gocv.OpenVideoCapture(idx)
		if err != nil {
			return fmt.Errorf("%w: open device %d: %v", models.ErrSourceUnavailable, idx, err)
		}
		s.cap = cap
	} else {
		configureFFmpegOptions()
		cap, err := gocv.OpenVideoCaptureWithAPI(s.url, gocv.VideoCaptureFFmpeg)
		if err != nil {
			return fmt.Errorf("%w: open stream %s: %v", models.ErrSourceUnavailable, s.url, err)
		}
		s.cap = cap
	}

	if !s.cap.IsOpened() {
		s.cap.Close()
		s.cap = nil
		return fmt.Errorf("%w: capture not opened for %s", models.ErrSourceUnavailable, s.url)
	}

	// Minimal buffer keeps the loop on the live frame
	s.cap.Set(gocv.VideoCaptureBufferSize, 1)

	log.Info().
		Str("camera_id", s.cameraID).
		Str("url", s.url).
		Float64("fps", s.cap.Get(gocv.VideoCaptureFPS)).
		Float64("width", s.cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", s.cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("Video capture opened")

	return nil
}

// reset tears down and reopens the capture after persistent read failures
func (s *Source) reset() error {
	if s.cap != nil {
		s.cap.Close()
		s.cap = nil
	}
	time.Sleep(500 * time.Millisecond)
	return s.open()
}

// configureFFmpegOptions tunes the OpenCV FFmpeg backend for low-latency RTSP
func configureFFmpegOptions() {
	options := []string{
		"rtsp_transport;tcp",
		"buffer_size;2097152",
		"max_delay;500000",
		"stimeout;5000000",
		"fflags;nobuffer+flush_packets",
		"flags;low_delay",
		"reconnect;1",
		"reconnect_streamed;1",
		"reconnect_delay_max;2",
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(options, "|"))
}
