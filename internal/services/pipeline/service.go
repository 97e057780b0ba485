// Package pipeline drives the per-frame alerting pipeline: classify labels,
// score severity, record incidents, estimate queues, and gate outbound
// dispatches behind per-kind cooldowns. Frame results are emitted to the live
// consumer in frame arrival order; dispatch side effects are offloaded and
// never block emission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/dispatch"
	"sentinel-worker-go/internal/helpers"
	"sentinel-worker-go/internal/incidents"
	"sentinel-worker-go/internal/logging"
	"sentinel-worker-go/internal/models"
	"sentinel-worker-go/internal/queueing"
	"sentinel-worker-go/internal/severity"
	"sentinel-worker-go/internal/taxonomy"
)

// DefaultCriticalKeywords match crash-class labels that trigger at the lower
// confidence bar
var DefaultCriticalKeywords = []string{"accident", "crash", "car_crash", "damage", "wreck", "severe", "collision"}

// DefaultSupportingKeywords match generic labels that need the higher bar
var DefaultSupportingKeywords = []string{"car", "vehicle", "person"}

// Agent status values reported in the frame result
const (
	AgentStatusIdle        = "idle"
	AgentStatusDispatching = "dispatching"
	AgentStatusCooldown    = "cooldown"
)

// Stats are the pipeline's running counters
type Stats struct {
	FramesProcessed  int64     `json:"frames_processed"`
	FramesSkipped    int64     `json:"frames_skipped"`
	AlertsRaised     int64     `json:"alerts_raised"`
	AgentTriggers    int64     `json:"agent_triggers"`
	EvidenceCaptures int64     `json:"evidence_captures"`
	StartedAt        time.Time `json:"started_at"`
}

// Service is the alert orchestrator
type Service struct {
	cfg *config.Config

	taxonomy  *taxonomy.Table
	severity  *severity.Engine
	estimator *queueing.Estimator
	tracker   *incidents.Tracker

	agentGate    *dispatch.Gate
	evidenceGate *dispatch.Gate

	classifier models.Classifier
	agent      models.AgentDispatcher
	evidence   models.EvidenceSink
	publisher  models.MessagePublisher // optional alert fan-out

	criticalKeywords   []string
	supportingKeywords []string

	logger zerolog.Logger

	// In-flight offloaded dispatches. On shutdown these run to completion:
	// losing evidence on disconnect is worse than a slightly delayed stop.
	dispatchWG sync.WaitGroup

	framesProcessed  atomic.Int64
	framesSkipped    atomic.Int64
	alertsRaised     atomic.Int64
	agentTriggers    atomic.Int64
	evidenceCaptures atomic.Int64
	startedAt        time.Time
}

// NewService wires the orchestrator. The publisher may be nil when NATS
// fan-out is disabled.
func NewService(
	cfg *config.Config,
	classifierSvc models.Classifier,
	agentSvc models.AgentDispatcher,
	evidenceSvc models.EvidenceSink,
	publisher models.MessagePublisher,
	tracker *incidents.Tracker,
) *Service {
	s := &Service{
		cfg:                cfg,
		taxonomy:           taxonomy.Default(),
		severity:           severity.NewEngine(nil),
		estimator:          queueing.NewEstimator(cfg.AvgVehicleLengthM, cfg.SignalCycleSecs, cfg.SecsPerVehicle),
		tracker:            tracker,
		agentGate:          dispatch.NewGate(dispatch.KindAgentTrigger, cfg.AgentCooldown),
		evidenceGate:       dispatch.NewGate(dispatch.KindEvidenceCapture, cfg.EvidenceCooldown),
		classifier:         classifierSvc,
		agent:              agentSvc,
		evidence:           evidenceSvc,
		publisher:          publisher,
		criticalKeywords:   DefaultCriticalKeywords,
		supportingKeywords: DefaultSupportingKeywords,
		logger:             logging.WithCamera(logging.NewServiceLogger(cfg, "pipeline"), cfg.CameraID),
		startedAt:          time.Now(),
	}

	s.logger.Info().
		Float64("critical_confidence", cfg.CriticalConfidence).
		Float64("supporting_confidence", cfg.SupportingConfidence).
		Dur("agent_cooldown", cfg.AgentCooldown).
		Dur("evidence_cooldown", cfg.EvidenceCooldown).
		Msg("Pipeline initialized")

	return s
}

// Run drives the frame loop until the context is cancelled or the source is
// exhausted. FrameResults are passed to emit in frame arrival order; an emit
// error means the consumer is gone and stops the loop.
func (s *Service) Run(ctx context.Context, source models.FrameSource, emit func(*models.FrameResult) error) error {
	defer source.Close()

	s.logger.Info().Msg("Frame loop started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Frame loop stopped by consumer")
			return nil
		default:
		}

		frame, err := source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, models.ErrSourceClosed) || errors.Is(err, context.Canceled) {
				s.logger.Info().Msg("Frame source exhausted, stopping loop")
				return nil
			}
			// Transient source failure: skip and retry next cycle
			s.framesSkipped.Add(1)
			s.logger.Warn().Err(err).Msg("Frame read failed, retrying")
			if !sleepCtx(ctx, s.cfg.SourceRetryBackoff) {
				return nil
			}
			continue
		}
		if frame == nil || len(frame.Data) == 0 {
			s.framesSkipped.Add(1)
			continue
		}

		detections, err := s.classifier.Detect(ctx, frame.Data, s.cfg.MinConfidence)
		if err != nil {
			// Classifier errors are transient: no alert, no crash, next frame
			s.framesSkipped.Add(1)
			s.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("Classifier failed, skipping frame")
			continue
		}

		result := s.ProcessFrame(frame, detections)

		if err := emit(result); err != nil {
			s.logger.Info().Err(err).Msg("Live consumer disconnected")
			return nil
		}

		if !sleepCtx(ctx, s.cfg.FrameInterval) {
			return nil
		}
	}
}

// ProcessFrame turns one frame's detections into a FrameResult and, when the
// trigger rule fires, performs the alert side effects. Dispatch outcomes never
// affect the emitted result.
func (s *Service) ProcessFrame(frame *models.RawFrame, detections []models.Detection) *models.FrameResult {
	s.framesProcessed.Add(1)

	counts := make(map[models.VehicleType]int, 7)
	for _, t := range s.taxonomy.Types() {
		counts[t] = 0
	}
	counts[models.VehicleTypeOther] = 0

	totalVehicles := 0
	peakConfidence := 0.0
	accidentAlert := false
	labels := make([]string, 0, len(detections))

	for i := range detections {
		det := &detections[i]
		det.VehicleType = s.taxonomy.Classify(det.Label)
		if det.VehicleType != models.VehicleTypeOther {
			counts[det.VehicleType]++
			totalVehicles++
		}
		labels = append(labels, det.Label)

		// Tiered trigger rule: crash classes fire above the critical bar,
		// generic vehicle/person labels only above the higher supporting bar.
		isCritical := containsAny(det.Label, s.criticalKeywords)
		isSupporting := containsAny(det.Label, s.supportingKeywords)

		if (isCritical && det.Confidence > s.cfg.CriticalConfidence) ||
			(isSupporting && det.Confidence > s.cfg.SupportingConfidence) {
			accidentAlert = true
			if det.Confidence > peakConfidence {
				peakConfidence = det.Confidence
			}
			s.logger.Debug().
				Str("label", det.Label).
				Float64("confidence", det.Confidence).
				Msg("Trigger rule matched")
		}
	}

	result := &models.FrameResult{
		FrameID:            frame.FrameID,
		Timestamp:          frame.Timestamp,
		Detections:         detections,
		AccidentAlert:      accidentAlert,
		AgentStatus:        AgentStatusIdle,
		Severity:           models.SeverityNone,
		VehicleCountByType: counts,
		TotalVehicles:      totalVehicles,
		QueueInfo:          s.estimator.Estimate(totalVehicles),
	}

	if accidentAlert {
		s.handleAlert(frame, result, peakConfidence, labels)
	}

	result.HeatmapHotspots = s.tracker.Hotspots()
	return result
}

// handleAlert performs the alert-path side effects for a triggering frame
func (s *Service) handleAlert(frame *models.RawFrame, result *models.FrameResult, peakConfidence float64, labels []string) {
	s.alertsRaised.Add(1)

	sev := s.severity.Score(result.TotalVehicles, peakConfidence, labels)
	result.Severity = sev

	location := models.Location{Lat: s.cfg.CameraLat, Lon: s.cfg.CameraLon}
	s.tracker.Record(location, sev, frame.Timestamp)

	s.logger.Info().
		Int64("frame_id", frame.FrameID).
		Str("severity", string(sev)).
		Int("total_vehicles", result.TotalVehicles).
		Float64("peak_confidence", peakConfidence).
		Float64("queue_length_m", result.QueueInfo.EstimatedQueueLengthM).
		Int("wait_time_s", result.QueueInfo.EstimatedWaitTimeS).
		Msg("🚨 Accident alert raised")

	result.AgentStatus = s.dispatchAgent(frame, sev, peakConfidence, result.TotalVehicles)
	s.dispatchEvidence(frame, result.Detections, sev, result.TotalVehicles, location)

	if s.publisher != nil {
		payload := models.AlertPayload{
			CameraID:           frame.CameraID,
			FrameID:            frame.FrameID,
			Severity:           sev,
			PeakConfidence:     peakConfidence,
			TotalVehicles:      result.TotalVehicles,
			VehicleCountByType: result.VehicleCountByType,
			Location:           location,
			QueueInfo:          result.QueueInfo,
			Timestamp:          frame.Timestamp,
		}
		if err := s.publisher.Publish(s.cfg.AlertsSubject, payload); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish alert")
		}
	}
}

// dispatchAgent attempts the gated agent trigger. The downstream call runs in
// its own goroutine with a bounded timeout, detached from the frame loop
// context so an in-flight dispatch survives consumer disconnect.
func (s *Service) dispatchAgent(frame *models.RawFrame, sev models.Severity, confidence float64, vehicleCount int) string {
	allowed, nextEligible := s.agentGate.Begin(time.Now())
	if !allowed {
		s.logger.Debug().
			Time("next_eligible_at", nextEligible).
			Msg("Agent dispatch blocked by cooldown")
		return AgentStatusCooldown
	}

	report := models.AgentReport{
		Confidence:   confidence,
		Severity:     sev,
		VehicleCount: vehicleCount,
		Location:     s.cfg.LocationName,
		Timestamp:    frame.Timestamp,
	}

	s.dispatchWG.Add(1)
	go func() {
		defer s.dispatchWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
		defer cancel()

		err := s.agent.Trigger(ctx, report)
		switch {
		case err == nil:
			s.agentGate.Commit(time.Now())
			s.agentTriggers.Add(1)
		case errors.Is(err, models.ErrDispatchAuth):
			// Auth failure must not consume the cooldown
			s.agentGate.Release()
			s.logger.Error().Err(err).Msg("Agent dispatch auth failed")
		default:
			s.agentGate.Release()
			s.logger.Error().Err(err).Msg("Agent dispatch failed")
		}
	}()

	return AgentStatusDispatching
}

// dispatchEvidence attempts the gated evidence capture on its own goroutine
func (s *Service) dispatchEvidence(frame *models.RawFrame, detections []models.Detection, sev models.Severity, vehicleCount int, location models.Location) {
	allowed, nextEligible := s.evidenceGate.Begin(time.Now())
	if !allowed {
		s.logger.Debug().
			Time("next_eligible_at", nextEligible).
			Msg("Evidence capture blocked by cooldown")
		return
	}

	// Annotation returns a fresh buffer, so the capture goroutine owns its bytes
	image := helpers.AnnotateDetections(frame.Data, detections)

	ev := models.Evidence{
		CameraID:  frame.CameraID,
		Image:     image,
		Severity:  sev,
		Caption:   fmt.Sprintf("Severity: %s, Vehicles: %d", sev, vehicleCount),
		Location:  location,
		Timestamp: frame.Timestamp,
	}

	s.dispatchWG.Add(1)
	go func() {
		defer s.dispatchWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
		defer cancel()

		if err := s.evidence.Capture(ctx, ev); err != nil {
			// Failed write must not consume the cooldown
			s.evidenceGate.Release()
			s.logger.Error().Err(err).Msg("Evidence capture failed")
			return
		}

		s.evidenceGate.Commit(time.Now())
		s.evidenceCaptures.Add(1)
	}()
}

// WaitDispatches blocks until in-flight dispatches finish or the context ends
func (s *Service) WaitDispatches(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatchWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the pipeline counters
func (s *Service) Stats() Stats {
	return Stats{
		FramesProcessed:  s.framesProcessed.Load(),
		FramesSkipped:    s.framesSkipped.Load(),
		AlertsRaised:     s.alertsRaised.Load(),
		AgentTriggers:    s.agentTriggers.Load(),
		EvidenceCaptures: s.evidenceCaptures.Load(),
		StartedAt:        s.startedAt,
	}
}

// Hotspots exposes the incident tracker snapshot
func (s *Service) Hotspots() []models.Incident {
	return s.tracker.Hotspots()
}

func containsAny(label string, keywords []string) bool {
	labelLower := strings.ToLower(label)
	for _, kw := range keywords {
		if strings.Contains(labelLower, kw) {
			return true
		}
	}
	return false
}

// sleepCtx sleeps for d unless the context ends first; reports whether the
// context is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
