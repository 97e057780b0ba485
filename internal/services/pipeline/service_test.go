package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/incidents"
	"sentinel-worker-go/internal/models"
)

type fakeSource struct {
	frames []*models.RawFrame
	errAt  map[int]error // injected before the frame at that index
	idx    int
	closed bool
}

func (f *fakeSource) ReadFrame(ctx context.Context) (*models.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errAt[f.idx]; ok {
		delete(f.errAt, f.idx)
		return nil, err
	}
	if f.idx >= len(f.frames) {
		return nil, models.ErrSourceClosed
	}
	frame := f.frames[f.idx]
	f.idx++
	return frame, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeClassifier struct {
	detect func(frameID byte) ([]models.Detection, error)
}

func (f *fakeClassifier) Detect(ctx context.Context, frameData []byte, minConfidence float64) ([]models.Detection, error) {
	return f.detect(frameData[len(frameData)-1])
}

type fakeAgent struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAgent) Trigger(ctx context.Context, report models.AgentReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeAgent) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEvidence struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEvidence) Capture(ctx context.Context, ev models.Evidence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeEvidence) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		CameraID:             "cam-test",
		CameraLat:            15.4589,
		CameraLon:            75.0078,
		LocationName:         "Test_Junction",
		MinConfidence:        0.4,
		CriticalConfidence:   0.4,
		SupportingConfidence: 0.7,
		AgentCooldown:        time.Hour,
		EvidenceCooldown:     time.Hour,
		DispatchTimeout:      time.Second,
		AvgVehicleLengthM:    4.5,
		SignalCycleSecs:      90,
		SecsPerVehicle:       2,
		AlertsSubject:        "alerts.traffic",
		SourceRetryBackoff:   time.Millisecond,
	}
}

func newTestService(agent *fakeAgent, evidence *fakeEvidence, classify func(frameID byte) ([]models.Detection, error)) *Service {
	return NewService(
		testConfig(),
		&fakeClassifier{detect: classify},
		agent,
		evidence,
		nil,
		incidents.NewTracker(10),
	)
}

func frame(id int64) *models.RawFrame {
	return &models.RawFrame{
		CameraID:  "cam-test",
		FrameID:   id,
		Data:      []byte{0xFF, 0xD8, byte(id)},
		Timestamp: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Second),
	}
}

func det(label string, conf float64) models.Detection {
	return models.Detection{Label: label, Confidence: conf, BBox: []float64{0.1, 0.1, 0.5, 0.5}}
}

func TestProcessFrameNoAlert(t *testing.T) {
	agent := &fakeAgent{}
	evidence := &fakeEvidence{}
	svc := newTestService(agent, evidence, nil)

	result := svc.ProcessFrame(frame(1), []models.Detection{
		det("person", 0.6), // below the supporting bar
		det("car", 0.65),
	})

	assert.False(t, result.AccidentAlert)
	assert.Equal(t, models.SeverityNone, result.Severity)
	assert.Equal(t, AgentStatusIdle, result.AgentStatus)
	assert.Equal(t, 2, result.TotalVehicles)
	assert.Equal(t, 1, result.VehicleCountByType[models.VehicleTypePerson])
	assert.Equal(t, 1, result.VehicleCountByType[models.VehicleTypeCar])
	assert.Empty(t, result.HeatmapHotspots)

	// Queue estimate is present even without an alert
	assert.InDelta(t, 9.0, result.QueueInfo.EstimatedQueueLengthM, 1e-9)
	assert.Equal(t, 4, result.QueueInfo.EstimatedWaitTimeS)

	require.NoError(t, svc.WaitDispatches(context.Background()))
	assert.Equal(t, 0, agent.Calls())
	assert.Equal(t, 0, evidence.Calls())
}

func TestProcessFrameSevereAlert(t *testing.T) {
	agent := &fakeAgent{}
	evidence := &fakeEvidence{}
	svc := newTestService(agent, evidence, nil)

	result := svc.ProcessFrame(frame(1), []models.Detection{
		det("car_crash", 0.9),
		det("car", 0.8),
		det("truck", 0.75),
	})

	assert.True(t, result.AccidentAlert)
	assert.Equal(t, models.SeveritySevere, result.Severity)
	assert.Equal(t, AgentStatusDispatching, result.AgentStatus)
	assert.Equal(t, 3, result.TotalVehicles)
	require.Len(t, result.HeatmapHotspots, 1)
	assert.Equal(t, models.SeveritySevere, result.HeatmapHotspots[0].Severity)
	assert.InDelta(t, 15.4589, result.HeatmapHotspots[0].Location.Lat, 1e-9)

	require.NoError(t, svc.WaitDispatches(context.Background()))
	assert.Equal(t, 1, agent.Calls())
	assert.Equal(t, 1, evidence.Calls())

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.FramesProcessed)
	assert.Equal(t, int64(1), stats.AlertsRaised)
	assert.Equal(t, int64(1), stats.AgentTriggers)
	assert.Equal(t, int64(1), stats.EvidenceCaptures)
}

func TestAlertWithTwoVehiclesAndCrashIsModerate(t *testing.T) {
	agent := &fakeAgent{}
	evidence := &fakeEvidence{}
	svc := newTestService(agent, evidence, nil)

	result := svc.ProcessFrame(frame(1), []models.Detection{
		det("car_crash", 0.6), // critical keyword above the low bar
		det("car", 0.5),
	})

	assert.True(t, result.AccidentAlert)
	assert.Equal(t, models.SeverityModerate, result.Severity)

	require.NoError(t, svc.WaitDispatches(context.Background()))
}

func TestAgentCooldownAcrossFrames(t *testing.T) {
	agent := &fakeAgent{}
	evidence := &fakeEvidence{}
	svc := newTestService(agent, evidence, nil)

	alert := []models.Detection{det("accident", 0.9), det("car", 0.8)}

	first := svc.ProcessFrame(frame(1), alert)
	assert.Equal(t, AgentStatusDispatching, first.AgentStatus)
	require.NoError(t, svc.WaitDispatches(context.Background()))

	second := svc.ProcessFrame(frame(2), alert)
	assert.Equal(t, AgentStatusCooldown, second.AgentStatus)
	require.NoError(t, svc.WaitDispatches(context.Background()))

	assert.Equal(t, 1, agent.Calls())
	assert.Equal(t, 1, evidence.Calls())
}

func TestAuthFailureDoesNotConsumeCooldown(t *testing.T) {
	agent := &fakeAgent{err: fmt.Errorf("%w: bad key", models.ErrDispatchAuth)}
	evidence := &fakeEvidence{}
	svc := newTestService(agent, evidence, nil)

	alert := []models.Detection{det("crash", 0.9), det("car", 0.8)}

	svc.ProcessFrame(frame(1), alert)
	require.NoError(t, svc.WaitDispatches(context.Background()))
	require.Equal(t, 1, agent.Calls())

	// The failed attempt recorded no firing, so the next frame dispatches again
	result := svc.ProcessFrame(frame(2), alert)
	assert.Equal(t, AgentStatusDispatching, result.AgentStatus)
	require.NoError(t, svc.WaitDispatches(context.Background()))
	assert.Equal(t, 2, agent.Calls())

	assert.Equal(t, int64(0), svc.Stats().AgentTriggers)
}

func TestEvidenceFailureDoesNotConsumeCooldown(t *testing.T) {
	agent := &fakeAgent{}
	evidence := &fakeEvidence{err: fmt.Errorf("%w: disk full", models.ErrEvidenceWrite)}
	svc := newTestService(agent, evidence, nil)

	alert := []models.Detection{det("crash", 0.9), det("car", 0.8)}

	svc.ProcessFrame(frame(1), alert)
	require.NoError(t, svc.WaitDispatches(context.Background()))

	svc.ProcessFrame(frame(2), alert)
	require.NoError(t, svc.WaitDispatches(context.Background()))

	assert.Equal(t, 2, evidence.Calls())
	assert.Equal(t, int64(0), svc.Stats().EvidenceCaptures)
}

func TestRunEmitsInOrder(t *testing.T) {
	svc := newTestService(&fakeAgent{}, &fakeEvidence{}, func(frameID byte) ([]models.Detection, error) {
		return []models.Detection{det("car", 0.5)}, nil
	})

	source := &fakeSource{frames: []*models.RawFrame{frame(1), frame(2), frame(3)}}

	var emitted []int64
	err := svc.Run(context.Background(), source, func(r *models.FrameResult) error {
		emitted = append(emitted, r.FrameID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, emitted)
	assert.True(t, source.closed)
}

func TestRunSkipsClassifierFailures(t *testing.T) {
	svc := newTestService(&fakeAgent{}, &fakeEvidence{}, func(frameID byte) ([]models.Detection, error) {
		if frameID == 2 {
			return nil, fmt.Errorf("%w: inference timeout", models.ErrClassifier)
		}
		return nil, nil
	})

	source := &fakeSource{frames: []*models.RawFrame{frame(1), frame(2), frame(3)}}

	var emitted []int64
	err := svc.Run(context.Background(), source, func(r *models.FrameResult) error {
		emitted = append(emitted, r.FrameID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, emitted)
	assert.Equal(t, int64(1), svc.Stats().FramesSkipped)
}

func TestRunRetriesTransientSourceFailure(t *testing.T) {
	svc := newTestService(&fakeAgent{}, &fakeEvidence{}, func(frameID byte) ([]models.Detection, error) {
		return nil, nil
	})

	source := &fakeSource{
		frames: []*models.RawFrame{frame(1), frame(2)},
		errAt:  map[int]error{1: models.ErrSourceUnavailable},
	}

	var emitted []int64
	err := svc.Run(context.Background(), source, func(r *models.FrameResult) error {
		emitted = append(emitted, r.FrameID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, emitted)
}

func TestRunStopsWhenConsumerGone(t *testing.T) {
	svc := newTestService(&fakeAgent{}, &fakeEvidence{}, func(frameID byte) ([]models.Detection, error) {
		return nil, nil
	})

	source := &fakeSource{frames: []*models.RawFrame{frame(1), frame(2), frame(3)}}

	calls := 0
	err := svc.Run(context.Background(), source, func(r *models.FrameResult) error {
		calls++
		return fmt.Errorf("connection reset")
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, source.closed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := newTestService(&fakeAgent{}, &fakeEvidence{}, func(frameID byte) ([]models.Detection, error) {
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{frames: []*models.RawFrame{frame(1)}}
	err := svc.Run(ctx, source, func(r *models.FrameResult) error {
		t.Fatal("no frame should be emitted after cancel")
		return nil
	})

	require.NoError(t, err)
}
