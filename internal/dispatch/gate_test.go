package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstAttemptAllowed(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindAgentTrigger, time.Minute)
	now := time.Now()

	allowed, next := gate.Begin(now)
	assert.True(t, allowed)
	assert.True(t, next.IsZero())
}

func TestCooldownWindow(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindAgentTrigger, time.Minute)
	t0 := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	allowed, _ := gate.Begin(t0)
	require.True(t, allowed)
	gate.Commit(t0)

	// Inside the window: denied, with the eligibility bound reported
	allowed, next := gate.Begin(t0.Add(30 * time.Second))
	assert.False(t, allowed)
	assert.Equal(t, t0.Add(time.Minute), next)

	// At the boundary: window has elapsed
	allowed, _ = gate.Begin(t0.Add(time.Minute))
	assert.True(t, allowed)
}

func TestFailedDispatchDoesNotConsumeCooldown(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindEvidenceCapture, time.Minute)
	t0 := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	allowed, _ := gate.Begin(t0)
	require.True(t, allowed)
	gate.Release()

	// Immediately eligible again; the failure recorded nothing
	allowed, _ = gate.Begin(t0.Add(time.Millisecond))
	assert.True(t, allowed)
	assert.True(t, gate.LastFired().IsZero())
}

func TestInFlightBlocksSecondAttempt(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindAgentTrigger, time.Minute)
	t0 := time.Now()

	allowed, _ := gate.Begin(t0)
	require.True(t, allowed)

	// Winner has not committed yet; a second attempt in the same window loses
	allowed, _ = gate.Begin(t0)
	assert.False(t, allowed)

	gate.Commit(t0)
	allowed, _ = gate.Begin(t0.Add(time.Minute))
	assert.True(t, allowed)
}

func TestConcurrentAttemptsSingleWinner(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindAgentTrigger, time.Minute)
	now := time.Now()

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := gate.Begin(now); allowed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestGatesAreIndependent(t *testing.T) {
	t.Parallel()

	agentGate := NewGate(KindAgentTrigger, time.Hour)
	evidenceGate := NewGate(KindEvidenceCapture, time.Hour)
	t0 := time.Now()

	allowed, _ := agentGate.Begin(t0)
	require.True(t, allowed)
	agentGate.Commit(t0)

	// The agent firing does not put the evidence gate on cooldown
	allowed, _ = evidenceGate.Begin(t0)
	assert.True(t, allowed)
}

func TestCooldownMeasuredFromLastSuccess(t *testing.T) {
	t.Parallel()

	gate := NewGate(KindEvidenceCapture, 15*time.Second)
	t0 := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	allowed, _ := gate.Begin(t0)
	require.True(t, allowed)
	gate.Commit(t0)

	// Attempt at +5s is denied and must not extend the window
	allowed, _ = gate.Begin(t0.Add(5 * time.Second))
	require.False(t, allowed)

	allowed, _ = gate.Begin(t0.Add(20 * time.Second))
	assert.True(t, allowed)
}
