// Package dispatch throttles outbound side effects with per-kind cooldown
// gates. A gate only consumes its cooldown when the downstream action
// succeeds: callers separate the gate check (Begin) from the success record
// (Commit), and a failed downstream call Releases the gate instead.
package dispatch

import (
	"sync"
	"time"
)

// Kind names a gated action
type Kind string

const (
	KindAgentTrigger    Kind = "agent_trigger"
	KindEvidenceCapture Kind = "evidence_capture"
)

// Gate is a single-kind cooldown gate. Two gates of different kinds never
// share state: firing one does not reset the other.
type Gate struct {
	kind     Kind
	cooldown time.Duration

	mu        sync.Mutex
	lastFired time.Time
	inFlight  bool
}

// NewGate creates a gate for one action kind
func NewGate(kind Kind, cooldown time.Duration) *Gate {
	return &Gate{kind: kind, cooldown: cooldown}
}

// Kind returns the gate's action kind
func (g *Gate) Kind() Kind {
	return g.kind
}

// Cooldown returns the configured cooldown window
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// Begin attempts to win the gate for one dispatch. At most one caller holds
// the gate at a time: concurrent attempts are linearized and only the winner
// sees allowed=true until it Commits or Releases. The cooldown window is
// measured from the previous successful firing, not from attempt time.
func (g *Gate) Begin(now time.Time) (allowed bool, nextEligibleAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastFired.IsZero() {
		nextEligibleAt = g.lastFired.Add(g.cooldown)
		if now.Before(nextEligibleAt) {
			return false, nextEligibleAt
		}
	}

	if g.inFlight {
		// Someone already won this window; treat as on cooldown until they
		// commit or release.
		return false, nextEligibleAt
	}

	g.inFlight = true
	return true, nextEligibleAt
}

// Commit records a successful downstream action and starts a new cooldown
// window. Only the Begin winner may call it.
func (g *Gate) Commit(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastFired = now
	g.inFlight = false
}

// Release returns the gate after a failed downstream action without consuming
// the cooldown, so a later attempt may fire as soon as the previous window
// (if any) elapses.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight = false
}

// LastFired returns the timestamp of the last successful firing (zero if none)
func (g *Gate) LastFired() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFired
}
