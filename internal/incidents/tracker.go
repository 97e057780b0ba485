// Package incidents keeps a bounded in-memory history of recent incidents for
// the hotspot view. Not durable across restarts by design.
package incidents

import (
	"sync"
	"time"

	"sentinel-worker-go/internal/models"
)

// Tracker is a fixed-capacity FIFO ring of incidents. Safe for concurrent
// Record/Hotspots calls; readers get copy-on-read snapshots.
type Tracker struct {
	mu       sync.Mutex
	buf      []models.Incident
	head     int // index of the oldest entry
	size     int
	capacity int
}

// NewTracker creates a tracker with the given capacity (default 100)
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 100
	}
	return &Tracker{
		buf:      make([]models.Incident, capacity),
		capacity: capacity,
	}
}

// Record appends an incident, evicting the oldest entry when full
func (t *Tracker) Record(location models.Location, severity models.Severity, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.size < t.capacity {
		t.buf[(t.head+t.size)%t.capacity] = models.Incident{
			Location:  location,
			Severity:  severity,
			Timestamp: ts,
		}
		t.size++
		return
	}

	// Full: overwrite the oldest slot and advance the head
	t.buf[t.head] = models.Incident{
		Location:  location,
		Severity:  severity,
		Timestamp: ts,
	}
	t.head = (t.head + 1) % t.capacity
}

// Hotspots returns a snapshot of the recorded incidents in insertion order,
// oldest first. No clustering beyond the raw point listing; downstream
// consumers may cluster.
func (t *Tracker) Hotspots() []models.Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Incident, t.size)
	for i := 0; i < t.size; i++ {
		out[i] = t.buf[(t.head+i)%t.capacity]
	}
	return out
}

// Len returns the number of incidents currently held
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Capacity returns the configured ring capacity
func (t *Tracker) Capacity() int {
	return t.capacity
}
