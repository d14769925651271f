package occupancy

import (
	"sync"
	"time"

	"github.com/viant/carealloc/internal/clock"
)

// Delta represents an incremental counter change, fields are signed.
type Delta struct {
	Queued    int
	Allocated int
	Completed int
	Free      int
	InUse     int
}

// Counts is a point in time view of the counters
type Counts struct {
	Queued    int       `json:"queued"`
	Allocated int       `json:"allocated"`
	Completed int       `json:"completed"`
	Free      int       `json:"free"`
	InUse     int       `json:"in_use"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resources returns the inventory size
func (c Counts) Resources() int {
	return c.Free + c.InUse
}

// Tracker holds occupancy counters, it is safe for concurrent use.
type Tracker struct {
	mux      sync.Mutex
	counts   Counts
	onChange func(Counts)
}

// New creates a tracker
func New() *Tracker {
	return &Tracker{}
}

// Update applies d, the change callback runs outside the critical section.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.mux.Lock()
	t.counts.Queued += d.Queued
	t.counts.Allocated += d.Allocated
	t.counts.Completed += d.Completed
	t.counts.Free += d.Free
	t.counts.InUse += d.InUse
	t.counts.UpdatedAt = clock.Now()
	snapshot, cb := t.counts, t.onChange
	t.mux.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Reset replaces counters with a recount taken from storage
func (t *Tracker) Reset(counts Counts) {
	if t == nil {
		return
	}
	t.mux.Lock()
	counts.UpdatedAt = clock.Now()
	t.counts = counts
	cb := t.onChange
	t.mux.Unlock()
	if cb != nil {
		cb(counts)
	}
}

// Snapshot returns a copy of the counters
func (t *Tracker) Snapshot() Counts {
	if t == nil {
		return Counts{}
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.counts
}

// OnChange registers a callback invoked after every update, nil disables it.
func (t *Tracker) OnChange(cb func(Counts)) {
	if t == nil {
		return
	}
	t.mux.Lock()
	t.onChange = cb
	t.mux.Unlock()
}
