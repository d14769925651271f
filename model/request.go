package model

import "time"

const (
	RequestStatusQueued    = "queued"
	RequestStatusAllocated = "allocated"
	RequestStatusCompleted = "completed"
)

const (
	// PriorityHighest is the most urgent base priority.
	PriorityHighest = 1
	// PriorityLowest is the least urgent base priority.
	PriorityLowest = 5
)

// Request represents a demand for a resource waiting in the queue
type Request struct {
	ID          int        `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Priority    int        `json:"priority" db:"priority"`
	EstMinutes  int        `json:"est_minutes" db:"est_minutes"`
	Status      string     `json:"status" db:"status"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	AllocatedAt *time.Time `json:"allocated_at,omitempty" db:"allocated_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty" db:"released_at"`
}

// IsQueued returns true when request waits for a resource
func (r *Request) IsQueued() bool {
	return r.Status == RequestStatusQueued
}

// Clone returns a copy of the request, timestamps included
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	ret := *r
	ret.AllocatedAt = cloneTime(r.AllocatedAt)
	ret.ReleasedAt = cloneTime(r.ReleasedAt)
	return &ret
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ret := *t
	return &ret
}
