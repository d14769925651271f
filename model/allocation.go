package model

import "time"

const (
	AllocationStatusActive   = "active"
	AllocationStatusReleased = "released"
)

// Allocation is a ledger entry linking a request to the resource serving it.
// A nil ReleasedAt means the allocation is still open.
type Allocation struct {
	ID           int          `json:"id" db:"id"`
	RequestID    int          `json:"request_id" db:"request_id"`
	ResourceType ResourceType `json:"resource_type" db:"resource_type"`
	ResourceID   int          `json:"resource_id" db:"resource_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	ReleasedAt   *time.Time   `json:"released_at,omitempty" db:"released_at"`
}

// IsActive returns true until the allocation is released
func (a *Allocation) IsActive() bool {
	return a.ReleasedAt == nil
}

// Status returns the derived ledger status (active or released)
func (a *Allocation) Status() string {
	if a.IsActive() {
		return AllocationStatusActive
	}
	return AllocationStatusReleased
}

// Clone returns a copy of the allocation
func (a *Allocation) Clone() *Allocation {
	if a == nil {
		return nil
	}
	ret := *a
	ret.ReleasedAt = cloneTime(a.ReleasedAt)
	return &ret
}

// AllocationView is an open allocation joined with its request and resource,
// used to render current occupancy.
type AllocationView struct {
	Allocation
	Name          string `json:"name"`
	Priority      int    `json:"priority"`
	ResourceLabel string `json:"label"`
}
