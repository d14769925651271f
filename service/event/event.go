// Package event publishes allocation lifecycle events (submitted, allocated,
// released) over a messaging queue and dispatches them to listeners.
package event

import (
	"time"

	"github.com/viant/carealloc/internal/clock"
)

const (
	TypeSubmitted = "submitted"
	TypeAllocated = "allocated"
	TypeReleased  = "released"
)

// Context identifies what an event refers to
type Context struct {
	EventType    string `json:"eventType"`
	CycleID      string `json:"cycleID,omitempty"`
	RequestID    int    `json:"requestID,omitempty"`
	ResourceID   int    `json:"resourceID,omitempty"`
	AllocationID int    `json:"allocationID,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// Type returns event type or empty string
func (e *Event[T]) Type() string {
	if e == nil || e.Context == nil {
		return ""
	}
	return e.Context.EventType
}
