package store

import (
	"github.com/viant/carealloc/model"
)

// Schema describes how a generic store handles records of type T.
type Schema[T any] struct {
	// Name identifies the record kind, fs stores use it as directory name.
	Name string
	// Key returns a pointer to the record ID, zero IDs are assigned on Save.
	Key func(*T) *int
	// Status returns the status matched by status parameters.
	Status func(*T) string
	// Less defines List order.
	Less func(a, b *T) bool
	// Clone copies a record so that callers never share stored instances.
	Clone func(*T) *T
}

// Resources lists free/in-use resources ordered by (type, id).
var Resources = Schema[model.Resource]{
	Name:   "resources",
	Key:    func(r *model.Resource) *int { return &r.ID },
	Status: func(r *model.Resource) string { return r.Status },
	Less: func(a, b *model.Resource) bool {
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	},
	Clone: (*model.Resource).Clone,
}

// Requests lists requests in submission order, ID breaks ties.
var Requests = Schema[model.Request]{
	Name:   "requests",
	Key:    func(r *model.Request) *int { return &r.ID },
	Status: func(r *model.Request) string { return r.Status },
	Less: func(a, b *model.Request) bool {
		if !a.RequestedAt.Equal(b.RequestedAt) {
			return a.RequestedAt.Before(b.RequestedAt)
		}
		return a.ID < b.ID
	},
	Clone: (*model.Request).Clone,
}

// Allocations lists ledger entries by ID, status is active or released.
var Allocations = Schema[model.Allocation]{
	Name:   "allocations",
	Key:    func(a *model.Allocation) *int { return &a.ID },
	Status: (*model.Allocation).Status,
	Less: func(a, b *model.Allocation) bool {
		return a.ID < b.ID
	},
	Clone: (*model.Allocation).Clone,
}
