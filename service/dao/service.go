package dao

import (
	"context"

	"github.com/viant/carealloc/model"
)

// Service is a record store.  Save inserts a record with a zero ID, assigning
// the generated ID to it, and updates the record otherwise.  List returns
// records in the store's scan order.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// Set groups the stores backing the allocator: resource inventory, request
// queue and allocation ledger.
type Set struct {
	Resources   Service[int, model.Resource]
	Requests    Service[int, model.Request]
	Allocations Service[int, model.Allocation]
}
