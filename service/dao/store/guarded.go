package store

import (
	"context"
	"sync"

	"github.com/viant/carealloc/service/dao"
)

// Guarded serialises every call of the wrapped DAO with a lock shared across
// stores.  The lock is held for a single read or write only, it does not make
// a sequence of calls atomic.
type Guarded[K comparable, T any] struct {
	service dao.Service[K, T]
	mux     sync.Locker
}

// NewGuarded wraps service with the storage lock mux.
func NewGuarded[K comparable, T any](service dao.Service[K, T], mux sync.Locker) *Guarded[K, T] {
	return &Guarded[K, T]{service: service, mux: mux}
}

func (g *Guarded[K, T]) Save(ctx context.Context, t *T) error {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.service.Save(ctx, t)
}

func (g *Guarded[K, T]) Load(ctx context.Context, id K) (*T, error) {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.service.Load(ctx, id)
}

func (g *Guarded[K, T]) Delete(ctx context.Context, id K) error {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.service.Delete(ctx, id)
}

func (g *Guarded[K, T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.service.List(ctx, parameters...)
}

// GuardSet wraps every store of set with the shared storage lock mux.
func GuardSet(set *dao.Set, mux sync.Locker) *dao.Set {
	return &dao.Set{
		Resources:   NewGuarded(set.Resources, mux),
		Requests:    NewGuarded(set.Requests, mux),
		Allocations: NewGuarded(set.Allocations, mux),
	}
}
