// Package memory provides in-memory, thread-safe stores for the resource
// inventory, request queue and allocation ledger.  State does not survive a
// restart; use it for tests and single-instance demos.
package memory

import (
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/store"
)

// New creates an empty in-memory store set
func New() *dao.Set {
	return &dao.Set{
		Resources:   store.NewMemoryStore(store.Resources),
		Requests:    store.NewMemoryStore(store.Requests),
		Allocations: store.NewMemoryStore(store.Allocations),
	}
}
