package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service keyed by a
// store-assigned int ID.  It stores and returns clones so that callers can
// mutate loaded records without racing with other goroutines; a change only
// becomes visible once saved.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[int]*T
	seq     int
	schema  Schema[T]
}

var _ dao.Service[int, struct{}] = (*MemoryStore[struct{}])(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[T any](schema Schema[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		records: make(map[int]*T),
		schema:  schema,
	}
}

// Save inserts or overwrites a record.
func (s *MemoryStore[T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := s.schema.Key(v)
	if *id < 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrInvalidID, s.schema.Name, *id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if *id == 0 {
		s.seq++
		*id = s.seq
	} else if *id > s.seq {
		s.seq = *id
	}
	s.records[*id] = s.clone(v)
	return nil
}

// Load returns a copy of the record or dao.ErrNotFound.
func (s *MemoryStore[T]) Load(_ context.Context, id int) (*T, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %s %d", dao.ErrInvalidID, s.schema.Name, id)
	}
	s.mu.RLock()
	v, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", dao.ErrNotFound, s.schema.Name, id)
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[T]) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s %d", dao.ErrNotFound, s.schema.Name, id)
	}
	delete(s.records, id)
	return nil
}

// List returns copies of records matching status parameters in schema order.
func (s *MemoryStore[T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.schema.Status != nil && !criteria.FilterByStatus(s.schema.Status(v), parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	s.mu.RUnlock()
	if s.schema.Less != nil {
		sort.Slice(out, func(i, j int) bool { return s.schema.Less(out[i], out[j]) })
	}
	return out, nil
}

func (s *MemoryStore[T]) clone(v *T) *T {
	if s.schema.Clone == nil {
		ret := *v
		return &ret
	}
	return s.schema.Clone(v)
}
