// Package fs provides durable stores keeping every record as a JSON file on
// any afs supported file system (local disk, mem://, cloud storage).
package fs

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/store"
)

// New creates a store set rooted at baseURL
func New(ctx context.Context, fs afs.Service, baseURL string) (*dao.Set, error) {
	if fs == nil {
		fs = afs.New()
	}
	resources, err := store.NewFsStore(ctx, fs, baseURL, store.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource store: %w", err)
	}
	requests, err := store.NewFsStore(ctx, fs, baseURL, store.Requests)
	if err != nil {
		return nil, fmt.Errorf("failed to create request store: %w", err)
	}
	allocations, err := store.NewFsStore(ctx, fs, baseURL, store.Allocations)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocation store: %w", err)
	}
	return &dao.Set{
		Resources:   resources,
		Requests:    requests,
		Allocations: allocations,
	}, nil
}
