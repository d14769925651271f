package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/carealloc/internal/clock"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

// Release closes an open allocation, frees its resource and completes its
// request.  Unknown allocations return ErrAllocationNotFound and closed ones
// ErrAlreadyReleased, both leave state untouched.
func (s *Service) Release(ctx context.Context, allocationID int) (*model.Allocation, error) {
	ctx, span := tracing.StartSpan(ctx, "allocator.release", tracing.KindInternal)
	span.WithInt("allocation_id", allocationID)
	s.allocMux.Lock()
	allocation, err := s.release(ctx, allocationID)
	s.allocMux.Unlock()
	tracing.EndSpan(span, err)
	s.metrics.observeRelease(err)
	return allocation, err
}

func (s *Service) release(ctx context.Context, allocationID int) (*model.Allocation, error) {
	allocation, err := s.allocations.Load(ctx, allocationID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %d", ErrAllocationNotFound, allocationID)
		}
		return nil, fmt.Errorf("failed to load allocation %d: %w", allocationID, err)
	}
	if !allocation.IsActive() {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyReleased, allocationID)
	}
	resource, err := s.resources.Load(ctx, allocation.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource %d of allocation %d: %w", allocation.ResourceID, allocationID, err)
	}
	request, err := s.requests.Load(ctx, allocation.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %d of allocation %d: %w", allocation.RequestID, allocationID, err)
	}

	now := clock.Now()
	undoCtx := context.WithoutCancel(ctx)
	allocation.ReleasedAt = &now
	if err = s.allocations.Save(ctx, allocation); err != nil {
		return nil, fmt.Errorf("failed to close allocation %d: %w", allocationID, err)
	}
	reopen := func() error {
		allocation.ReleasedAt = nil
		return s.allocations.Save(undoCtx, allocation)
	}

	resource.Status = model.ResourceStatusFree
	if err = s.resources.Save(ctx, resource); err != nil {
		return nil, compensate(fmt.Errorf("failed to free resource %d: %w", resource.ID, err), reopen)
	}

	releasedAt := now
	request.Status = model.RequestStatusCompleted
	request.ReleasedAt = &releasedAt
	if err = s.requests.Save(ctx, request); err != nil {
		resource.Status = model.ResourceStatusInUse
		return nil, compensate(fmt.Errorf("failed to complete request %d: %w", request.ID, err),
			func() error { return s.resources.Save(undoCtx, resource) },
			reopen)
	}

	s.logger.Info("released",
		zap.Int("allocation_id", allocation.ID),
		zap.Int("request_id", request.ID),
		zap.String("request_name", request.Name),
		zap.Int("resource_id", resource.ID),
		zap.String("resource_label", resource.Label))
	s.occupancy.Update(occupancy.Delta{Allocated: -1, Completed: 1, InUse: -1, Free: 1})
	s.publish(ctx, &event.Context{
		EventType:    event.TypeReleased,
		RequestID:    request.ID,
		ResourceID:   resource.ID,
		AllocationID: allocation.ID,
	}, newView(allocation, request, resource))
	return allocation, nil
}
