package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/carealloc/internal/clock"
	"github.com/viant/carealloc/internal/idgen"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

// Match is a request paired with the resource serving it
type Match struct {
	Request           *model.Request
	Resource          *model.Resource
	Allocation        *model.Allocation
	EffectivePriority int
}

// Cycle summarises one allocation pass
type Cycle struct {
	ID             string
	StartedAt      time.Time
	Duration       time.Duration
	FreeResources  int
	QueuedRequests int
	Matches        []*Match
}

// Idle returns true when the cycle allocated nothing
func (c *Cycle) Idle() bool {
	return len(c.Matches) == 0
}

// RunCycle matches queued requests to free resources under the allocation
// lock.  Requests are taken in Rank order and each one pops the head of the
// free resources ordered by (type, id).  Matches committed before an error
// stay committed, the failed match is rolled back.
func (s *Service) RunCycle(ctx context.Context) (*Cycle, error) {
	cycle := &Cycle{ID: idgen.Short(), StartedAt: clock.Now()}
	ctx, span := tracing.StartSpan(ctx, "allocator.cycle", tracing.KindInternal)
	s.allocMux.Lock()
	err := s.runCycle(ctx, cycle)
	s.allocMux.Unlock()
	cycle.Duration = clock.Since(cycle.StartedAt)
	span.WithAttributes(map[string]string{"cycle_id": cycle.ID}).
		WithInt("free_resources", cycle.FreeResources).
		WithInt("queued_requests", cycle.QueuedRequests).
		WithInt("allocated", len(cycle.Matches))
	tracing.EndSpan(span, err)
	s.metrics.observeCycle(cycle, err)
	return cycle, err
}

func (s *Service) runCycle(ctx context.Context, cycle *Cycle) error {
	free, err := s.resources.List(ctx, dao.WithStatus(model.ResourceStatusFree))
	if err != nil {
		return fmt.Errorf("failed to list free resources: %w", err)
	}
	cycle.FreeResources = len(free)
	if len(free) == 0 {
		return nil
	}
	orderResources(free)
	queued, err := s.requests.List(ctx, dao.WithStatus(model.RequestStatusQueued))
	if err != nil {
		return fmt.Errorf("failed to list queued requests: %w", err)
	}
	cycle.QueuedRequests = len(queued)
	if len(queued) == 0 {
		return nil
	}
	now := clock.Now()
	for _, candidate := range Rank(queued, now, s.config.AgingInterval) {
		if len(free) == 0 {
			break
		}
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("cycle %s interrupted: %w", cycle.ID, err)
		}
		resource := free[0]
		free = free[1:]
		match, err := s.match(ctx, candidate, resource, now)
		if err != nil {
			return fmt.Errorf("failed to allocate %s to request %d: %w", resource.Label, candidate.Request.ID, err)
		}
		cycle.Matches = append(cycle.Matches, match)
		s.logger.Info("allocated",
			zap.String("cycle_id", cycle.ID),
			zap.Int("request_id", match.Request.ID),
			zap.String("request_name", match.Request.Name),
			zap.Int("resource_id", resource.ID),
			zap.String("resource_label", resource.Label),
			zap.Int("effective_priority", match.EffectivePriority))
		s.occupancy.Update(occupancy.Delta{Queued: -1, Allocated: 1, Free: -1, InUse: 1})
		s.publish(ctx, &event.Context{
			EventType:    event.TypeAllocated,
			CycleID:      cycle.ID,
			RequestID:    match.Request.ID,
			ResourceID:   resource.ID,
			AllocationID: match.Allocation.ID,
		}, newView(match.Allocation, match.Request, resource))
	}
	return nil
}

// match writes the allocation, then the resource, then the request, undoing
// earlier writes when a later one fails.
func (s *Service) match(ctx context.Context, candidate *Candidate, resource *model.Resource, now time.Time) (*Match, error) {
	request := candidate.Request
	allocation := &model.Allocation{
		RequestID:    request.ID,
		ResourceType: resource.Type,
		ResourceID:   resource.ID,
		CreatedAt:    now,
	}
	if err := s.allocations.Save(ctx, allocation); err != nil {
		return nil, fmt.Errorf("failed to save allocation: %w", err)
	}
	undoCtx := context.WithoutCancel(ctx)
	deleteAllocation := func() error { return s.allocations.Delete(undoCtx, allocation.ID) }

	resource.Status = model.ResourceStatusInUse
	if err := s.resources.Save(ctx, resource); err != nil {
		resource.Status = model.ResourceStatusFree
		return nil, compensate(fmt.Errorf("failed to update resource %d: %w", resource.ID, err), deleteAllocation)
	}

	allocatedAt := now
	request.Status = model.RequestStatusAllocated
	request.AllocatedAt = &allocatedAt
	if err := s.requests.Save(ctx, request); err != nil {
		request.Status = model.RequestStatusQueued
		request.AllocatedAt = nil
		resource.Status = model.ResourceStatusFree
		return nil, compensate(fmt.Errorf("failed to update request %d: %w", request.ID, err),
			func() error { return s.resources.Save(undoCtx, resource) },
			deleteAllocation)
	}
	return &Match{Request: request, Resource: resource, Allocation: allocation, EffectivePriority: candidate.EffectivePriority}, nil
}

func newView(allocation *model.Allocation, request *model.Request, resource *model.Resource) *model.AllocationView {
	ret := &model.AllocationView{Allocation: *allocation.Clone()}
	if request != nil {
		ret.Name = request.Name
		ret.Priority = request.Priority
	}
	if resource != nil {
		ret.ResourceLabel = resource.Label
	}
	return ret
}
