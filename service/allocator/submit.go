package allocator

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/carealloc/internal/clock"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

// AnonymousName is assigned to requests submitted without a name
const AnonymousName = "Anonymous"

// Submit queues a new request.  Priority is clamped into [1,5], the next
// allocation cycle picks the request up.
func (s *Service) Submit(ctx context.Context, name string, priority, estMinutes int) (*model.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "allocator.submit", tracing.KindInternal)
	request, err := s.submit(ctx, name, priority, estMinutes)
	if request != nil {
		span.WithInt("request_id", request.ID).WithInt("priority", request.Priority)
	}
	tracing.EndSpan(span, err)
	return request, err
}

func (s *Service) submit(ctx context.Context, name string, priority, estMinutes int) (*model.Request, error) {
	if estMinutes < 0 {
		return nil, &ValidationError{Field: "est_minutes", Reason: fmt.Sprintf("must not be negative, got %d", estMinutes)}
	}
	if name = strings.TrimSpace(name); name == "" {
		name = AnonymousName
	}
	request := &model.Request{
		Name:        name,
		Priority:    ClampPriority(priority),
		EstMinutes:  estMinutes,
		Status:      model.RequestStatusQueued,
		RequestedAt: clock.Now(),
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}
	if request.Priority != priority {
		s.logger.Debug("priority clamped", zap.Int("request_id", request.ID), zap.Int("submitted", priority), zap.Int("priority", request.Priority))
	}
	s.occupancy.Update(occupancy.Delta{Queued: 1})
	s.metrics.observeSubmission()
	s.publish(ctx, &event.Context{EventType: event.TypeSubmitted, RequestID: request.ID}, request)
	return request, nil
}
