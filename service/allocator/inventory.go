package allocator

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/dao"
	"go.uber.org/zap"
)

// Stock is the number of resources of one type to seed
type Stock struct {
	Type  model.ResourceType `json:"type" yaml:"type"`
	Count int                `json:"count" yaml:"count"`
}

// DefaultInventory returns three ICU beds and two ventilators
func DefaultInventory() []Stock {
	return []Stock{
		{Type: model.ResourceTypeICUBed, Count: 3},
		{Type: model.ResourceTypeVentilator, Count: 2},
	}
}

// ValidateInventory checks every stock entry
func ValidateInventory(inventory []Stock) error {
	for i, stock := range inventory {
		if stock.Type == "" {
			return &ValidationError{Field: fmt.Sprintf("inventory[%d].type", i), Reason: "is required"}
		}
		if stock.Count < 0 {
			return &ValidationError{Field: fmt.Sprintf("inventory[%d].count", i), Reason: "must not be negative"}
		}
	}
	return nil
}

// Seed creates the inventory when no resource exists yet.  Labels are
// <TYPE>-<n> with n counting across all types in inventory order.  It returns
// the number of resources created.
func (s *Service) Seed(ctx context.Context, inventory []Stock) (int, error) {
	if err := ValidateInventory(inventory); err != nil {
		return 0, err
	}
	s.allocMux.Lock()
	defer s.allocMux.Unlock()
	existing, err := s.resources.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list resources: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	created := 0
	for _, stock := range inventory {
		for i := 0; i < stock.Count; i++ {
			resource := &model.Resource{
				Type:   stock.Type,
				Label:  fmt.Sprintf("%s-%d", stock.Type, created+1),
				Status: model.ResourceStatusFree,
			}
			if err = s.resources.Save(ctx, resource); err != nil {
				s.occupancy.Update(occupancy.Delta{Free: created})
				return created, fmt.Errorf("failed to seed %s: %w", resource.Label, err)
			}
			created++
		}
	}
	s.occupancy.Update(occupancy.Delta{Free: created})
	s.logger.Info("seeded inventory", zap.Int("resources", created))
	return created, nil
}

// Resources lists the inventory ordered by id
func (s *Service) Resources(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Resource, error) {
	ret, err := s.resources.List(ctx, parameters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

// Requests lists requests in submission order
func (s *Service) Requests(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error) {
	ret, err := s.requests.List(ctx, parameters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return ret, nil
}

// ActiveAllocations lists open allocations joined with their request and resource
func (s *Service) ActiveAllocations(ctx context.Context) ([]*model.AllocationView, error) {
	allocations, err := s.allocations.List(ctx, dao.WithStatus(model.AllocationStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	if len(allocations) == 0 {
		return []*model.AllocationView{}, nil
	}
	requests, err := s.requests.List(ctx, dao.WithStatus(model.RequestStatusAllocated))
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	resources, err := s.resources.List(ctx, dao.WithStatus(model.ResourceStatusInUse))
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	requestByID := make(map[int]*model.Request, len(requests))
	for _, request := range requests {
		requestByID[request.ID] = request
	}
	resourceByID := make(map[int]*model.Resource, len(resources))
	for _, resource := range resources {
		resourceByID[resource.ID] = resource
	}
	ret := make([]*model.AllocationView, 0, len(allocations))
	for _, allocation := range allocations {
		ret = append(ret, newView(allocation, requestByID[allocation.RequestID], resourceByID[allocation.ResourceID]))
	}
	return ret, nil
}

// Occupancy recounts statuses from storage and resets the tracker.  It holds
// the allocation lock so that no cycle or release lands between the counts.
func (s *Service) Occupancy(ctx context.Context) (occupancy.Counts, error) {
	s.allocMux.Lock()
	defer s.allocMux.Unlock()
	counts := occupancy.Counts{}
	resources, err := s.resources.List(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to list resources: %w", err)
	}
	for _, resource := range resources {
		if resource.IsFree() {
			counts.Free++
			continue
		}
		counts.InUse++
	}
	requests, err := s.requests.List(ctx)
	if err != nil {
		return counts, fmt.Errorf("failed to list requests: %w", err)
	}
	for _, request := range requests {
		switch request.Status {
		case model.RequestStatusQueued:
			counts.Queued++
		case model.RequestStatusAllocated:
			counts.Allocated++
		case model.RequestStatusCompleted:
			counts.Completed++
		}
	}
	if s.occupancy != nil {
		s.occupancy.Reset(counts)
		return s.occupancy.Snapshot(), nil
	}
	return counts, nil
}
