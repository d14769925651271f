package carealloc

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/service/scheduler"
	"go.uber.org/zap"
)

// Runtime represents a running allocation engine
type Runtime struct {
	config    *Config
	logger    *zap.Logger
	allocator *allocator.Service
	scheduler *scheduler.Service
	occupancy *occupancy.Tracker
	events    *event.Service
	handler   http.Handler
	close     func() error

	mux       sync.Mutex
	done      chan struct{}
	startErr  error
	closeOnce sync.Once
	closeErr  error
}

// Seed creates the configured inventory when the store holds no resource
func (r *Runtime) Seed(ctx context.Context) (int, error) {
	return r.allocator.Seed(ctx, r.config.Inventory)
}

// Submit queues a request, priority is clamped into [1,5]
func (r *Runtime) Submit(ctx context.Context, name string, priority, estMinutes int) (*model.Request, error) {
	return r.allocator.Submit(ctx, name, priority, estMinutes)
}

// Release closes an allocation and returns its resource to the free pool
func (r *Runtime) Release(ctx context.Context, allocationID int) (*model.Allocation, error) {
	return r.allocator.Release(ctx, allocationID)
}

// RunCycle runs a single allocation cycle through the scheduler
func (r *Runtime) RunCycle(ctx context.Context) (*allocator.Cycle, error) {
	return r.scheduler.RunOnce(ctx)
}

// Resources lists the inventory
func (r *Runtime) Resources(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Resource, error) {
	return r.allocator.Resources(ctx, parameters...)
}

// Requests lists requests by submission time
func (r *Runtime) Requests(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error) {
	return r.allocator.Requests(ctx, parameters...)
}

// ActiveAllocations lists open allocations with request and resource details
func (r *Runtime) ActiveAllocations(ctx context.Context) ([]*model.AllocationView, error) {
	return r.allocator.ActiveAllocations(ctx)
}

// Occupancy recounts requests and resources by status
func (r *Runtime) Occupancy(ctx context.Context) (occupancy.Counts, error) {
	return r.allocator.Occupancy(ctx)
}

// Allocator returns the allocator
func (r *Runtime) Allocator() *allocator.Service {
	return r.allocator
}

// Scheduler returns the scheduler driver
func (r *Runtime) Scheduler() *scheduler.Service {
	return r.scheduler
}

// Events returns the event service
func (r *Runtime) Events() *event.Service {
	return r.events
}

// Handler returns the HTTP handler serving the API and /metrics
func (r *Runtime) Handler() http.Handler {
	return r.handler
}

// Start launches the scheduler loop in the background
func (r *Runtime) Start(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.done != nil {
		return scheduler.ErrAlreadyRunning
	}
	done := make(chan struct{})
	r.done = done
	go func() {
		defer close(done)
		err := r.scheduler.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.mux.Lock()
			r.startErr = err
			r.mux.Unlock()
			r.logger.Error("scheduler exited", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the scheduler, waits for the running cycle and releases
// event listeners and database connections.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.scheduler.Shutdown()
	r.mux.Lock()
	done := r.done
	r.mux.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.closeOnce.Do(func() {
		if r.close != nil {
			r.closeErr = r.close()
		}
	})
	r.mux.Lock()
	defer r.mux.Unlock()
	return errors.Join(r.startErr, r.closeErr)
}
