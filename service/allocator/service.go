package allocator

import (
	"context"
	"sync"
	"time"

	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/store"
	"github.com/viant/carealloc/service/event"
	"go.uber.org/zap"
)

// Config represents allocator service configuration
type Config struct {
	// AgingInterval is the wait that improves effective priority by one point.
	AgingInterval time.Duration `json:"agingInterval" yaml:"agingInterval"`
}

// DefaultConfig returns the default allocator configuration
func DefaultConfig() Config {
	return Config{
		AgingInterval: 60 * time.Second,
	}
}

// Option configures the allocator
type Option func(s *Service)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEvents publishes submitted, allocated and released events
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithMetrics records cycle, release and submission metrics
func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithOccupancy keeps tracker counters in step with state transitions
func WithOccupancy(tracker *occupancy.Tracker) Option {
	return func(s *Service) {
		s.occupancy = tracker
	}
}

// Service allocates free resources to queued requests.  allocMux serialises
// allocation cycles and releases, storageMux serialises single store calls.
type Service struct {
	config      Config
	resources   dao.Service[int, model.Resource]
	requests    dao.Service[int, model.Request]
	allocations dao.Service[int, model.Allocation]
	allocMux    sync.Mutex
	storageMux  sync.Mutex
	logger      *zap.Logger
	events      *event.Service
	metrics     *Metrics
	occupancy   *occupancy.Tracker
}

// New creates an allocator over stores
func New(stores *dao.Set, config Config, opts ...Option) *Service {
	if config.AgingInterval <= 0 {
		config.AgingInterval = DefaultConfig().AgingInterval
	}
	ret := &Service{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	guarded := store.GuardSet(stores, &ret.storageMux)
	ret.resources = guarded.Resources
	ret.requests = guarded.Requests
	ret.allocations = guarded.Allocations
	if ret.metrics != nil && ret.occupancy != nil {
		ret.occupancy.OnChange(ret.metrics.ObserveOccupancy)
	}
	return ret
}

// Config returns allocator configuration
func (s *Service) Config() Config {
	return s.config
}

func (s *Service) publish(ctx context.Context, eventContext *event.Context, data interface{}) {
	if s.events == nil {
		return
	}
	var err error
	switch actual := data.(type) {
	case *model.Request:
		err = event.Publish(ctx, s.events, eventContext, *actual)
	case *model.AllocationView:
		err = event.Publish(ctx, s.events, eventContext, *actual)
	}
	if err != nil {
		s.logger.Debug("failed to publish event", zap.String("event", eventContext.EventType), zap.Error(err))
	}
}
