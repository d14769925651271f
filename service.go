package carealloc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/afs"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/api"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/fs"
	"github.com/viant/carealloc/service/dao/memory"
	"github.com/viant/carealloc/service/dao/sql"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/service/scheduler"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

// Service wires stores, allocator, scheduler, events, metrics and the HTTP
// boundary into a Runtime.
type Service struct {
	config     *Config
	logger     *zap.Logger
	fs         afs.Service
	stores     *dao.Set
	db         *sqlx.DB
	events     *event.Service
	ownEvents  bool
	registry   *prometheus.Registry
	tracing    *tracing.Config
	tracingErr error
	runtime    *Runtime
}

// New creates a service, resources opened on the way are released on error.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(ctx); err != nil {
		return nil, errors.Join(err, ret.close())
	}
	return ret, nil
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Registry returns the prometheus registry holding allocator metrics
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Service) init(ctx context.Context) error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.tracingErr != nil {
		return fmt.Errorf("failed to initialise tracing: %w", s.tracingErr)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.tracing == nil {
		s.tracing = s.config.Tracing
	}
	if err := tracing.Init(s.tracing); err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	if err := s.ensureStores(ctx); err != nil {
		return err
	}
	if err := s.ensureEvents(ctx); err != nil {
		return err
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	metrics, err := allocator.NewMetrics(s.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	tracker := occupancy.New()
	alloc := allocator.New(s.stores,
		allocator.Config{AgingInterval: s.config.Aging.Interval},
		allocator.WithLogger(s.logger.Named("allocator")),
		allocator.WithEvents(s.events),
		allocator.WithMetrics(metrics),
		allocator.WithOccupancy(tracker))
	if _, err = alloc.Occupancy(ctx); err != nil {
		return err
	}
	s.runtime = &Runtime{
		config:    s.config,
		logger:    s.logger,
		allocator: alloc,
		occupancy: tracker,
		scheduler: scheduler.New(alloc, s.config.Scheduler, scheduler.WithLogger(s.logger.Named("scheduler"))),
		handler:   api.New(alloc, s.logger.Named("api"), promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})),
		events:    s.events,
		close:     s.close,
	}
	return nil
}

func (s *Service) ensureStores(ctx context.Context) error {
	if s.stores != nil {
		return nil
	}
	var err error
	switch s.config.Store.Vendor {
	case StoreFs:
		if s.stores, err = fs.New(ctx, s.fs, s.config.Store.BaseURL); err != nil {
			return fmt.Errorf("failed to open fs store: %w", err)
		}
	case StoreMySQL:
		if s.db, err = sql.Open(ctx, s.config.Store.MySQL); err != nil {
			return err
		}
		if err = sql.Migrate(ctx, s.db); err != nil {
			return err
		}
		s.stores = sql.New(s.db)
	default:
		s.stores = memory.New()
	}
	s.logger.Info("store ready", zap.String("vendor", s.config.Store.Vendor))
	return nil
}

func (s *Service) ensureEvents(ctx context.Context) error {
	if s.events != nil {
		return nil
	}
	config := s.config.Events
	if config == nil {
		config = event.DefaultConfig()
	}
	events, err := event.New(ctx, config, event.WithLogger(s.logger.Named("event")), event.WithFileSystem(s.fs))
	if err != nil {
		return fmt.Errorf("failed to create event service: %w", err)
	}
	s.events = events
	s.ownEvents = true
	return nil
}

func (s *Service) close() error {
	if s.ownEvents && s.events != nil {
		s.events.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
