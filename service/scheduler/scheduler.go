// Package scheduler drives the allocation cycle on a fixed interval.  A
// failed or panicking cycle is logged and the loop carries on, only context
// cancellation or Shutdown stops it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/carealloc/service/allocator"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when Start is called on a running scheduler
var ErrAlreadyRunning = errors.New("scheduler is already running")

// Cycler runs a single allocation cycle
type Cycler interface {
	RunCycle(ctx context.Context) (*allocator.Cycle, error)
}

// Config represents scheduler configuration
type Config struct {
	// Interval is the pause between the end of one cycle and the next.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// CycleTimeout bounds a single cycle, zero disables it.
	CycleTimeout time.Duration `json:"cycleTimeout" yaml:"cycleTimeout"`
	// SlowCycle flags cycles running longer, zero disables it.
	SlowCycle time.Duration `json:"slowCycle" yaml:"slowCycle"`
	// MaxCycles stops the loop after that many cycles, zero runs forever.
	MaxCycles int `json:"maxCycles,omitempty" yaml:"maxCycles,omitempty"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		CycleTimeout: 30 * time.Second,
		SlowCycle:    2 * time.Second,
	}
}

// Validate checks scheduler settings
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %v", c.Interval)
	}
	if c.CycleTimeout < 0 || c.SlowCycle < 0 || c.MaxCycles < 0 {
		return fmt.Errorf("scheduler limits must not be negative")
	}
	return nil
}

// Option configures the scheduler
type Option func(s *Service)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service is the scheduler driver, one instance runs per process.
type Service struct {
	config       Config
	cycler       Cycler
	logger       *zap.Logger
	running      *atomic.Bool
	cycles       *atomic.Int64
	failures     *atomic.Int64
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates a scheduler for cycler
func New(cycler Cycler, config Config, opts ...Option) *Service {
	ret := &Service{
		config:     config,
		cycler:     cycler,
		logger:     zap.NewNop(),
		running:    atomic.NewBool(false),
		cycles:     atomic.NewInt64(0),
		failures:   atomic.NewInt64(0),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Start runs a cycle, waits Interval and repeats until ctx is done, Shutdown
// is called or MaxCycles is reached.  It blocks the caller.
func (s *Service) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	s.logger.Info("scheduler started", zap.Duration("interval", s.config.Interval))
	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()
	for ran := 1; ; ran++ {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-s.shutdownCh:
			s.logger.Info("scheduler stopped")
			return nil
		default:
		}
		_, _ = s.RunOnce(ctx)
		if s.config.MaxCycles > 0 && ran >= s.config.MaxCycles {
			s.logger.Info("scheduler finished", zap.Int("cycles", ran))
			return nil
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.config.Interval)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-s.shutdownCh:
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce runs a single cycle bounded by CycleTimeout, failures are logged
// and returned.
func (s *Service) RunOnce(ctx context.Context) (*allocator.Cycle, error) {
	if s.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CycleTimeout)
		defer cancel()
	}
	started := time.Now()
	cycle, err := s.runCycle(ctx)
	elapsed := time.Since(started)
	s.cycles.Inc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed)}
	if cycle != nil {
		fields = append(fields, zap.String("cycle_id", cycle.ID), zap.Int("allocated", len(cycle.Matches)))
	}
	if err != nil {
		s.failures.Inc()
		s.logger.Error("allocation cycle failed", append(fields, zap.Error(err))...)
	}
	if s.config.SlowCycle > 0 && elapsed > s.config.SlowCycle {
		s.logger.Warn("slow allocation cycle", append(fields, zap.Duration("threshold", s.config.SlowCycle))...)
	} else if err == nil {
		s.logger.Debug("allocation cycle completed", fields...)
	}
	return cycle, err
}

func (s *Service) runCycle(ctx context.Context) (cycle *allocator.Cycle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocation cycle panicked: %v", r)
		}
	}()
	return s.cycler.RunCycle(ctx)
}

// Shutdown stops the loop after the current cycle
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
}

// Running returns true while Start is looping
func (s *Service) Running() bool {
	return s.running.Load()
}

// Cycles returns the number of cycles run
func (s *Service) Cycles() int64 {
	return s.cycles.Load()
}

// Failures returns the number of failed cycles
func (s *Service) Failures() int64 {
	return s.failures.Load()
}
