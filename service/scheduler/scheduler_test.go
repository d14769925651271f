package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/dao/memory"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type cyclerFunc func(ctx context.Context) (*allocator.Cycle, error)

func (f cyclerFunc) RunCycle(ctx context.Context) (*allocator.Cycle, error) {
	return f(ctx)
}

func testConfig(maxCycles int) Config {
	return Config{Interval: time.Millisecond, CycleTimeout: time.Second, MaxCycles: maxCycles}
}

func TestService_Start_IsolatesFailures(t *testing.T) {
	var testCases = []struct {
		description    string
		cycle          cyclerFunc
		expectFailures int64
	}{
		{
			description: "successful cycles",
			cycle: func(ctx context.Context) (*allocator.Cycle, error) {
				return &allocator.Cycle{ID: "ok"}, nil
			},
		},
		{
			description: "failing cycles",
			cycle: func(ctx context.Context) (*allocator.Cycle, error) {
				return &allocator.Cycle{ID: "failed"}, errors.New("storage unavailable")
			},
			expectFailures: 3,
		},
		{
			description: "panicking cycles",
			cycle: func(ctx context.Context) (*allocator.Cycle, error) {
				panic("boom")
			},
			expectFailures: 3,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			calls := atomic.NewInt64(0)
			srv := New(cyclerFunc(func(ctx context.Context) (*allocator.Cycle, error) {
				calls.Inc()
				return testCase.cycle(ctx)
			}), testConfig(3))
			require.NoError(t, srv.Start(context.Background()))
			assert.Equal(t, int64(3), calls.Load())
			assert.Equal(t, int64(3), srv.Cycles())
			assert.Equal(t, testCase.expectFailures, srv.Failures())
			assert.False(t, srv.Running())
		})
	}
}

func TestService_Start_SingleInstance(t *testing.T) {
	started := make(chan struct{})
	var once atomic.Bool
	srv := New(cyclerFunc(func(ctx context.Context) (*allocator.Cycle, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		return &allocator.Cycle{}, nil
	}), testConfig(0))
	done := make(chan error, 1)
	go func() { done <- srv.Start(context.Background()) }()
	<-started
	assert.True(t, srv.Running())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrAlreadyRunning)

	srv.Shutdown()
	srv.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestService_Start_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(cyclerFunc(func(context.Context) (*allocator.Cycle, error) {
		cancel()
		return &allocator.Cycle{}, nil
	}), Config{Interval: time.Hour})
	assert.ErrorIs(t, srv.Start(ctx), context.Canceled)
	assert.Equal(t, int64(1), srv.Cycles())
}

func TestService_RunOnce_Timeout(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv := New(cyclerFunc(func(ctx context.Context) (*allocator.Cycle, error) {
		<-ctx.Done()
		return &allocator.Cycle{ID: "stuck"}, ctx.Err()
	}), Config{Interval: time.Second, CycleTimeout: 10 * time.Millisecond, SlowCycle: 5 * time.Millisecond}, WithLogger(zap.New(core)))
	_, err := srv.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, logs.FilterMessage("allocation cycle failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("slow allocation cycle").Len())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Interval: time.Second, MaxCycles: -1}.Validate())
	srv := New(cyclerFunc(func(context.Context) (*allocator.Cycle, error) { return nil, nil }), Config{})
	assert.Error(t, srv.Start(context.Background()))
}

func TestService_DrivesAllocator(t *testing.T) {
	ctx := context.Background()
	alloc := allocator.New(memory.New(), allocator.DefaultConfig())
	_, err := alloc.Seed(ctx, []allocator.Stock{{Type: model.ResourceTypeVentilator, Count: 1}})
	require.NoError(t, err)
	_, err = alloc.Submit(ctx, "A", 2, 30)
	require.NoError(t, err)

	srv := New(alloc, testConfig(2))
	require.NoError(t, srv.Start(ctx))
	views, err := alloc.ActiveAllocations(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "VENTILATOR-1", views[0].ResourceLabel)
	assert.Zero(t, srv.Failures())
}
