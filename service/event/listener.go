package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener dispatches consumed events to a handler until stopped
type Listener[T any] struct {
	publisher    *Publisher[T]
	handler      func(*Event[T])
	logger       *zap.Logger
	pollInterval time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
	mux          sync.Mutex
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *zap.Logger, pollInterval time.Duration) *Listener[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Listener[T]{
		publisher:    publisher,
		handler:      handler,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Stop cancels the listener and waits for the dispatch loop to exit
func (l *Listener[T]) Stop() {
	l.mux.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mux.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Start runs the dispatch loop in the background
func (l *Listener[T]) Start(ctx context.Context) {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

func (l *Listener[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		event, err := l.publisher.Consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.logger.Warn("failed to consume event", zap.Error(err))
		}
		if event == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.pollInterval):
			}
			continue
		}
		l.handler(event)
	}
}
