package event

import (
	"context"

	"github.com/viant/carealloc/service/messaging"
	"go.uber.org/atomic"
)

type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
	// forward is set once a catch-all listener is registered.
	forward *atomic.Bool
	// direct is set once a typed listener is registered or the queue is durable.
	direct *atomic.Bool
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue, forward: atomic.NewBool(false), direct: atomic.NewBool(true)}
}

// Publish enqueues the event and forwards a copy to the catch-all queue.
// Events nobody listens to are not queued.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if p.anyQueue != nil && p.forward.Load() {
		if err := p.anyQueue.Publish(ctx, &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		}); err != nil {
			return err
		}
	}
	if !p.direct.Load() {
		return nil
	}
	return p.queue.Publish(ctx, event)
}

// Consume returns the next acknowledged event, nil when the queue is empty
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
