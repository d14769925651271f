package event

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/carealloc/service/messaging"
	"github.com/viant/carealloc/service/messaging/fs"
	"github.com/viant/carealloc/service/messaging/memory"
	"go.uber.org/zap"
)

// Config defines event queue settings
type Config struct {
	Vendor messaging.Vendor `json:"vendor" yaml:"vendor"`
	// BaseURL is the fs queue root, each event type gets its own sub folder.
	BaseURL      string        `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	QueueBuffer  int           `json:"queueBuffer,omitempty" yaml:"queueBuffer,omitempty"`
	MaxRetries   int           `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	PollInterval time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

// DefaultConfig returns in-memory event settings
func DefaultConfig() *Config {
	return &Config{
		Vendor:       messaging.VendorMemory,
		QueueBuffer:  memory.DefaultConfig().QueueBuffer,
		MaxRetries:   memory.DefaultConfig().MaxRetries,
		PollInterval: 250 * time.Millisecond,
	}
}

// Validate checks vendor settings
func (c *Config) Validate() error {
	switch c.Vendor {
	case messaging.VendorMemory:
	case messaging.VendorFs:
		if c.BaseURL == "" {
			return fmt.Errorf("fs event queue requires baseURL")
		}
	default:
		return fmt.Errorf("unsupported queue vendor: %s", c.Vendor)
	}
	return nil
}

type Option func(s *Service)

// WithLogger sets listener logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFileSystem sets afs service used by the fs vendor
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// Service manages typed publishers and listeners
type Service struct {
	config          *Config
	fs              afs.Service
	logger          *zap.Logger
	publisher       *Publisher[any]
	listener        *Listener[any]
	typedPublishers map[reflect.Type]any
	typedListener   map[reflect.Type]any
	mux             sync.RWMutex
}

// SetListener registers a catch-all handler receiving events of every type
func (s *Service) SetListener(ctx context.Context, handler func(*Event[any])) {
	s.mux.Lock()
	previous := s.listener
	s.listener = NewListener[any](s.publisher, handler, s.logger, s.config.PollInterval)
	s.listener.Start(ctx)
	for _, publisher := range s.typedPublishers {
		publisher.(interface{ enableForward() }).enableForward()
	}
	s.mux.Unlock()
	if previous != nil {
		previous.Stop()
	}
}

// Close stops all listeners
func (s *Service) Close() {
	s.mux.Lock()
	listeners := []interface{ Stop() }{}
	if s.listener != nil {
		listeners = append(listeners, s.listener)
		s.listener = nil
	}
	for key, listener := range s.typedListener {
		listeners = append(listeners, listener.(interface{ Stop() }))
		delete(s.typedListener, key)
	}
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
}

func New(ctx context.Context, config *Config, opts ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ret := &Service{
		config:          config,
		logger:          zap.NewNop(),
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	queue, err := QueueOf[Event[any]](ctx, ret, "any")
	if err != nil {
		return nil, err
	}
	ret.publisher = NewPublisher[any](queue)
	return ret, nil
}

// QueueOf creates a queue of the configured vendor
func QueueOf[T any](ctx context.Context, s *Service, name string) (messaging.Queue[T], error) {
	switch s.config.Vendor {
	case messaging.VendorFs:
		config := fs.DefaultConfig(url.Join(s.config.BaseURL, name))
		if s.config.MaxRetries > 0 {
			config.MaxRetries = s.config.MaxRetries
		}
		return fs.NewQueue[T](ctx, s.fs, config)
	case messaging.VendorMemory:
		config := memory.DefaultConfig()
		if s.config.QueueBuffer > 0 {
			config.QueueBuffer = s.config.QueueBuffer
		}
		if s.config.MaxRetries > 0 {
			config.MaxRetries = s.config.MaxRetries
		}
		return memory.NewQueue[T](config), nil
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.config.Vendor)
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SetListenerOf registers a handler for events carrying T
func SetListenerOf[T any](ctx context.Context, s *Service, handler func(*Event[T])) error {
	publisher, err := PublisherOf[T](ctx, s)
	if err != nil {
		return err
	}
	key := keyOf[T]()
	publisher.direct.Store(true)
	listener := NewListener[T](publisher, handler, s.logger, s.config.PollInterval)
	s.mux.Lock()
	previous, ok := s.typedListener[key]
	s.typedListener[key] = listener
	s.mux.Unlock()
	if ok {
		previous.(*Listener[T]).Stop()
	}
	listener.Start(ctx)
	return nil
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](ctx context.Context, s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T]), nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](ctx, s, key.String())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	publisher.anyQueue = s.publisher.queue
	publisher.direct.Store(s.config.Vendor == messaging.VendorFs)
	if s.listener != nil {
		publisher.enableForward()
	}
	s.typedPublishers[key] = publisher
	return publisher, nil
}

// Publish emits data as an event of eventType
func Publish[T any](ctx context.Context, s *Service, eventContext *Context, data T) error {
	publisher, err := PublisherOf[T](ctx, s)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, NewEvent[T](eventContext, data))
}

func (p *Publisher[T]) enableForward() {
	p.forward.Store(true)
}
