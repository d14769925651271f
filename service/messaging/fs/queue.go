// Package fs implements a durable afs-backed queue.  Messages live as JSON
// files under pending/, acknowledged messages are kept in completed/ as an
// event journal and exhausted ones are moved to dlq/.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/carealloc/internal/clock"
	"github.com/viant/carealloc/internal/idgen"
	"github.com/viant/carealloc/service/messaging"
)

const (
	pendingDir   = "pending"
	completedDir = "completed"
	dlqDir       = "dlq"
)

// Config holds configuration for filesystem queue
type Config struct {
	BaseURL    string `json:"baseURL" yaml:"baseURL"`
	MaxRetries int    `json:"maxRetries" yaml:"maxRetries"`
	// KeepCompleted retains acknowledged messages in completed/.
	KeepCompleted bool `json:"keepCompleted" yaml:"keepCompleted"`
}

// DefaultConfig returns a default queue configuration
func DefaultConfig(baseURL string) Config {
	return Config{BaseURL: baseURL, MaxRetries: 3, KeepCompleted: true}
}

// Message is a persisted payload
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Retries   int       `json:"retries"`

	name      string
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack acknowledges that the message was processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrAlreadyProcessed
	}
	m.processed = true
	m.UpdatedAt = clock.Now()
	if !m.queue.config.KeepCompleted {
		return nil
	}
	return m.queue.write(context.Background(), completedDir, m)
}

// Nack returns the message to pending/ or moves it to dlq/ once retries are exhausted
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrAlreadyProcessed
	}
	m.processed = true
	m.Retries++
	m.UpdatedAt = clock.Now()
	if err != nil {
		m.Error = err.Error()
	}
	if m.Retries > m.queue.config.MaxRetries {
		return m.queue.write(context.Background(), dlqDir, m)
	}
	return m.queue.write(context.Background(), pendingDir, m)
}

// Queue implements a filesystem-based messaging.Queue
type Queue[T any] struct {
	fs     afs.Service
	config Config
	mu     sync.Mutex
}

// NewQueue creates a new filesystem-based queue
func NewQueue[T any](ctx context.Context, fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	config.BaseURL = url.Normalize(config.BaseURL, file.Scheme)
	q := &Queue[T]{fs: fs, config: config}
	for _, dir := range []string{pendingDir, completedDir, dlqDir} {
		URL := url.Join(config.BaseURL, dir)
		if exists, _ := fs.Exists(ctx, URL); exists {
			continue
		}
		if err := fs.Create(ctx, URL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", URL, err)
		}
	}
	return q, nil
}

// Publish writes a new message to pending/
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		CreatedAt: now,
		UpdatedAt: now,
		queue:     q,
	}
	message.name = fmt.Sprintf("%020d-%s.json", now.UnixNano(), message.ID)
	return q.write(ctx, pendingDir, message)
}

// Consume takes the oldest pending message, it returns a nil message when
// nothing is pending.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names, err := q.pending(ctx)
	if err != nil || len(names) == 0 {
		return nil, err
	}
	URL := url.Join(q.config.BaseURL, pendingDir, names[0])
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	message := &Message[T]{}
	if err = json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", URL, err)
	}
	if err = q.fs.Delete(ctx, URL); err != nil {
		return nil, fmt.Errorf("failed to remove message %s: %w", URL, err)
	}
	message.name = names[0]
	message.queue = q
	return message, nil
}

// Size returns the number of pending messages
func (q *Queue[T]) Size(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names, err := q.pending(ctx)
	return len(names), err
}

func (q *Queue[T]) pending(ctx context.Context) ([]string, error) {
	objects, err := q.fs.List(ctx, url.Join(q.config.BaseURL, pendingDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		names = append(names, object.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (q *Queue[T]) write(ctx context.Context, dir string, message *Message[T]) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message %s: %w", message.ID, err)
	}
	URL := url.Join(q.config.BaseURL, dir, message.name)
	if err = q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %s: %w", URL, err)
	}
	return nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
