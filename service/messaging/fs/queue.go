package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/steer/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue.
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message implements messaging.Message for the filesystem queue.  The struct
// is persisted as JSON so that unacknowledged messages survive a restart.
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack acknowledges that the message was processed successfully.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = time.Now()
	return m.queue.moveMessage(context.Background(), m, m.queue.completedDir)
}

// Nack records a processing failure; the message is requeued until the retry
// budget is exhausted, then parked in the dead-letter directory.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()
	if m.Retries > m.queue.config.MaxRetries {
		return m.queue.moveMessage(context.Background(), m, m.queue.dlqDir)
	}
	m.State = MessageStatePending
	return m.queue.moveMessage(context.Background(), m, m.queue.pendingDir)
}

// Config holds configuration for the filesystem queue.
type Config struct {
	BaseURL    string // base location for queue state, any afs scheme
	MaxRetries int
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "/tmp/steer/queue",
		MaxRetries: 3,
	}
}

// Queue implements a filesystem-based messaging.Queue.  Messages move between
// per-state directories; Consume is non-blocking and returns (nil, nil) when
// no pending message exists.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-based queue rooted at config.BaseURL.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BaseURL, "pending"),
		processingDir: path.Join(config.BaseURL, "processing"),
		completedDir:  path.Join(config.BaseURL, "completed"),
		dlqDir:        path.Join(config.BaseURL, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish adds a new message to the pending directory.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	message := &Message[T]{
		ID:        uuid.New().String(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		queue:     q,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	location := path.Join(q.pendingDir, q.filename(message))
	return q.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data))
}

// Consume claims the oldest pending message by moving it into the processing
// directory.  Returns (nil, nil) when the queue is empty.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var pending []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			pending = append(pending, object)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Name() < pending[j].Name() })
	object := pending[0]

	data, err := q.fs.DownloadWithURL(ctx, object.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", object.URL(), err)
	}
	message := &Message[T]{}
	if err = json.Unmarshal(data, message); err != nil {
		// Park unreadable payloads so that the queue does not wedge.
		_ = q.fs.Move(ctx, object.URL(), path.Join(q.dlqDir, "invalid-"+object.Name()))
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", object.URL(), err)
	}
	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q

	updated, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claimed message: %w", err)
	}
	if err = q.fs.Upload(ctx, path.Join(q.processingDir, q.filename(message)), file.DefaultFileOsMode, bytes.NewReader(updated)); err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}
	if err = q.fs.Delete(ctx, object.URL()); err != nil {
		return nil, fmt.Errorf("failed to remove claimed message: %w", err)
	}
	return message, nil
}

// Size returns the number of pending messages.
func (q *Queue[T]) Size(ctx context.Context) int {
	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			count++
		}
	}
	return count
}

func (q *Queue[T]) moveMessage(ctx context.Context, m *Message[T], destDir string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	name := q.filename(m)
	if err = q.fs.Upload(ctx, path.Join(destDir, name), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to move message to %s: %w", destDir, err)
	}
	source := path.Join(q.processingDir, name)
	if exists, _ := q.fs.Exists(ctx, source); exists && destDir != q.processingDir {
		_ = q.fs.Delete(ctx, source)
	}
	return nil
}

func (q *Queue[T]) filename(m *Message[T]) string {
	return fmt.Sprintf("%d-%s.json", m.CreatedAt.UnixNano(), m.ID)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
