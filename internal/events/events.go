package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskMoved      = "task.moved"
	TaskDeleted    = "task.deleted"
	EpicCreated    = "epic.created"
	EpicUpdated    = "epic.updated"
	EpicDeleted    = "epic.deleted"
	ColumnCreated  = "column.created"
	ColumnUpdated  = "column.updated"
	ColumnDeleted  = "column.deleted"
	CommentAdded   = "comment.added"
	CommentDeleted = "comment.deleted"
	ImageAdded     = "image.added"
	ImageDeleted   = "image.deleted"
)

const defaultSendTimeout = 5 * time.Second

type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Dispatcher delivers every published event to all sinks in the background.
// A nil *Dispatcher drops events.
type Dispatcher struct {
	Sinks   []Sink
	Timeout time.Duration
	Log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, sinks ...Sink) *Dispatcher {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Dispatcher{Sinks: active, Log: log}
}

func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	if d == nil || len(d.Sinks) == 0 {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	base := context.WithoutCancel(ctx)

	for _, sink := range d.Sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			sendCtx, cancel := context.WithTimeout(base, timeout)
			defer cancel()
			if err := sink.Send(sendCtx, ev); err != nil && d.Log != nil {
				d.Log.Warn("event_delivery_failed", "sink", sink.Name(), "event", ev.Type, "event_id", ev.ID, "error", err)
			}
		}(sink)
	}
}

// Close waits for in-flight deliveries and closes sinks that hold resources.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()

	var firstErr error
	for _, s := range d.Sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
