package audit

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	recorderQueueSize = 256
	recordTimeout     = 5 * time.Second
)

// Recorder writes events to a store asynchronously. Enqueue never
// blocks: when the queue is full the event is dropped with a warning,
// because audit must never hold up game progression. A nil Recorder is
// valid and records nothing.
type Recorder struct {
	store  Store
	logger *log.Logger
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

// NewRecorder starts a recorder draining into the store
func NewRecorder(store Store, logger *log.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logger.WithPrefix("audit"),
		queue:  make(chan Event, recorderQueueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Enqueue queues an event for writing without blocking
func (r *Recorder) Enqueue(event Event) {
	if r == nil {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("Audit queue full, dropping event", "game_id", event.GameID, "type", event.Type)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.store.Record(ctx, event); err != nil {
			r.logger.Error("Failed to record audit event", "game_id", event.GameID, "type", event.Type, "error", err)
		}
		cancel()
	}
}

// Close drains the queue and stops the worker. Safe to call on nil and
// safe to call twice.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		close(r.queue)
		<-r.done
	})
}
