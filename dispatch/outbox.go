package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/internal/metrics"
)

const defaultOutboxCapacity = 256

var (
	ErrOutboxFull    = errors.New("outbox full")
	ErrOutboxClosed  = errors.New("outbox closed")
	ErrOutboxStopped = errors.New("outbox consumer stopped")
)

type outboxItem struct {
	handle Handle
	events []action.ActionEvent
	done   chan error
}

// Outbox hands batches from the frame loop to a sink running on its own
// goroutine. FireEvents returns the downstream result, so a batch the sink
// rejects is reported to the Dispatcher and the baseline is not advanced.
type Outbox struct {
	items   chan outboxItem
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	stop    sync.Once
	logger  *slog.Logger
}

// NewOutbox returns an Outbox holding up to capacity batches.
func NewOutbox(capacity int, logger *slog.Logger) *Outbox {
	if capacity <= 0 {
		capacity = defaultOutboxCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		items:   make(chan outboxItem, capacity),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// FireEvents queues a copy of events and waits until Run delivered it.
// Queueing never blocks: it fails with ErrOutboxFull when the consumer is
// behind and ErrOutboxClosed after Close. When ctx ends first the batch may
// still be delivered later.
func (o *Outbox) FireEvents(ctx context.Context, h Handle, events []action.ActionEvent) error {
	done, err := o.enqueue(ctx, h, events)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		// Run may have delivered it just before returning.
		select {
		case err := <-done:
			return err
		default:
			return ErrOutboxStopped
		}
	}
}

func (o *Outbox) enqueue(ctx context.Context, h Handle, events []action.ActionEvent) (chan error, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return nil, ErrOutboxClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	select {
	case o.items <- outboxItem{handle: h, events: slices.Clone(events), done: done}:
		metrics.SetOutboxDepth(len(o.items))
		return done, nil
	default:
		return nil, ErrOutboxFull
	}
}

// Run delivers queued batches to downstream until the outbox is closed and
// drained, or ctx is done. Each result goes back to the waiting FireEvents.
// Run must be called once.
func (o *Outbox) Run(ctx context.Context, downstream Sink) error {
	defer o.stop.Do(func() { close(o.stopped) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it, ok := <-o.items:
			if !ok {
				return nil
			}
			metrics.SetOutboxDepth(len(o.items))
			err := downstream.FireEvents(ctx, it.handle, it.events)
			if err != nil {
				o.logger.Warn("outbox delivery failed",
					"handle", it.handle, "events", len(it.events), "error", err)
			}
			it.done <- err
		}
	}
}

// Len returns the number of queued batches.
func (o *Outbox) Len() int { return len(o.items) }

// Close stops accepting batches. Run returns once the queue is drained.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.items)
}
