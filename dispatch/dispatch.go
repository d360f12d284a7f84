// Package dispatch resolves detected input events to action events and hands
// them to the session sink.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/internal/metrics"
)

// DefaultMaxRetries is the number of consecutive failed frames after which a
// device's pending transitions are given up.
const DefaultMaxRetries = 3

var ErrRetriesExhausted = errors.New("dispatch retries exhausted")

// Handle identifies a controller towards the sink.
type Handle = uuid.UUID

// NewHandle returns a fresh random handle.
func NewHandle() Handle { return uuid.New() }

// Sink receives resolved action events. FireEvents may block. The events
// slice is only valid for the duration of the call.
type Sink interface {
	FireEvents(ctx context.Context, h Handle, events []action.ActionEvent) error
}

type SinkFunc func(ctx context.Context, h Handle, events []action.ActionEvent) error

func (f SinkFunc) FireEvents(ctx context.Context, h Handle, events []action.ActionEvent) error {
	return f(ctx, h, events)
}

// Translator resolves input events of one controller.
type Translator interface {
	TranslateEvents(events []action.InputEvent) []action.ActionEvent
}

// Committer advances the baseline snapshot of a device.
type Committer interface {
	Commit(deviceID uint64, snap detect.Snapshot)
}

// Error is a failed dispatch of one device's frame.
type Error struct {
	DeviceID  uint64
	Handle    Handle
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *Error) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("dispatch device %d (%s): giving up after %d attempts: %v", e.DeviceID, e.Handle, e.Attempts, e.Err)
	}
	return fmt.Sprintf("dispatch device %d (%s): attempt %d: %v", e.DeviceID, e.Handle, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Exhausted {
		return []error{e.Err, ErrRetriesExhausted}
	}
	return []error{e.Err}
}

// Frame is the work of one device for one frame.
type Frame struct {
	DeviceID   uint64
	Handle     Handle
	Translator Translator
	Batches    []*detect.Batch
	Snapshot   detect.Snapshot
}

// Dispatcher delivers frames to a Sink. It is not safe for concurrent use.
type Dispatcher struct {
	sink       Sink
	committer  Committer
	maxRetries int
	failures   map[uint64]int
	logger     *slog.Logger
}

// New returns a Dispatcher. maxRetries <= 0 uses DefaultMaxRetries.
func New(sink Sink, committer Committer, maxRetries int, logger *slog.Logger) *Dispatcher {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:       sink,
		committer:  committer,
		maxRetries: maxRetries,
		failures:   map[uint64]int{},
		logger:     logger,
	}
}

// Dispatch translates every batch of f and fires the non-empty results. When
// all batches were accepted the snapshot is committed and the number of
// delivered action events is returned.
//
// On a sink failure the snapshot stays uncommitted so the next frame diffs
// against the same baseline, and a *Error is returned. After maxRetries
// consecutive failures the snapshot is committed anyway, dropping the pending
// transitions, and the error also matches ErrRetriesExhausted. Batches that
// were accepted before a failing batch are sent again on the retry.
func (d *Dispatcher) Dispatch(ctx context.Context, f Frame) (int, error) {
	sent := 0
	for _, b := range f.Batches {
		events := f.Translator.TranslateEvents(b.Events())
		if len(events) == 0 {
			continue
		}
		if err := d.sink.FireEvents(ctx, f.Handle, events); err != nil {
			return sent, d.fail(f, err)
		}
		sent += len(events)
	}

	delete(d.failures, f.DeviceID)
	d.committer.Commit(f.DeviceID, f.Snapshot)
	metrics.RecordActionsDispatched(sent)
	return sent, nil
}

func (d *Dispatcher) fail(f Frame, cause error) error {
	metrics.RecordDispatchFailure()
	d.failures[f.DeviceID]++
	e := &Error{
		DeviceID: f.DeviceID,
		Handle:   f.Handle,
		Attempts: d.failures[f.DeviceID],
		Err:      cause,
	}
	if e.Attempts < d.maxRetries {
		d.logger.Warn("sink rejected events, retrying next frame",
			"device", f.DeviceID, "attempt", e.Attempts, "error", cause)
		return e
	}

	e.Exhausted = true
	delete(d.failures, f.DeviceID)
	d.committer.Commit(f.DeviceID, f.Snapshot)
	for _, b := range f.Batches {
		metrics.RecordEventsDropped(metrics.DropRetries, b.Len())
	}
	d.logger.Error("sink rejected events, dropping pending input",
		"device", f.DeviceID, "attempts", e.Attempts, "error", cause)
	return e
}

// Failures returns the consecutive failed attempts recorded for deviceID.
func (d *Dispatcher) Failures(deviceID uint64) int { return d.failures[deviceID] }

// Forget drops the retry state of deviceID.
func (d *Dispatcher) Forget(deviceID uint64) { delete(d.failures, deviceID) }
