// Package detect turns per-frame device state samples into edge-triggered
// input events.
//
// A Detector keeps, per device, the last snapshot that was successfully
// delivered. Diff compares a fresh sample against it; Commit advances it.
// Callers commit only after the events produced by Diff were accepted
// downstream, so a failed delivery is retried against the same baseline on
// the next frame.
package detect

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"slices"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/internal/metrics"
)

// MaxBatchEvents is the capacity of one Batch.
const MaxBatchEvents = 64

var (
	ErrUnknownClass = errors.New("unknown device class")
	ErrBatchFull    = errors.New("event batch full")
)

// Snapshot is one raw sample of a device.
type Snapshot struct {
	Buttons   uint64
	Touches   uint64
	Axes      []float32
	Timestamp uint64
}

func (s Snapshot) Clone() Snapshot {
	s.Axes = slices.Clone(s.Axes)
	return s
}

func (s Snapshot) mask(src Source) uint64 {
	if src == Touches {
		return s.Touches
	}
	return s.Buttons
}

func (s Snapshot) axis(i int) float32 {
	if i < len(s.Axes) {
		return s.Axes[i]
	}
	return 0
}

// Batch is a fixed-capacity list of input events for one device.
type Batch struct {
	events [MaxBatchEvents]action.InputEvent
	n      int
}

// Append adds ev, or returns ErrBatchFull.
func (b *Batch) Append(ev action.InputEvent) error {
	if b.n == MaxBatchEvents {
		return ErrBatchFull
	}
	b.events[b.n] = ev
	b.n++
	return nil
}

func (b *Batch) Len() int { return b.n }

// Events returns the events appended so far. The slice aliases the batch.
func (b *Batch) Events() []action.InputEvent { return b.events[:b.n] }

// Detector diffs device samples against the last committed snapshot.
// It is not safe for concurrent use.
type Detector struct {
	classes   map[string]*compiledTable
	committed map[uint64]Snapshot
	logger    *slog.Logger
}

// New compiles tables. Class names are matched case-insensitively.
func New(tables []ClassTable, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		classes:   make(map[string]*compiledTable, len(tables)),
		committed: map[uint64]Snapshot{},
		logger:    logger,
	}
	for _, t := range tables {
		c, err := compile(t)
		if err != nil {
			return nil, err
		}
		key := classKey(t.Name)
		if _, dup := d.classes[key]; dup {
			return nil, fmt.Errorf("%w: class %q declared twice", ErrInvalidTable, t.Name)
		}
		d.classes[key] = c
	}
	return d, nil
}

// Diff returns the events between the committed snapshot of deviceID and
// snap. A device without a committed snapshot is diffed against the zero
// Snapshot, so any non-zero initial state produces events.
//
// Digital events come first (buttons, then touches, each in ascending bit
// order), then axis events in table order. Events beyond MaxBatchEvents spill
// into further batches. Diff does not modify the committed snapshot.
func (d *Detector) Diff(deviceID uint64, class string, snap Snapshot) ([]*Batch, error) {
	t, ok := d.classes[classKey(class)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	prev := d.committed[deviceID]

	var out []*Batch
	emit := func(ev action.InputEvent) {
		if len(out) == 0 || out[len(out)-1].Append(ev) != nil {
			b := &Batch{}
			_ = b.Append(ev)
			out = append(out, b)
		}
	}

	total := 0
	for _, src := range []Source{Buttons, Touches} {
		cur := snap.mask(src)
		for changed := prev.mask(src) ^ cur; changed != 0; changed &= changed - 1 {
			bit := bits.TrailingZeros64(changed)
			input := t.bits[src][bit]
			if input == unbound {
				continue
			}
			emit(action.InputEvent{
				ClientIndex: uint16(input),
				Timestamp:   snap.Timestamp,
				Value:       action.BoolValue(cur&(1<<bit) != 0),
			})
			total++
		}
	}
	for _, a := range t.axes {
		cur := snap.axis(a.Axis)
		if !axisChanged(prev.axis(a.Axis), cur) {
			continue
		}
		emit(action.InputEvent{
			ClientIndex: a.Input,
			Timestamp:   snap.Timestamp,
			Value:       action.FloatValue(cur),
		})
		total++
	}

	if len(out) > 1 {
		d.logger.Warn("input events exceed one batch, splitting",
			"device", deviceID, "events", total, "batches", len(out))
	}
	metrics.RecordEventsDetected(total)
	return out, nil
}

// axisChanged is exact inequality, except that NaN equals NaN so a stuck
// NaN axis is reported once.
func axisChanged(prev, cur float32) bool {
	if math.IsNaN(float64(prev)) && math.IsNaN(float64(cur)) {
		return false
	}
	return prev != cur
}

// Commit makes snap the baseline for the next Diff of deviceID.
func (d *Detector) Commit(deviceID uint64, snap Snapshot) {
	d.committed[deviceID] = snap.Clone()
}

// Reset forgets deviceID, so its next Diff starts from the zero Snapshot.
func (d *Detector) Reset(deviceID uint64) {
	delete(d.committed, deviceID)
}

// Committed returns the baseline of deviceID.
func (d *Detector) Committed(deviceID uint64) (Snapshot, bool) {
	s, ok := d.committed[deviceID]
	return s.Clone(), ok
}

// HasClass reports whether class has a table.
func (d *Detector) HasClass(class string) bool {
	_, ok := d.classes[classKey(class)]
	return ok
}
