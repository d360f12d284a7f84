package apitypes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/Alia5/xrinput/action"
)

const (
	// EventSize is the encoded size of one action event:
	// action u32 | input u16 | timestamp u64 | type u8 | value[4]
	EventSize = 19
	// BatchHeaderSize is handle[16] | count u16.
	BatchHeaderSize = 18
	// MaxBatchLen bounds the events of one frame on the wire.
	MaxBatchLen = 1024
)

var ErrBatchTooLarge = errors.New("event batch too large")

// EventBatch is one FireEvents call on the wire. All integers are little
// endian. Boolean values are encoded as 0/1 in the first value byte, float32
// values as IEEE 754 bits.
type EventBatch struct {
	Handle uuid.UUID
	Events []action.ActionEvent
}

func (b *EventBatch) MarshalBinary() ([]byte, error) {
	if len(b.Events) > MaxBatchLen {
		return nil, fmt.Errorf("%w: %d events", ErrBatchTooLarge, len(b.Events))
	}
	out := make([]byte, BatchHeaderSize+len(b.Events)*EventSize)
	copy(out[:16], b.Handle[:])
	binary.LittleEndian.PutUint16(out[16:18], uint16(len(b.Events)))
	for i, ev := range b.Events {
		putEvent(out[BatchHeaderSize+i*EventSize:], ev)
	}
	return out, nil
}

func (b *EventBatch) UnmarshalBinary(data []byte) error {
	if len(data) < BatchHeaderSize {
		return io.ErrUnexpectedEOF
	}
	n := int(binary.LittleEndian.Uint16(data[16:18]))
	if n > MaxBatchLen {
		return fmt.Errorf("%w: %d events", ErrBatchTooLarge, n)
	}
	if len(data) != BatchHeaderSize+n*EventSize {
		return fmt.Errorf("event batch: %d events need %d bytes, got %d", n, BatchHeaderSize+n*EventSize, len(data))
	}
	copy(b.Handle[:], data[:16])
	b.Events = make([]action.ActionEvent, n)
	for i := range b.Events {
		ev, err := getEvent(data[BatchHeaderSize+i*EventSize:])
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		b.Events[i] = ev
	}
	return nil
}

// ReadEventBatch reads exactly one batch from r.
func ReadEventBatch(r io.Reader) (*EventBatch, error) {
	hdr := make([]byte, BatchHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint16(hdr[16:18]))
	if n > MaxBatchLen {
		return nil, fmt.Errorf("%w: %d events", ErrBatchTooLarge, n)
	}
	data := make([]byte, BatchHeaderSize+n*EventSize)
	copy(data, hdr)
	if _, err := io.ReadFull(r, data[BatchHeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	var b EventBatch
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &b, nil
}

func putEvent(b []byte, ev action.ActionEvent) {
	binary.LittleEndian.PutUint32(b[0:4], ev.ActionIndex)
	binary.LittleEndian.PutUint16(b[4:6], ev.Input.ClientIndex)
	binary.LittleEndian.PutUint64(b[6:14], ev.Input.Timestamp)
	b[14] = byte(ev.Input.Value.Type)
	switch ev.Input.Value.Type {
	case action.Boolean:
		if ev.Input.Value.Bool {
			b[15] = 1
		}
	case action.Float32:
		binary.LittleEndian.PutUint32(b[15:19], math.Float32bits(ev.Input.Value.Float))
	}
}

func getEvent(b []byte) (action.ActionEvent, error) {
	ev := action.ActionEvent{
		ActionIndex: binary.LittleEndian.Uint32(b[0:4]),
		Input: action.InputEvent{
			ClientIndex: binary.LittleEndian.Uint16(b[4:6]),
			Timestamp:   binary.LittleEndian.Uint64(b[6:14]),
		},
	}
	switch t := action.ValueType(b[14]); t {
	case action.Boolean:
		ev.Input.Value = action.BoolValue(b[15] != 0)
	case action.Float32:
		ev.Input.Value = action.FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(b[15:19])))
	default:
		return action.ActionEvent{}, fmt.Errorf("unknown value type %d", b[14])
	}
	return ev, nil
}
