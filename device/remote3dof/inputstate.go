package remote3dof

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Alia5/xrinput/detect"
)

const StateSize = 20

// InputState is one raw sample of a 3dof remote.
// Layout (little endian):
//
//	 0-3:   Buttons
//	 4-7:   Touches
//	 8-11:  TrackpadX (float32, 0..TrackpadMaxX)
//	12-15:  TrackpadY (float32, 0..TrackpadMaxY, down is positive)
//	16-17:  TrackpadMaxX
//	18-19:  TrackpadMaxY
type InputState struct {
	Buttons uint32
	Touches uint32

	TrackpadX, TrackpadY       float32
	TrackpadMaxX, TrackpadMaxY uint16

	opts Options
}

func (s *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, StateSize)
	binary.LittleEndian.PutUint32(b[0:4], s.Buttons)
	binary.LittleEndian.PutUint32(b[4:8], s.Touches)
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(s.TrackpadX))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(s.TrackpadY))
	binary.LittleEndian.PutUint16(b[16:18], s.TrackpadMaxX)
	binary.LittleEndian.PutUint16(b[18:20], s.TrackpadMaxY)
	return b, nil
}

func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < StateSize {
		return io.ErrUnexpectedEOF
	}
	s.Buttons = binary.LittleEndian.Uint32(data[0:4])
	s.Touches = binary.LittleEndian.Uint32(data[4:8])
	s.TrackpadX = math.Float32frombits(binary.LittleEndian.Uint32(data[8:12]))
	s.TrackpadY = math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	s.TrackpadMaxX = binary.LittleEndian.Uint16(data[16:18])
	s.TrackpadMaxY = binary.LittleEndian.Uint16(data[18:20])
	return nil
}

// Trackpad returns the touch position normalized to [-1,1], Y up.
func (s *InputState) Trackpad() (x, y float32) {
	if s.TrackpadMaxX > 0 {
		x = 2*s.TrackpadX/float32(s.TrackpadMaxX) - 1
	}
	if s.TrackpadMaxY > 0 {
		y = 1 - 2*s.TrackpadY/float32(s.TrackpadMaxY)
	}
	return x, y
}

// Snapshot normalizes the trackpad, reports the digital trigger as a 0/1
// axis and rewrites the directional bits from the touchpad click position.
func (s *InputState) Snapshot() detect.Snapshot {
	x, y := s.Trackpad()

	trigger := float32(0)
	if s.Buttons&ButtonTrigger != 0 {
		trigger = 1
	}

	buttons := s.Buttons &^ (dpadMask | ButtonEnter)
	if s.Buttons&ButtonEnter != 0 {
		buttons |= s.opts.clickButton(x, y)
	}

	axes := make([]float32, 3)
	axes[AxisTrigger] = trigger
	axes[AxisTrackpadX] = x
	axes[AxisTrackpadY] = y
	return detect.Snapshot{
		Buttons: uint64(buttons),
		Touches: uint64(s.Touches),
		Axes:    axes,
	}
}

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }

// clickButton picks the button a touchpad click at (x, y) stands for.
func (o Options) clickButton(x, y float32) uint32 {
	if !o.DPadRemap {
		return ButtonEnter
	}
	if abs32(x) <= DPadCutoff && abs32(y) <= DPadCutoff {
		return ButtonEnter
	}
	if abs32(y) > abs32(x) {
		if y > 0 {
			return ButtonUp
		}
		return ButtonDown
	}
	if !o.DPadLeftRight {
		return ButtonEnter
	}
	if x > 0 {
		return ButtonRight
	}
	return ButtonLeft
}
