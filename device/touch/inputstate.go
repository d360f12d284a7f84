package touch

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Alia5/xrinput/detect"
)

// StateSize is the length of the binary form of InputState.
const StateSize = 24

// InputState is one raw sample of a Touch controller.
// Layout (little endian):
//
//	 0-3:   Buttons
//	 4-7:   Touches
//	 8-11:  Trigger (float32, 0..1)
//	12-15:  Grip (float32, 0..1)
//	16-19:  JoystickX (float32, -1..1)
//	20-23:  JoystickY (float32, -1..1)
type InputState struct {
	Buttons uint32
	Touches uint32

	Trigger, Grip        float32
	JoystickX, JoystickY float32
}

// MarshalBinary encodes InputState to 24 bytes.
func (s *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, StateSize)
	binary.LittleEndian.PutUint32(b[0:4], s.Buttons)
	binary.LittleEndian.PutUint32(b[4:8], s.Touches)
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(s.Trigger))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(s.Grip))
	binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(s.JoystickX))
	binary.LittleEndian.PutUint32(b[20:24], math.Float32bits(s.JoystickY))
	return b, nil
}

// UnmarshalBinary decodes 24 bytes into InputState.
func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < StateSize {
		return io.ErrUnexpectedEOF
	}
	s.Buttons = binary.LittleEndian.Uint32(data[0:4])
	s.Touches = binary.LittleEndian.Uint32(data[4:8])
	s.Trigger = math.Float32frombits(binary.LittleEndian.Uint32(data[8:12]))
	s.Grip = math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	s.JoystickX = math.Float32frombits(binary.LittleEndian.Uint32(data[16:20]))
	s.JoystickY = math.Float32frombits(binary.LittleEndian.Uint32(data[20:24]))
	return nil
}

// Snapshot passes buttons, touches and analog values through unchanged.
func (s *InputState) Snapshot() detect.Snapshot {
	axes := make([]float32, 4)
	axes[AxisTrigger] = s.Trigger
	axes[AxisGrip] = s.Grip
	axes[AxisJoystickX] = s.JoystickX
	axes[AxisJoystickY] = s.JoystickY
	return detect.Snapshot{
		Buttons: uint64(s.Buttons),
		Touches: uint64(s.Touches),
		Axes:    axes,
	}
}
