package remote3dof

// Button bitmasks as reported by the headset runtime for 3dof remotes.
// Touchpad clicks arrive as ButtonEnter.
const (
	ButtonUp      = 0x00010000
	ButtonDown    = 0x00020000
	ButtonLeft    = 0x00040000
	ButtonRight   = 0x00080000
	ButtonEnter   = 0x00100000
	ButtonBack    = 0x00200000
	ButtonTrigger = 0x20000000
)

const TouchTrackPad = 0x00001000

const dpadMask = ButtonUp | ButtonDown | ButtonLeft | ButtonRight

// Axis positions in the snapshot.
const (
	AxisTrigger = iota
	AxisTrackpadX
	AxisTrackpadY
)

// DPadCutoff is how far from the touchpad centre, in normalized units, a
// click has to land to count as a directional press.
const DPadCutoff = 0.55
