package touch

// Button bitmasks as reported by the headset runtime for Touch controllers.
const (
	ButtonA           = 0x00000001
	ButtonB           = 0x00000002
	ButtonRThumb      = 0x00000004
	ButtonX           = 0x00000100
	ButtonY           = 0x00000200
	ButtonLThumb      = 0x00000400
	ButtonEnter       = 0x00100000 // Menu button, left controller only
	ButtonBack        = 0x00200000
	ButtonGripTrigger = 0x04000000
	ButtonTrigger     = 0x20000000
	ButtonJoystick    = 0x80000000
)

// Capacitive touch bitmasks.
const (
	TouchA            = 0x00000001
	TouchB            = 0x00000002
	TouchX            = 0x00000100
	TouchY            = 0x00000200
	TouchIndexTrigger = 0x00001000
	TouchJoystick     = 0x00004000
	TouchThumbRest    = 0x00008000
)

// Axis positions in the snapshot.
const (
	AxisTrigger = iota
	AxisGrip
	AxisJoystickX
	AxisJoystickY
)

// Quest controllers are held rotated against the Touch model the session
// peer renders; this is the correction about X, in radians.
const PoseRotationX = 0.45
