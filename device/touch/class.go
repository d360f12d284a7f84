// Package touch registers the left and right Touch controller classes.
package touch

import (
	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/device"
	"github.com/Alia5/xrinput/pose"
)

const (
	LeftClass  = "touch-left"
	RightClass = "touch-right"
)

func init() {
	device.RegisterClass(NewClass(LeftClass))
	device.RegisterClass(NewClass(RightClass))
}

func specs(left bool) []device.InputSpec {
	var s []device.InputSpec
	if left {
		s = append(s,
			device.InputSpec{Path: "/input/system/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonEnter},
			device.InputSpec{Path: "/input/x/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonX},
			device.InputSpec{Path: "/input/y/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonY},
			device.InputSpec{Path: "/input/x/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchX},
			device.InputSpec{Path: "/input/y/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchY},
		)
	} else {
		s = append(s,
			device.InputSpec{Path: "/input/a/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonA},
			device.InputSpec{Path: "/input/b/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonB},
			device.InputSpec{Path: "/input/a/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchA},
			device.InputSpec{Path: "/input/b/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchB},
		)
	}
	return append(s,
		device.InputSpec{Path: "/input/trigger/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonTrigger},
		device.InputSpec{Path: "/input/trigger/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchIndexTrigger},
		device.InputSpec{Path: "/input/trigger/value", Type: action.Float32, Axis: AxisTrigger},
		device.InputSpec{Path: "/input/grip/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonGripTrigger},
		device.InputSpec{Path: "/input/grip/value", Type: action.Float32, Axis: AxisGrip},
		device.InputSpec{Path: "/input/joystick/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonJoystick},
		device.InputSpec{Path: "/input/joystick/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchJoystick},
		device.InputSpec{Path: "/input/joystick/x", Type: action.Float32, Axis: AxisJoystickX},
		device.InputSpec{Path: "/input/joystick/y", Type: action.Float32, Axis: AxisJoystickY},
	)
}

// NewClass builds the class for name, which must be LeftClass or RightClass.
func NewClass(name string) *device.Class {
	left := name == LeftClass
	role := "cxr://input/hand/right"
	if left {
		role = "cxr://input/hand/left"
	}
	inputs, table := device.Layout(specs(left))
	offset := pose.RotationX(PoseRotationX)
	return &device.Class{
		Name:        name,
		DefaultRole: role,
		Inputs:      inputs,
		Table:       table,
		StateSize:   StateSize,
		NewState:    func() device.State { return &InputState{} },
		PoseOffset:  &offset,
	}
}
