// Package remote3dof registers the 3dof remote class (Go and Gear VR style
// controllers with a clickable touchpad and a digital trigger).
package remote3dof

import (
	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/device"
)

const ClassName = "remote3dof"

// Options control how touchpad clicks are reported.
type Options struct {
	// DPadRemap turns clicks near the top and bottom edge of the touchpad
	// into system and grip presses.
	DPadRemap bool
	// DPadLeftRight additionally turns right and left edge clicks into A and
	// B presses. Only used with DPadRemap.
	DPadLeftRight bool
}

var DefaultOptions = Options{DPadRemap: true}

func init() {
	device.RegisterClass(NewClass(DefaultOptions))
}

// Configure replaces the registered class with one built from opts.
func Configure(opts Options) {
	device.RegisterClass(NewClass(opts))
}

func NewClass(opts Options) *device.Class {
	specs := []device.InputSpec{
		{Path: "/input/system/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonUp},
		{Path: "/input/trigger/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonTrigger},
		{Path: "/input/trigger/value", Type: action.Float32, Axis: AxisTrigger},
		{Path: "/input/grip/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonDown},
		{Path: "/input/trackpad/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonEnter},
		{Path: "/input/trackpad/touch", Type: action.Boolean, Source: detect.Touches, Mask: TouchTrackPad},
		{Path: "/input/trackpad/x", Type: action.Float32, Axis: AxisTrackpadX},
		{Path: "/input/trackpad/y", Type: action.Float32, Axis: AxisTrackpadY},
	}
	if opts.DPadRemap && opts.DPadLeftRight {
		specs = append(specs,
			device.InputSpec{Path: "/input/a/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonRight},
			device.InputSpec{Path: "/input/b/click", Type: action.Boolean, Source: detect.Buttons, Mask: ButtonLeft},
		)
	}
	inputs, table := device.Layout(specs)
	return &device.Class{
		Name:        ClassName,
		DefaultRole: "cxr://input/hand/right",
		Inputs:      inputs,
		Table:       table,
		StateSize:   StateSize,
		NewState:    func() device.State { return &InputState{opts: opts} },
	}
}
