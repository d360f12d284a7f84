package remote3dof_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/xrinput/detect"
	"github.com/Alia5/xrinput/device"
	"github.com/Alia5/xrinput/device/remote3dof"
)

func decode(t *testing.T, opts remote3dof.Options, s remote3dof.InputState) (map[string]bool, []float32) {
	t.Helper()
	c := remote3dof.NewClass(opts)
	data, err := s.MarshalBinary()
	require.NoError(t, err)
	snap, err := c.Decode(data)
	require.NoError(t, err)

	pressed := map[string]bool{}
	for _, b := range c.Table.Bits {
		mask := snap.Buttons
		if b.Source == detect.Touches {
			mask = snap.Touches
		}
		if mask&(1<<b.Bit) != 0 {
			pressed[c.Inputs[b.Input].Path] = true
		}
	}
	return pressed, snap.Axes
}

func click(x, y float32) remote3dof.InputState {
	return remote3dof.InputState{
		Buttons:      remote3dof.ButtonEnter,
		Touches:      remote3dof.TouchTrackPad,
		TrackpadX:    x,
		TrackpadY:    y,
		TrackpadMaxX: 320,
		TrackpadMaxY: 320,
	}
}

func TestTrackpadNormalization(t *testing.T) {
	type testCase struct {
		name    string
		px, py  float32
		expectX float32
		expectY float32
	}
	testCases := []testCase{
		{name: "centre", px: 160, py: 160, expectX: 0, expectY: 0},
		{name: "top left", px: 0, py: 0, expectX: -1, expectY: 1},
		{name: "bottom right", px: 320, py: 320, expectX: 1, expectY: -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := remote3dof.InputState{TrackpadX: tc.px, TrackpadY: tc.py, TrackpadMaxX: 320, TrackpadMaxY: 320}
			x, y := s.Trackpad()
			assert.InDelta(t, tc.expectX, x, 1e-6)
			assert.InDelta(t, tc.expectY, y, 1e-6)
		})
	}

	var zero remote3dof.InputState
	x, y := zero.Trackpad()
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestFakedTriggerAxis(t *testing.T) {
	_, axes := decode(t, remote3dof.Options{}, remote3dof.InputState{Buttons: remote3dof.ButtonTrigger})
	assert.Equal(t, float32(1), axes[remote3dof.AxisTrigger])

	_, axes = decode(t, remote3dof.Options{}, remote3dof.InputState{})
	assert.Equal(t, float32(0), axes[remote3dof.AxisTrigger])
}

func TestClickRemap(t *testing.T) {
	type testCase struct {
		name     string
		opts     remote3dof.Options
		state    remote3dof.InputState
		expected []string
	}

	testCases := []testCase{
		{
			name:     "remap off reports plain click",
			opts:     remote3dof.Options{},
			state:    click(160, 0),
			expected: []string{"/input/trackpad/click", "/input/trackpad/touch"},
		},
		{
			name:     "centre click",
			opts:     remote3dof.Options{DPadRemap: true},
			state:    click(170, 150),
			expected: []string{"/input/trackpad/click", "/input/trackpad/touch"},
		},
		{
			name:     "top edge becomes system",
			opts:     remote3dof.Options{DPadRemap: true},
			state:    click(160, 10),
			expected: []string{"/input/system/click", "/input/trackpad/touch"},
		},
		{
			name:     "bottom edge becomes grip",
			opts:     remote3dof.Options{DPadRemap: true},
			state:    click(150, 310),
			expected: []string{"/input/grip/click", "/input/trackpad/touch"},
		},
		{
			name:     "side edge stays a click without left/right",
			opts:     remote3dof.Options{DPadRemap: true},
			state:    click(315, 160),
			expected: []string{"/input/trackpad/click", "/input/trackpad/touch"},
		},
		{
			name:     "right edge becomes A",
			opts:     remote3dof.Options{DPadRemap: true, DPadLeftRight: true},
			state:    click(315, 160),
			expected: []string{"/input/a/click", "/input/trackpad/touch"},
		},
		{
			name:     "left edge becomes B",
			opts:     remote3dof.Options{DPadRemap: true, DPadLeftRight: true},
			state:    click(5, 170),
			expected: []string{"/input/b/click", "/input/trackpad/touch"},
		},
		{
			name: "stale directional bits are cleared",
			opts: remote3dof.Options{DPadRemap: true},
			state: remote3dof.InputState{
				Buttons:      remote3dof.ButtonUp | remote3dof.ButtonDown,
				TrackpadMaxX: 320,
				TrackpadMaxY: 320,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pressed, _ := decode(t, tc.opts, tc.state)
			var got []string
			for path := range pressed {
				got = append(got, path)
			}
			assert.ElementsMatch(t, tc.expected, got)
		})
	}
}

func TestConfigureReplacesClass(t *testing.T) {
	t.Cleanup(func() { remote3dof.Configure(remote3dof.DefaultOptions) })

	remote3dof.Configure(remote3dof.Options{DPadRemap: true, DPadLeftRight: true})
	c := device.GetClass(remote3dof.ClassName)
	require.NotNil(t, c)
	assert.Len(t, c.Inputs, 10)

	remote3dof.Configure(remote3dof.DefaultOptions)
	assert.Len(t, device.GetClass(remote3dof.ClassName).Inputs, 8)
}
