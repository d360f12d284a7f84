package pose_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Alia5/xrinput/pose"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

func aboutAxis(rad float64, axis r3.Vec) quat.Number {
	s, c := math.Sincos(rad / 2)
	return quat.Number{Real: c, Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

func TestAngularVelocityFrames(t *testing.T) {
	type testCase struct {
		name     string
		rotation quat.Number
		in       r3.Vec
		expected r3.Vec
	}

	testCases := []testCase{
		{
			name:     "identity rotation leaves vector unchanged",
			rotation: quat.Number{Real: 1},
			in:       r3.Vec{X: 0.3, Y: -1.2, Z: 2},
			expected: r3.Vec{X: 0.3, Y: -1.2, Z: 2},
		},
		{
			name:     "90 degrees about Z, velocity along X",
			rotation: aboutAxis(math.Pi/2, r3.Vec{Z: 1}),
			in:       r3.Vec{X: 1},
			expected: r3.Vec{Y: -1},
		},
		{
			name:     "90 degrees about X, velocity along Y",
			rotation: aboutAxis(math.Pi/2, r3.Vec{X: 1}),
			in:       r3.Vec{Y: 1},
			expected: r3.Vec{Z: -1},
		},
		{
			name:     "90 degrees about Y, velocity along Z",
			rotation: aboutAxis(math.Pi/2, r3.Vec{Y: 1}),
			in:       r3.Vec{Z: 1},
			expected: r3.Vec{X: -1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := pose.Pose{Rotation: tc.rotation, AngularVelocity: tc.in}

			got := pose.AngularVelocity(p, pose.WorldSpace, pose.DeviceSpace)
			if diff := cmp.Diff(tc.expected, got, approx); diff != "" {
				t.Errorf("device space mismatch (-want +got):\n%s", diff)
			}

			back := pose.ToWorldSpace(tc.rotation, got)
			if diff := cmp.Diff(tc.in, back, approx); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAngularVelocitySameFramePassesThrough(t *testing.T) {
	p := pose.Pose{
		Rotation:        aboutAxis(1.1, r3.Vec{Y: 1}),
		AngularVelocity: r3.Vec{X: 1, Y: 2, Z: 3},
	}
	assert.Equal(t, p.AngularVelocity, pose.AngularVelocity(p, pose.DeviceSpace, pose.DeviceSpace))
	assert.Equal(t, p.AngularVelocity, pose.AngularVelocity(p, pose.WorldSpace, pose.WorldSpace))
}

func TestQuatFromMatrix(t *testing.T) {
	type testCase struct {
		name string
		q    quat.Number
	}

	// One case per branch of the extraction: positive trace, then each
	// dominant diagonal term.
	testCases := []testCase{
		{name: "identity", q: quat.Number{Real: 1}},
		{name: "small rotation", q: aboutAxis(0.4, r3.Vec{X: 0.6, Z: 0.8})},
		{name: "half turn about X", q: aboutAxis(math.Pi, r3.Vec{X: 1})},
		{name: "half turn about Y", q: aboutAxis(math.Pi, r3.Vec{Y: 1})},
		{name: "half turn about Z", q: aboutAxis(math.Pi, r3.Vec{Z: 1})},
		{name: "near half turn", q: aboutAxis(3.0, r3.Vec{Y: 0.6, Z: 0.8})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pos := r3.Vec{X: 1, Y: 2, Z: 3}
			m := pose.MatrixFromQuat(tc.q, pos)
			got := pose.QuatFromMatrix(m)

			// q and -q are the same rotation.
			if got.Real*tc.q.Real+got.Imag*tc.q.Imag+got.Jmag*tc.q.Jmag+got.Kmag*tc.q.Kmag < 0 {
				got = quat.Scale(-1, got)
			}
			if diff := cmp.Diff(tc.q, got, approx); diff != "" {
				t.Errorf("quaternion mismatch (-want +got):\n%s", diff)
			}
			assert.InDelta(t, 1, quat.Abs(got), 1e-9)
			assert.Equal(t, pos, m.Translation())
		})
	}
}

func TestConvert(t *testing.T) {
	rot := aboutAxis(math.Pi/2, r3.Vec{Z: 1})
	rb := pose.RigidBody{
		Transform:       pose.MatrixFromQuat(rot, r3.Vec{X: 0.1, Y: 1.5, Z: -0.3}),
		Velocity:        r3.Vec{X: 1},
		AngularVelocity: r3.Vec{Z: 2},
		Acceleration:    r3.Vec{Y: -9.8},
	}

	t.Run("without offset", func(t *testing.T) {
		p := pose.Convert(rb, nil)
		if diff := cmp.Diff(r3.Vec{X: 0.1, Y: 1.5, Z: -0.3}, p.Position, approx); diff != "" {
			t.Errorf("position mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(rot, p.Rotation, approx); diff != "" {
			t.Errorf("rotation mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, rb.Velocity, p.Velocity)
		assert.Equal(t, rb.AngularVelocity, p.AngularVelocity)
		assert.Equal(t, rb.Acceleration, p.Acceleration)
		assert.False(t, p.Valid)
	})

	t.Run("offset rotates in device space", func(t *testing.T) {
		offset := pose.RotationX(0.45)
		p := pose.Convert(rb, &offset)

		want := quat.Mul(rot, aboutAxis(0.45, r3.Vec{X: 1}))
		if diff := cmp.Diff(want, p.Rotation, approx); diff != "" {
			t.Errorf("rotation mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(r3.Vec{X: 0.1, Y: 1.5, Z: -0.3}, p.Position, approx); diff != "" {
			t.Errorf("pure rotation offset moved the position (-want +got):\n%s", diff)
		}
	})
}

func TestMatrixInverse(t *testing.T) {
	m := pose.MatrixFromQuat(aboutAxis(0.7, r3.Vec{Y: 1}), r3.Vec{X: 4, Y: -2, Z: 1})
	got := m.Mul(m.Inverse())
	want := pose.Identity()

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("m * m^-1 is not identity (-want +got):\n%s", diff)
	}
}
