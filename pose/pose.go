// Package pose converts tracked rigid-body transforms into the position and
// orientation form sent to the session peer.
package pose

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame names the coordinate frame a velocity vector is expressed in.
type Frame uint8

const (
	WorldSpace Frame = iota
	DeviceSpace
)

func (f Frame) String() string {
	if f == DeviceSpace {
		return "device"
	}
	return "world"
}

// RigidBody is one sample from the tracking collaborator. Velocities and
// accelerations are world space.
type RigidBody struct {
	Transform           Matrix34
	Velocity            r3.Vec
	AngularVelocity     r3.Vec
	Acceleration        r3.Vec
	AngularAcceleration r3.Vec
}

// Pose is the spatial state of one device. Every field except Connected and
// Valid is meaningless while Valid is false.
type Pose struct {
	Position            r3.Vec
	Rotation            quat.Number
	Velocity            r3.Vec
	AngularVelocity     r3.Vec
	Acceleration        r3.Vec
	AngularAcceleration r3.Vec

	// TimeOffset is the prediction offset, in seconds, the sample was taken at.
	TimeOffset float32

	Connected bool
	Valid     bool
}

// Convert decomposes rb into position and rotation. A non-nil offset is
// applied in device space before decomposition. Velocities are passed through
// unchanged, in world space; see AngularVelocity for frame conversion.
func Convert(rb RigidBody, offset *Matrix34) Pose {
	m := rb.Transform
	if offset != nil {
		m = m.Mul(*offset)
	}
	return Pose{
		Position:            m.Translation(),
		Rotation:            QuatFromMatrix(m),
		Velocity:            rb.Velocity,
		AngularVelocity:     rb.AngularVelocity,
		Acceleration:        rb.Acceleration,
		AngularAcceleration: rb.AngularAcceleration,
	}
}

// ToDeviceSpace expresses a world-space vector in the frame of rotation.
func ToDeviceSpace(rotation quat.Number, v r3.Vec) r3.Vec {
	return RotationMat(rotation).MulVecTrans(v)
}

// ToWorldSpace is the inverse of ToDeviceSpace.
func ToWorldSpace(rotation quat.Number, v r3.Vec) r3.Vec {
	return RotationMat(rotation).MulVec(v)
}

// AngularVelocity returns p's angular velocity, reported in frame from,
// expressed in frame to. Conversion is exact; no smoothing is applied.
func AngularVelocity(p Pose, from, to Frame) r3.Vec {
	switch {
	case from == to:
		return p.AngularVelocity
	case to == DeviceSpace:
		return ToDeviceSpace(p.Rotation, p.AngularVelocity)
	default:
		return ToWorldSpace(p.Rotation, p.AngularVelocity)
	}
}
