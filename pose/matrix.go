package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix34 is a row-major rigid transform: a 3x3 rotation in the first three
// columns and a translation in the fourth.
type Matrix34 [3][4]float64

// Identity returns the identity transform.
func Identity() Matrix34 {
	return Matrix34{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// RotationX returns a rotation of rad radians about the X axis.
func RotationX(rad float64) Matrix34 {
	s, c := math.Sincos(rad)
	return Matrix34{
		{1, 0, 0, 0},
		{0, c, -s, 0},
		{0, s, c, 0},
	}
}

// Translation returns the fourth column.
func (m Matrix34) Translation() r3.Vec {
	return r3.Vec{X: m[0][3], Y: m[1][3], Z: m[2][3]}
}

// Rotation returns the 3x3 rotation block.
func (m Matrix34) Rotation() *r3.Mat {
	return r3.NewMat([]float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// Mul returns m*o, applying o first.
func (m Matrix34) Mul(o Matrix34) Matrix34 {
	var out Matrix34
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			var v float64
			for k := 0; k < 3; k++ {
				v += m[i][k] * o[k][j]
			}
			if j == 3 {
				v += m[i][3]
			}
			out[i][j] = v
		}
	}
	return out
}

// Inverse inverts a rigid transform by transposing the rotation.
func (m Matrix34) Inverse() Matrix34 {
	var out Matrix34
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	t := m.Translation()
	for i := 0; i < 3; i++ {
		out[i][3] = -(out[i][0]*t.X + out[i][1]*t.Y + out[i][2]*t.Z)
	}
	return out
}

// QuatFromMatrix extracts the unit quaternion of the rotation block.
func QuatFromMatrix(m Matrix34) quat.Number {
	trace := m[0][0] + m[1][1] + m[2][2]
	var q quat.Number
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q.Real = 0.25 / s
		q.Imag = (m[2][1] - m[1][2]) * s
		q.Jmag = (m[0][2] - m[2][0]) * s
		q.Kmag = (m[1][0] - m[0][1]) * s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q.Real = (m[2][1] - m[1][2]) / s
		q.Imag = 0.25 * s
		q.Jmag = (m[0][1] + m[1][0]) / s
		q.Kmag = (m[0][2] + m[2][0]) / s
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q.Real = (m[0][2] - m[2][0]) / s
		q.Imag = (m[0][1] + m[1][0]) / s
		q.Jmag = 0.25 * s
		q.Kmag = (m[1][2] + m[2][1]) / s
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q.Real = (m[1][0] - m[0][1]) / s
		q.Imag = (m[0][2] + m[2][0]) / s
		q.Jmag = (m[1][2] + m[2][1]) / s
		q.Kmag = 0.25 * s
	}
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	}
	return q
}

// MatrixFromQuat builds a rigid transform from a unit quaternion and a
// translation.
func MatrixFromQuat(q quat.Number, pos r3.Vec) Matrix34 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Matrix34{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), pos.X},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), pos.Y},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), pos.Z},
	}
}

// RotationMat returns the rotation matrix of a unit quaternion.
func RotationMat(q quat.Number) *r3.Mat {
	return MatrixFromQuat(q, r3.Vec{}).Rotation()
}
