package quad

import "math"

// Quat is a quaternion W + Xi + Yj + Zk. Vehicle orientations are unit
// quaternions mapping body-frame vectors into the inertial frame.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity is the no-rotation quaternion.
var QuatIdentity = Quat{W: 1}

func (q Quat) Conj() Quat { return Quat{q.W, -q.X, -q.Y, -q.Z} }

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Mul returns the Hamilton product q*o.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Normalize rescales q to unit norm. A zero quaternion is returned unchanged.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Rotate applies the rotation to a body-frame vector, producing the
// inertial-frame vector q*v*q⁻¹.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quat{0, v.X, v.Y, v.Z}).Mul(q.Conj())
	return Vec3{p.X, p.Y, p.Z}
}

// RotateInverse applies the inverse rotation, mapping an inertial-frame
// vector into the body frame.
func (q Quat) RotateInverse(v Vec3) Vec3 {
	p := q.Conj().Mul(Quat{0, v.X, v.Y, v.Z}).Mul(q)
	return Vec3{p.X, p.Y, p.Z}
}

// QuatExp is the exponential of the pure quaternion (0, v). For v equal to
// half a rotation vector this yields the corresponding unit quaternion.
func QuatExp(v Vec3) Quat {
	theta := v.Norm()
	if theta == 0 {
		return QuatIdentity
	}
	s := math.Sin(theta) / theta
	return Quat{W: math.Cos(theta), X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// IsNaN reports whether any component is not-a-number.
func (q Quat) IsNaN() bool {
	return math.IsNaN(q.W) || math.IsNaN(q.X) || math.IsNaN(q.Y) || math.IsNaN(q.Z)
}

// RotationMatrix returns the 3x3 rotation matrix of q in row-major order.
func (q Quat) RotationMatrix() [9]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}
