package quad

import (
	"math"
	"math/rand/v2"
)

// EulerRPY extracts (roll, pitch, yaw) from q using the aerospace XYZ
// convention. Pitch is clamped to avoid NaN at the gimbal-lock poles.
func (q Quat) EulerRPY() Vec3 {
	ysqr := q.Y * q.Y

	t0 := 2 * (q.W*q.X + q.Y*q.Z)
	t1 := 1 - 2*(q.X*q.X+ysqr)
	roll := math.Atan2(t0, t1)

	t2 := 2 * (q.W*q.Y - q.Z*q.X)
	t2 = clamp(t2, -1, 1)
	pitch := math.Asin(t2)

	t3 := 2 * (q.W*q.Z + q.X*q.Y)
	t4 := 1 - 2*(ysqr+q.Z*q.Z)
	yaw := math.Atan2(t3, t4)

	return Vec3{roll, pitch, yaw}
}

// EulerZYX extracts (heading, attitude, bank) angles applied in ZYX order,
// keeping the heading valid in the global frame. Returns the zero vector at
// the gimbal-lock singularity.
func (q Quat) EulerZYX() Vec3 {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z

	v1x := 2*(q0*q0+q1*q1) - 1
	v1y := 2 * (q0*-q3 + q1*q2)

	v2x := 2 * (q0*q2 + q3*q1)
	v2y := 2 * (-q0*q1 + q3*q2)
	v2z := 2*(q0*q0+q3*q3) - 1

	if v2x < -0.9999999999 || v2x > 0.9999999999 {
		return Vec3{}
	}

	return Vec3{math.Atan2(v1y, v1x), -math.Asin(v2x), math.Atan2(v2y, v2z)}
}

// QuatFromEuler builds a quaternion from (roll, pitch, yaw).
func QuatFromEuler(roll, pitch, yaw float64) Quat {
	cy := math.Cos(yaw * 0.5)
	sy := math.Sin(yaw * 0.5)
	cr := math.Cos(roll * 0.5)
	sr := math.Sin(roll * 0.5)
	cp := math.Cos(pitch * 0.5)
	sp := math.Sin(pitch * 0.5)

	return Quat{
		W: cy*cr*cp + sy*sr*sp,
		X: cy*sr*cp - sy*cr*sp,
		Y: cy*cr*sp + sy*sr*cp,
		Z: sy*cr*cp - cy*sr*sp,
	}
}

// RotMatZYX converts ZYX euler angles (heading, attitude, bank) to a
// row-major rotation matrix.
func RotMatZYX(e Vec3) [9]float64 {
	c1, s1 := math.Cos(e.X), math.Sin(e.X)
	c2, s2 := math.Cos(e.Y), math.Sin(e.Y)
	c3, s3 := math.Cos(e.Z), math.Sin(e.Z)

	return [9]float64{
		c1 * c2, -s1 * c2, s2,
		s1*c3 + c1*s2*s3, c1*c3 - s1*s2*s3, -c2 * s3,
		s1*s3 - c1*s2*c3, c1*s3 + s1*s2*c3, c2 * c3,
	}
}

// RandomRotation draws a rotation by sampling a normally distributed axis
// and a normally distributed angle with standard deviation π/2.
func RandomRotation(rng *rand.Rand) Quat {
	var axis Vec3
	for axis.Norm() == 0 {
		axis = Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	}
	axis = axis.Scale(rng.NormFloat64() * math.Pi / 2 / axis.Norm())
	return QuatExp(axis)
}
