// Package xform is the affine transform algebra shared by the pose, animation
// and skinning packages. Transforms are mgl64.Mat4 values (column-major) whose
// last row is 0 0 0 1.
package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance of the interpolation boundary checks.
const Epsilon = 1e-9

func Identity() mgl64.Mat4 {
	return mgl64.Ident4()
}

// Compose returns a∘b, b is applied first.
func Compose(a, b mgl64.Mat4) mgl64.Mat4 {
	return a.Mul4(b)
}

// Inverse inverts an affine transform. A singular linear part yields
// a zero linear part, as mgl64.Mat3.Inv does.
func Inverse(m mgl64.Mat4) mgl64.Mat4 {
	inv := m.Mat3().Inv()
	t := inv.Mul3x1(Translation(m)).Mul(-1)

	r := inv.Mat4()
	r[12], r[13], r[14] = t[0], t[1], t[2]
	return r
}

func Translation(m mgl64.Mat4) mgl64.Vec3 {
	return mgl64.Vec3{m[12], m[13], m[14]}
}

func Translate(v mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(v[0], v[1], v[2])
}

// Linear returns the upper-left 3x3 block.
func Linear(m mgl64.Mat4) mgl64.Mat3 {
	return m.Mat3()
}

func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// TransformVector applies the linear part only.
func TransformVector(m mgl64.Mat4, v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2],
	}
}

func IsIdentity(m mgl64.Mat4, eps float64) bool {
	return ApproxEqual(m, mgl64.Ident4(), eps)
}

// ApproxEqual compares element-wise with an absolute tolerance. mgl's
// ApproxEqualThreshold is relative and squares eps around zero.
func ApproxEqual(a, b mgl64.Mat4, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func ApproxEqualVec3(a, b mgl64.Vec3, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps && math.Abs(a[2]-b[2]) <= eps
}

func ApproxEqualQuat(a, b mgl64.Quat, eps float64) bool {
	return math.Abs(a.W-b.W) <= eps && ApproxEqualVec3(a.V, b.V, eps)
}

func nearZero(a float64) bool {
	return math.Abs(a) <= Epsilon
}

func nearOne(a float64) bool {
	return math.Abs(1-a) <= Epsilon
}
