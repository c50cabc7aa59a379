package xform

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Decompose splits m into translation, rotation and scale so that
// m = T·R·S. A reflection is carried by a negative x scale. When any
// scale axis collapses the rotation is reported as identity.
func Decompose(m mgl64.Mat4) (t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) {
	t = Translation(m)

	c0 := mgl64.Vec3{m[0], m[1], m[2]}
	c1 := mgl64.Vec3{m[4], m[5], m[6]}
	c2 := mgl64.Vec3{m[8], m[9], m[10]}

	s = mgl64.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}

	if nearZero(s[0]) || nearZero(s[1]) || nearZero(s[2]) {
		return t, mgl64.QuatIdent(), s
	}

	rot := mgl64.Mat3FromCols(c0.Mul(1/s[0]), c1.Mul(1/s[1]), c2.Mul(1/s[2]))
	r = mgl64.Mat4ToQuat(rot.Mat4()).Normalize()
	return t, r, s
}

// Recompose builds T·R·S.
func Recompose(t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) mgl64.Mat4 {
	m := r.Normalize().Mat4()
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] *= s[col]
		}
	}
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Rotation returns the rotational part of m.
func Rotation(m mgl64.Mat4) mgl64.Quat {
	_, r, _ := Decompose(m)
	return r
}

// Rigid drops the scale of m, keeping rotation and translation.
func Rigid(m mgl64.Mat4) mgl64.Mat4 {
	t, r, _ := Decompose(m)
	return Recompose(t, r, mgl64.Vec3{1, 1, 1})
}
