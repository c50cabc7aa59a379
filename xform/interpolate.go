package xform

import (
	"github.com/go-gl/mathgl/mgl64"
)

// InterpolateAffine lerps translation and scale and slerps rotation.
// alpha≈0 returns t1 and alpha≈1 returns t2 untouched.
func InterpolateAffine(t1, t2 mgl64.Mat4, alpha float64) mgl64.Mat4 {
	if nearZero(alpha) {
		return t1
	}
	if nearOne(alpha) {
		return t2
	}

	tr1, r1, s1 := Decompose(t1)
	tr2, r2, s2 := Decompose(t2)

	return Recompose(
		LerpVec3(tr1, tr2, alpha),
		Slerp(r1, r2, alpha),
		LerpVec3(s1, s2, alpha))
}

func LerpVec3(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return a.Mul(1 - alpha).Add(b.Mul(alpha))
}

// Slerp interpolates along the shortest arc. Zero-length inputs fall back
// to the other operand, or to identity when both are degenerate.
func Slerp(q1, q2 mgl64.Quat, alpha float64) mgl64.Quat {
	if nearZero(alpha) {
		return q1
	}
	if nearOne(alpha) {
		return q2
	}

	l1, l2 := q1.Len(), q2.Len()
	switch {
	case l1 == 0 && l2 == 0:
		return mgl64.QuatIdent()
	case l1 == 0:
		return q2.Scale(1 / l2)
	case l2 == 0:
		return q1.Scale(1 / l1)
	}
	q1, q2 = q1.Scale(1/l1), q2.Scale(1/l2)

	if q1.Dot(q2) < 0 {
		q2 = q2.Scale(-1)
	}
	return mgl64.QuatSlerp(q1, q2, alpha)
}
