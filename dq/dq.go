// Package dq implements the dual quaternion algebra of rigid transforms used
// by dual-quaternion skinning. Values are gonum dual quaternions; rotations
// and vectors cross the package boundary as mgl64 types.
package dq

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mogaika/skinpose/xform"
)

// DualQuat is real + dual·ε.
type DualQuat dualquat.Number

func Identity() DualQuat {
	return DualQuat{Real: quat.Number{Real: 1}}
}

func FromQuat(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}

func ToQuat(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}

func pure(v mgl64.Vec3) quat.Number {
	return quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
}

func vector(q quat.Number) mgl64.Vec3 {
	return mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}
}

// FromRotationTranslation builds real = r, dual = ½·(0,t)·r.
func FromRotationTranslation(r mgl64.Quat, t mgl64.Vec3) DualQuat {
	re := FromQuat(r)
	return DualQuat{
		Real: re,
		Dual: quat.Scale(0.5, quat.Mul(pure(t), re)),
	}
}

// FromAffine keeps the rigid part of m, scale is dropped.
func FromAffine(m mgl64.Mat4) DualQuat {
	t, r, _ := xform.Decompose(m)
	return FromRotationTranslation(r, t)
}

func (d DualQuat) Conjugate() DualQuat {
	return DualQuat{
		Real: quat.Conj(d.Real),
		Dual: quat.Scale(-1, quat.Conj(d.Dual)),
	}
}

// Inverse returns (real⁻¹, −real⁻¹·dual·real⁻¹). For unit real parts this
// equals the quaternion conjugate (real*, dual*), not Conjugate.
func (d DualQuat) Inverse() DualQuat {
	inv := quat.Inv(d.Real)
	return DualQuat{
		Real: inv,
		Dual: quat.Scale(-1, quat.Mul(quat.Mul(inv, d.Dual), inv)),
	}
}

// Mul composes d·o: o is applied first.
func (d DualQuat) Mul(o DualQuat) DualQuat {
	return DualQuat(dualquat.Mul(dualquat.Number(d), dualquat.Number(o)))
}

func (d DualQuat) Add(o DualQuat) DualQuat {
	return DualQuat{Real: quat.Add(d.Real, o.Real), Dual: quat.Add(d.Dual, o.Dual)}
}

func (d DualQuat) Scale(f float64) DualQuat {
	return DualQuat{Real: quat.Scale(f, d.Real), Dual: quat.Scale(f, d.Dual)}
}

// Dot is the 4D dot product of the real parts.
func (d DualQuat) Dot(o DualQuat) float64 {
	return d.Real.Real*o.Real.Real + d.Real.Imag*o.Real.Imag +
		d.Real.Jmag*o.Real.Jmag + d.Real.Kmag*o.Real.Kmag
}

func (d DualQuat) Norm() float64 {
	return quat.Abs(d.Real)
}

// Normalize divides both parts by ‖real‖ and removes the component of the
// dual part parallel to the real part. A zero real part gives identity.
func (d DualQuat) Normalize() DualQuat {
	n := d.Norm()
	if n == 0 {
		return Identity()
	}
	re := quat.Scale(1/n, d.Real)
	du := quat.Scale(1/n, d.Dual)

	dot := re.Real*du.Real + re.Imag*du.Imag + re.Jmag*du.Jmag + re.Kmag*du.Kmag
	du = quat.Sub(du, quat.Scale(dot, re))
	return DualQuat{Real: re, Dual: du}
}

// TransformPoint computes (d·[1,p]·d*).dual.
func (d DualQuat) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	raised := DualQuat{Real: quat.Number{Real: 1}, Dual: pure(p)}
	return vector(d.Mul(raised).Mul(d.Conjugate()).Dual)
}

// RotateVector applies the rotation of the normalized real part.
func (d DualQuat) RotateVector(v mgl64.Vec3) mgl64.Vec3 {
	n := d.Norm()
	if n == 0 {
		return v
	}
	r := quat.Scale(1/n, d.Real)
	return vector(quat.Mul(quat.Mul(r, pure(v)), quat.Conj(r)))
}

// Translation extracts 2·dual·real⁻¹.
func (d DualQuat) Translation() mgl64.Vec3 {
	if d.Norm() == 0 {
		return mgl64.Vec3{}
	}
	return vector(quat.Scale(2, quat.Mul(d.Dual, quat.Inv(d.Real))))
}

func (d DualQuat) Rotation() mgl64.Quat {
	n := d.Norm()
	if n == 0 {
		return mgl64.QuatIdent()
	}
	return ToQuat(quat.Scale(1/n, d.Real))
}

func (d DualQuat) Mat4() mgl64.Mat4 {
	return xform.Recompose(d.Translation(), d.Rotation(), mgl64.Vec3{1, 1, 1})
}

func (d DualQuat) ApproxEqual(o DualQuat, eps float64) bool {
	return approxQuat(d.Real, o.Real, eps) && approxQuat(d.Dual, o.Dual, eps)
}

func approxQuat(a, b quat.Number, eps float64) bool {
	return math.Abs(a.Real-b.Real) <= eps && math.Abs(a.Imag-b.Imag) <= eps &&
		math.Abs(a.Jmag-b.Jmag) <= eps && math.Abs(a.Kmag-b.Kmag) <= eps
}
