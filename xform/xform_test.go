package xform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const testEps = 1e-9

var sampleTransforms = []struct {
	name string
	m    mgl64.Mat4
}{
	{"identity", mgl64.Ident4()},
	{"translate", mgl64.Translate3D(1, -2, 3)},
	{"rotate", mgl64.HomogRotate3D(0.7, mgl64.Vec3{1, 2, 3}.Normalize())},
	{"scale", mgl64.Scale3D(2, 0.5, 3)},
	{"trs", Recompose(mgl64.Vec3{4, 5, -6}, mgl64.QuatRotate(1.2, mgl64.Vec3{0, 1, 0}), mgl64.Vec3{1.5, 1.5, 0.25})},
}

func TestInverse(t *testing.T) {
	for _, test := range sampleTransforms {
		inv := Inverse(test.m)
		if got := Compose(test.m, inv); !IsIdentity(got, testEps) {
			t.Errorf("%s: m∘Inverse(m)=%v; expected identity", test.name, got)
		}
		if got := Compose(inv, test.m); !IsIdentity(got, testEps) {
			t.Errorf("%s: Inverse(m)∘m=%v; expected identity", test.name, got)
		}
	}
}

func TestDecomposeRecompose(t *testing.T) {
	for _, test := range sampleTransforms {
		tr, r, s := Decompose(test.m)
		if got := Recompose(tr, r, s); !ApproxEqual(got, test.m, testEps) {
			t.Errorf("%s: Recompose(Decompose(m))=%v; expected %v", test.name, got, test.m)
		}
	}
}

func TestDecomposeReflection(t *testing.T) {
	m := mgl64.Scale3D(-1, 1, 1)
	tr, r, s := Decompose(m)
	if s[0] >= 0 {
		t.Errorf("Decompose(mirror) scale=%v; expected negative x", s)
	}
	if got := Recompose(tr, r, s); !ApproxEqual(got, m, testEps) {
		t.Errorf("Recompose(Decompose(mirror))=%v; expected %v", got, m)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Compose(mgl64.Translate3D(1, 0, 0), mgl64.HomogRotate3DZ(math.Pi/2))
	got := TransformPoint(m, mgl64.Vec3{1, 0, 0})
	if !ApproxEqualVec3(got, mgl64.Vec3{1, 1, 0}, testEps) {
		t.Errorf("TransformPoint=%v; expected [1 1 0]", got)
	}
	v := TransformVector(m, mgl64.Vec3{1, 0, 0})
	if !ApproxEqualVec3(v, mgl64.Vec3{0, 1, 0}, testEps) {
		t.Errorf("TransformVector=%v; expected [0 1 0]", v)
	}
}

func TestInterpolateAffineBoundaries(t *testing.T) {
	a := sampleTransforms[2].m
	b := sampleTransforms[4].m
	if got := InterpolateAffine(a, b, 0); got != a {
		t.Errorf("InterpolateAffine(a,b,0)=%v; expected exactly %v", got, a)
	}
	if got := InterpolateAffine(a, b, 1); got != b {
		t.Errorf("InterpolateAffine(a,b,1)=%v; expected exactly %v", got, b)
	}
	if got := InterpolateAffine(a, b, 1e-12); got != a {
		t.Errorf("InterpolateAffine(a,b,~0) not exactly a")
	}
}

func TestInterpolateAffineMidpoint(t *testing.T) {
	a := mgl64.Ident4()
	b := Recompose(mgl64.Vec3{2, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{3, 3, 3})
	want := Recompose(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{2, 2, 2})
	if got := InterpolateAffine(a, b, 0.5); !ApproxEqual(got, want, testEps) {
		t.Errorf("InterpolateAffine(I,b,0.5)=%v; expected %v", got, want)
	}
}

func TestSlerp(t *testing.T) {
	q1 := mgl64.QuatIdent()
	q2 := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	if got := Slerp(q1, q2, 0); got != q1 {
		t.Errorf("Slerp(q1,q2,0)=%v; expected exactly %v", got, q1)
	}
	if got := Slerp(q1, q2, 1); got != q2 {
		t.Errorf("Slerp(q1,q2,1)=%v; expected exactly %v", got, q2)
	}
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	if got := Slerp(q1, q2, 0.5); !ApproxEqualQuat(got, want, testEps) {
		t.Errorf("Slerp(q1,q2,0.5)=%v; expected %v", got, want)
	}
	// same rotation through the opposite hemisphere
	if got := Slerp(q1, q2.Scale(-1), 0.5); !ApproxEqualQuat(got, want, testEps) {
		t.Errorf("Slerp(q1,-q2,0.5)=%v; expected shortest path %v", got, want)
	}
	if got := Slerp(mgl64.Quat{}, q2, 0.5); !ApproxEqualQuat(got, q2, testEps) {
		t.Errorf("Slerp(0,q2,0.5)=%v; expected %v", got, q2)
	}
	if got := Slerp(mgl64.Quat{}, mgl64.Quat{}, 0.5); got != mgl64.QuatIdent() {
		t.Errorf("Slerp(0,0,0.5)=%v; expected identity", got)
	}
}

func TestBlendRotations(t *testing.T) {
	z := mgl64.Vec3{0, 0, 1}
	q0 := mgl64.QuatRotate(0, z)
	q90 := mgl64.QuatRotate(math.Pi/2, z)

	var blendTests = []struct {
		name    string
		qs      []mgl64.Quat
		weights []float64
		out     mgl64.Quat
	}{
		{"empty", nil, nil, mgl64.QuatIdent()},
		{"zero weights", []mgl64.Quat{q90}, []float64{0}, mgl64.QuatIdent()},
		{"single", []mgl64.Quat{q90}, []float64{0.3}, q90},
		{"halves", []mgl64.Quat{q0, q90}, []float64{1, 1}, mgl64.QuatRotate(math.Pi/4, z)},
		{"quarter", []mgl64.Quat{q0, q90}, []float64{3, 1}, mgl64.QuatRotate(math.Pi/8, z)},
		{"skip zero", []mgl64.Quat{q0, q90, q0}, []float64{1, 1, 0}, mgl64.QuatRotate(math.Pi/4, z)},
	}

	for _, test := range blendTests {
		if got := BlendRotations(test.qs, test.weights); !ApproxEqualQuat(got, test.out, testEps) {
			t.Errorf("BlendRotations(%s)=%v; expected %v", test.name, got, test.out)
		}
	}
}

func TestBlendAffineMatchesPairwise(t *testing.T) {
	a := sampleTransforms[1].m
	b := sampleTransforms[4].m
	got := BlendAffine([]mgl64.Mat4{a, b}, []float64{1, 1})
	want := InterpolateAffine(b, a, 0.5)
	if !ApproxEqual(got, want, testEps) {
		t.Errorf("BlendAffine(a,b)=%v; expected %v", got, want)
	}
}

func TestBlendMismatchedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("BlendRotations with mismatched weights did not panic")
		}
	}()
	BlendRotations([]mgl64.Quat{mgl64.QuatIdent()}, nil)
}
