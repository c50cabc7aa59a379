package pose

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/parallel"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skeleton/skeletontest"
	"github.com/mogaika/skinpose/xform"
)

const testEps = 1e-6

func clonePose(T []mgl64.Mat4) []mgl64.Mat4 {
	return append([]mgl64.Mat4(nil), T...)
}

func equalPoses(t *testing.T, what string, got, want []mgl64.Mat4) {
	t.Helper()
	for i := range want {
		if !xform.ApproxEqual(got[i], want[i], testEps) {
			t.Errorf("%s: joint %d=%v; expected %v", what, i, got[i], want[i])
		}
	}
}

var shapes = []struct {
	joints, roots int
}{
	{1, 1}, {2, 1}, {10, 1}, {40, 3}, {120, 5},
}

func TestRoundTrip(t *testing.T) {
	skeletontest.Seed(1)
	for _, shape := range shapes {
		sk := skeletontest.Random(shape.joints, shape.roots)
		T := skeletontest.RandomPose(sk.JointCount())

		got := clonePose(T)
		GlobalFromLocal(sk, got)
		LocalFromGlobal(sk, got)
		equalPoses(t, "local(global(T))", got, T)

		got = clonePose(T)
		LocalFromGlobal(sk, got)
		GlobalFromLocal(sk, got)
		equalPoses(t, "global(local(T))", got, T)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	skeletontest.Seed(2)
	for _, workers := range []int{1, 2, 8} {
		f := parallel.NewForker(workers)
		for _, shape := range shapes {
			sk := skeletontest.Random(shape.joints, shape.roots)
			T := skeletontest.RandomPose(sk.JointCount())

			seq := clonePose(T)
			GlobalFromLocal(sk, seq)
			par := clonePose(T)
			GlobalFromLocalParallel(sk, par, f)
			equalPoses(t, "GlobalFromLocalParallel", par, seq)

			LocalFromGlobal(sk, seq)
			LocalFromGlobalParallel(sk, par, f)
			equalPoses(t, "LocalFromGlobalParallel", par, seq)
			equalPoses(t, "parallel round trip", par, T)
		}
	}
}

func TestChainAccumulates(t *testing.T) {
	sk := skeletontest.Chain(4)
	T := make([]mgl64.Mat4, 4)
	for i := range T {
		T[i] = mgl64.Translate3D(1, 0, 0)
	}
	GlobalFromLocal(sk, T)
	for i := range T {
		if got := xform.Translation(T[i]); !xform.ApproxEqualVec3(got, mgl64.Vec3{float64(i + 1), 0, 0}, testEps) {
			t.Errorf("global joint %d translation=%v; expected [%d 0 0]", i, got, i+1)
		}
	}
	LocalFromGlobal(sk, T)
	for i := range T {
		if got := xform.Translation(T[i]); !xform.ApproxEqualVec3(got, mgl64.Vec3{1, 0, 0}, testEps) {
			t.Errorf("local joint %d translation=%v; expected [1 0 0]", i, got)
		}
	}
}

func TestRotatedParentOrder(t *testing.T) {
	// the grandchild must be composed with the child's global value
	sk := skeletontest.Chain(3)
	T := []mgl64.Mat4{
		mgl64.HomogRotate3DZ(math.Pi / 2),
		mgl64.Translate3D(1, 0, 0),
		mgl64.Translate3D(1, 0, 0),
	}
	GlobalFromLocal(sk, T)
	if got := xform.TransformPoint(T[2], mgl64.Vec3{}); !xform.ApproxEqualVec3(got, mgl64.Vec3{0, 2, 0}, testEps) {
		t.Errorf("grandchild origin=%v; expected [0 2 0]", got)
	}
}

func TestBindPoses(t *testing.T) {
	sk := skeleton.New()
	r := sk.AddRoot(mgl64.Ident4(), "R")
	a := sk.AddChild(r, mgl64.Translate3D(1, 0, 0), "A")
	b := sk.AddChild(r, mgl64.Translate3D(0, 1, 0), "B")
	c := sk.AddChild(a, mgl64.Translate3D(3, 0, 0), "C")

	local := LocalBindPose(sk)
	var bindTests = []struct {
		id   skeleton.JointID
		want mgl64.Mat4
	}{
		{r, mgl64.Ident4()},
		{a, mgl64.Translate3D(1, 0, 0)},
		{b, mgl64.Translate3D(0, 1, 0)},
		{c, mgl64.Translate3D(2, 0, 0)},
	}
	for _, test := range bindTests {
		if !xform.ApproxEqual(local[test.id], test.want, testEps) {
			t.Errorf("LocalBindPose[%d]=%v; expected %v", test.id, local[test.id], test.want)
		}
	}

	global := GlobalBindPose(sk)
	inv := InverseGlobalBindPose(sk)
	for i := range global {
		if !xform.IsIdentity(xform.Compose(global[i], inv[i]), testEps) {
			t.Errorf("GlobalBindPose[%d]∘InverseGlobalBindPose[%d] is not identity", i, i)
		}
	}
	linv := InverseLocalBindPose(sk)
	for i := range local {
		if !xform.IsIdentity(xform.Compose(local[i], linv[i]), testEps) {
			t.Errorf("LocalBindPose[%d]∘InverseLocalBindPose[%d] is not identity", i, i)
		}
	}
}

func TestMismatchedLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("GlobalFromLocal with short pose did not panic")
		}
	}()
	GlobalFromLocal(skeletontest.Chain(3), make([]mgl64.Mat4, 2))
}
