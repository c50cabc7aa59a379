package gltfio

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/xform"
)

// float32 storage
const testEps = 1e-5

func sampleModel() *model.Model {
	sk := skeleton.New()
	hips := sk.AddRoot(mgl64.Translate3D(0, 1, 0), "hips")
	spine := sk.AddChild(hips, mgl64.Translate3D(0, 2, 0), "spine")
	sk.AddChild(spine, xform.Compose(mgl64.Translate3D(0, 3, 0), mgl64.HomogRotate3DZ(0.3)), "head")
	sk.AddChild(hips, mgl64.Translate3D(1, 0.5, 0), "leg")

	m := model.New("dummy", sk)
	m.Mesh = &skin.VertexBuffer{
		Points:  []mgl64.Vec3{{0, 1, 0}, {0, 2.5, 0}, {0, 3.5, 0}, {1, 0, 0}},
		Normals: []mgl64.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {0, 0, 1}},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	m.Weights = skin.NewSparseWeights(4, 4)
	m.Weights.Set(0, 0, 1)
	m.Weights.Set(1, 0, 0.25)
	m.Weights.Set(1, 1, 0.75)
	m.Weights.Set(2, 2, 1)
	m.Weights.Set(3, 3, 1)

	bend := anim.IdentityFrame(0.5, 4)
	bend.Transforms[1] = mgl64.HomogRotate3DX(math.Pi / 4)
	bend.Transforms[3] = mgl64.Translate3D(0, 0, 0.5)
	m.Animations = []*anim.Animation{anim.New("bend", []anim.Frame{anim.IdentityFrame(0, 4), bend})}
	return m
}

func roundTrip(t *testing.T, m *model.Model) *model.Model {
	t.Helper()
	doc, err := Export(m)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc, true); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := ReadModel(back, m.Name)
	if err != nil {
		t.Fatalf("ReadModel: %v", err)
	}
	return got
}

func TestRoundTripSkeleton(t *testing.T) {
	m := sampleModel()
	got := roundTrip(t, m)

	if got.Skeleton.JointCount() != m.Skeleton.JointCount() {
		t.Fatalf("joint count=%d; expected %d", got.Skeleton.JointCount(), m.Skeleton.JointCount())
	}
	for _, want := range m.Skeleton.Joints() {
		j := got.Skeleton.Joint(want.ID)
		if j.Name != want.Name {
			t.Errorf("joint %d name=%q; expected %q", want.ID, j.Name, want.Name)
		}
		if j.Parent != want.Parent {
			t.Errorf("joint %d parent=%v; expected %v", want.ID, j.Parent, want.Parent)
		}
		if !xform.ApproxEqual(j.BindPose, want.BindPose, testEps) {
			t.Errorf("joint %d bind=%v; expected %v", want.ID, j.BindPose, want.BindPose)
		}
	}
}

func TestRoundTripMesh(t *testing.T) {
	m := sampleModel()
	got := roundTrip(t, m)

	if got.Mesh.VertexCount() != m.Mesh.VertexCount() || len(got.Mesh.Indices) != len(m.Mesh.Indices) {
		t.Fatalf("mesh %d vertices %d indices; expected %d, %d", got.Mesh.VertexCount(), len(got.Mesh.Indices), m.Mesh.VertexCount(), len(m.Mesh.Indices))
	}
	for v := range m.Mesh.Points {
		if !xform.ApproxEqualVec3(got.Mesh.Points[v], m.Mesh.Points[v], testEps) {
			t.Errorf("vertex %d=%v; expected %v", v, got.Mesh.Points[v], m.Mesh.Points[v])
		}
		for j := 0; j < 4; j++ {
			vid, jid := skin.VertexID(v), skeleton.JointID(j)
			if w, want := got.Weights.Weight(vid, jid), m.Weights.Weight(vid, jid); math.Abs(w-want) > testEps {
				t.Errorf("weight(%d,%d)=%v; expected %v", v, j, w, want)
			}
		}
	}
}

func TestRoundTripAnimation(t *testing.T) {
	m := sampleModel()
	got := roundTrip(t, m)

	a := got.Animation("bend")
	if a == nil || len(a.Keyframes) != 2 {
		t.Fatalf("animation bend=%v; expected 2 keyframes", a)
	}
	for i, f := range m.Animations[0].Keyframes {
		if math.Abs(a.Keyframes[i].Time-f.Time) > testEps {
			t.Errorf("keyframe %d time=%v; expected %v", i, a.Keyframes[i].Time, f.Time)
		}
		want := m.Deformations(f)
		D := got.Deformations(a.Keyframes[i])
		for j := range want {
			if !xform.ApproxEqual(D[j], want[j], 1e-4) {
				t.Errorf("keyframe %d deformation %d=%v; expected %v", i, j, D[j], want[j])
			}
		}
	}
}

func TestExportMesh(t *testing.T) {
	vb := sampleModel().Mesh
	doc := ExportMesh("baked", vb)
	ref, ok := FindMesh(doc)
	if !ok {
		t.Fatalf("ExportMesh has no mesh")
	}
	got, err := ReadMesh(doc, ref)
	if err != nil {
		t.Fatalf("ReadMesh: %v", err)
	}
	if got.VertexCount() != vb.VertexCount() {
		t.Errorf("ReadMesh vertices=%d; expected %d", got.VertexCount(), vb.VertexCount())
	}
}

var keyTests = []struct {
	t     float64
	k     int
	alpha float64
}{
	{-1, 0, 0},
	{0, 0, 0},
	{0.5, 0, 0.5},
	{1, 1, 0},
	{1.5, 1, 0.5},
	{9, 2, 0},
}

func TestChannelKey(t *testing.T) {
	c := &channel{times: []float64{0, 1, 2}}
	for _, test := range keyTests {
		k, alpha := c.key(test.t)
		if k != test.k || math.Abs(alpha-test.alpha) > 1e-12 {
			t.Errorf("key(%v)=%d,%v; expected %d,%v", test.t, k, alpha, test.k, test.alpha)
		}
	}
}

// C is added after B but hangs under A, so ids are not in node pre-order.
func lateChildModel() *model.Model {
	sk := skeleton.New()
	r := sk.AddRoot(mgl64.Ident4(), "R")
	a := sk.AddChild(r, mgl64.Translate3D(1, 0, 0), "A")
	sk.AddChild(r, mgl64.Translate3D(0, 1, 0), "B")
	sk.AddChild(a, mgl64.Translate3D(2, 0, 0), "C")
	return model.New("late", sk)
}

func TestRoundTripKeepsJointIds(t *testing.T) {
	m := lateChildModel()
	got := roundTrip(t, m)
	for _, want := range m.Skeleton.Joints() {
		j := got.Skeleton.Joint(want.ID)
		if j.Name != want.Name || j.Parent != want.Parent {
			t.Errorf("joint %d=%q parent %v; expected %q parent %v", want.ID, j.Name, j.Parent, want.Name, want.Parent)
		}
		if !xform.ApproxEqual(j.BindPose, want.BindPose, testEps) {
			t.Errorf("joint %d bind=%v; expected %v", want.ID, j.BindPose, want.BindPose)
		}
	}
}

func TestReadSkeletonChildBeforeParent(t *testing.T) {
	doc, err := Export(lateChildModel())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	joints := doc.Skins[0].Joints
	for i, k := 0, len(joints)-1; i < k; i, k = i+1, k-1 {
		joints[i], joints[k] = joints[k], joints[i]
	}
	doc.Skins[0].InverseBindMatrices = nil

	sk, _, err := ReadSkeleton(doc)
	if err != nil {
		t.Fatalf("ReadSkeleton: %v", err)
	}
	expected := []string{"R", "A", "C", "B"}
	for i, name := range expected {
		j := sk.Joint(skeleton.JointID(i))
		if j.Name != name {
			t.Errorf("joint %d=%q; expected %q", i, j.Name, name)
		}
		if p, ok := j.Parent.Get(); ok && p >= j.ID {
			t.Errorf("joint %d parent %d does not come first", i, p)
		}
	}
	if c := sk.Joint(2); !xform.ApproxEqual(c.BindPose, mgl64.Translate3D(2, 0, 0), testEps) {
		t.Errorf("C bind=%v; expected translation (2,0,0)", c.BindPose)
	}
}

func TestUnnormalized(t *testing.T) {
	w := skin.NewSparseWeights(3, 2)
	w.Set(0, 0, 1)
	w.Set(1, 0, 0.5)
	w.Set(1, 1, 0.3)
	if n := unnormalized(w, 1e-3); n != 1 {
		t.Errorf("unnormalized()=%d; expected 1", n)
	}
	if total := w.Total(1); math.Abs(total-0.8) > 1e-12 {
		t.Errorf("Total(1)=%v; expected 0.8", total)
	}
}
