package subset

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/opt"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
)

// root{a{c}, b}
func sampleSkeleton() *skeleton.Skeleton {
	sk := skeleton.New()
	root := sk.AddRoot(mgl64.Ident4(), "root")
	a := sk.AddChild(root, mgl64.Translate3D(1, 0, 0), "a")
	sk.AddChild(root, mgl64.Translate3D(0, 1, 0), "b")
	c := sk.AddChild(a, mgl64.Translate3D(2, 0, 0), "c")
	sk.SetHidden(c, true)
	return sk
}

func sampleWeights() *skin.SparseWeights {
	w := skin.NewSparseWeights(4, 4)
	w.Set(0, 0, 1)
	w.Set(1, 1, 0.5)
	w.Set(1, 3, 0.5)
	w.Set(2, 3, 1)
	w.Set(3, 2, 1)
	return w
}

type plainWeights struct{ w *skin.SparseWeights }

func (p plainWeights) Weight(v skin.VertexID, j skeleton.JointID) float64 { return p.w.Weight(v, j) }

func TestSubtree(t *testing.T) {
	sk := sampleSkeleton()
	a := sk.FindByName("a").MustGet()
	sub, birth := Subtree(sk, a)

	if sub.JointCount() != 2 {
		t.Fatalf("Subtree(a) has %d joints; expected 2", sub.JointCount())
	}
	var birthTests = []struct {
		id   skeleton.JointID
		name string
		orig skeleton.JointID
	}{
		{0, "a", 1},
		{1, "c", 3},
	}
	for _, test := range birthTests {
		if got := sub.Joint(test.id).Name; got != test.name {
			t.Errorf("Subtree joint %d name=%q; expected %q", test.id, got, test.name)
		}
		if got, ok := birth[test.id].Get(); !ok || got != test.orig {
			t.Errorf("birth[%d]=%v; expected %d", test.id, birth[test.id], test.orig)
		}
		if sub.Joint(test.id).BindPose != sk.Joint(test.orig).BindPose {
			t.Errorf("Subtree joint %d bind pose changed", test.id)
		}
	}
	if !sub.IsRoot(0) || sub.Parent(1).MustGet() != 0 || !sub.Joint(1).Hidden {
		t.Errorf("Subtree topology or hidden flag lost: %s", sub.StringTree())
	}

	id, birth := AppendJoint(sub, birth, opt.Of[skeleton.JointID](0), mgl64.Translate3D(1, 1, 0), "extra")
	if birth[id].Valid() {
		t.Errorf("birth[%d]=%v for a new joint; expected none", id, birth[id])
	}
}

func TestTransferWeights(t *testing.T) {
	sk := sampleSkeleton()
	_, birthJoint := Subtree(sk, 1)
	birthVertex := []VertexRef{opt.Of[skin.VertexID](1), opt.Of[skin.VertexID](2), opt.None[skin.VertexID]()}
	_, birthJoint = AppendJoint(skeleton.New(), birthJoint, skeleton.NoJoint(), mgl64.Ident4(), "new")

	orig := sampleWeights()
	for _, w := range []skin.Weights{orig, plainWeights{orig}} {
		got := TransferWeights(w, birthVertex, birthJoint)
		if got.VertexCount() != 3 || got.JointCount() != 3 {
			t.Fatalf("TransferWeights size %dx%d; expected 3x3", got.VertexCount(), got.JointCount())
		}
		for v := range birthVertex {
			for j := range birthJoint {
				want := 0.0
				ov, okv := birthVertex[v].Get()
				oj, okj := birthJoint[j].Get()
				if okv && okj {
					want = orig.Weight(ov, oj)
				}
				if w := got.Weight(skin.VertexID(v), skeleton.JointID(j)); w != want {
					t.Errorf("weight(%d,%d)=%v; expected %v", v, j, w, want)
				}
			}
		}
	}
}

func TestTransferAnimation(t *testing.T) {
	a := anim.New("wave", []anim.Frame{
		{Time: 0, Transforms: []mgl64.Mat4{mgl64.Translate3D(0, 0, 0), mgl64.Translate3D(1, 0, 0), mgl64.Translate3D(2, 0, 0), mgl64.Translate3D(3, 0, 0)}},
		{Time: 1, Transforms: []mgl64.Mat4{mgl64.Translate3D(0, 0, 1), mgl64.Translate3D(1, 0, 1), mgl64.Translate3D(2, 0, 1), mgl64.Translate3D(3, 0, 1)}},
	})
	birth := []skeleton.Ref{opt.Of[skeleton.JointID](3), skeleton.NoJoint(), opt.Of[skeleton.JointID](1)}
	def := mgl64.Scale3D(2, 2, 2)

	got := TransferAnimation(a, birth, def)
	if err := got.Validate(3); err != nil {
		t.Fatalf("TransferAnimation: %v", err)
	}
	for i, f := range got.Keyframes {
		if f.Transforms[0] != a.Keyframes[i].Transforms[3] || f.Transforms[2] != a.Keyframes[i].Transforms[1] {
			t.Errorf("keyframe %d did not copy mapped joints", i)
		}
		if f.Transforms[1] != def {
			t.Errorf("keyframe %d unmapped joint=%v; expected default", i, f.Transforms[1])
		}
	}
}

func TestVertices(t *testing.T) {
	mesh := &skin.VertexBuffer{
		Points:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Normals: []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices: []uint32{0, 1, 2, 1, 3, 2},
	}
	w := sampleWeights()
	sub, birth := Vertices(mesh, Influenced(w, []skeleton.JointID{1, 3}))

	if len(birth) != 2 || birth[0].MustGet() != 1 || birth[1].MustGet() != 2 {
		t.Fatalf("Vertices birth=%v; expected [1 2]", birth)
	}
	if sub.Points[0] != mesh.Points[1] {
		t.Errorf("Vertices point 0=%v; expected %v", sub.Points[0], mesh.Points[1])
	}
	if len(sub.Indices) != 0 {
		t.Errorf("Vertices kept triangles %v; expected none", sub.Indices)
	}

	all, _ := Vertices(mesh, func(skin.VertexID) bool { return true })
	if len(all.Indices) != 6 {
		t.Errorf("Vertices(all) kept %d indices; expected 6", len(all.Indices))
	}
}
