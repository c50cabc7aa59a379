// Package subset remaps skinning weights and animations onto a model
// derived from another one. Birth arrays map every derived vertex or joint to
// the id it came from, opt.None when it has no origin.
package subset

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/opt"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
)

type VertexRef = opt.Index[skin.VertexID]

// TransferWeights builds the derived weight table:
// w'(v, j) = orig(birthVertex[v], birthJoint[j]) for every valid pair.
func TransferWeights(orig skin.Weights, birthVertex []VertexRef, birthJoint []skeleton.Ref) *skin.SparseWeights {
	out := skin.NewSparseWeights(len(birthVertex), len(birthJoint))

	lister, ok := orig.(skin.InfluenceLister)
	if ok {
		derived := make(map[skeleton.JointID][]skeleton.JointID)
		for j, b := range birthJoint {
			if oj, valid := b.Get(); valid {
				derived[oj] = append(derived[oj], skeleton.JointID(j))
			}
		}
		for v, b := range birthVertex {
			ov, valid := b.Get()
			if !valid {
				continue
			}
			for _, inf := range lister.Influences(ov) {
				for _, j := range derived[inf.Joint] {
					out.Set(skin.VertexID(v), j, inf.Weight)
				}
			}
		}
		return out
	}

	for v, bv := range birthVertex {
		ov, valid := bv.Get()
		if !valid {
			continue
		}
		for j, bj := range birthJoint {
			if oj, valid := bj.Get(); valid {
				out.Set(skin.VertexID(v), skeleton.JointID(j), orig.Weight(ov, oj))
			}
		}
	}
	return out
}

// TransferAnimation copies every keyframe onto the derived joints. Joints
// without origin get def.
func TransferAnimation(a *anim.Animation, birthJoint []skeleton.Ref, def mgl64.Mat4) *anim.Animation {
	keys := make([]anim.Frame, len(a.Keyframes))
	for i, f := range a.Keyframes {
		keys[i] = anim.Frame{Time: f.Time, Transforms: make([]mgl64.Mat4, len(birthJoint))}
		for j, b := range birthJoint {
			if oj, valid := b.Get(); valid {
				keys[i].Transforms[j] = f.Transforms[oj]
			} else {
				keys[i].Transforms[j] = def
			}
		}
	}
	return anim.New(a.Name, keys)
}

func TransferAnimations(anims []*anim.Animation, birthJoint []skeleton.Ref, def mgl64.Mat4) []*anim.Animation {
	out := make([]*anim.Animation, len(anims))
	for i, a := range anims {
		out[i] = TransferAnimation(a, birthJoint, def)
	}
	return out
}

// Subtree copies the joints under root, root included, into a new skeleton
// keeping child order and global bind poses. The result has birth ids.
func Subtree(sk *skeleton.Skeleton, root skeleton.JointID) (*skeleton.Skeleton, []skeleton.Ref) {
	out := skeleton.New()
	var birth []skeleton.Ref

	type item struct {
		orig   skeleton.JointID
		parent skeleton.Ref
	}
	stack := []item{{orig: root, parent: skeleton.NoJoint()}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		j := sk.Joint(it.orig)
		var id skeleton.JointID
		if parent, ok := it.parent.Get(); ok {
			id = out.AddChild(parent, j.BindPose, j.Name)
		} else {
			id = out.AddRoot(j.BindPose, j.Name)
		}
		out.SetHidden(id, j.Hidden)
		birth = append(birth, opt.Of(it.orig))

		children := sk.Children(it.orig)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{orig: children[i], parent: opt.Of(id)})
		}
	}
	return out, birth
}

// AppendJoint adds a joint with no origin to a derived skeleton.
func AppendJoint(sk *skeleton.Skeleton, birth []skeleton.Ref, parent skeleton.Ref, bindPose mgl64.Mat4, name string) (skeleton.JointID, []skeleton.Ref) {
	var id skeleton.JointID
	if p, ok := parent.Get(); ok {
		id = sk.AddChild(p, bindPose, name)
	} else {
		id = sk.AddRoot(bindPose, name)
	}
	return id, append(birth, skeleton.NoJoint())
}

// Vertices keeps the vertices accepted by keep. Triangles of a
// VertexBuffer survive when all their corners are kept.
func Vertices(mesh skin.Mesh, keep func(v skin.VertexID) bool) (*skin.VertexBuffer, []VertexRef) {
	out := &skin.VertexBuffer{}
	var birth []VertexRef
	remap := make([]VertexRef, mesh.VertexCount())
	for v := 0; v < mesh.VertexCount(); v++ {
		id := skin.VertexID(v)
		if !keep(id) {
			remap[v] = opt.None[skin.VertexID]()
			continue
		}
		remap[v] = opt.Of(skin.VertexID(len(out.Points)))
		out.Points = append(out.Points, mesh.VertexPoint(id))
		out.Normals = append(out.Normals, mesh.VertexNormal(id))
		birth = append(birth, opt.Of(id))
	}

	if vb, ok := mesh.(*skin.VertexBuffer); ok {
	triangles:
		for t := 0; t+2 < len(vb.Indices); t += 3 {
			var tri [3]uint32
			for k := 0; k < 3; k++ {
				nv, valid := remap[vb.Indices[t+k]].Get()
				if !valid {
					continue triangles
				}
				tri[k] = uint32(nv)
			}
			out.Indices = append(out.Indices, tri[:]...)
		}
	}
	return out, birth
}

// Influenced is a Vertices filter keeping vertices with a non-zero weight on
// any of the given original joints.
func Influenced(w skin.Weights, joints []skeleton.JointID) func(v skin.VertexID) bool {
	return func(v skin.VertexID) bool {
		for _, j := range joints {
			if w.Weight(v, j) != 0 {
				return true
			}
		}
		return false
	}
}
