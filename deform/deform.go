// Package deform turns animation poses into deformation transforms, the
// motion of every joint relative to its bind pose:
//
//	L'[j] = localBind[j] ∘ L[j]
//	G     = GlobalFromLocal(L')
//	D[j]  = G[j] ∘ globalBind[j]⁻¹
//
// D[j] is identity for a joint at rest. Skinning and joint gizmos use only D.
package deform

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/parallel"
	"github.com/mogaika/skinpose/pose"
	"github.com/mogaika/skinpose/xform"
)

// below this many joints the bind composition is not worth splitting
const parallelJoints = 256

// Pipeline caches the bind poses of one skeleton. It is read-only after New
// and may be shared by goroutines that each own their Buffers.
type Pipeline struct {
	tree       pose.Tree
	localBind  []mgl64.Mat4
	invGlobal  []mgl64.Mat4
	globalBind []mgl64.Mat4

	// Workers bounds the per-joint loops and the tree walk forks,
	// 0 means one per CPU and 1 keeps everything on the caller.
	Workers int
	forker  *parallel.Forker
}

func New(tree pose.BindTree) *Pipeline {
	return NewWorkers(tree, 1)
}

func NewWorkers(tree pose.BindTree, workers int) *Pipeline {
	return &Pipeline{
		tree:       tree,
		globalBind: pose.GlobalBindPose(tree),
		localBind:  pose.LocalBindPose(tree),
		invGlobal:  pose.InverseGlobalBindPose(tree),
		Workers:    workers,
		forker:     parallel.NewForker(workers),
	}
}

func (p *Pipeline) JointCount() int {
	return p.tree.JointCount()
}

func (p *Pipeline) LocalBindPose() []mgl64.Mat4 {
	return p.localBind
}

func (p *Pipeline) GlobalBindPose() []mgl64.Mat4 {
	return p.globalBind
}

// Buffers is the scratch space of one Deformations call, allocated once per
// skeleton and owned by the caller.
type Buffers struct {
	Global []mgl64.Mat4
}

func (p *Pipeline) NewBuffers() *Buffers {
	return &Buffers{Global: make([]mgl64.Mat4, p.JointCount())}
}

// NewDeformations allocates an output slice for Deformations.
func (p *Pipeline) NewDeformations() []mgl64.Mat4 {
	return make([]mgl64.Mat4, p.JointCount())
}

func (p *Pipeline) check(frame pose.HasTransformations, slots ...[]mgl64.Mat4) {
	n := p.JointCount()
	if l := len(frame.Transformations()); l != n {
		panic(fmt.Sprintf("deform: frame has %d transforms for %d joints", l, n))
	}
	for _, s := range slots {
		if len(s) != n {
			panic(fmt.Sprintf("deform: buffer of %d for %d joints", len(s), n))
		}
	}
}

// Globals writes the global animated pose of frame into out, steps one
// and two of the pipeline.
func (p *Pipeline) Globals(frame pose.HasTransformations, out []mgl64.Mat4) {
	p.check(frame, out)
	L := frame.Transformations()
	bind := func(lo, hi int) {
		for j := lo; j < hi; j++ {
			out[j] = xform.Compose(p.localBind[j], L[j])
		}
	}
	if p.forker != nil && len(out) >= parallelJoints {
		parallel.Ranges(len(out), p.Workers, bind)
	} else {
		bind(0, len(out))
	}
	if p.forker != nil {
		pose.GlobalFromLocalParallel(p.tree, out, p.forker)
	} else {
		pose.GlobalFromLocal(p.tree, out)
	}
}

// Deformations writes D for frame into out using buf as scratch.
func (p *Pipeline) Deformations(frame pose.HasTransformations, buf *Buffers, out []mgl64.Mat4) {
	p.check(frame, buf.Global, out)
	p.Globals(frame, buf.Global)
	for j := range out {
		out[j] = xform.Compose(buf.Global[j], p.invGlobal[j])
	}
}

// Rest returns all-identity deformations.
func (p *Pipeline) Rest() []mgl64.Mat4 {
	D := p.NewDeformations()
	for j := range D {
		D[j] = mgl64.Ident4()
	}
	return D
}

// JointPositions is where every joint origin ends up under D.
func (p *Pipeline) JointPositions(D []mgl64.Mat4) []mgl64.Vec3 {
	if len(D) != p.JointCount() {
		panic(fmt.Sprintf("deform: %d deformations for %d joints", len(D), p.JointCount()))
	}
	pos := make([]mgl64.Vec3, len(D))
	for j := range D {
		pos[j] = xform.TransformPoint(D[j], xform.Translation(p.globalBind[j]))
	}
	return pos
}

// Precompute computes D for every keyframe of a. Keyframes run on the
// pipeline workers, each with its own buffers.
func (p *Pipeline) Precompute(ctx context.Context, a *anim.Animation) ([][]mgl64.Mat4, error) {
	out := make([][]mgl64.Mat4, len(a.Keyframes))
	seq := &Pipeline{
		tree:       p.tree,
		localBind:  p.localBind,
		invGlobal:  p.invGlobal,
		globalBind: p.globalBind,
		Workers:    1,
	}
	err := parallel.For(ctx, len(a.Keyframes), p.Workers, func(i int) error {
		D := seq.NewDeformations()
		seq.Deformations(a.Keyframes[i], seq.NewBuffers(), D)
		out[i] = D
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
