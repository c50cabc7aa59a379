// Package model ties a skeleton, its rest mesh, the skinning weights and the
// animations together, keeping joint and vertex counts consistent.
package model

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/deform"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/subset"
	"github.com/mogaika/skinpose/xform"
)

type Model struct {
	Name       string
	Skeleton   *skeleton.Skeleton
	Mesh       *skin.VertexBuffer
	Weights    *skin.SparseWeights
	Animations []*anim.Animation
	Mode       skin.Mode
	Workers    int

	pipeline *deform.Pipeline
}

func New(name string, sk *skeleton.Skeleton) *Model {
	return &Model{
		Name:     name,
		Skeleton: sk,
		Mesh:     skin.NewVertexBuffer(0),
		Weights:  skin.NewSparseWeights(0, sk.JointCount()),
	}
}

// Validate checks the counts loaders are responsible for.
func (m *Model) Validate() error {
	if m.Skeleton == nil {
		return errors.Errorf("Model '%s' has no skeleton", m.Name)
	}
	joints := m.Skeleton.JointCount()
	if m.Weights != nil {
		if m.Weights.JointCount() != joints {
			return errors.Errorf("Model '%s' weights for %d joints, skeleton has %d", m.Name, m.Weights.JointCount(), joints)
		}
		if m.Mesh != nil && m.Weights.VertexCount() != m.Mesh.VertexCount() {
			return errors.Errorf("Model '%s' weights for %d vertices, mesh has %d", m.Name, m.Weights.VertexCount(), m.Mesh.VertexCount())
		}
	}
	for _, a := range m.Animations {
		if err := a.Validate(joints); err != nil {
			return errors.Wrapf(err, "Model '%s'", m.Name)
		}
	}
	return nil
}

// Pipeline is built on first use. Adding joints afterwards requires
// ResetPipeline.
func (m *Model) Pipeline() *deform.Pipeline {
	if m.pipeline == nil {
		m.pipeline = deform.NewWorkers(m.Skeleton, m.Workers)
	}
	return m.pipeline
}

func (m *Model) ResetPipeline() {
	m.pipeline = nil
}

func (m *Model) Animation(name string) *anim.Animation {
	for _, a := range m.Animations {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (m *Model) AnimationNames() []string {
	names := make([]string, len(m.Animations))
	for i, a := range m.Animations {
		names[i] = a.Name
	}
	return names
}

// Frame returns keyframe index of animation name.
func (m *Model) Frame(name string, index int) (anim.Frame, error) {
	a := m.Animation(name)
	if a == nil {
		return anim.Frame{}, errors.Errorf("Animation '%s' not found in model '%s'", name, m.Name)
	}
	if index < 0 || index >= len(a.Keyframes) {
		return anim.Frame{}, errors.Errorf("Animation '%s' has %d frames, requested %d", name, len(a.Keyframes), index)
	}
	return a.Keyframes[index], nil
}

func (m *Model) Deformations(frame anim.Frame) []mgl64.Mat4 {
	p := m.Pipeline()
	D := p.NewDeformations()
	p.Deformations(frame, p.NewBuffers(), D)
	return D
}

// Skin bakes the rest mesh under D with the model's skinning mode.
func (m *Model) Skin(ctx context.Context, D []mgl64.Mat4) (*skin.VertexBuffer, error) {
	return skin.Skinner{Mode: m.Mode, Workers: m.Workers}.Bake(ctx, m.Mesh, m.Weights, D)
}

func (m *Model) SkinFrame(ctx context.Context, name string, index int) (*skin.VertexBuffer, error) {
	f, err := m.Frame(name, index)
	if err != nil {
		return nil, err
	}
	return m.Skin(ctx, m.Deformations(f))
}

// Resample replaces every animation by its resampled version.
func (m *Model) Resample(ctx context.Context, p anim.Params) error {
	anims, err := anim.ResampleAll(ctx, m.Animations, p, m.Workers)
	if err != nil {
		return errors.Wrapf(err, "Failed to resample model '%s'", m.Name)
	}
	m.Animations = anims
	return nil
}

// ExtractSubtree builds a model of the joints under rootName and the
// vertices weighted to them. Weights and animations follow the birth ids.
func (m *Model) ExtractSubtree(rootName string) (*Model, error) {
	root, ok := m.Skeleton.FindByName(rootName).Get()
	if !ok {
		return nil, errors.Errorf("Joint '%s' not found in model '%s'", rootName, m.Name)
	}

	sk, birthJoint := subset.Subtree(m.Skeleton, root)
	orig := make([]skeleton.JointID, len(birthJoint))
	for i, b := range birthJoint {
		orig[i] = b.MustGet()
	}
	mesh, birthVertex := subset.Vertices(m.Mesh, subset.Influenced(m.Weights, orig))

	sub := &Model{
		Name:       fmt.Sprintf("%s_%s", m.Name, rootName),
		Skeleton:   sk,
		Mesh:       mesh,
		Weights:    subset.TransferWeights(m.Weights, birthVertex, birthJoint),
		Animations: subset.TransferAnimations(m.Animations, birthJoint, mgl64.Ident4()),
		Mode:       m.Mode,
		Workers:    m.Workers,
	}
	// the subtree root now sits at the origin of the skeleton, so fold the
	// animated parent chain it lost into its keyframes
	if parent, ok := m.Skeleton.Parent(root).Get(); ok {
		bakeParentChain(sub, m, root, parent)
	}
	return sub, nil
}

// L'[0] = globalBind[root]⁻¹ ∘ G[parent] ∘ localBind[root] ∘ L[root]
func bakeParentChain(sub, m *Model, root, parent skeleton.JointID) {
	p := m.Pipeline()
	invBind := xform.Inverse(p.GlobalBindPose()[root])
	localBind := p.LocalBindPose()[root]
	G := make([]mgl64.Mat4, p.JointCount())
	for i, a := range m.Animations {
		for k, f := range a.Keyframes {
			p.Globals(f, G)
			chain := xform.Compose(invBind, xform.Compose(G[parent], localBind))
			sub.Animations[i].Keyframes[k].Transforms[0] = xform.Compose(chain, f.Transforms[root])
		}
	}
}
