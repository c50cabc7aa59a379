// Package skeleton holds the joint arena: a forest of joints, each with a
// global bind pose. Joints are appended only, ids are dense and never reused.
//
// A Skeleton is not safe for concurrent mutation. Adding joints while a pose
// or skinning computation reads the same skeleton is not allowed.
package skeleton

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/opt"
)

type JointID int

// Ref is an optional joint id, opt.None for roots and unmapped joints.
type Ref = opt.Index[JointID]

func NoJoint() Ref {
	return opt.None[JointID]()
}

type Joint struct {
	ID       JointID
	Name     string
	BindPose mgl64.Mat4 // global space
	Hidden   bool
	Parent   Ref
}

type Skeleton struct {
	joints   []Joint
	children [][]JointID
	roots    []JointID
}

func New() *Skeleton {
	return &Skeleton{}
}

func (s *Skeleton) check(id JointID) {
	if id < 0 || int(id) >= len(s.joints) {
		panic(fmt.Sprintf("skeleton: joint id %d out of range [0,%d)", id, len(s.joints)))
	}
}

func (s *Skeleton) add(parent Ref, bindPose mgl64.Mat4, name string) JointID {
	id := JointID(len(s.joints))
	s.joints = append(s.joints, Joint{
		ID:       id,
		Name:     name,
		BindPose: bindPose,
		Parent:   parent,
	})
	s.children = append(s.children, nil)
	return id
}

func (s *Skeleton) AddRoot(bindPose mgl64.Mat4, name string) JointID {
	id := s.add(NoJoint(), bindPose, name)
	s.roots = append(s.roots, id)
	return id
}

func (s *Skeleton) AddChild(parent JointID, bindPose mgl64.Mat4, name string) JointID {
	s.check(parent)
	id := s.add(opt.Of(parent), bindPose, name)
	s.children[parent] = append(s.children[parent], id)
	return id
}

func (s *Skeleton) JointCount() int {
	return len(s.joints)
}

// Joint returns a copy of the joint record.
func (s *Skeleton) Joint(id JointID) Joint {
	s.check(id)
	return s.joints[id]
}

func (s *Skeleton) Joints() []Joint {
	return s.joints
}

func (s *Skeleton) Parent(id JointID) Ref {
	s.check(id)
	return s.joints[id].Parent
}

// Children is the ordered child list. The slice is shared, do not modify.
func (s *Skeleton) Children(id JointID) []JointID {
	s.check(id)
	return s.children[id]
}

func (s *Skeleton) Roots() []JointID {
	return s.roots
}

func (s *Skeleton) IsRoot(id JointID) bool {
	return !s.Parent(id).Valid()
}

func (s *Skeleton) IsLeaf(id JointID) bool {
	return len(s.Children(id)) == 0
}

func (s *Skeleton) SetHidden(id JointID, hidden bool) {
	s.check(id)
	s.joints[id].Hidden = hidden
}

func (s *Skeleton) SetBindPose(id JointID, bindPose mgl64.Mat4) {
	s.check(id)
	s.joints[id].BindPose = bindPose
}

// FindByName returns the first joint called name.
func (s *Skeleton) FindByName(name string) Ref {
	for i := range s.joints {
		if s.joints[i].Name == name {
			return opt.Of(JointID(i))
		}
	}
	return NoJoint()
}

// Depth is 0 for roots.
func (s *Skeleton) Depth(id JointID) int {
	depth := 0
	for p := s.Parent(id); p.Valid(); p = s.Parent(p.MustGet()) {
		depth++
	}
	return depth
}

// Walk visits joints pre-order, roots and children in stored order.
// Returning false from fn skips the subtree of that joint.
func (s *Skeleton) Walk(fn func(id JointID, depth int) bool) {
	type item struct {
		id    JointID
		depth int
	}
	stack := make([]item, 0, 32)
	for i := len(s.roots) - 1; i >= 0; i-- {
		stack = append(stack, item{s.roots[i], 0})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.id, it.depth) {
			continue
		}
		childs := s.children[it.id]
		for i := len(childs) - 1; i >= 0; i-- {
			stack = append(stack, item{childs[i], it.depth + 1})
		}
	}
}

func (s *Skeleton) StringJoint(id JointID, spaces string) string {
	j := s.Joint(id)
	t := j.BindPose.Col(3)
	return fmt.Sprintf("%sjoint [%.4x <=%v childs:%d hidden:%t] %s:\n%spos: %v\n",
		spaces, j.ID, j.Parent, len(s.children[id]), j.Hidden, j.Name,
		spaces, t.Vec3())
}

func (s *Skeleton) StringTree() string {
	var buffer bytes.Buffer
	s.Walk(func(id JointID, depth int) bool {
		spaces := string(bytes.Repeat([]byte("  "), depth))
		buffer.WriteString(s.StringJoint(id, spaces))
		return true
	})
	return buffer.String()
}

// BindPose is the global rest transform of the joint.
func (s *Skeleton) BindPose(id JointID) mgl64.Mat4 {
	s.check(id)
	return s.joints[id].BindPose
}
