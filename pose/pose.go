// Package pose converts per-joint transform arrays between local
// (parent-relative) and global (skeleton-relative) space.
//
// Both conversions work in place on a slice indexed by joint id. The order of
// updates matters: a global pass writes a child only after its parent is
// global, a local pass writes a child only after every descendant of that
// child has been made local against the child's still-global value.
package pose

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/parallel"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/xform"
)

// Tree is the joint hierarchy capability the conversions need.
type Tree interface {
	JointCount() int
	Roots() []skeleton.JointID
	Children(id skeleton.JointID) []skeleton.JointID
}

// BindTree also exposes the global bind pose of every joint.
type BindTree interface {
	Tree
	BindPose(id skeleton.JointID) mgl64.Mat4
}

// HasTransformations is anything carrying one transform per joint, like an
// animation frame.
type HasTransformations interface {
	Transformations() []mgl64.Mat4
}

var _ BindTree = (*skeleton.Skeleton)(nil)

func checkLen(tree Tree, T []mgl64.Mat4) {
	if len(T) != tree.JointCount() {
		panic(fmt.Sprintf("pose: %d transforms for %d joints", len(T), tree.JointCount()))
	}
}

// GlobalFromLocal rewrites T from local to global space.
func GlobalFromLocal(tree Tree, T []mgl64.Mat4) {
	checkLen(tree, T)

	stack := make([]skeleton.JointID, 0, 64)
	stack = append(stack, tree.Roots()...)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range tree.Children(p) {
			T[c] = xform.Compose(T[p], T[c])
			stack = append(stack, c)
		}
	}
}

type localFrame struct {
	id   skeleton.JointID
	next int
	inv  mgl64.Mat4 // inverse of the still-global T[id], set when it has children
}

// LocalFromGlobal rewrites T from global to local space.
func LocalFromGlobal(tree Tree, T []mgl64.Mat4) {
	checkLen(tree, T)

	newFrame := func(id skeleton.JointID) localFrame {
		f := localFrame{id: id}
		if len(tree.Children(id)) != 0 {
			f.inv = xform.Inverse(T[id])
		}
		return f
	}

	stack := make([]localFrame, 0, 64)
	for _, root := range tree.Roots() {
		stack = append(stack, newFrame(root))
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			childs := tree.Children(top.id)
			if top.next < len(childs) {
				c := childs[top.next]
				top.next++
				stack = append(stack, newFrame(c))
				continue
			}

			done := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) != 0 {
				parent := &stack[len(stack)-1]
				T[done.id] = xform.Compose(parent.inv, T[done.id])
			}
		}
	}
}

// GlobalFromLocalParallel is GlobalFromLocal with sibling subtrees forked
// on f. A nil f runs sequentially.
func GlobalFromLocalParallel(tree Tree, T []mgl64.Mat4, f *parallel.Forker) {
	checkLen(tree, T)

	var visit func(p skeleton.JointID)
	visit = func(p skeleton.JointID) {
		childs := tree.Children(p)
		for _, c := range childs {
			T[c] = xform.Compose(T[p], T[c])
		}
		f.Fork(len(childs), func(i int) { visit(childs[i]) })
	}

	roots := tree.Roots()
	f.Fork(len(roots), func(i int) { visit(roots[i]) })
}

// LocalFromGlobalParallel is LocalFromGlobal with sibling subtrees forked
// on f. Each child is converted once its own subtree has joined.
func LocalFromGlobalParallel(tree Tree, T []mgl64.Mat4, f *parallel.Forker) {
	checkLen(tree, T)

	var visit func(p skeleton.JointID)
	visit = func(p skeleton.JointID) {
		childs := tree.Children(p)
		if len(childs) == 0 {
			return
		}
		inv := xform.Inverse(T[p])
		f.Fork(len(childs), func(i int) {
			c := childs[i]
			visit(c)
			T[c] = xform.Compose(inv, T[c])
		})
	}

	roots := tree.Roots()
	f.Fork(len(roots), func(i int) { visit(roots[i]) })
}
