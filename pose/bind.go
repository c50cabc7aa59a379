package pose

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/xform"
)

// GlobalBindPoseInto copies the stored (already global) bind poses into out.
func GlobalBindPoseInto(tree BindTree, out []mgl64.Mat4) {
	checkLen(tree, out)
	for i := range out {
		out[i] = tree.BindPose(skeleton.JointID(i))
	}
}

func GlobalBindPose(tree BindTree) []mgl64.Mat4 {
	out := make([]mgl64.Mat4, tree.JointCount())
	GlobalBindPoseInto(tree, out)
	return out
}

func LocalBindPose(tree BindTree) []mgl64.Mat4 {
	out := GlobalBindPose(tree)
	LocalFromGlobal(tree, out)
	return out
}

func InverseGlobalBindPose(tree BindTree) []mgl64.Mat4 {
	return invertAll(GlobalBindPose(tree))
}

func InverseLocalBindPose(tree BindTree) []mgl64.Mat4 {
	return invertAll(LocalBindPose(tree))
}

func invertAll(T []mgl64.Mat4) []mgl64.Mat4 {
	for i := range T {
		T[i] = xform.Inverse(T[i])
	}
	return T
}
