// Package skeletontest builds skeletons and poses for tests.
package skeletontest

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/xform"
)

// Seed makes the generators below deterministic.
func Seed(seed int64) {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
}

// RandomTransform is a TRS with positive scale.
func RandomTransform() mgl64.Mat4 {
	axis := mgl64.Vec3{
		randomdata.Decimal(-1, 1, 3),
		randomdata.Decimal(-1, 1, 3),
		randomdata.Decimal(-1, 1, 3) + 2,
	}.Normalize()
	angle := randomdata.Decimal(-3, 3, 4)
	t := mgl64.Vec3{
		randomdata.Decimal(-5, 5, 3),
		randomdata.Decimal(-5, 5, 3),
		randomdata.Decimal(-5, 5, 3),
	}
	s := mgl64.Vec3{
		randomdata.Decimal(1, 2, 2),
		randomdata.Decimal(1, 2, 2),
		randomdata.Decimal(1, 2, 2),
	}
	return xform.Recompose(t, mgl64.QuatRotate(angle, axis), s)
}

// RandomRigid is a TRS with unit scale.
func RandomRigid() mgl64.Mat4 {
	return xform.Rigid(RandomTransform())
}

// Random builds a forest of n joints with up to roots root joints. Every new
// joint attaches to a random earlier joint, bind poses are random globals.
func Random(n, roots int) *skeleton.Skeleton {
	s := skeleton.New()
	for i := 0; i < n; i++ {
		name := randomdata.SillyName()
		if i < roots || i == 0 {
			s.AddRoot(RandomRigid(), name)
			continue
		}
		parent := skeleton.JointID(randomdata.Number(0, i))
		s.AddChild(parent, RandomRigid(), name)
	}
	return s
}

// Chain builds root -> j1 -> j2 ... with every joint one unit further on x.
func Chain(n int) *skeleton.Skeleton {
	s := skeleton.New()
	prev := s.AddRoot(mgl64.Ident4(), "chain0")
	for i := 1; i < n; i++ {
		prev = s.AddChild(prev, mgl64.Translate3D(float64(i), 0, 0), randomdata.SillyName())
	}
	return s
}

// RandomPose returns one random transform per joint.
func RandomPose(n int) []mgl64.Mat4 {
	T := make([]mgl64.Mat4, n)
	for i := range T {
		T[i] = RandomTransform()
	}
	return T
}
