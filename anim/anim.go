// Package anim holds keyframe animations: one local-space transform per
// joint at each keyframe, keyframes sorted by strictly increasing time.
package anim

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/xform"
)

type Frame struct {
	Time       float64
	Transforms []mgl64.Mat4 // local space, indexed by joint id
}

func (f Frame) Transformations() []mgl64.Mat4 {
	return f.Transforms
}

func (f Frame) Clone() Frame {
	return Frame{
		Time:       f.Time,
		Transforms: append([]mgl64.Mat4(nil), f.Transforms...),
	}
}

// IdentityFrame is the rest frame: every joint at its bind pose.
func IdentityFrame(time float64, joints int) Frame {
	f := Frame{Time: time, Transforms: make([]mgl64.Mat4, joints)}
	for i := range f.Transforms {
		f.Transforms[i] = mgl64.Ident4()
	}
	return f
}

// Interpolate blends two frames joint by joint and stamps the result with time.
func Interpolate(f1, f2 Frame, alpha, time float64) Frame {
	if len(f1.Transforms) != len(f2.Transforms) {
		panic(fmt.Sprintf("anim: interpolating frames of %d and %d joints", len(f1.Transforms), len(f2.Transforms)))
	}
	f := Frame{Time: time, Transforms: make([]mgl64.Mat4, len(f1.Transforms))}
	for j := range f.Transforms {
		f.Transforms[j] = xform.InterpolateAffine(f1.Transforms[j], f2.Transforms[j], alpha)
	}
	return f
}

// Animation is built once and not modified afterwards, except by replacing
// all keyframes with SetKeyframes. Readers may share it across goroutines.
type Animation struct {
	Name      string
	Keyframes []Frame
}

func New(name string, keyframes []Frame) *Animation {
	return &Animation{Name: name, Keyframes: keyframes}
}

func (a *Animation) SetKeyframes(keyframes []Frame) {
	a.Keyframes = keyframes
}

func (a *Animation) JointCount() int {
	if len(a.Keyframes) == 0 {
		return 0
	}
	return len(a.Keyframes[0].Transforms)
}

func (a *Animation) StartTime() float64 {
	if len(a.Keyframes) == 0 {
		return 0
	}
	return a.Keyframes[0].Time
}

func (a *Animation) EndTime() float64 {
	if len(a.Keyframes) == 0 {
		return 0
	}
	return a.Keyframes[len(a.Keyframes)-1].Time
}

func (a *Animation) Duration() float64 {
	return a.EndTime() - a.StartTime()
}

// Validate checks loader input: strictly increasing times and one
// transform per joint in every keyframe.
func (a *Animation) Validate(jointCount int) error {
	if len(a.Keyframes) == 0 {
		return errors.Errorf("animation '%s' has no keyframes", a.Name)
	}
	for i, f := range a.Keyframes {
		if len(f.Transforms) != jointCount {
			return errors.Errorf("animation '%s' keyframe %d: %d transforms for %d joints",
				a.Name, i, len(f.Transforms), jointCount)
		}
		if i > 0 && f.Time <= a.Keyframes[i-1].Time {
			return errors.Errorf("animation '%s' keyframe %d: time %v after %v",
				a.Name, i, f.Time, a.Keyframes[i-1].Time)
		}
	}
	return nil
}

func (a *Animation) mustBeSorted() {
	for i := 1; i < len(a.Keyframes); i++ {
		if a.Keyframes[i].Time <= a.Keyframes[i-1].Time {
			panic(fmt.Sprintf("anim: '%s' keyframe %d time %v is not after %v",
				a.Name, i, a.Keyframes[i].Time, a.Keyframes[i-1].Time))
		}
	}
}

// Sample writes the pose at time t into out. t is clamped to the animation
// range, between keyframes the surrounding pair is interpolated.
func (a *Animation) Sample(t float64, out []mgl64.Mat4) {
	if len(a.Keyframes) == 0 {
		panic(fmt.Sprintf("anim: sampling empty animation '%s'", a.Name))
	}
	if len(out) != a.JointCount() {
		panic(fmt.Sprintf("anim: %d output slots for %d joints", len(out), a.JointCount()))
	}

	keys := a.Keyframes
	if t <= keys[0].Time {
		copy(out, keys[0].Transforms)
		return
	}
	if t >= keys[len(keys)-1].Time {
		copy(out, keys[len(keys)-1].Transforms)
		return
	}

	// first keyframe strictly after t, 0 < i < len(keys)
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	k1, k2 := keys[i-1], keys[i]
	alpha := (t - k1.Time) / (k2.Time - k1.Time)
	for j := range out {
		out[j] = xform.InterpolateAffine(k1.Transforms[j], k2.Transforms[j], alpha)
	}
}

// FrameAt is Sample into a new frame.
func (a *Animation) FrameAt(t float64) Frame {
	f := Frame{Time: t, Transforms: make([]mgl64.Mat4, a.JointCount())}
	a.Sample(t, f.Transforms)
	return f
}

// Blend mixes several poses joint by joint with the progressive blend of
// xform.BlendAffine. Poses are folded in the given order.
func Blend(frames []Frame, weights []float64, out []mgl64.Mat4) {
	if len(frames) != len(weights) {
		panic(fmt.Sprintf("anim: blending %d frames with %d weights", len(frames), len(weights)))
	}
	for _, f := range frames {
		if len(f.Transforms) != len(out) {
			panic(fmt.Sprintf("anim: blending frame of %d joints into %d slots", len(f.Transforms), len(out)))
		}
	}

	ms := make([]mgl64.Mat4, len(frames))
	for j := range out {
		for i, f := range frames {
			ms[i] = f.Transforms[j]
		}
		out[j] = xform.BlendAffine(ms, weights)
	}
}
