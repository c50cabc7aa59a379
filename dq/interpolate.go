package dq

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/xform"
)

// Interpolate slerps the rotations and lerps the translations of a and b.
// alpha≈0 returns a and alpha≈1 returns b untouched.
func Interpolate(a, b DualQuat, alpha float64) DualQuat {
	if math.Abs(alpha) <= xform.Epsilon {
		return a
	}
	if math.Abs(1-alpha) <= xform.Epsilon {
		return b
	}
	r := xform.Slerp(a.Rotation(), b.Rotation(), alpha)
	t := xform.LerpVec3(a.Translation(), b.Translation(), alpha)
	return FromRotationTranslation(r, t)
}

// BlendProgressive folds sources in order: R = Interpolate(d[i], R, S/(S+w[i])),
// S += w[i]. Zero weights are skipped and an empty blend is identity.
func BlendProgressive(ds []DualQuat, weights []float64) DualQuat {
	if len(ds) != len(weights) {
		panic(fmt.Sprintf("dq: %d sources with %d weights", len(ds), len(weights)))
	}

	var r DualQuat
	var sum float64
	for i, d := range ds {
		w := weights[i]
		if w == 0 {
			continue
		}
		if sum == 0 {
			r, sum = d, w
			continue
		}
		r = Interpolate(d, r, sum/(sum+w))
		sum += w
	}
	if sum == 0 {
		return Identity()
	}
	return r
}

// LinearBlend is the weighted sum Σ w·d, every source flipped into the
// hemisphere of the first non-zero one. The result is not normalized.
func LinearBlend(ds []DualQuat, weights []float64) DualQuat {
	if len(ds) != len(weights) {
		panic(fmt.Sprintf("dq: %d sources with %d weights", len(ds), len(weights)))
	}

	var acc DualQuat
	var pivot DualQuat
	havePivot := false
	for i, d := range ds {
		w := weights[i]
		if w == 0 {
			continue
		}
		if !havePivot {
			pivot, havePivot = d, true
		} else if pivot.Dot(d) < 0 {
			w = -w
		}
		acc = acc.Add(d.Scale(w))
	}
	return acc
}

// Translate is the pure translation by t.
func Translate(t mgl64.Vec3) DualQuat {
	return FromRotationTranslation(mgl64.QuatIdent(), t)
}
