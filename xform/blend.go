package xform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// BlendRotations blends rotations progressively: with running result R and
// running weight S, each source i does R = slerp(q[i], R, S/(S+w[i])) then
// S += w[i]. The result depends on the order of the sources.
// Zero weights are skipped; no positive weight at all gives identity.
func BlendRotations(qs []mgl64.Quat, weights []float64) mgl64.Quat {
	checkWeights(len(qs), len(weights))

	var r mgl64.Quat
	var sum float64
	for i, q := range qs {
		w := weights[i]
		if w == 0 {
			continue
		}
		if sum == 0 {
			r, sum = q, w
			continue
		}
		r = Slerp(q, r, sum/(sum+w))
		sum += w
	}
	if sum == 0 {
		return mgl64.QuatIdent()
	}
	return r
}

// BlendAffine is the progressive blend of whole transforms, each step an
// InterpolateAffine.
func BlendAffine(ms []mgl64.Mat4, weights []float64) mgl64.Mat4 {
	checkWeights(len(ms), len(weights))

	var r mgl64.Mat4
	var sum float64
	for i, m := range ms {
		w := weights[i]
		if w == 0 {
			continue
		}
		if sum == 0 {
			r, sum = m, w
			continue
		}
		r = InterpolateAffine(m, r, sum/(sum+w))
		sum += w
	}
	if sum == 0 {
		return mgl64.Ident4()
	}
	return r
}

func checkWeights(sources, weights int) {
	if sources != weights {
		panic(fmt.Sprintf("xform: %d sources with %d weights", sources, weights))
	}
}
