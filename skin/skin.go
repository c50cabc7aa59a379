// Package skin deforms mesh vertices by per-joint deformation transforms,
// with linear blend or dual quaternion skinning.
package skin

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/dq"
	"github.com/mogaika/skinpose/parallel"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/xform"
)

type Mode int

const (
	LinearBlend Mode = iota
	DualQuaternion
)

func (m Mode) String() string {
	switch m {
	case LinearBlend:
		return "lbs"
	case DualQuaternion:
		return "dqs"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "lbs", "linear", "linearblend":
		return LinearBlend, nil
	case "dqs", "dq", "dualquaternion":
		return DualQuaternion, nil
	}
	return LinearBlend, errors.Errorf("Unknown skinning mode '%s'", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Skinner applies deformations with one mode for the whole mesh.
type Skinner struct {
	Mode    Mode
	Workers int
}

// joints holds what every vertex reads from D, computed once per Apply.
type joints struct {
	D        []mgl64.Mat4
	rotation []mgl64.Quat
	dqs      []dq.DualQuat
	rest     []bool
}

func prepare(mode Mode, D []mgl64.Mat4) *joints {
	js := &joints{D: D, rest: make([]bool, len(D))}
	ident := mgl64.Ident4()
	for j := range D {
		js.rest[j] = D[j] == ident
	}
	switch mode {
	case LinearBlend:
		js.rotation = make([]mgl64.Quat, len(D))
		for j := range D {
			js.rotation[j] = xform.Rotation(D[j])
		}
	case DualQuaternion:
		js.dqs = make([]dq.DualQuat, len(D))
		for j := range D {
			js.dqs[j] = dq.FromAffine(D[j])
		}
	}
	return js
}

// Apply writes the skinned rest mesh into dst. rest and dst may be the same
// mesh. Vertices with zero total weight, or whose influencing joints all have
// exactly identity deformations, keep their rest point and normal.
func (s Skinner) Apply(ctx context.Context, rest Mesh, dst MutableMesh, w Weights, D []mgl64.Mat4) error {
	if rest.VertexCount() != dst.VertexCount() {
		panic(fmt.Sprintf("skin: rest mesh of %d vertices, destination of %d", rest.VertexCount(), dst.VertexCount()))
	}
	if s.Mode != LinearBlend && s.Mode != DualQuaternion {
		return errors.Errorf("Unknown skinning mode %v", s.Mode)
	}

	js := prepare(s.Mode, D)
	lister, _ := w.(InfluenceLister)

	return parallel.Chunks(ctx, rest.VertexCount(), s.Workers, func(lo, hi int) error {
		var scratch []Influence
		for v := VertexID(lo); v < VertexID(hi); v++ {
			var inf []Influence
			if lister != nil {
				inf = lister.Influences(v)
			} else {
				scratch = probe(w, v, len(D), scratch[:0])
				inf = scratch
			}
			p, n := rest.VertexPoint(v), rest.VertexNormal(v)
			if moved(js, inf) {
				if s.Mode == LinearBlend {
					p, n = linearBlend(js, inf, p, n)
				} else {
					p, n = dualQuaternion(js, inf, p, n)
				}
			}
			dst.SetVertexPoint(v, p)
			dst.SetVertexNormal(v, n)
		}
		return nil
	})
}

func probe(w Weights, v VertexID, joints int, out []Influence) []Influence {
	for j := 0; j < joints; j++ {
		if weight := w.Weight(v, skeleton.JointID(j)); weight != 0 {
			out = append(out, Influence{Joint: skeleton.JointID(j), Weight: weight})
		}
	}
	return out
}

func moved(js *joints, inf []Influence) bool {
	for _, i := range inf {
		if i.Weight != 0 && !js.rest[i.Joint] {
			return true
		}
	}
	return false
}

// p' = Σ w·(D·p), n' = Σ w·(rot(D)·n)
func linearBlend(js *joints, inf []Influence, p, n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var rp, rn mgl64.Vec3
	for _, i := range inf {
		rp = rp.Add(xform.TransformPoint(js.D[i.Joint], p).Mul(i.Weight))
		rn = rn.Add(js.rotation[i.Joint].Rotate(n).Mul(i.Weight))
	}
	return rp, rn
}

// The weighted sum of the joint dual quaternions, aligned to the hemisphere
// of the first influence, is applied to the point as is. Normals use the
// normalized rotation.
func dualQuaternion(js *joints, inf []Influence, p, n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	ds := make([]dq.DualQuat, len(inf))
	ws := make([]float64, len(inf))
	for k, i := range inf {
		ds[k], ws[k] = js.dqs[i.Joint], i.Weight
	}
	blend := dq.LinearBlend(ds, ws)
	if blend.Norm() == 0 {
		return p, n
	}
	return blend.TransformPoint(p), blend.RotateVector(n)
}

// Bake skins rest into a new vertex buffer.
func (s Skinner) Bake(ctx context.Context, rest *VertexBuffer, w Weights, D []mgl64.Mat4) (*VertexBuffer, error) {
	out := rest.Clone()
	if err := s.Apply(ctx, rest, out, w, D); err != nil {
		return nil, errors.Wrapf(err, "Failed to bake %v skin", s.Mode)
	}
	return out, nil
}
