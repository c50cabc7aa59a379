package gltfio

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/pose"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/xform"
)

type channel struct {
	node   uint32
	path   gltf.TRSProperty
	interp gltf.Interpolation
	times  []float64
	vec3   []mgl64.Vec3
	quat   []mgl64.Quat
}

func readChannel(doc *gltf.Document, a *gltf.Animation, ch *gltf.Channel) (*channel, error) {
	if ch.Sampler == nil || int(*ch.Sampler) >= len(a.Samplers) {
		return nil, errors.Errorf("Channel without valid sampler")
	}
	sampler := a.Samplers[*ch.Sampler]
	if sampler.Input == nil || sampler.Output == nil {
		return nil, errors.Errorf("Sampler %d without input or output", *ch.Sampler)
	}

	c := &channel{node: *ch.Target.Node, path: ch.Target.Path, interp: sampler.Interpolation}

	input, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Input], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read sampler input")
	}
	times, ok := input.([]float32)
	if !ok {
		return nil, errors.Errorf("Sampler input is %T, expected float scalars", input)
	}
	c.times = make([]float64, len(times))
	for i, t := range times {
		c.times[i] = float64(t)
	}

	output, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Output], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read sampler output")
	}
	// cubic spline keys are in-tangent, value, out-tangent
	stride, first := 1, 0
	if c.interp == gltf.InterpolationCubicSpline {
		stride, first = 3, 1
	}

	switch values := output.(type) {
	case [][3]float32:
		if c.path != gltf.TRSTranslation && c.path != gltf.TRSScale {
			return nil, errors.Errorf("Vector output for %v channel", c.path)
		}
		for i := first; i < len(values); i += stride {
			c.vec3 = append(c.vec3, utils.Vec3From32(values[i]))
		}
		if len(c.vec3) < len(c.times) {
			return nil, errors.Errorf("Sampler has %d values for %d keys", len(c.vec3), len(c.times))
		}
	case [][4]float32:
		if c.path != gltf.TRSRotation {
			return nil, errors.Errorf("Quaternion output for %v channel", c.path)
		}
		for i := first; i < len(values); i += stride {
			c.quat = append(c.quat, utils.QuatFrom32(values[i]).Normalize())
		}
		if len(c.quat) < len(c.times) {
			return nil, errors.Errorf("Sampler has %d values for %d keys", len(c.quat), len(c.times))
		}
	default:
		return nil, errors.Errorf("Unsupported sampler output %T", output)
	}
	return c, nil
}

// key finds the pair around t: values k and k+1 with alpha between them.
func (c *channel) key(t float64) (int, float64) {
	n := len(c.times)
	if t <= c.times[0] {
		return 0, 0
	}
	if t >= c.times[n-1] {
		return n - 1, 0
	}
	k := sort.Search(n, func(i int) bool { return c.times[i] > t }) - 1
	if c.interp == gltf.InterpolationStep {
		return k, 0
	}
	return k, (t - c.times[k]) / (c.times[k+1] - c.times[k])
}

func (c *channel) apply(t float64, tr *mgl64.Vec3, r *mgl64.Quat, s *mgl64.Vec3) {
	k, alpha := c.key(t)
	switch c.path {
	case gltf.TRSTranslation, gltf.TRSScale:
		v := c.vec3[k]
		if alpha != 0 {
			v = xform.LerpVec3(c.vec3[k], c.vec3[k+1], alpha)
		}
		if c.path == gltf.TRSTranslation {
			*tr = v
		} else {
			*s = v
		}
	case gltf.TRSRotation:
		q := c.quat[k]
		if alpha != 0 {
			q = xform.Slerp(c.quat[k], c.quat[k+1], alpha)
		}
		*r = q
	}
}

// ReadAnimations samples every node animation of the document at the union
// of its key times. Node transforms become engine locals L with
// localBind ∘ L equal to the animated transform relative to the parent joint.
func ReadAnimations(doc *gltf.Document, sk *skeleton.Skeleton, jm JointMap) ([]*anim.Animation, error) {
	h := newHierarchy(doc)
	parents := parentNodes(sk, jm)
	invLocalBind := pose.InverseLocalBindPose(sk)

	prefix := make(map[uint32]mgl64.Mat4, len(jm))
	for node, j := range jm {
		prefix[node] = h.Between(parents[j], int(node))
	}

	names := utils.NewNameGenerator(1)
	var anims []*anim.Animation
	for ai, ga := range doc.Animations {
		var channels []*channel
		for ci, ch := range ga.Channels {
			if ch.Target.Node == nil {
				continue
			}
			if _, ok := jm[*ch.Target.Node]; !ok {
				continue
			}
			if ch.Target.Path == gltf.TRSWeights {
				continue
			}
			c, err := readChannel(doc, ga, ch)
			if err != nil {
				return nil, errors.Wrapf(err, "Animation %d '%s' channel %d", ai, ga.Name, ci)
			}
			if len(c.times) > 0 {
				channels = append(channels, c)
			}
		}
		if len(channels) == 0 {
			log.Printf("[gltf] Animation %d '%s' does not move any joint, skipped", ai, ga.Name)
			continue
		}

		byNode := make(map[uint32][]*channel)
		for _, c := range channels {
			byNode[c.node] = append(byNode[c.node], c)
		}

		times := keyTimes(channels)
		keys := make([]anim.Frame, len(times))
		for i, t := range times {
			f := anim.IdentityFrame(t, sk.JointCount())
			for node, j := range jm {
				tr, r, s := nodeTRS(doc.Nodes[node])
				for _, c := range byNode[node] {
					c.apply(t, &tr, &r, &s)
				}
				rel := xform.Compose(prefix[node], xform.Recompose(tr, r, s))
				f.Transforms[j] = xform.Compose(invLocalBind[j], rel)
			}
			keys[i] = f
		}

		a := anim.New(names.Unique(ga.Name), keys)
		if err := a.Validate(sk.JointCount()); err != nil {
			return nil, err
		}
		anims = append(anims, a)
	}
	return anims, nil
}

func keyTimes(channels []*channel) []float64 {
	var all []float64
	for _, c := range channels {
		all = append(all, c.times...)
	}
	sort.Float64s(all)
	times := all[:0]
	for i, t := range all {
		if i == 0 || t > times[len(times)-1] {
			times = append(times, t)
		}
	}
	return times
}
