package gltfio

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/xform"
)

// Export writes the skeleton as a node tree with a skin, the rest mesh with
// up to four influences per vertex and every animation as TRS channels.
func Export(m *model.Model) (*gltf.Document, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Failed to export model")
	}
	doc := gltf.NewDocument()
	sk := m.Skeleton
	localBind := m.Pipeline().LocalBindPose()

	jointNodes := make([]uint32, sk.JointCount())
	for j := range jointNodes {
		jointNodes[j] = uint32(len(doc.Nodes)) + uint32(j)
	}
	for _, joint := range sk.Joints() {
		t, r, s := xform.Decompose(localBind[joint.ID])
		node := &gltf.Node{
			Name:        joint.Name,
			Matrix:      identity32,
			Translation: utils.Vec3To32(t),
			Rotation:    utils.QuatTo32(r),
			Scale:       utils.Vec3To32(s),
		}
		for _, c := range sk.Children(joint.ID) {
			node.Children = append(node.Children, jointNodes[c])
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	for _, r := range sk.Roots() {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, jointNodes[r])
	}

	ibms := make([][4][4]float32, sk.JointCount())
	for j, bind := range m.Pipeline().GlobalBindPose() {
		ibms[j] = utils.Mat4To44(xform.Inverse(bind))
	}
	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:                m.Name,
		Joints:              jointNodes,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, ibms)),
	})
	if len(sk.Roots()) > 0 {
		doc.Skins[0].Skeleton = gltf.Index(jointNodes[sk.Roots()[0]])
	}

	if m.Mesh != nil && m.Mesh.VertexCount() > 0 {
		meshIndex := writeMesh(doc, m.Name, m.Mesh)
		if m.Weights != nil {
			writeSkinAttributes(doc, doc.Meshes[meshIndex].Primitives[0], m.Mesh.VertexCount(), m.Weights)
		}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:   m.Name,
			Matrix: identity32,
			Mesh:   gltf.Index(meshIndex),
			Skin:   gltf.Index(0),
			// Rotation and Scale carry defaults so the encoder drops them
			Rotation: [4]float32{0, 0, 0, 1},
			Scale:    [3]float32{1, 1, 1},
		})
	}

	for _, a := range m.Animations {
		writeAnimation(doc, a, localBind, jointNodes)
	}
	return doc, nil
}

// ExportMesh writes a static mesh, like a baked skinning result.
func ExportMesh(name string, vb *skin.VertexBuffer) *gltf.Document {
	doc := gltf.NewDocument()
	meshIndex := writeMesh(doc, name, vb)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:     name,
		Matrix:   identity32,
		Mesh:     gltf.Index(meshIndex),
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	})
	return doc
}

func writeMesh(doc *gltf.Document, name string, vb *skin.VertexBuffer) uint32 {
	positions := make([][3]float32, vb.VertexCount())
	for v, p := range vb.Points {
		positions[v] = utils.Vec3To32(p)
	}
	attributes := map[string]uint32{
		gltf.POSITION: modeler.WritePosition(doc, positions),
	}
	if len(vb.Normals) == vb.VertexCount() {
		normals := make([][3]float32, vb.VertexCount())
		for v, n := range vb.Normals {
			if n.Len() > 0.5 {
				n = n.Normalize()
			}
			normals[v] = utils.Vec3To32(n)
		}
		attributes[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}

	primitive := &gltf.Primitive{
		Attributes: attributes,
		Mode:       gltf.PrimitiveTriangles,
	}
	if len(vb.Indices) != 0 {
		primitive.Indices = gltf.Index(modeler.WriteIndices(doc, vb.Indices))
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       name,
		Primitives: []*gltf.Primitive{primitive},
	})
	return uint32(len(doc.Meshes) - 1)
}

// The four largest influences of every vertex are kept, joint ids are skin
// joint indices since skin joints follow joint id order.
func writeSkinAttributes(doc *gltf.Document, p *gltf.Primitive, vertices int, w *skin.SparseWeights) {
	joints := make([][4]uint16, vertices)
	weights := make([][4]float32, vertices)
	truncated := 0
	for v := 0; v < vertices; v++ {
		inf := append([]skin.Influence(nil), w.Influences(skin.VertexID(v))...)
		sort.SliceStable(inf, func(a, b int) bool { return inf[a].Weight > inf[b].Weight })
		if len(inf) > 4 {
			truncated++
			inf = inf[:4]
		}
		for k, i := range inf {
			joints[v][k] = uint16(i.Joint)
			weights[v][k] = float32(i.Weight)
		}
	}
	if truncated != 0 {
		log.Printf("[gltf] %d vertices have more than 4 influences, extra dropped", truncated)
	}
	p.Attributes[gltf.JOINTS_0] = modeler.WriteJoints(doc, joints)
	p.Attributes[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, weights)
}

// writeAnimation stores localBind ∘ L of every joint as linear TRS channels
// sharing one time accessor.
func writeAnimation(doc *gltf.Document, a *anim.Animation, localBind []mgl64.Mat4, jointNodes []uint32) {
	if len(a.Keyframes) == 0 {
		return
	}
	times := make([]float32, len(a.Keyframes))
	for i, f := range a.Keyframes {
		times[i] = float32(f.Time)
	}
	input := modeler.WriteAccessor(doc, gltf.TargetNone, times)

	ga := &gltf.Animation{Name: a.Name}
	addChannel := func(node uint32, path gltf.TRSProperty, output uint32) {
		ga.Samplers = append(ga.Samplers, &gltf.AnimationSampler{
			Input:         gltf.Index(input),
			Output:        gltf.Index(output),
			Interpolation: gltf.InterpolationLinear,
		})
		ga.Channels = append(ga.Channels, &gltf.Channel{
			Sampler: gltf.Index(uint32(len(ga.Samplers) - 1)),
			Target: gltf.ChannelTarget{
				Node: gltf.Index(node),
				Path: path,
			},
		})
	}

	for j, node := range jointNodes {
		translations := make([][3]float32, len(a.Keyframes))
		rotations := make([][4]float32, len(a.Keyframes))
		scales := make([][3]float32, len(a.Keyframes))
		var prev mgl64.Quat
		for i, f := range a.Keyframes {
			t, r, s := xform.Decompose(xform.Compose(localBind[j], f.Transforms[j]))
			// keep neighbouring keys in one hemisphere for linear slerp
			if i > 0 && prev.Dot(r) < 0 {
				r = r.Scale(-1)
			}
			prev = r
			translations[i] = utils.Vec3To32(t)
			rotations[i] = utils.QuatTo32(r)
			scales[i] = utils.Vec3To32(s)
		}
		addChannel(node, gltf.TRSTranslation, modeler.WriteAccessor(doc, gltf.TargetNone, translations))
		addChannel(node, gltf.TRSRotation, modeler.WriteAccessor(doc, gltf.TargetNone, rotations))
		addChannel(node, gltf.TRSScale, modeler.WriteAccessor(doc, gltf.TargetNone, scales))
	}
	doc.Animations = append(doc.Animations, ga)
}
