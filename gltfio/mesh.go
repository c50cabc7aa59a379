package gltfio

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/utils"
)

// MeshRef is the mesh read as the model mesh and the skin its joint
// attributes index into.
type MeshRef struct {
	Mesh uint32
	Skin *uint32
}

// FindMesh picks the mesh of the first skinned node, else the first mesh.
func FindMesh(doc *gltf.Document) (MeshRef, bool) {
	for _, n := range doc.Nodes {
		if n.Mesh != nil && n.Skin != nil {
			return MeshRef{Mesh: *n.Mesh, Skin: n.Skin}, true
		}
	}
	if len(doc.Meshes) > 0 {
		ref := MeshRef{}
		if len(doc.Skins) > 0 {
			ref.Skin = gltf.Index(0)
		}
		return ref, true
	}
	return MeshRef{}, false
}

func trianglePrimitives(doc *gltf.Document, ref MeshRef) []*gltf.Primitive {
	mesh := doc.Meshes[ref.Mesh]
	var prims []*gltf.Primitive
	for i, p := range mesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			log.Printf("[gltf] Mesh '%s' primitive %d is not triangles, skipped", mesh.Name, i)
			continue
		}
		if _, ok := p.Attributes[gltf.POSITION]; !ok {
			log.Printf("[gltf] Mesh '%s' primitive %d has no positions, skipped", mesh.Name, i)
			continue
		}
		prims = append(prims, p)
	}
	return prims
}

// ReadMesh merges the triangle primitives of a mesh into one vertex buffer.
func ReadMesh(doc *gltf.Document, ref MeshRef) (*skin.VertexBuffer, error) {
	if int(ref.Mesh) >= len(doc.Meshes) {
		return nil, errors.Errorf("Mesh %d not found", ref.Mesh)
	}
	vb := &skin.VertexBuffer{}
	for i, p := range trianglePrimitives(doc, ref) {
		positions, err := modeler.ReadPosition(doc, doc.Accessors[p.Attributes[gltf.POSITION]], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read primitive %d positions", i)
		}
		offset := uint32(len(vb.Points))

		var normals [][3]float32
		if idx, ok := p.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return nil, errors.Wrapf(err, "Failed to read primitive %d normals", i)
			}
		}
		for v := range positions {
			vb.Points = append(vb.Points, utils.Vec3From32(positions[v]))
			if v < len(normals) {
				vb.Normals = append(vb.Normals, utils.Vec3From32(normals[v]))
			} else {
				vb.Normals = append(vb.Normals, mgl64.Vec3{})
			}
		}

		if p.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read primitive %d indices", i)
			}
			for _, index := range indices {
				vb.Indices = append(vb.Indices, index+offset)
			}
		} else {
			for v := range positions {
				vb.Indices = append(vb.Indices, uint32(v)+offset)
			}
		}
	}
	return vb, nil
}

// ReadWeights reads JOINTS_0/WEIGHTS_0 of the mesh in the vertex order of
// ReadMesh. Influences on nodes missing from jm are dropped.
func ReadWeights(doc *gltf.Document, ref MeshRef, sk *skeleton.Skeleton, jm JointMap) (*skin.SparseWeights, error) {
	if int(ref.Mesh) >= len(doc.Meshes) {
		return nil, errors.Errorf("Mesh %d not found", ref.Mesh)
	}
	prims := trianglePrimitives(doc, ref)

	count := 0
	for _, p := range prims {
		count += int(doc.Accessors[p.Attributes[gltf.POSITION]].Count)
	}
	w := skin.NewSparseWeights(count, sk.JointCount())
	if ref.Skin == nil {
		log.Printf("[gltf] Mesh %d is not skinned, no weights", ref.Mesh)
		return w, nil
	}
	gskin := doc.Skins[*ref.Skin]

	dropped := 0
	offset := 0
	for i, p := range prims {
		vertices := int(doc.Accessors[p.Attributes[gltf.POSITION]].Count)
		jIdx, okj := p.Attributes[gltf.JOINTS_0]
		wIdx, okw := p.Attributes[gltf.WEIGHTS_0]
		if okj && okw {
			joints, err := modeler.ReadJoints(doc, doc.Accessors[jIdx], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read primitive %d joints", i)
			}
			weights, err := modeler.ReadWeights(doc, doc.Accessors[wIdx], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read primitive %d weights", i)
			}
			if len(joints) < vertices || len(weights) < vertices {
				return nil, errors.Errorf("Primitive %d has %d joints and %d weights for %d vertices", i, len(joints), len(weights), vertices)
			}
			for v := 0; v < vertices; v++ {
				vid := skin.VertexID(offset + v)
				for k := 0; k < 4; k++ {
					weight := float64(weights[v][k])
					if weight == 0 {
						continue
					}
					if int(joints[v][k]) >= len(gskin.Joints) {
						return nil, errors.Errorf("Primitive %d vertex %d references skin joint %d of %d", i, v, joints[v][k], len(gskin.Joints))
					}
					j, ok := jm[gskin.Joints[joints[v][k]]]
					if !ok {
						dropped++
						continue
					}
					w.Set(vid, j, w.Weight(vid, j)+weight)
				}
			}
		}
		offset += vertices
	}
	if dropped != 0 {
		log.Printf("[gltf] %d influences on unknown joints dropped", dropped)
	}
	if n := unnormalized(w, 1e-3); n != 0 {
		log.Printf("[gltf] %d of %d vertices have weights not summing to 1", n, w.VertexCount())
	}
	return w, nil
}

// unnormalized counts influenced vertices whose weight total is off 1 by more
// than eps. Weights are kept as read.
func unnormalized(w *skin.SparseWeights, eps float64) int {
	n := 0
	for v := 0; v < w.VertexCount(); v++ {
		vid := skin.VertexID(v)
		if len(w.Influences(vid)) != 0 && math.Abs(w.Total(vid)-1) > eps {
			n++
		}
	}
	return n
}
