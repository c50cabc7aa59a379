// Package gltfio moves models between the engine and glTF 2.0 files:
// skeletons from skins, skinned meshes, weights and node animations.
package gltfio

import (
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/xform"
)

var identity32 = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Open reads a .gltf or .glb file.
func Open(path string) (*gltf.Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open gltf '%s'", path)
	}
	return doc, nil
}

func Decode(r io.Reader) (*gltf.Document, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to read gltf")
	}
	return doc, nil
}

// Save writes binary glTF for .glb paths and json otherwise.
func Save(doc *gltf.Document, path string) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(doc, path)
	} else {
		embedBuffers(doc)
		err = gltf.Save(doc, path)
	}
	if err != nil {
		return errors.Wrapf(err, "Failed to save gltf '%s'", path)
	}
	return nil
}

// embedBuffers turns buffers without uri into data uris for json output.
func embedBuffers(doc *gltf.Document) {
	for _, b := range doc.Buffers {
		if b.URI == "" && len(b.Data) > 0 {
			b.EmbeddedResource()
		}
	}
}

func Encode(w io.Writer, doc *gltf.Document, binary bool) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	if !binary {
		embedBuffers(doc)
	}
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrapf(err, "Failed to encode gltf")
	}
	return nil
}

// Load reads one file carrying skeleton, mesh, weights and animations.
func Load(path string) (*model.Model, error) {
	doc, err := Open(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := ReadModel(doc, name)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load '%s'", path)
	}
	return m, nil
}

// ReadModel builds a model from a single document.
func ReadModel(doc *gltf.Document, name string) (*model.Model, error) {
	sk, jm, err := ReadSkeleton(doc)
	if err != nil {
		return nil, err
	}
	m := model.New(name, sk)
	if mesh, ok := FindMesh(doc); ok {
		if m.Mesh, err = ReadMesh(doc, mesh); err != nil {
			return nil, err
		}
		if m.Weights, err = ReadWeights(doc, mesh, sk, jm); err != nil {
			return nil, err
		}
	} else {
		log.Printf("[gltf] Model '%s' has no skinned mesh", name)
	}
	if m.Animations, err = ReadAnimations(doc, sk, jm); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// nodeLocal is the local matrix of a node, from Matrix when set, else TRS.
func nodeLocal(n *gltf.Node) mgl64.Mat4 {
	if n.Matrix != identity32 && n.Matrix != [16]float32{} {
		return utils.Mat4From32(n.Matrix)
	}
	return xform.Recompose(nodeTRS(n))
}

func nodeTRS(n *gltf.Node) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	if n.Matrix != identity32 && n.Matrix != [16]float32{} {
		return xform.Decompose(utils.Mat4From32(n.Matrix))
	}
	r := utils.QuatFrom32(n.Rotation)
	if r.Len() == 0 {
		r = mgl64.QuatIdent()
	}
	s := utils.Vec3From32(n.Scale)
	if n.Scale == [3]float32{} {
		s = mgl64.Vec3{1, 1, 1}
	}
	return utils.Vec3From32(n.Translation), r, s
}

// hierarchy is the parent link of every node.
type hierarchy struct {
	doc    *gltf.Document
	parent []int
	world  []*mgl64.Mat4
}

func newHierarchy(doc *gltf.Document) *hierarchy {
	h := &hierarchy{
		doc:    doc,
		parent: make([]int, len(doc.Nodes)),
		world:  make([]*mgl64.Mat4, len(doc.Nodes)),
	}
	for i := range h.parent {
		h.parent[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			h.parent[c] = i
		}
	}
	return h
}

func (h *hierarchy) roots() []uint32 {
	var roots []uint32
	for i, p := range h.parent {
		if p < 0 {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// World is the rest global matrix of a node.
func (h *hierarchy) World(node int) mgl64.Mat4 {
	if w := h.world[node]; w != nil {
		return *w
	}
	w := nodeLocal(h.doc.Nodes[node])
	if p := h.parent[node]; p >= 0 {
		w = xform.Compose(h.World(p), w)
	}
	h.world[node] = &w
	return w
}

// Between is the rest transform of the nodes strictly between ancestor and
// node, or of all ancestors of node when ancestor is -1.
func (h *hierarchy) Between(ancestor, node int) mgl64.Mat4 {
	m := mgl64.Ident4()
	for p := h.parent[node]; p >= 0 && p != ancestor; p = h.parent[p] {
		m = xform.Compose(nodeLocal(h.doc.Nodes[p]), m)
	}
	return m
}
