package gltfio

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/skinpose/opt"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/xform"
)

// JointMap links glTF node indices to engine joints.
type JointMap map[uint32]skeleton.JointID

// Node returns the node of joint j, false when it has none.
func (jm JointMap) Node(j skeleton.JointID) (uint32, bool) {
	for n, id := range jm {
		if id == j {
			return n, true
		}
	}
	return 0, false
}

// ReadSkeleton builds the skeleton of the first skin. Joints keep the skin
// joint order when every joint comes after its parent joint, as Export
// writes them. Otherwise they are numbered in pre-order of the node tree,
// children in node child order. Bind poses are the inverted inverse bind
// matrices, or the rest world matrices of the nodes when the skin has none.
func ReadSkeleton(doc *gltf.Document) (*skeleton.Skeleton, JointMap, error) {
	if len(doc.Skins) == 0 {
		return nil, nil, errors.Errorf("Document has no skins")
	}
	if len(doc.Skins) > 1 {
		log.Printf("[gltf] %d skins in document, using the first one", len(doc.Skins))
	}
	gskin := doc.Skins[0]

	skinIndex := make(map[uint32]int, len(gskin.Joints))
	for i, n := range gskin.Joints {
		if int(n) >= len(doc.Nodes) {
			return nil, nil, errors.Errorf("Skin joint %d references missing node %d", i, n)
		}
		skinIndex[n] = i
	}

	var ibms [][4][4]float32
	if gskin.InverseBindMatrices != nil {
		data, err := modeler.ReadAccessor(doc, doc.Accessors[*gskin.InverseBindMatrices], nil)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Failed to read inverse bind matrices")
		}
		var ok bool
		if ibms, ok = data.([][4][4]float32); !ok || len(ibms) < len(gskin.Joints) {
			return nil, nil, errors.Errorf("Inverse bind matrices accessor has %T of wrong size", data)
		}
	}

	h := newHierarchy(doc)
	names := utils.NewNameGenerator(0)
	sk := skeleton.New()
	jm := make(JointMap, len(gskin.Joints))

	bindOf := func(k int, node uint32) mgl64.Mat4 {
		if ibms != nil {
			return xform.Inverse(utils.Mat4From44(ibms[k]))
		}
		return h.World(int(node))
	}
	add := func(k int, node uint32, parent skeleton.Ref) skeleton.JointID {
		name := names.Unique(doc.Nodes[node].Name)
		var id skeleton.JointID
		if p, ok := parent.Get(); ok {
			id = sk.AddChild(p, bindOf(k, node), name)
		} else {
			id = sk.AddRoot(bindOf(k, node), name)
		}
		jm[node] = id
		return id
	}

	if parents, ok := skinParents(h, gskin.Joints, skinIndex); ok {
		for k, node := range gskin.Joints {
			parent := skeleton.NoJoint()
			if p := parents[k]; p >= 0 {
				parent = opt.Of(skeleton.JointID(p))
			}
			add(k, node, parent)
		}
		return sk, jm, nil
	}

	type item struct {
		node   uint32
		parent skeleton.Ref
	}
	roots := h.roots()
	stack := make([]item, 0, len(doc.Nodes))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: roots[i], parent: skeleton.NoJoint()})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parent := it.parent
		if k, isJoint := skinIndex[it.node]; isJoint {
			parent = opt.Of(add(k, it.node, parent))
		}

		children := doc.Nodes[it.node].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: children[i], parent: parent})
		}
	}

	if len(jm) != len(gskin.Joints) {
		return nil, nil, errors.Errorf("Skin joints form a cycle: %d of %d reached", len(jm), len(gskin.Joints))
	}
	return sk, jm, nil
}

// skinParents finds the skin index of the nearest joint ancestor of every
// skin joint, -1 for none. ok is false unless each parent precedes its child
// and no node is listed twice.
func skinParents(h *hierarchy, joints []uint32, skinIndex map[uint32]int) ([]int, bool) {
	if len(skinIndex) != len(joints) {
		return nil, false
	}
	parents := make([]int, len(joints))
	for k, node := range joints {
		parents[k] = -1
		for p, steps := h.parent[node], 0; p >= 0; p, steps = h.parent[p], steps+1 {
			if steps > len(h.parent) {
				return nil, false
			}
			if pk, ok := skinIndex[uint32(p)]; ok {
				if pk >= k {
					return nil, false
				}
				parents[k] = pk
				break
			}
		}
	}
	return parents, true
}

// MapJoints matches the nodes of a document to skeleton joints by name, for
// component files loaded apart from the skeleton.
func MapJoints(doc *gltf.Document, sk *skeleton.Skeleton) JointMap {
	jm := make(JointMap)
	for i, n := range doc.Nodes {
		if n.Name == "" {
			continue
		}
		if j, ok := sk.FindByName(n.Name).Get(); ok {
			jm[uint32(i)] = j
		}
	}
	return jm
}

// parentNodes finds, for every mapped joint, the node of its engine parent,
// -1 for roots or parents missing from the document.
func parentNodes(sk *skeleton.Skeleton, jm JointMap) map[skeleton.JointID]int {
	nodeOf := make(map[skeleton.JointID]int, len(jm))
	for n, j := range jm {
		nodeOf[j] = int(n)
	}
	parents := make(map[skeleton.JointID]int, len(jm))
	for _, j := range jm {
		parents[j] = -1
		if p, ok := sk.Parent(j).Get(); ok {
			if n, ok := nodeOf[p]; ok {
				parents[j] = n
			}
		}
	}
	return parents
}
