package skin

import (
	"fmt"
	"sort"

	"github.com/mogaika/skinpose/skeleton"
)

type VertexID int

// Weights is the skinning weight table. Absent pairs read as 0, and no
// normalization is applied to what the table returns.
type Weights interface {
	Weight(v VertexID, j skeleton.JointID) float64
}

type Influence struct {
	Joint  skeleton.JointID
	Weight float64
}

// InfluenceLister lets the skinner visit only the non-zero weights of a
// vertex instead of probing every joint.
type InfluenceLister interface {
	Influences(v VertexID) []Influence
}

// SparseWeights stores the influences of every vertex sorted by joint.
type SparseWeights struct {
	joints     int
	influences [][]Influence
}

func NewSparseWeights(vertices, joints int) *SparseWeights {
	return &SparseWeights{
		joints:     joints,
		influences: make([][]Influence, vertices),
	}
}

func (w *SparseWeights) VertexCount() int { return len(w.influences) }
func (w *SparseWeights) JointCount() int { return w.joints }

func (w *SparseWeights) check(v VertexID, j skeleton.JointID) {
	if v < 0 || int(v) >= len(w.influences) || j < 0 || int(j) >= w.joints {
		panic(fmt.Sprintf("skin: weight (%d,%d) out of range [%d,%d)", v, j, len(w.influences), w.joints))
	}
}

func (w *SparseWeights) find(v VertexID, j skeleton.JointID) int {
	inf := w.influences[v]
	return sort.Search(len(inf), func(i int) bool { return inf[i].Joint >= j })
}

// Set stores a weight, 0 removes the pair.
func (w *SparseWeights) Set(v VertexID, j skeleton.JointID, weight float64) {
	w.check(v, j)
	inf := w.influences[v]
	i := w.find(v, j)
	exists := i < len(inf) && inf[i].Joint == j
	switch {
	case weight == 0 && exists:
		w.influences[v] = append(inf[:i], inf[i+1:]...)
	case weight == 0:
	case exists:
		inf[i].Weight = weight
	default:
		inf = append(inf, Influence{})
		copy(inf[i+1:], inf[i:])
		inf[i] = Influence{Joint: j, Weight: weight}
		w.influences[v] = inf
	}
}

func (w *SparseWeights) Weight(v VertexID, j skeleton.JointID) float64 {
	w.check(v, j)
	inf := w.influences[v]
	if i := w.find(v, j); i < len(inf) && inf[i].Joint == j {
		return inf[i].Weight
	}
	return 0
}

func (w *SparseWeights) Influences(v VertexID) []Influence {
	return w.influences[v]
}

// Total is the weight sum of a vertex.
func (w *SparseWeights) Total(v VertexID) float64 {
	var sum float64
	for _, inf := range w.influences[v] {
		sum += inf.Weight
	}
	return sum
}

// JointVertices lists the vertices with a non-zero weight on joint j.
func (w *SparseWeights) JointVertices(j skeleton.JointID) []VertexID {
	var vs []VertexID
	for v := range w.influences {
		if w.Weight(VertexID(v), j) != 0 {
			vs = append(vs, VertexID(v))
		}
	}
	return vs
}
