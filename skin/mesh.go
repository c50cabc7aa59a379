package skin

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is the vertex storage the skinner reads. Ids are dense and match the
// first dimension of the weight table.
type Mesh interface {
	VertexCount() int
	VertexPoint(v VertexID) mgl64.Vec3
	VertexNormal(v VertexID) mgl64.Vec3
}

type MutableMesh interface {
	Mesh
	SetVertexPoint(v VertexID, p mgl64.Vec3)
	SetVertexNormal(v VertexID, n mgl64.Vec3)
}

// VertexBuffer is a plain MutableMesh with optional triangle indices, used by
// the interchange code and the CLI.
type VertexBuffer struct {
	Points  []mgl64.Vec3
	Normals []mgl64.Vec3
	Indices []uint32
}

func NewVertexBuffer(vertices int) *VertexBuffer {
	return &VertexBuffer{
		Points:  make([]mgl64.Vec3, vertices),
		Normals: make([]mgl64.Vec3, vertices),
	}
}

func (b *VertexBuffer) VertexCount() int { return len(b.Points) }
func (b *VertexBuffer) VertexPoint(v VertexID) mgl64.Vec3 { return b.Points[v] }
func (b *VertexBuffer) SetVertexPoint(v VertexID, p mgl64.Vec3) { b.Points[v] = p }

func (b *VertexBuffer) VertexNormal(v VertexID) mgl64.Vec3 {
	if b.Normals == nil {
		return mgl64.Vec3{}
	}
	return b.Normals[v]
}

func (b *VertexBuffer) SetVertexNormal(v VertexID, n mgl64.Vec3) {
	if b.Normals != nil {
		b.Normals[v] = n
	}
}

// Clone copies points, normals and indices.
func (b *VertexBuffer) Clone() *VertexBuffer {
	c := &VertexBuffer{
		Points:  append([]mgl64.Vec3(nil), b.Points...),
		Indices: append([]uint32(nil), b.Indices...),
	}
	if b.Normals != nil {
		c.Normals = append([]mgl64.Vec3(nil), b.Normals...)
	}
	return c
}
