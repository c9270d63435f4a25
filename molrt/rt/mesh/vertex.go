package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// GenericVertex is the layout every shape generator produces before it is
// converted to the mesh set's own vertex type.
type GenericVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TangentU mgl32.Vec3
	TexC     mgl32.Vec2
}

func NewGenericVertex(px, py, pz, nx, ny, nz, tx, ty, tz, u, v float32) GenericVertex {
	return GenericVertex{
		Position: mgl32.Vec3{px, py, pz},
		Normal:   mgl32.Vec3{nx, ny, nz},
		TangentU: mgl32.Vec3{tx, ty, tz},
		TexC:     mgl32.Vec2{u, v},
	}
}

// MeshData is generated geometry with 32-bit indices.
type MeshData struct {
	Vertices  []GenericVertex
	Indices32 []uint32
}

// Indices16 narrows the indices for a 16-bit index buffer. Geometry with more
// than 65536 vertices cannot be narrowed.
func (m *MeshData) Indices16() []uint16 {
	if len(m.Vertices) > 1<<16 {
		panic(fmt.Sprintf("mesh: %d vertices do not fit 16-bit indices", len(m.Vertices)))
	}
	out := make([]uint16, len(m.Indices32))
	for i, idx := range m.Indices32 {
		out[i] = uint16(idx)
	}
	return out
}

// MeshInstance addresses one mesh inside a MeshSet's shared buffers.
type MeshInstance struct {
	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}
