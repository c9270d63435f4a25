package mesh

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/google/uuid"
)

// VertexConversion maps generated vertices onto a pipeline's vertex type.
type VertexConversion[T any] func([]GenericVertex) []T

// BufferWriter is satisfied by both gpu.Device and gpu.Frame.
type BufferWriter interface {
	WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error
}

// MeshSet packs many meshes into one vertex buffer and one 16-bit index
// buffer. Geometry is appended until Finalize; afterwards only a dynamic
// set may rewrite its vertices, and only with the same count.
type MeshSet[T any] struct {
	ID      string
	label   string
	dynamic bool

	convert VertexConversion[T]

	vertices []T
	indices  []uint16

	finalized    bool
	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
}

func NewMeshSet[T any](label string, dynamic bool) *MeshSet[T] {
	return &MeshSet[T]{
		ID:      uuid.NewString(),
		label:   label,
		dynamic: dynamic,
	}
}

func (m *MeshSet[T]) SetVertexConversion(fn VertexConversion[T]) {
	m.convert = fn
}

func (m *MeshSet[T]) ensureMutable(op string) {
	if m.finalized {
		panic(fmt.Sprintf("mesh set %q: %s after Finalize", m.label, op))
	}
}

func (m *MeshSet[T]) ensureConversion(op string) {
	m.ensureMutable(op)
	if m.convert == nil {
		panic(fmt.Sprintf("mesh set %q: %s before SetVertexConversion", m.label, op))
	}
}

// AddMesh appends already converted geometry. Indices are relative to the
// first of the given vertices.
func (m *MeshSet[T]) AddMesh(vertices []T, indices []uint16) MeshInstance {
	m.ensureMutable("AddMesh")
	if len(vertices) == 0 || len(indices) == 0 {
		panic(fmt.Sprintf("mesh set %q: AddMesh with %d vertices and %d indices", m.label, len(vertices), len(indices)))
	}

	mi := MeshInstance{
		IndexCount:         uint32(len(indices)),
		StartIndexLocation: uint32(len(m.indices)),
		BaseVertexLocation: int32(len(m.vertices)),
	}
	m.vertices = append(m.vertices, vertices...)
	m.indices = append(m.indices, indices...)
	return mi
}

func (m *MeshSet[T]) addGenerated(md MeshData) MeshInstance {
	return m.AddMesh(m.convert(md.Vertices), md.Indices16())
}

// fit16 lowers a subdivision level until a mesh of baseTris triangles still
// has at most 65536 vertices after subdividing. Subdivide does not share
// vertices, so level n has 6*baseTris*4^(n-1) of them.
func fit16(baseTris int, subdivisions uint32) uint32 {
	n := clampSubdivisions(subdivisions)
	for n > 0 && 6*baseTris<<(2*(n-1)) > 1<<16 {
		n--
	}
	return n
}

// AddBox adds a subdivided box. Levels whose vertices would overflow 16-bit
// indices are lowered to the deepest one that fits (5 for a box).
func (m *MeshSet[T]) AddBox(width, height, depth float32, subdivisions uint32) MeshInstance {
	m.ensureConversion("AddBox")
	return m.addGenerated(Box(width, height, depth, fit16(12, subdivisions)))
}

// AddWireBox adds box edges for a line list pipeline.
func (m *MeshSet[T]) AddWireBox(width, height, depth float32) MeshInstance {
	m.ensureConversion("AddWireBox")
	return m.addGenerated(WireBox(width, height, depth))
}

func (m *MeshSet[T]) AddSphere(radius float32, slices, stacks uint32) MeshInstance {
	m.ensureConversion("AddSphere")
	return m.addGenerated(Sphere(radius, slices, stacks))
}

// AddGeosphere adds a geosphere, lowering the level like AddBox.
func (m *MeshSet[T]) AddGeosphere(radius float32, subdivisions uint32) MeshInstance {
	m.ensureConversion("AddGeosphere")
	return m.addGenerated(Geosphere(radius, fit16(20, subdivisions)))
}

func (m *MeshSet[T]) AddCylinder(bottomRadius, topRadius, height float32, slices, stacks uint32) MeshInstance {
	m.ensureConversion("AddCylinder")
	return m.addGenerated(Cylinder(bottomRadius, topRadius, height, slices, stacks))
}

func (m *MeshSet[T]) AddGrid(width, depth float32, rows, cols uint32) MeshInstance {
	m.ensureConversion("AddGrid")
	return m.addGenerated(Grid(width, depth, rows, cols))
}

func (m *MeshSet[T]) AddQuad(x, y, w, h, depth float32) MeshInstance {
	m.ensureConversion("AddQuad")
	return m.addGenerated(Quad(x, y, w, h, depth))
}

func (m *MeshSet[T]) encodeVertices() ([]byte, error) {
	data, err := binary.Append(nil, binary.LittleEndian, m.vertices)
	if err != nil {
		return nil, fmt.Errorf("mesh set %q: encode vertices: %w", m.label, err)
	}
	return data, nil
}

func (m *MeshSet[T]) encodeIndices() []byte {
	// Buffer sizes must stay 4-byte aligned; an odd count gets one pad index.
	n := len(m.indices)
	if n%2 != 0 {
		n++
	}
	data := make([]byte, n*2)
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint16(data[i*2:], idx)
	}
	return data
}

// Finalize uploads the accumulated geometry. It may be called once.
func (m *MeshSet[T]) Finalize(device gpu.Device) error {
	m.ensureMutable("Finalize")
	if len(m.vertices) == 0 {
		panic(fmt.Sprintf("mesh set %q: Finalize with no geometry", m.label))
	}

	vdata, err := m.encodeVertices()
	if err != nil {
		return err
	}

	usage := gpu.BufferUsageVertex
	if m.dynamic {
		usage |= gpu.BufferUsageCopyDst
	}
	vb, err := device.CreateBufferInit(m.label+"Vertices", vdata, usage)
	if err != nil {
		return fmt.Errorf("mesh set %q: vertex buffer: %w", m.label, err)
	}
	ib, err := device.CreateBufferInit(m.label+"Indices", m.encodeIndices(), gpu.BufferUsageIndex)
	if err != nil {
		vb.Release()
		return fmt.Errorf("mesh set %q: index buffer: %w", m.label, err)
	}

	m.vertexBuffer = vb
	m.indexBuffer = ib
	m.finalized = true
	return nil
}

// BindToIA binds the vertex buffer to slot 0 and the 16-bit index buffer.
func (m *MeshSet[T]) BindToIA(frame gpu.Frame) {
	if !m.finalized {
		panic(fmt.Sprintf("mesh set %q: BindToIA before Finalize", m.label))
	}
	frame.SetVertexBuffer(0, m.vertexBuffer)
	frame.SetIndexBuffer(m.indexBuffer, gpu.IndexFormatUint16)
}

// UpdateVertices replaces every vertex of a finalized dynamic set. The new
// slice must have exactly the current vertex count.
func (m *MeshSet[T]) UpdateVertices(w BufferWriter, vertices []T) error {
	if !m.dynamic {
		panic(fmt.Sprintf("mesh set %q: UpdateVertices on a static set", m.label))
	}
	if !m.finalized {
		panic(fmt.Sprintf("mesh set %q: UpdateVertices before Finalize", m.label))
	}
	if len(vertices) != len(m.vertices) {
		panic(fmt.Sprintf("mesh set %q: UpdateVertices with %d vertices, have %d", m.label, len(vertices), len(m.vertices)))
	}

	m.vertices = append(m.vertices[:0], vertices...)
	data, err := m.encodeVertices()
	if err != nil {
		return err
	}
	return w.WriteBuffer(m.vertexBuffer, 0, data)
}

func (m *MeshSet[T]) Label() string            { return m.label }
func (m *MeshSet[T]) Dynamic() bool            { return m.dynamic }
func (m *MeshSet[T]) Finalized() bool          { return m.finalized }
func (m *MeshSet[T]) VertexCount() int         { return len(m.vertices) }
func (m *MeshSet[T]) IndexCount() int          { return len(m.indices) }
func (m *MeshSet[T]) Vertices() []T            { return m.vertices }
func (m *MeshSet[T]) Indices() []uint16        { return m.indices }
func (m *MeshSet[T]) VertexBuffer() gpu.Buffer { return m.vertexBuffer }
func (m *MeshSet[T]) IndexBuffer() gpu.Buffer  { return m.indexBuffer }

func (m *MeshSet[T]) Release() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}
