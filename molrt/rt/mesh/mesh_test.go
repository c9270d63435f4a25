package mesh

import (
	"encoding/binary"
	"testing"

	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

func toTestVertices(in []GenericVertex) []testVertex {
	out := make([]testVertex, len(in))
	for i, v := range in {
		out[i] = testVertex{Position: v.Position, Normal: v.Normal}
	}
	return out
}

func newTestSet(dynamic bool) *MeshSet[testVertex] {
	ms := NewMeshSet[testVertex]("Test", dynamic)
	ms.SetVertexConversion(toTestVertices)
	return ms
}

func TestSubdivide_SingleTriangle(t *testing.T) {
	v0 := NewGenericVertex(0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0)
	v1 := NewGenericVertex(2, 4, 0, 0, 1, 0, 1, 0, 0, 0, 1)
	v2 := NewGenericVertex(6, 0, 2, 1, 0, 0, 0, 1, 0, 1, 1)

	out := Subdivide(MeshData{Vertices: []GenericVertex{v0, v1, v2}, Indices32: []uint32{0, 1, 2}})

	require.Len(t, out.Vertices, 6)
	require.Len(t, out.Indices32, 12)

	mean := func(a, b GenericVertex) mgl32.Vec3 { return a.Position.Add(b.Position).Mul(0.5) }
	assert.Equal(t, mean(v0, v1), out.Vertices[3].Position)
	assert.Equal(t, mean(v1, v2), out.Vertices[4].Position)
	assert.Equal(t, mean(v0, v2), out.Vertices[5].Position)

	assert.InDelta(t, 1.0, out.Vertices[3].Normal.Len(), 1e-6)
	assert.Equal(t, mgl32.Vec2{0, 0.5}, out.Vertices[3].TexC)
	assert.Equal(t, []uint32{0, 3, 5, 3, 4, 5, 5, 4, 2, 3, 1, 4}, out.Indices32)
}

func TestMidPoint_ZeroNormalsStayZero(t *testing.T) {
	m := MidPoint(GenericVertex{Position: mgl32.Vec3{1, 0, 0}}, GenericVertex{Position: mgl32.Vec3{0, 1, 0}})
	assert.Equal(t, mgl32.Vec3{}, m.Normal)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0}, m.Position)
}

func TestBox_CountsAndCap(t *testing.T) {
	b := Box(1, 2, 3, 0)
	assert.Len(t, b.Vertices, 24)
	assert.Len(t, b.Indices32, 36)
	assert.Equal(t, mgl32.Vec3{-0.5, -1, -1.5}, b.Vertices[0].Position)

	b1 := Box(1, 1, 1, 1)
	assert.Len(t, b1.Vertices, 72)
	assert.Len(t, b1.Indices32, 144)

	assert.Equal(t, len(Box(1, 1, 1, 6).Vertices), len(Box(1, 1, 1, 9).Vertices))
}

func TestWireBox_Edges(t *testing.T) {
	w := WireBox(2, 4, 6)
	require.Len(t, w.Vertices, 8)
	require.Len(t, w.Indices32, 24)

	for i := 0; i < len(w.Indices32); i += 2 {
		a := w.Vertices[w.Indices32[i]].Position
		b := w.Vertices[w.Indices32[i+1]].Position
		diff := 0
		for axis := 0; axis < 3; axis++ {
			if a[axis] != b[axis] {
				diff++
			}
		}
		assert.Equal(t, 1, diff, "edge %d must run along one axis", i/2)
	}
}

func TestSphere_Counts(t *testing.T) {
	const slices, stacks = 20, 20
	s := Sphere(0.5, slices, stacks)
	assert.Len(t, s.Vertices, 2+(stacks-1)*(slices+1))
	assert.Len(t, s.Indices32, 6*slices*(stacks-1))

	for _, v := range s.Vertices {
		assert.InDelta(t, 0.5, v.Position.Len(), 1e-5)
	}
	assert.Panics(t, func() { Sphere(1, 2, 10) })
}

func TestGeosphere_OnSphere(t *testing.T) {
	g := Geosphere(2, 0)
	assert.Len(t, g.Vertices, 12)
	assert.Len(t, g.Indices32, 60)

	g2 := Geosphere(2, 2)
	assert.Len(t, g2.Indices32, 60*16)
	for _, v := range g2.Vertices {
		assert.InDelta(t, 2, v.Position.Len(), 1e-4)
		assert.InDelta(t, 1, v.Normal.Len(), 1e-4)
	}
}

func TestCylinder_Counts(t *testing.T) {
	const slices, stacks = 8, 3
	c := Cylinder(1, 0.5, 2, slices, stacks)
	assert.Len(t, c.Vertices, (stacks+1)*(slices+1)+2*(slices+2))
	assert.Len(t, c.Indices32, 6*slices*stacks+6*slices)

	top := c.Vertices[len(c.Vertices)-(slices+2)-1]
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, top.Position)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, top.Normal)
	bottom := c.Vertices[len(c.Vertices)-1]
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, bottom.Position)
}

func TestGridAndQuad(t *testing.T) {
	g := Grid(4, 2, 3, 5)
	assert.Len(t, g.Vertices, 15)
	assert.Len(t, g.Indices32, 6*2*4)
	assert.Equal(t, mgl32.Vec3{-2, 0, 1}, g.Vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{2, 0, -1}, g.Vertices[14].Position)
	assert.Panics(t, func() { Grid(1, 1, 1, 4) })

	q := Quad(-1, 1, 2, 2, 0)
	assert.Len(t, q.Vertices, 4)
	assert.Equal(t, mgl32.Vec3{-1, -1, 0}, q.Vertices[0].Position)
}

func TestMeshSet_Preconditions(t *testing.T) {
	ms := NewMeshSet[testVertex]("NoConversion", false)
	assert.Panics(t, func() { ms.AddSphere(1, 8, 8) })

	ms = newTestSet(false)
	assert.Panics(t, func() { ms.BindToIA(nil) })
	assert.Panics(t, func() { ms.AddMesh(nil, []uint16{0}) })

	ms.AddBox(1, 1, 1, 0)
	rec := gpu.NewRecorder(16, 16)
	require.NoError(t, ms.Finalize(rec))

	assert.Panics(t, func() { _ = ms.Finalize(rec) })
	assert.Panics(t, func() { ms.AddBox(1, 1, 1, 0) })
	assert.Panics(t, func() { _ = ms.UpdateVertices(rec, ms.Vertices()) })
}

func TestMeshSet_AddMeshOffsets(t *testing.T) {
	ms := newTestSet(false)
	box := ms.AddBox(1, 1, 1, 0)
	sphere := ms.AddSphere(1, 10, 10)

	assert.Equal(t, MeshInstance{IndexCount: 36, StartIndexLocation: 0, BaseVertexLocation: 0}, box)
	assert.Equal(t, uint32(36), sphere.StartIndexLocation)
	assert.Equal(t, int32(24), sphere.BaseVertexLocation)
	assert.Equal(t, uint32(6*10*9), sphere.IndexCount)
	assert.NotEmpty(t, ms.ID)
}

func TestMeshSet_FinalizeRoundTrip(t *testing.T) {
	ms := newTestSet(false)
	verts := []testVertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}
	mi := ms.AddMesh(verts, []uint16{0, 1, 2})

	rec := gpu.NewRecorder(16, 16)
	require.NoError(t, ms.Finalize(rec))
	assert.True(t, ms.Finalized())
	assert.Equal(t, 3, ms.VertexCount())
	assert.Equal(t, 3, ms.IndexCount())
	assert.Equal(t, uint32(3), mi.IndexCount)

	vb := ms.VertexBuffer().(*gpu.RecordedBuffer)
	assert.Equal(t, uint64(3*24), vb.Size())
	ib := ms.IndexBuffer().(*gpu.RecordedBuffer)
	require.Equal(t, uint64(8), ib.Size(), "odd index count is padded to 4 bytes")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(ib.Bytes()[4:]))

	frame, err := rec.BeginFrame([4]float64{})
	require.NoError(t, err)
	ms.BindToIA(frame)
	assert.Equal(t, "SetVertexBuffer", rec.Calls[1].Op)
	assert.Equal(t, uint32(0), rec.Calls[1].Slot)
	assert.Equal(t, "SetIndexBuffer", rec.Calls[2].Op)
	assert.Equal(t, uint32(gpu.IndexFormatUint16), rec.Calls[2].Slot)
}

func TestMeshSet_SubdivisionFits16BitIndices(t *testing.T) {
	ms := newTestSet(false)

	box := ms.AddBox(1, 1, 1, MaxSubdivisions)
	assert.Equal(t, uint32(len(Box(1, 1, 1, 5).Indices32)), box.IndexCount)
	assert.Equal(t, 18432, ms.VertexCount())

	var geo MeshInstance
	require.NotPanics(t, func() { geo = ms.AddGeosphere(1, MaxSubdivisions) })
	assert.Equal(t, uint32(len(Geosphere(1, 5).Indices32)), geo.IndexCount)
	assert.Equal(t, int32(18432), geo.BaseVertexLocation)

	small := ms.AddBox(1, 1, 1, 2)
	assert.Equal(t, uint32(len(Box(1, 1, 1, 2).Indices32)), small.IndexCount, "levels that fit are kept")

	assert.Panics(t, func() {
		md := Box(1, 1, 1, MaxSubdivisions)
		md.Indices16()
	})
}

func TestMeshSet_UpdateVertices(t *testing.T) {
	ms := newTestSet(true)
	ms.AddQuad(0, 0, 1, 1, 0)
	rec := gpu.NewRecorder(16, 16)
	require.NoError(t, ms.Finalize(rec))

	moved := append([]testVertex(nil), ms.Vertices()...)
	for i := range moved {
		moved[i].Position = moved[i].Position.Add(mgl32.Vec3{0, 0, 5})
	}
	require.NoError(t, ms.UpdateVertices(rec, moved))
	assert.Equal(t, float32(5), ms.Vertices()[0].Position.Z())

	assert.Panics(t, func() { _ = ms.UpdateVertices(rec, moved[:2]) })
}
