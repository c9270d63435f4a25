package mesh

// MaxSubdivisions caps tessellation; each level quadruples the triangle count.
const MaxSubdivisions = 6

func clampSubdivisions(n uint32) uint32 {
	if n > MaxSubdivisions {
		return MaxSubdivisions
	}
	return n
}

// Subdivide splits every triangle into four through its edge midpoints.
// Vertices are not shared between triangles in the output.
//
//	      v1
//	      *
//	     / \
//	 m0 *---* m1
//	   / \ / \
//	  *---*---*
//	 v0   m2   v2
func Subdivide(in MeshData) MeshData {
	numTris := len(in.Indices32) / 3
	out := MeshData{
		Vertices:  make([]GenericVertex, 0, numTris*6),
		Indices32: make([]uint32, 0, numTris*12),
	}

	for i := 0; i < numTris; i++ {
		v0 := in.Vertices[in.Indices32[i*3+0]]
		v1 := in.Vertices[in.Indices32[i*3+1]]
		v2 := in.Vertices[in.Indices32[i*3+2]]

		m0 := MidPoint(v0, v1)
		m1 := MidPoint(v1, v2)
		m2 := MidPoint(v0, v2)

		out.Vertices = append(out.Vertices, v0, v1, v2, m0, m1, m2)

		base := uint32(i * 6)
		out.Indices32 = append(out.Indices32,
			base+0, base+3, base+5,
			base+3, base+4, base+5,
			base+5, base+4, base+2,
			base+3, base+1, base+4,
		)
	}
	return out
}

// MidPoint averages two vertices. Position and texture coordinates are plain
// means; normal and tangent are renormalized.
func MidPoint(a, b GenericVertex) GenericVertex {
	return GenericVertex{
		Position: a.Position.Add(b.Position).Mul(0.5),
		Normal:   normalize(a.Normal.Add(b.Normal).Mul(0.5)),
		TangentU: normalize(a.TangentU.Add(b.TangentU).Mul(0.5)),
		TexC:     a.TexC.Add(b.TexC).Mul(0.5),
	}
}
