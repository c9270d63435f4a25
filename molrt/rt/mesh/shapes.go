package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// normalize returns the zero vector for zero-length input instead of NaNs.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

// Box builds an axis-aligned box centred at the origin with four vertices per
// face so each face gets its own normal and texture coordinates.
func Box(width, height, depth float32, subdivisions uint32) MeshData {
	w2 := 0.5 * width
	h2 := 0.5 * height
	d2 := 0.5 * depth

	v := []GenericVertex{
		// front
		NewGenericVertex(-w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 0, 1),
		NewGenericVertex(-w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 0, 0),
		NewGenericVertex(+w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 1, 0),
		NewGenericVertex(+w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 1, 1),
		// back
		NewGenericVertex(-w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 1, 1),
		NewGenericVertex(+w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 0, 1),
		NewGenericVertex(+w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 0, 0),
		NewGenericVertex(-w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 1, 0),
		// top
		NewGenericVertex(-w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 0, 1),
		NewGenericVertex(-w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 0, 0),
		NewGenericVertex(+w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 1, 0),
		NewGenericVertex(+w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 1, 1),
		// bottom
		NewGenericVertex(-w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 1, 1),
		NewGenericVertex(+w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 0, 1),
		NewGenericVertex(+w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 0, 0),
		NewGenericVertex(-w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 1, 0),
		// left
		NewGenericVertex(-w2, -h2, +d2, -1, 0, 0, 0, 0, -1, 0, 1),
		NewGenericVertex(-w2, +h2, +d2, -1, 0, 0, 0, 0, -1, 0, 0),
		NewGenericVertex(-w2, +h2, -d2, -1, 0, 0, 0, 0, -1, 1, 0),
		NewGenericVertex(-w2, -h2, -d2, -1, 0, 0, 0, 0, -1, 1, 1),
		// right
		NewGenericVertex(+w2, -h2, -d2, 1, 0, 0, 0, 0, 1, 0, 1),
		NewGenericVertex(+w2, +h2, -d2, 1, 0, 0, 0, 0, 1, 0, 0),
		NewGenericVertex(+w2, +h2, +d2, 1, 0, 0, 0, 0, 1, 1, 0),
		NewGenericVertex(+w2, -h2, +d2, 1, 0, 0, 0, 0, 1, 1, 1),
	}

	idx := make([]uint32, 0, 36)
	for face := uint32(0); face < 6; face++ {
		b := face * 4
		idx = append(idx, b, b+1, b+2, b, b+2, b+3)
	}

	md := MeshData{Vertices: v, Indices32: idx}
	for i := uint32(0); i < clampSubdivisions(subdivisions); i++ {
		md = Subdivide(md)
	}
	return md
}

// WireBox builds the twelve edges of a box as a line list over its eight
// corners. Normals point away from the centre.
func WireBox(width, height, depth float32) MeshData {
	w2 := 0.5 * width
	h2 := 0.5 * height
	d2 := 0.5 * depth

	md := MeshData{Vertices: make([]GenericVertex, 0, 8)}
	for i := 0; i < 8; i++ {
		p := mgl32.Vec3{-w2, -h2, -d2}
		if i&1 != 0 {
			p[0] = w2
		}
		if i&2 != 0 {
			p[1] = h2
		}
		if i&4 != 0 {
			p[2] = d2
		}
		md.Vertices = append(md.Vertices, GenericVertex{Position: p, Normal: normalize(p)})
	}

	// Corners whose index differs in exactly one bit share an edge.
	for i := uint32(0); i < 8; i++ {
		for bit := uint32(1); bit < 8; bit <<= 1 {
			if i&bit == 0 {
				md.Indices32 = append(md.Indices32, i, i|bit)
			}
		}
	}
	return md
}

// Sphere builds a UV sphere from the top pole down through stacks-1 rings.
// Ring vertices repeat the seam so texture coordinates stay continuous.
func Sphere(radius float32, slices, stacks uint32) MeshData {
	if slices < 3 || stacks < 2 {
		panic(fmt.Sprintf("mesh: sphere needs slices >= 3 and stacks >= 2, got %d x %d", slices, stacks))
	}

	var md MeshData
	md.Vertices = append(md.Vertices, NewGenericVertex(0, radius, 0, 0, 1, 0, 1, 0, 0, 0, 0))

	phiStep := float32(math.Pi) / float32(stacks)
	thetaStep := 2 * float32(math.Pi) / float32(slices)

	for i := uint32(1); i <= stacks-1; i++ {
		phi := float32(i) * phiStep
		sp, cp := sincos(phi)

		for j := uint32(0); j <= slices; j++ {
			theta := float32(j) * thetaStep
			st, ct := sincos(theta)

			var v GenericVertex
			v.Position = mgl32.Vec3{radius * sp * ct, radius * cp, radius * sp * st}
			// dP/dtheta
			v.TangentU = normalize(mgl32.Vec3{-radius * sp * st, 0, radius * sp * ct})
			v.Normal = normalize(v.Position)
			v.TexC = mgl32.Vec2{theta / (2 * math.Pi), phi / math.Pi}

			md.Vertices = append(md.Vertices, v)
		}
	}

	md.Vertices = append(md.Vertices, NewGenericVertex(0, -radius, 0, 0, -1, 0, 1, 0, 0, 0, 1))

	// Top cap fans out from the north pole.
	for i := uint32(1); i <= slices; i++ {
		md.Indices32 = append(md.Indices32, 0, i+1, i)
	}

	base := uint32(1)
	ring := slices + 1
	for i := uint32(0); i < stacks-2; i++ {
		for j := uint32(0); j < slices; j++ {
			md.Indices32 = append(md.Indices32,
				base+i*ring+j,
				base+i*ring+j+1,
				base+(i+1)*ring+j,

				base+(i+1)*ring+j,
				base+i*ring+j+1,
				base+(i+1)*ring+j+1,
			)
		}
	}

	south := uint32(len(md.Vertices) - 1)
	base = south - ring
	for i := uint32(0); i < slices; i++ {
		md.Indices32 = append(md.Indices32, south, base+i, base+i+1)
	}
	return md
}

// Geosphere tessellates an icosahedron and projects it onto the sphere, which
// gives more even triangles than Sphere.
func Geosphere(radius float32, subdivisions uint32) MeshData {
	const x = 0.525731
	const z = 0.850651

	pos := [12]mgl32.Vec3{
		{-x, 0, z}, {x, 0, z},
		{-x, 0, -z}, {x, 0, -z},
		{0, z, x}, {0, z, -x},
		{0, -z, x}, {0, -z, -x},
		{z, x, 0}, {-z, x, 0},
		{z, -x, 0}, {-z, -x, 0},
	}

	md := MeshData{
		Vertices: make([]GenericVertex, 12),
		Indices32: []uint32{
			1, 4, 0, 4, 9, 0, 4, 5, 9, 8, 5, 4, 1, 8, 4,
			1, 10, 8, 10, 3, 8, 8, 3, 5, 3, 2, 5, 3, 7, 2,
			3, 10, 7, 10, 6, 7, 6, 11, 7, 6, 0, 11, 6, 1, 0,
			10, 1, 6, 11, 0, 9, 2, 11, 9, 5, 2, 9, 11, 2, 7,
		},
	}
	for i := range pos {
		md.Vertices[i].Position = pos[i]
	}

	for i := uint32(0); i < clampSubdivisions(subdivisions); i++ {
		md = Subdivide(md)
	}

	for i := range md.Vertices {
		v := &md.Vertices[i]
		n := normalize(v.Position)
		v.Position = n.Mul(radius)
		v.Normal = n

		theta := float32(math.Atan2(float64(v.Position.Z()), float64(v.Position.X())))
		if theta < 0 {
			theta += 2 * math.Pi
		}
		phi := float32(math.Acos(float64(mgl32.Clamp(v.Position.Y()/radius, -1, 1))))

		v.TexC = mgl32.Vec2{theta / (2 * math.Pi), phi / math.Pi}

		sp := float32(math.Sin(float64(phi)))
		st, ct := sincos(theta)
		v.TangentU = normalize(mgl32.Vec3{-radius * sp * st, 0, radius * sp * ct})
	}
	return md
}

// Cylinder builds a (possibly tapered) cylinder along Y centred at the origin,
// with stacks+1 rings and separate fans for the caps.
func Cylinder(bottomRadius, topRadius, height float32, slices, stacks uint32) MeshData {
	if slices < 3 || stacks < 1 {
		panic(fmt.Sprintf("mesh: cylinder needs slices >= 3 and stacks >= 1, got %d x %d", slices, stacks))
	}

	var md MeshData

	stackHeight := height / float32(stacks)
	radiusStep := (topRadius - bottomRadius) / float32(stacks)
	dTheta := 2 * float32(math.Pi) / float32(slices)
	dr := bottomRadius - topRadius

	for i := uint32(0); i <= stacks; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep

		for j := uint32(0); j <= slices; j++ {
			s, c := sincos(float32(j) * dTheta)

			var v GenericVertex
			v.Position = mgl32.Vec3{r * c, y, r * s}
			v.TexC = mgl32.Vec2{float32(j) / float32(slices), 1 - float32(i)/float32(stacks)}

			// TangentU is unit length; the bitangent follows v downwards.
			v.TangentU = mgl32.Vec3{-s, 0, c}
			bitangent := mgl32.Vec3{dr * c, -height, dr * s}
			v.Normal = normalize(v.TangentU.Cross(bitangent))

			md.Vertices = append(md.Vertices, v)
		}
	}

	ring := slices + 1
	for i := uint32(0); i < stacks; i++ {
		for j := uint32(0); j < slices; j++ {
			md.Indices32 = append(md.Indices32,
				i*ring+j,
				(i+1)*ring+j,
				(i+1)*ring+j+1,

				i*ring+j,
				(i+1)*ring+j+1,
				i*ring+j+1,
			)
		}
	}

	cylinderCap(&md, topRadius, height, slices, true)
	cylinderCap(&md, bottomRadius, height, slices, false)
	return md
}

func cylinderCap(md *MeshData, radius, height float32, slices uint32, top bool) {
	base := uint32(len(md.Vertices))

	y, ny := 0.5*height, float32(1)
	if !top {
		y, ny = -y, -1
	}
	dTheta := 2 * float32(math.Pi) / float32(slices)

	// Ring vertices are duplicated from the side because normals and
	// texture coordinates differ.
	for i := uint32(0); i <= slices; i++ {
		s, c := sincos(float32(i) * dTheta)
		x := radius * c
		z := radius * s

		// Scale by height so cap texture area tracks the base.
		u := x/height + 0.5
		v := z/height + 0.5

		md.Vertices = append(md.Vertices, NewGenericVertex(x, y, z, 0, ny, 0, 1, 0, 0, u, v))
	}
	md.Vertices = append(md.Vertices, NewGenericVertex(0, y, 0, 0, ny, 0, 1, 0, 0, 0.5, 0.5))
	center := uint32(len(md.Vertices) - 1)

	for i := uint32(0); i < slices; i++ {
		if top {
			md.Indices32 = append(md.Indices32, center, base+i+1, base+i)
		} else {
			md.Indices32 = append(md.Indices32, center, base+i, base+i+1)
		}
	}
}

// Grid builds an m x n vertex grid in the XZ plane.
func Grid(width, depth float32, m, n uint32) MeshData {
	if m < 2 || n < 2 {
		panic(fmt.Sprintf("mesh: grid needs at least 2 x 2 vertices, got %d x %d", m, n))
	}

	halfWidth := 0.5 * width
	halfDepth := 0.5 * depth

	dx := width / float32(n-1)
	dz := depth / float32(m-1)
	du := 1 / float32(n-1)
	dv := 1 / float32(m-1)

	md := MeshData{
		Vertices:  make([]GenericVertex, m*n),
		Indices32: make([]uint32, 0, (m-1)*(n-1)*6),
	}
	for i := uint32(0); i < m; i++ {
		z := halfDepth - float32(i)*dz
		for j := uint32(0); j < n; j++ {
			x := -halfWidth + float32(j)*dx
			md.Vertices[i*n+j] = GenericVertex{
				Position: mgl32.Vec3{x, 0, z},
				Normal:   mgl32.Vec3{0, 1, 0},
				TangentU: mgl32.Vec3{1, 0, 0},
				TexC:     mgl32.Vec2{float32(j) * du, float32(i) * dv},
			}
		}
	}

	for i := uint32(0); i < m-1; i++ {
		for j := uint32(0); j < n-1; j++ {
			md.Indices32 = append(md.Indices32,
				i*n+j, i*n+j+1, (i+1)*n+j,
				(i+1)*n+j, i*n+j+1, (i+1)*n+j+1,
			)
		}
	}
	return md
}

// Quad builds a screen-aligned quad with its top-left corner at (x, y) in
// normalized device coordinates.
func Quad(x, y, w, h, depth float32) MeshData {
	return MeshData{
		Vertices: []GenericVertex{
			NewGenericVertex(x, y-h, depth, 0, 0, -1, 1, 0, 0, 0, 1),
			NewGenericVertex(x, y, depth, 0, 0, -1, 1, 0, 0, 0, 0),
			NewGenericVertex(x+w, y, depth, 0, 0, -1, 1, 0, 0, 1, 0),
			NewGenericVertex(x+w, y-h, depth, 0, 0, -1, 1, 0, 0, 1, 1),
		},
		Indices32: []uint32{0, 1, 2, 0, 2, 3},
	}
}
