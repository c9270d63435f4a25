package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialSize is the byte size of one packed Material.
const MaterialSize = 32

type Material struct {
	DiffuseAlbedo mgl32.Vec4
	FresnelR0     mgl32.Vec3
	Shininess     float32
}

func NewMaterial(albedo mgl32.Vec4) Material {
	return Material{
		DiffuseAlbedo: albedo,
		FresnelR0:     mgl32.Vec3{0.01, 0.01, 0.01},
		Shininess:     0.75,
	}
}

// Helper for default white
func DefaultMaterial() Material {
	return NewMaterial(mgl32.Vec4{1, 1, 1, 1})
}

// ElementMaterials holds one material per element, Hydrogen first.
// Colours follow the usual CPK convention.
func ElementMaterials() []Material {
	return []Material{
		NewMaterial(mgl32.Vec4{1.00, 1.00, 1.00, 1}), // H
		NewMaterial(mgl32.Vec4{0.85, 1.00, 1.00, 1}), // He
		NewMaterial(mgl32.Vec4{0.80, 0.50, 1.00, 1}), // Li
		NewMaterial(mgl32.Vec4{0.76, 1.00, 0.00, 1}), // Be
		NewMaterial(mgl32.Vec4{1.00, 0.71, 0.71, 1}), // B
		NewMaterial(mgl32.Vec4{0.30, 0.30, 0.30, 1}), // C
		NewMaterial(mgl32.Vec4{0.19, 0.31, 0.97, 1}), // N
		NewMaterial(mgl32.Vec4{1.00, 0.05, 0.05, 1}), // O
		NewMaterial(mgl32.Vec4{0.56, 0.88, 0.31, 1}), // F
		NewMaterial(mgl32.Vec4{0.70, 0.89, 0.96, 1}), // Ne
	}
}

// PackMaterials encodes materials as a storage buffer payload.
func PackMaterials(materials []Material) []byte {
	w := newUniformWriter(len(materials) * MaterialSize)
	for _, m := range materials {
		w.vec4(m.DiffuseAlbedo)
		w.vec3(m.FresnelR0)
		w.f32(m.Shininess)
	}
	return w.bytes()
}

// ObjectConstantsSize is the byte size of the box pipeline's per-object block.
const ObjectConstantsSize = 80

// ObjectConstants is the per-object uniform block of unlit pipelines.
type ObjectConstants struct {
	WorldViewProj mgl32.Mat4
	Color         mgl32.Vec4
}

func (oc ObjectConstants) Bytes() []byte {
	w := newUniformWriter(ObjectConstantsSize)
	w.mat4(oc.WorldViewProj)
	w.vec4(oc.Color)
	return w.bytes()
}
