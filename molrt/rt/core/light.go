package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the size of the light array in the pass constant block.
const MaxLights = 16

// LightSize is the std140 footprint of one Light.
const LightSize = 48

// Light is the GPU representation of a light. Directional lights only use
// Strength and Direction.
type Light struct {
	Strength     mgl32.Vec3
	FalloffStart float32
	Direction    mgl32.Vec3
	FalloffEnd   float32
	Position     mgl32.Vec3
	SpotPower    float32
}

func (l Light) put(w *uniformWriter) {
	w.vec3(l.Strength)
	w.f32(l.FalloffStart)
	w.vec3(l.Direction)
	w.f32(l.FalloffEnd)
	w.vec3(l.Position)
	w.f32(l.SpotPower)
}

// SphericalToCartesian uses theta as the azimuth around +Y and phi as the
// angle down from +Y.
func SphericalToCartesian(radius, theta, phi float32) mgl32.Vec3 {
	st, ct := math.Sincos(float64(theta))
	sp, cp := math.Sincos(float64(phi))
	return mgl32.Vec3{
		radius * float32(sp*ct),
		radius * float32(cp),
		radius * float32(sp*st),
	}
}

// Lighting is the fixed scene lighting fed into every frame's pass constants.
type Lighting struct {
	Ambient mgl32.Vec4
	Lights  []Light
}

var sunDirection = SphericalToCartesian(1.0, 1.25*math.Pi, math.Pi/4).Mul(-1)

// DefaultLighting is a cool ambient term plus one warm directional sun.
func DefaultLighting() Lighting {
	return Lighting{
		Ambient: mgl32.Vec4{0.25, 0.25, 0.35, 1.0},
		Lights: []Light{
			{
				Strength:  mgl32.Vec3{0.9, 0.9, 0.8},
				Direction: sunDirection,
			},
		},
	}
}
