package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PassConstantsSize is the uniform block size, including the full light array.
const PassConstantsSize = 6*64 + 16 + 16 + 16 + 16 + MaxLights*LightSize

const (
	PassNearZ = 1.0
	PassFarZ  = 1000.0
)

// PassConstants is the per-frame data shared by every draw in a pass.
type PassConstants struct {
	View        mgl32.Mat4
	InvView     mgl32.Mat4
	Proj        mgl32.Mat4
	InvProj     mgl32.Mat4
	ViewProj    mgl32.Mat4
	InvViewProj mgl32.Mat4

	EyePosW             mgl32.Vec3
	RenderTargetSize    mgl32.Vec2
	InvRenderTargetSize mgl32.Vec2

	NearZ     float32
	FarZ      float32
	TotalTime float32
	DeltaTime float32

	AmbientLight mgl32.Vec4
	Lights       [MaxLights]Light
}

// BuildPassConstants derives the frame's pass data. Inverses of singular
// matrices come back as mgl32's zero matrix and are uploaded as is.
func BuildPassConstants(camera *Camera, timer FrameTimer, lighting Lighting) PassConstants {
	view := camera.ViewMatrix()
	proj := camera.ProjectionMatrix()
	viewProj := proj.Mul4(view)

	vp := camera.Viewport()
	size := mgl32.Vec2{vp.Width, vp.Height}
	var inv mgl32.Vec2
	if size[0] != 0 && size[1] != 0 {
		inv = mgl32.Vec2{1 / size[0], 1 / size[1]}
	}

	pc := PassConstants{
		View:        view,
		InvView:     view.Inv(),
		Proj:        proj,
		InvProj:     proj.Inv(),
		ViewProj:    viewProj,
		InvViewProj: viewProj.Inv(),

		EyePosW:             camera.Position(),
		RenderTargetSize:    size,
		InvRenderTargetSize: inv,

		NearZ:     PassNearZ,
		FarZ:      PassFarZ,
		TotalTime: float32(timer.TotalSeconds()),
		DeltaTime: float32(timer.ElapsedSeconds()),

		AmbientLight: lighting.Ambient,
	}
	copy(pc.Lights[:], lighting.Lights)
	return pc
}

// Bytes encodes the block with the std140 layout the shaders declare.
func (pc *PassConstants) Bytes() []byte {
	w := newUniformWriter(PassConstantsSize)

	w.mat4(pc.View)
	w.mat4(pc.InvView)
	w.mat4(pc.Proj)
	w.mat4(pc.InvProj)
	w.mat4(pc.ViewProj)
	w.mat4(pc.InvViewProj)

	w.vec3(pc.EyePosW)
	w.f32(0) // pad
	w.vec2(pc.RenderTargetSize)
	w.vec2(pc.InvRenderTargetSize)

	w.f32(pc.NearZ)
	w.f32(pc.FarZ)
	w.f32(pc.TotalTime)
	w.f32(pc.DeltaTime)

	w.vec4(pc.AmbientLight)
	for i := range pc.Lights {
		pc.Lights[i].put(w)
	}
	return w.bytes()
}
