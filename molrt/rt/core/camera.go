package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CameraNear = 0.01
	CameraFar  = 1000.0
)

// Viewport mirrors the rectangle the host hands us on resize.
type Viewport struct {
	Top    float32
	Left   float32
	Height float32
	Width  float32
}

func (v Viewport) AspectRatio() float32 {
	if v.Height == 0 {
		return 1
	}
	return v.Width / v.Height
}

// clipRemap maps OpenGL clip depth [-w, w] onto WebGPU's [0, w] and mirrors
// clip X, so the right-handed look-at shows world +X on the right of the
// screen, as a left-handed look-at from the same eye does.
var clipRemap = mgl32.Mat4{
	-1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is a fixed look-at camera in front of the simulation box.
type Camera struct {
	Eye mgl32.Vec3
	At  mgl32.Vec3
	Up  mgl32.Vec3

	viewport   Viewport
	projection mgl32.Mat4
}

func NewCamera(viewport Viewport) *Camera {
	c := &Camera{
		Eye:      mgl32.Vec3{0, 0, -10},
		At:       mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		viewport: viewport,
	}
	c.buildProjection()
	return c
}

func (c *Camera) buildProjection() {
	fovY := float32(math.Pi / 4)
	aspect := c.viewport.AspectRatio()

	// Portrait or snapped layouts get a wider vertical field of view.
	if aspect < 1.0 {
		fovY *= 2.0
	}

	c.projection = clipRemap.Mul4(mgl32.Perspective(fovY, aspect, CameraNear, CameraFar))
}

func (c *Camera) SetViewport(viewport Viewport) {
	c.viewport = viewport
	c.buildProjection()
}

func (c *Camera) Viewport() Viewport { return c.viewport }

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.At, c.Up)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.Eye
}

// Update is called once per frame. The camera does not move yet.
func (c *Camera) Update(timer FrameTimer) {}
