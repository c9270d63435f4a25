package core

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixedTimer struct {
	dt, total float64
}

func (f fixedTimer) Tick()                   {}
func (f fixedTimer) ElapsedSeconds() float64 { return f.dt }
func (f fixedTimer) TotalSeconds() float64   { return f.total }
func (f fixedTimer) FrameCount() uint64      { return 0 }

func readF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestTimer_TickWithClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	timer := NewTimerWithClock(clock.now)

	clock.advance(16 * time.Millisecond)
	timer.Tick()
	assert.InDelta(t, 0.016, timer.ElapsedSeconds(), 1e-9)
	assert.InDelta(t, 0.016, timer.TotalSeconds(), 1e-9)

	clock.advance(34 * time.Millisecond)
	timer.Tick()
	assert.InDelta(t, 0.034, timer.ElapsedSeconds(), 1e-9)
	assert.InDelta(t, 0.050, timer.TotalSeconds(), 1e-9)
	assert.Equal(t, uint64(2), timer.FrameCount())

	clock.advance(5 * time.Second)
	timer.Reset()
	clock.advance(10 * time.Millisecond)
	timer.Tick()
	assert.InDelta(t, 0.010, timer.ElapsedSeconds(), 1e-9)
}

func TestCamera_FovWidensForPortrait(t *testing.T) {
	c := NewCamera(Viewport{Width: 1600, Height: 900})
	landscape := c.ProjectionMatrix()
	assert.InDelta(t, 1/math.Tan(math.Pi/8), landscape[5], 1e-5)

	c.SetViewport(Viewport{Width: 400, Height: 800})
	portrait := c.ProjectionMatrix()
	assert.InDelta(t, 1.0, portrait[5], 1e-5)
	assert.Equal(t, float32(0.5), c.Viewport().AspectRatio())
}

func TestCamera_DepthRange(t *testing.T) {
	c := NewCamera(Viewport{Width: 800, Height: 800})
	vp := c.ProjectionMatrix().Mul4(c.ViewMatrix())

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		clip := vp.Mul4x1(p.Vec4(1))
		return clip.Vec3().Mul(1 / clip.W())
	}

	origin := project(mgl32.Vec3{})
	assert.InDelta(t, 0, origin.X(), 1e-5)
	assert.InDelta(t, 0, origin.Y(), 1e-5)
	assert.Greater(t, origin.Z(), float32(0))
	assert.Less(t, origin.Z(), float32(1))

	near := project(mgl32.Vec3{0, 0, -10 + CameraNear})
	assert.InDelta(t, 0, near.Z(), 1e-3)
}

func TestCamera_WorldAxesOnScreen(t *testing.T) {
	c := NewCamera(Viewport{Width: 800, Height: 800})
	vp := c.ProjectionMatrix().Mul4(c.ViewMatrix())

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		clip := vp.Mul4x1(p.Vec4(1))
		return clip.Vec3().Mul(1 / clip.W())
	}

	right := project(mgl32.Vec3{1, 0, 0})
	assert.Greater(t, right.X(), float32(0), "+X is on the right")
	assert.InDelta(t, 0, right.Y(), 1e-5)

	up := project(mgl32.Vec3{0, 1, 0})
	assert.Greater(t, up.Y(), float32(0), "+Y is up")
	assert.InDelta(t, 0, up.X(), 1e-5)

	// Farther along +Z is deeper.
	assert.Greater(t, project(mgl32.Vec3{0, 0, 1}).Z(), project(mgl32.Vec3{0, 0, -1}).Z())
}

func TestSphericalToCartesian(t *testing.T) {
	v := SphericalToCartesian(2, 0, math.Pi/2)
	assert.InDelta(t, 2, v.X(), 1e-6)
	assert.InDelta(t, 0, v.Y(), 1e-6)
	assert.InDelta(t, 0, v.Z(), 1e-6)

	sun := DefaultLighting().Lights[0].Direction
	assert.InDelta(t, 0.5, sun.X(), 1e-5)
	assert.InDelta(t, -math.Sqrt2/2, sun.Y(), 1e-5)
	assert.InDelta(t, 0.5, sun.Z(), 1e-5)
}

func TestBuildPassConstants(t *testing.T) {
	c := NewCamera(Viewport{Width: 640, Height: 480})
	pc := BuildPassConstants(c, fixedTimer{dt: 0.02, total: 3.5}, DefaultLighting())

	assert.True(t, pc.InvView.Mul4(pc.View).ApproxEqualThreshold(mgl32.Ident4(), 1e-4))
	assert.True(t, pc.InvViewProj.Mul4(pc.ViewProj).ApproxEqualThreshold(mgl32.Ident4(), 1e-3))
	assert.Equal(t, mgl32.Vec3{0, 0, -10}, pc.EyePosW)
	assert.Equal(t, mgl32.Vec2{640, 480}, pc.RenderTargetSize)
	assert.InDelta(t, 1.0/480, pc.InvRenderTargetSize.Y(), 1e-9)
	assert.Equal(t, float32(1), pc.NearZ)
	assert.Equal(t, float32(1000), pc.FarZ)
	assert.Equal(t, float32(0.02), pc.DeltaTime)
	assert.Equal(t, float32(3.5), pc.TotalTime)
	assert.Equal(t, mgl32.Vec4{0.25, 0.25, 0.35, 1}, pc.AmbientLight)
	assert.Equal(t, Light{}, pc.Lights[1])
}

func TestPassConstants_Bytes(t *testing.T) {
	c := NewCamera(Viewport{Width: 100, Height: 50})
	pc := BuildPassConstants(c, fixedTimer{dt: 0.01, total: 2}, DefaultLighting())
	b := pc.Bytes()

	require.Len(t, b, PassConstantsSize)
	assert.Equal(t, 1216, PassConstantsSize)

	for i := 0; i < 16; i++ {
		assert.Equal(t, pc.View[i], readF32(b, i*4))
	}
	assert.Equal(t, float32(-10), readF32(b, 384+8))
	assert.Equal(t, float32(100), readF32(b, 400))
	assert.Equal(t, float32(0.02), readF32(b, 412))
	assert.Equal(t, float32(1), readF32(b, 416))
	assert.Equal(t, float32(1000), readF32(b, 420))
	assert.Equal(t, float32(2), readF32(b, 424))
	assert.Equal(t, float32(0.35), readF32(b, 440))
	// First light: strength then falloff start then direction.
	assert.Equal(t, float32(0.8), readF32(b, 448+8))
	assert.Equal(t, pc.Lights[0].Direction.Y(), readF32(b, 448+20))
}

func TestPackMaterials(t *testing.T) {
	mats := ElementMaterials()
	require.Len(t, mats, 10)

	b := PackMaterials(mats)
	require.Len(t, b, 10*MaterialSize)
	assert.Equal(t, float32(1), readF32(b, 0))
	assert.Equal(t, float32(0.01), readF32(b, 16))
	assert.Equal(t, float32(0.75), readF32(b, 28))
	assert.Equal(t, float32(0.05), readF32(b, 7*MaterialSize+4))
}

func TestObjectConstants_Bytes(t *testing.T) {
	oc := ObjectConstants{WorldViewProj: mgl32.Translate3D(1, 2, 3), Color: mgl32.Vec4{0.5, 0.25, 1, 1}}
	b := oc.Bytes()
	require.Len(t, b, ObjectConstantsSize)
	assert.Equal(t, float32(1), readF32(b, 48))
	assert.Equal(t, float32(3), readF32(b, 56))
	assert.Equal(t, float32(0.25), readF32(b, 68))
}
