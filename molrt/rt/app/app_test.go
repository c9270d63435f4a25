package app

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gekko3d/molview"
	"github.com/gekko3d/molview/molrt/rt/batch"
	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepTimer advances by a fixed delta on every tick.
type stepTimer struct {
	dt     float64
	total  float64
	frames uint64
	resets int
}

func (s *stepTimer) Tick() {
	s.total += s.dt
	s.frames++
}

func (s *stepTimer) Reset()                  { s.resets++ }
func (s *stepTimer) ElapsedSeconds() float64 { return s.dt }
func (s *stepTimer) TotalSeconds() float64   { return s.total }
func (s *stepTimer) FrameCount() uint64      { return s.frames }

func testConfig() molview.Config {
	cfg := molview.DefaultConfig()
	cfg.WindowWidth = 320
	cfg.WindowHeight = 240
	return cfg
}

func newTestApp(t *testing.T, cfg molview.Config, dt float64) (*App, *gpu.Recorder, *stepTimer) {
	t.Helper()
	rec := gpu.NewRecorder(cfg.WindowWidth, cfg.WindowHeight)
	timer := &stepTimer{dt: dt}
	a, err := NewApp(cfg, rec, timer)
	require.NoError(t, err)
	return a, rec, timer
}

// recordedFrames reads the recorder under the App lock the loop renders with.
func recordedFrames(a *App, rec *gpu.Recorder) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return rec.Frames
}

func findBuffer(rec *gpu.Recorder, label string) *gpu.RecordedBuffer {
	for _, b := range rec.Buffers {
		if b.Label() == label {
			return b
		}
	}
	return nil
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BoxMax = 0
	_, err := NewApp(cfg, gpu.NewRecorder(1, 1), nil)
	require.ErrorIs(t, err, molview.ErrInvalidConfig)

	cfg = testConfig()
	cfg.MaxInstances = 5000
	_, err = NewApp(cfg, gpu.NewRecorder(1, 1), nil)
	require.ErrorIs(t, err, molview.ErrInvalidConfig)
}

func TestNewApp_CreateBufferFailure(t *testing.T) {
	rec := gpu.NewRecorder(1, 1)
	boom := errors.New("out of memory")
	rec.CreateBufferErr = boom

	_, err := NewApp(testConfig(), rec, nil)
	require.ErrorIs(t, err, boom)
}

func TestNewApp_Pipelines(t *testing.T) {
	_, rec, _ := newTestApp(t, testConfig(), 0.016)

	require.Len(t, rec.Pipelines, 2)
	atoms, box := rec.Pipelines[0], rec.Pipelines[1]

	assert.Equal(t, "Atoms", atoms.Label)
	assert.Equal(t, gpu.TopologyTriangleList, atoms.Topology)
	assert.Equal(t, 1, atoms.VertexBindings)
	assert.Equal(t, 2, atoms.FragmentBindings)
	require.Len(t, atoms.VertexLayouts, 2)
	assert.True(t, atoms.VertexLayouts[1].Instanced)
	assert.Equal(t, uint64(batch.InstanceDataSize), atoms.VertexLayouts[1].Stride)

	assert.Equal(t, "Box", box.Label)
	assert.Equal(t, gpu.TopologyLineList, box.Topology)
	assert.Equal(t, 1, box.VertexBindings)
	assert.Equal(t, 0, box.FragmentBindings)

	// Atom pipeline gets both groups, box pipeline only the vertex group.
	assert.Equal(t, 3, rec.BindGroups)
}

func TestRenderFrame_EmptySceneDrawsBoxOnly(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)

	require.NoError(t, a.RenderFrame())
	assert.Equal(t, 1, rec.Frames)

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(24), draws[0].IndexCount)
	assert.Equal(t, a.Renderer().Atoms().Mesh().IndexCount, draws[0].FirstIndex)
	pipelines := rec.Filter("SetPipeline")
	require.Len(t, pipelines, 1)
	assert.Equal(t, "Box", pipelines[0].Label)
}

func TestRenderFrame_ChunksAtomsBeyondCapacity(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)
	for i := 0; i < 1500; i++ {
		a.AddAtom(sim.Oxygen, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{})
	}

	require.NoError(t, a.RenderFrame())

	draws := rec.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, uint32(1024), draws[0].InstanceCount)
	assert.Equal(t, uint32(476), draws[1].InstanceCount)
	assert.Equal(t, uint32(1), draws[2].InstanceCount)
	assert.Equal(t, 3, a.Renderer().DrawCount())

	var instanceWrites []gpu.Call
	for _, c := range rec.Filter("WriteBuffer") {
		if c.Label == "Instances" {
			instanceWrites = append(instanceWrites, c)
		}
	}
	require.Len(t, instanceWrites, 2)
	assert.Len(t, instanceWrites[0].Data, 1024*batch.InstanceDataSize)
	assert.Len(t, instanceWrites[1].Data, 476*batch.InstanceDataSize)

	// Every instance write lands before the draw that consumes it.
	var order []string
	for _, c := range rec.Calls {
		if c.Op == "DrawIndexed" || (c.Op == "WriteBuffer" && c.Label == "Instances") {
			order = append(order, c.Op)
		}
	}
	assert.Equal(t, []string{"WriteBuffer", "DrawIndexed", "WriteBuffer", "DrawIndexed", "DrawIndexed"}, order)
}

func TestAddAtom_InstanceFollowsSimulation(t *testing.T) {
	cfg := testConfig()
	cfg.StartPaused = false
	a, rec, _ := newTestApp(t, cfg, 0.05)

	slot := a.AddAtom(sim.Carbon, mgl32.Vec3{1, 2, 0}, mgl32.Vec3{2, 0, 0})
	assert.Equal(t, 0, slot)
	assert.Equal(t, 1, a.AtomCount())

	require.NoError(t, a.RenderFrame())

	pos := a.Simulation().PositionAt(slot)
	assert.InDelta(t, 1.1, pos.X(), 1e-6)

	inst := findBuffer(rec, "Instances")
	require.NotNil(t, inst)
	x := math.Float32frombits(binary.LittleEndian.Uint32(inst.Bytes()[48:]))
	assert.Equal(t, pos.X(), x)
	scale := math.Float32frombits(binary.LittleEndian.Uint32(inst.Bytes()[0:]))
	assert.Equal(t, sim.Carbon.Radius(), scale)
	assert.Equal(t, sim.Carbon.MaterialIndex(), binary.LittleEndian.Uint32(inst.Bytes()[64:]))
}

func TestRenderFrame_StaleFrameSkipsSimulation(t *testing.T) {
	cfg := testConfig()
	cfg.StartPaused = false
	a, _, _ := newTestApp(t, cfg, 0.2)

	a.AddAtom(sim.Hydrogen, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	require.NoError(t, a.RenderFrame())
	assert.Equal(t, mgl32.Vec3{}, a.Simulation().PositionAt(0))
}

func TestRenderFrame_ErrorDropsFrame(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)
	boom := errors.New("device lost")
	rec.WriteErr = boom

	err := a.RenderFrame()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, rec.Frames)
	assert.Len(t, rec.Filter("Abort"), 1)

	rec.WriteErr = nil
	require.NoError(t, a.RenderFrame())
	assert.Equal(t, 1, rec.Frames)
}

func TestRenderFrame_BeginFrameError(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)
	rec.BeginFrameErr = errors.New("surface outdated")

	require.Error(t, a.RenderFrame())
	assert.Empty(t, rec.Draws())
}

func TestSetViewportAndResize(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)

	a.SetViewport(0, 0, 100, 50)
	assert.Equal(t, float32(0.5), a.Camera().Viewport().AspectRatio())

	a.Resize(800, 400)
	assert.Equal(t, 800, rec.Width)
	assert.Equal(t, float32(2), a.Camera().Viewport().AspectRatio())

	a.Resize(0, 0)
	assert.Equal(t, 800, rec.Width)
}

func TestRenderLoop_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.StartPaused = false
	a, rec, _ := newTestApp(t, cfg, 0.016)

	a.StartRenderLoop()
	a.StartRenderLoop()
	assert.True(t, a.Running())

	require.Eventually(t, func() bool { return recordedFrames(a, rec) >= 3 }, 2*time.Second, time.Millisecond)

	a.StopRenderLoop()
	assert.False(t, a.Running())
	assert.True(t, a.Paused())
	a.Wait()

	frames := recordedFrames(a, rec)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frames, recordedFrames(a, rec))
}

func TestRenderLoop_ExitsWithoutFocus(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)

	a.WindowActivationChanged(false)
	assert.False(t, a.Running(), "focus changes do not start a loop that never ran")

	a.StartRenderLoop()
	a.Wait()
	assert.Equal(t, 1, recordedFrames(a, rec))
	assert.False(t, a.Running())

	a.WindowActivationChanged(true)
	assert.True(t, a.Running())

	a.Close()
	assert.False(t, a.Running())
}

func TestRenderLoop_ExplicitStopSurvivesFocusChange(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig(), 0.016)

	a.StartRenderLoop()
	a.StopRenderLoop()
	a.Wait()

	a.WindowActivationChanged(false)
	a.WindowActivationChanged(true)
	assert.False(t, a.Running())

	// A loop that exited for lost focus and was then stopped explicitly stays stopped.
	a.WindowActivationChanged(false)
	a.StartRenderLoop()
	a.Wait()
	a.StopRenderLoop()
	a.WindowActivationChanged(true)
	assert.False(t, a.Running())
}

func TestClose_NoRestart(t *testing.T) {
	a, rec, _ := newTestApp(t, testConfig(), 0.016)

	a.WindowActivationChanged(false)
	a.StartRenderLoop()
	a.Wait()
	a.Close()

	a.WindowActivationChanged(true)
	assert.False(t, a.Running())
	a.StartRenderLoop()
	assert.False(t, a.Running())
	a.Resume()
	assert.False(t, a.Running())

	require.ErrorIs(t, a.RenderFrame(), ErrClosed)
	assert.Equal(t, 1, rec.Frames)

	require.NotEmpty(t, rec.Buffers)
	for _, b := range rec.Buffers {
		assert.True(t, b.Released(), b.Label())
	}
	a.Close()
}

func TestRenderFrame_DebugStatsResetProfiler(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig()
	cfg.Logger = molview.NewLogger(&out, &out, "test", true)
	a, _, _ := newTestApp(t, cfg, 0.016)

	for i := 0; i < statsInterval; i++ {
		require.NoError(t, a.RenderFrame())
	}

	assert.Contains(t, out.String(), "frame: update=")
	assert.Contains(t, out.String(), "draws=1")
	assert.Zero(t, a.profiler.Scope("update"))
	assert.Zero(t, a.profiler.Scope("render"))
}

func TestReserve(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig(), 0.016)
	a.Reserve(100)
	a.AddAtom(sim.Nitrogen, mgl32.Vec3{}, mgl32.Vec3{})

	assert.Equal(t, 1, a.AtomCount())
	assert.Equal(t, 1, a.Renderer().Atoms().Len())
}

func TestSuspendResume(t *testing.T) {
	a, _, timer := newTestApp(t, testConfig(), 0.016)

	a.StartRenderLoop()
	a.Suspend()
	assert.False(t, a.Running())

	a.WindowActivationChanged(true)
	assert.False(t, a.Running(), "no restart while suspended")

	a.Resume()
	assert.True(t, a.Running())
	a.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, 1, timer.resets)
}

func TestPlayPause(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig(), 0.016)
	assert.True(t, a.Paused())
	a.Play()
	assert.False(t, a.Paused())
	a.Pause()
	assert.True(t, a.Paused())
}

func TestProfiler(t *testing.T) {
	now := time.Unix(0, 0)
	p := newProfilerWithClock(func() time.Time { return now })

	p.BeginScope("update")
	now = now.Add(2 * time.Millisecond)
	p.EndScope("update")
	p.BeginScope("render")
	now = now.Add(500 * time.Microsecond)
	p.EndScope("render")
	p.SetCount("draws", 3)

	assert.Equal(t, 2*time.Millisecond, p.Scope("update"))
	assert.Equal(t, 3, p.Count("draws"))
	assert.Equal(t, "frame: update=2.00ms render=0.50ms draws=3", p.String())

	p.Reset()
	assert.Zero(t, p.Scope("update"))
	assert.Equal(t, "frame: update=0.00ms render=0.00ms draws=3", p.String())
}
