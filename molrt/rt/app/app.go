package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/molview"
	"github.com/gekko3d/molview/molrt/rt/core"
	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
)

// statsInterval is how often, in frames, profiler stats are logged in debug mode.
const statsInterval = 300

// ErrClosed is returned for frames requested after Close.
var ErrClosed = errors.New("app: closed")

type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// App bundles the simulation, the renderer and the frame clock behind one
// lock. The render loop holds it for a whole Update, Render and Present, and
// every host callback takes it too.
type App struct {
	mu sync.Mutex

	cfg    molview.Config
	logger molview.Logger
	device gpu.Device

	sim      *sim.Simulation
	camera   *core.Camera
	timer    core.FrameTimer
	renderer *Renderer
	profiler *Profiler

	haveFocus bool
	suspended bool
	closed    bool
	loop      *loopHandle
	lastDone  chan struct{}

	// stoppedByFocus is set when the loop exited after a frame without focus
	// and cleared by any explicit start or stop.
	stoppedByFocus bool
}

// NewApp builds the scene on device. A nil timer selects the wall clock.
func NewApp(cfg molview.Config, device gpu.Device, timer core.FrameTimer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if timer == nil {
		timer = core.NewTimer()
	}
	logger := molview.OrNop(cfg.Logger)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		device:    device,
		sim:       sim.NewSimulation(cfg.BoxMax),
		timer:     timer,
		profiler:  NewProfiler(),
		haveFocus: true,
	}
	a.camera = core.NewCamera(core.Viewport{
		Height: float32(cfg.WindowHeight),
		Width:  float32(cfg.WindowWidth),
	})
	if !cfg.StartPaused {
		a.sim.Play()
	}

	renderer, err := NewRenderer(device, cfg, a.sim, logger)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	a.renderer = renderer
	return a, nil
}

// Reserve grows the particle and instance storage for n more atoms.
func (a *App) Reserve(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sim.Reserve(n)
	a.renderer.Reserve(n)
}

// AddAtom appends a particle and its render instance in one lock hold.
func (a *App) AddAtom(kind sim.Element, position, velocity mgl32.Vec3) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	slot := a.sim.Add(kind, position, velocity)
	a.renderer.AddAtom(a.sim, slot)
	a.logger.Debugf("added %s at slot %d", kind, slot)
	return slot
}

func (a *App) SetViewport(top, left, height, width float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera.SetViewport(core.Viewport{Top: top, Left: left, Height: height, Width: width})
}

// Resize reconfigures the surface and the camera for a new framebuffer size.
// Zero sizes (minimized windows) are ignored.
func (a *App) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.device.Resize(width, height)
	a.camera.SetViewport(core.Viewport{Height: float32(height), Width: float32(width)})
}

// WindowActivationChanged records focus. Regaining focus restarts a loop only
// if that loop exited because the window went inactive.
func (a *App) WindowActivationChanged(active bool) {
	a.mu.Lock()
	a.haveFocus = active
	restart := active && a.stoppedByFocus && !a.suspended && !a.closed && a.loop == nil
	a.mu.Unlock()

	if restart {
		a.StartRenderLoop()
	}
}

func (a *App) Suspend() {
	a.StopRenderLoop()
	a.mu.Lock()
	a.suspended = true
	a.mu.Unlock()
	a.logger.Infof("suspended")
}

func (a *App) Resume() {
	a.mu.Lock()
	a.suspended = false
	if r, ok := a.timer.(interface{ Reset() }); ok {
		r.Reset()
	}
	a.mu.Unlock()
	a.logger.Infof("resumed")
	a.StartRenderLoop()
}

func (a *App) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sim.Play()
}

func (a *App) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sim.Pause()
}

func (a *App) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sim.Paused()
}

func (a *App) AtomCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sim.Len()
}

// Running reports whether a render loop goroutine is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loop != nil
}

// StartRenderLoop starts the render goroutine unless one is already running
// or the app has been closed.
func (a *App) StartRenderLoop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loop != nil || a.closed {
		return
	}
	a.stoppedByFocus = false
	ctx, cancel := context.WithCancel(context.Background())
	l := &loopHandle{cancel: cancel, done: make(chan struct{})}
	a.loop = l
	a.lastDone = l.done

	a.logger.Debugf("render loop started")
	go a.renderLoop(ctx, l)
}

// StopRenderLoop cancels the loop and pauses the simulation. It does not wait;
// use Wait to join the goroutine.
func (a *App) StopRenderLoop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loop != nil {
		a.loop.cancel()
		a.loop = nil
	}
	a.stoppedByFocus = false
	a.sim.Pause()
}

// Wait blocks until the most recently started loop has exited.
func (a *App) Wait() {
	a.mu.Lock()
	done := a.lastDone
	a.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (a *App) renderLoop(ctx context.Context, l *loopHandle) {
	defer close(l.done)
	defer l.cancel()

	for a.step(ctx, l) {
	}
	a.logger.Debugf("render loop exited")
}

// step runs one iteration under the lock and reports whether to keep going.
func (a *App) step(ctx context.Context, l *loopHandle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}

	a.renderFrameLocked()

	if !a.haveFocus {
		if a.loop == l {
			a.loop = nil
			a.stoppedByFocus = true
		}
		return false
	}
	return true
}

// RenderFrame runs one Update, Render and Present synchronously. Frame errors
// are logged and returned; the frame is dropped.
func (a *App) RenderFrame() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderFrameLocked()
}

func (a *App) renderFrameLocked() error {
	if a.closed {
		return ErrClosed
	}
	a.timer.Tick()

	a.profiler.BeginScope("update")
	a.update()
	a.profiler.EndScope("update")

	a.profiler.BeginScope("render")
	err := a.render()
	a.profiler.EndScope("render")

	if err != nil {
		a.logger.Errorf("frame %d dropped: %v", a.timer.FrameCount(), err)
		return err
	}

	if a.logger.DebugEnabled() && a.timer.FrameCount()%statsInterval == 0 {
		a.profiler.SetCount("atoms", a.sim.Len())
		a.profiler.SetCount("draws", a.renderer.DrawCount())
		a.logger.Debugf("%s", a.profiler)
		a.profiler.Reset()
	}
	return nil
}

func (a *App) update() {
	a.camera.Update(a.timer)
	a.sim.Update(float32(a.timer.ElapsedSeconds()))
	a.renderer.Update(a.camera, a.timer)
}

func (a *App) render() error {
	frame, err := a.device.BeginFrame(a.cfg.ClearColor)
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if err := a.renderer.Render(frame); err != nil {
		frame.Abort()
		return fmt.Errorf("render: %w", err)
	}
	if err := frame.Present(); err != nil {
		frame.Abort()
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Simulation exposes the particle store. It is not synchronized with a
// running render loop.
func (a *App) Simulation() *sim.Simulation { return a.sim }
func (a *App) Renderer() *Renderer         { return a.renderer }
func (a *App) Camera() *core.Camera        { return a.camera }

// Close stops the loop, waits for it and releases GPU resources. A closed app
// renders no more frames and cannot be restarted.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.StopRenderLoop()
	a.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.renderer.Release()
}
