package main

import (
	"flag"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/gekko3d/molview"
	"github.com/gekko3d/molview/molrt/rt/app"
	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/sim"

	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg := molview.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable debug logging (frame stats)")
	flag.IntVar(&cfg.WindowWidth, "width", cfg.WindowWidth, "Window width")
	flag.IntVar(&cfg.WindowHeight, "height", cfg.WindowHeight, "Window height")
	boxMax := flag.Float64("box", float64(cfg.BoxMax), "Half-extent of the simulation box")
	radiusScale := flag.Float64("radius-scale", float64(cfg.RadiusScale), "Multiplier on atom display radii")
	flag.IntVar(&cfg.MaxInstances, "max-instances", cfg.MaxInstances, "Instances per draw call")
	flag.IntVar(&cfg.InitialAtoms, "atoms", cfg.InitialAtoms, "Random atoms to start with")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for random atoms")
	flag.BoolVar(&cfg.VSync, "vsync", cfg.VSync, "Wait for vertical sync")
	flag.BoolVar(&cfg.StartPaused, "paused", cfg.StartPaused, "Start with the simulation paused")
	flag.IntVar(&cfg.HeadlessFrames, "headless", 0, "Render this many frames without a window and exit")
	clearColor := flag.String("clear", "", "Clear colour: an SVG colour name or r,g,b[,a]")
	flag.Parse()

	logger := molview.NewDefaultLogger("molview", *debug)
	cfg.Debug = *debug
	cfg.Logger = logger
	cfg.BoxMax = float32(*boxMax)
	cfg.RadiusScale = float32(*radiusScale)
	if *clearColor != "" {
		c, err := molview.ParseClearColor(*clearColor)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(2)
		}
		cfg.ClearColor = c
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}

	if cfg.HeadlessFrames > 0 {
		if err := runHeadless(cfg, logger); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}
	if err := runWindowed(cfg, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func randomAtom(rng *rand.Rand, boxMax float32) (sim.Element, mgl32.Vec3, mgl32.Vec3) {
	kind := sim.Element(1 + rng.IntN(sim.NumElements))
	span := boxMax - kind.Radius()
	coord := func(extent float32) float32 { return (rng.Float32()*2 - 1) * extent }
	pos := mgl32.Vec3{coord(span), coord(span), coord(span)}
	vel := mgl32.Vec3{coord(1), coord(1), coord(1)}
	return kind, pos, vel
}

func seedAtoms(a *app.App, rng *rand.Rand, cfg molview.Config) {
	a.Reserve(cfg.InitialAtoms)
	for i := 0; i < cfg.InitialAtoms; i++ {
		a.AddAtom(randomAtom(rng, cfg.BoxMax))
	}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func runHeadless(cfg molview.Config, logger molview.Logger) error {
	rec := gpu.NewRecorder(cfg.WindowWidth, cfg.WindowHeight)
	application, err := app.NewApp(cfg, rec, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	seedAtoms(application, newRand(cfg.Seed), cfg)

	draws, dropped := 0, 0
	for i := 0; i < cfg.HeadlessFrames; i++ {
		if err := application.RenderFrame(); err != nil {
			dropped++
		}
		draws += len(rec.Draws())
		rec.Reset()
	}
	logger.Infof("headless: %d frames, %d draw calls, %d dropped, %d atoms",
		cfg.HeadlessFrames, draws, dropped, application.AtomCount())
	return nil
}

func runWindowed(cfg molview.Config, logger molview.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, cfg.WindowTitle, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	fbWidth, fbHeight := window.GetFramebufferSize()
	device, err := gpu.NewWGPUDevice(wgpuglfw.GetSurfaceDescriptor(window), fbWidth, fbHeight, cfg.VSync)
	if err != nil {
		return err
	}
	defer device.Release()

	application, err := app.NewApp(cfg, device, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	rng := newRand(cfg.Seed)
	seedAtoms(application, rng, cfg)
	application.SetViewport(0, 0, float32(fbHeight), float32(fbWidth))

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		application.WindowActivationChanged(focused)
	})
	window.SetIconifyCallback(func(w *glfw.Window, iconified bool) {
		if iconified {
			application.Suspend()
		} else {
			application.Resume()
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			if application.Paused() {
				application.Play()
			} else {
				application.Pause()
			}
		case glfw.KeyA:
			slot := application.AddAtom(randomAtom(rng, cfg.BoxMax))
			logger.Infof("atom %d added (%d total)", slot, application.AtomCount())
		}
	})

	application.StartRenderLoop()
	for !window.ShouldClose() {
		glfw.WaitEventsTimeout(0.1)
	}
	application.StopRenderLoop()
	application.Wait()
	return nil
}
