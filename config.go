package molview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var ErrInvalidConfig = errors.New("invalid config")

// MaxInstancesPerDraw is the largest instance window one draw call may cover.
const MaxInstancesPerDraw = 1024

// Config holds the startup parameters of the modeler host and its render core.
type Config struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	// BoxMax is the half-extent of the simulation cube centred at the origin.
	BoxMax float32
	// MaxInstances caps how many instances a single instanced draw may cover.
	MaxInstances int
	// RadiusScale multiplies the per-element radius when sizing atom spheres.
	RadiusScale float32

	SphereSlices uint32
	SphereStacks uint32

	ClearColor  [4]float64
	VSync       bool
	StartPaused bool

	Debug bool
	// HeadlessFrames > 0 runs the loop against the recording backend for that many frames.
	HeadlessFrames int
	// InitialAtoms seeds the simulation with randomly placed atoms at startup.
	InitialAtoms int
	Seed         int64

	Logger Logger
}

func DefaultConfig() Config {
	return Config{
		WindowWidth:  1280,
		WindowHeight: 720,
		WindowTitle:  "Protein Modeler",
		BoxMax:       3.0,
		MaxInstances: MaxInstancesPerDraw,
		RadiusScale:  1.0,
		SphereSlices: 20,
		SphereStacks: 20,
		ClearColor:   [4]float64{0.3, 0.0, 0.6, 1.0},
		VSync:        true,
		StartPaused:  true,
		InitialAtoms: 0,
		Seed:         1,
	}
}

func (c Config) Validate() error {
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.WindowWidth, c.WindowHeight)
	}
	if c.BoxMax <= 0 {
		return fmt.Errorf("%w: box half-extent must be positive, got %f", ErrInvalidConfig, c.BoxMax)
	}
	if c.MaxInstances <= 0 || c.MaxInstances > MaxInstancesPerDraw {
		return fmt.Errorf("%w: max instances must be in [1, %d], got %d", ErrInvalidConfig, MaxInstancesPerDraw, c.MaxInstances)
	}
	if c.RadiusScale <= 0 {
		return fmt.Errorf("%w: radius scale must be positive, got %f", ErrInvalidConfig, c.RadiusScale)
	}
	if c.SphereSlices < 3 || c.SphereStacks < 2 {
		return fmt.Errorf("%w: sphere tessellation %dx%d too coarse", ErrInvalidConfig, c.SphereSlices, c.SphereStacks)
	}
	// Sphere vertices must fit 16-bit indices.
	if verts := (c.SphereStacks-1)*(c.SphereSlices+1) + 2; verts > 65535 {
		return fmt.Errorf("%w: sphere tessellation produces %d vertices", ErrInvalidConfig, verts)
	}
	if c.InitialAtoms < 0 || c.HeadlessFrames < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidConfig)
	}
	return nil
}

// ParseClearColor accepts an SVG colour name ("indigo") or comma separated
// components in [0,1] ("0.3,0,0.6" or "0.3,0,0.6,1").
func ParseClearColor(s string) ([4]float64, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return [4]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, float64(c.A) / 255}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("%w: clear colour %q", ErrInvalidConfig, s)
	}
	out := [4]float64{0, 0, 0, 1}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 || v > 1 {
			return [4]float64{}, fmt.Errorf("%w: clear colour component %q", ErrInvalidConfig, p)
		}
		out[i] = v
	}
	return out, nil
}
