package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultBoxMax = 3.0

	// MaxTimeStep rejects late frames; a larger delta skips the tick entirely.
	MaxTimeStep = 0.1
)

// Simulation owns the particle store as parallel slices indexed by slot.
// Slots are append-only and never reused.
type Simulation struct {
	positions  []mgl32.Vec3
	velocities []mgl32.Vec3
	kinds      []Element

	paused bool
	boxMax float32

	boxCenter mgl32.Vec3
}

func NewSimulation(boxMax float32) *Simulation {
	if boxMax <= 0 {
		boxMax = DefaultBoxMax
	}
	return &Simulation{
		paused: true,
		boxMax: boxMax,
	}
}

// Reserve grows capacity up front so that bulk adds do not reallocate repeatedly.
func (s *Simulation) Reserve(n int) {
	if n <= cap(s.positions)-len(s.positions) {
		return
	}
	grow := func(v []mgl32.Vec3) []mgl32.Vec3 {
		out := make([]mgl32.Vec3, len(v), len(v)+n)
		copy(out, v)
		return out
	}
	s.positions = grow(s.positions)
	s.velocities = grow(s.velocities)
	kinds := make([]Element, len(s.kinds), len(s.kinds)+n)
	copy(kinds, s.kinds)
	s.kinds = kinds
}

func (s *Simulation) Play()        { s.paused = false }
func (s *Simulation) Pause()       { s.paused = true }
func (s *Simulation) Paused() bool { return s.paused }

// Add appends a particle and returns its slot.
func (s *Simulation) Add(kind Element, position, velocity mgl32.Vec3) int {
	s.kinds = append(s.kinds, kind)
	s.positions = append(s.positions, position)
	s.velocities = append(s.velocities, velocity)
	return len(s.kinds) - 1
}

// Update advances every particle by dt seconds with explicit Euler steps and
// reflects velocity components whose axis left the box. Positions are not
// pulled back inside; the flipped velocity returns them on the next tick.
func (s *Simulation) Update(dt float32) {
	s.checkInvariant()

	if s.paused {
		return
	}
	if dt > MaxTimeStep {
		return
	}

	for i := range s.positions {
		radius := s.kinds[i].Radius()
		p := &s.positions[i]
		v := &s.velocities[i]

		for axis := 0; axis < 3; axis++ {
			p[axis] += v[axis] * dt
			if p[axis]+radius > s.boxMax || p[axis]-radius < -s.boxMax {
				v[axis] = -v[axis]
			}
		}
	}
}

func (s *Simulation) checkInvariant() {
	if len(s.positions) != len(s.velocities) || len(s.positions) != len(s.kinds) {
		panic(fmt.Sprintf("simulation: parallel slices out of sync (positions=%d velocities=%d kinds=%d)",
			len(s.positions), len(s.velocities), len(s.kinds)))
	}
}

func (s *Simulation) Len() int { return len(s.kinds) }

// PositionAt reads the current position of a slot.
func (s *Simulation) PositionAt(slot int) mgl32.Vec3 {
	return s.positions[slot]
}

func (s *Simulation) VelocityAt(slot int) mgl32.Vec3 {
	return s.velocities[slot]
}

func (s *Simulation) KindAt(slot int) Element {
	return s.kinds[slot]
}

// Positions exposes the backing slice; callers must not retain it across Add.
func (s *Simulation) Positions() []mgl32.Vec3  { return s.positions }
func (s *Simulation) Velocities() []mgl32.Vec3 { return s.velocities }
func (s *Simulation) Kinds() []Element         { return s.kinds }

func (s *Simulation) BoxMax() float32 { return s.boxMax }

func (s *Simulation) BoxScaling() mgl32.Vec3 {
	return mgl32.Vec3{s.boxMax, s.boxMax, s.boxMax}
}

func (s *Simulation) BoxCenter() mgl32.Vec3 { return s.boxCenter }
