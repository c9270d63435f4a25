package batch

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PositionSource resolves a stable slot to its current position.
type PositionSource interface {
	PositionAt(slot int) mgl32.Vec3
}

// PositionFunc adapts a function to PositionSource.
type PositionFunc func(slot int) mgl32.Vec3

func (f PositionFunc) PositionAt(slot int) mgl32.Vec3 { return f(slot) }

// FixedPosition never moves.
type FixedPosition mgl32.Vec3

func (p FixedPosition) PositionAt(int) mgl32.Vec3 { return mgl32.Vec3(p) }

// PositionRef refers to a position owned by someone else. It is read on every
// Update, so the owner may move it freely and may grow its storage.
type PositionRef struct {
	Source PositionSource
	Slot   int
}

func (r PositionRef) Position() mgl32.Vec3 {
	return r.Source.PositionAt(r.Slot)
}

// WorldMatrix places a scaled unit mesh at pos. Scaling happens first.
func WorldMatrix(scale, pos mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
