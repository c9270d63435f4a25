package batch

import (
	"fmt"

	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ObjectUpdateFunc uploads whatever the object's pipeline reads before it is
// drawn.
type ObjectUpdateFunc func(frame gpu.Frame, obj *RenderObject) error

// RenderObject draws a single mesh instance.
type RenderObject struct {
	ID    string
	label string

	mesh     mesh.MeshInstance
	scale    PositionRef
	position PositionRef
	material uint32

	world  mgl32.Mat4
	update ObjectUpdateFunc
}

// NewRenderObject reads both its scale and its position through references so
// that e.g. a resized simulation box is picked up on the next Update.
func NewRenderObject(m mesh.MeshInstance, label string, scale, position PositionRef, material uint32) *RenderObject {
	return &RenderObject{
		ID:       uuid.NewString(),
		label:    label,
		mesh:     m,
		scale:    scale,
		position: position,
		material: material,
		world:    mgl32.Ident4(),
	}
}

func (o *RenderObject) SetBufferUpdateCallback(fn ObjectUpdateFunc) {
	o.update = fn
}

func (o *RenderObject) Update() {
	o.world = WorldMatrix(o.scale.Position(), o.position.Position())
}

func (o *RenderObject) Render(frame gpu.Frame) error {
	if o.update != nil {
		if err := o.update(frame, o); err != nil {
			return fmt.Errorf("%s: buffer update: %w", o.label, err)
		}
	}
	return frame.DrawIndexed(o.mesh.IndexCount, 1, o.mesh.StartIndexLocation, o.mesh.BaseVertexLocation, 0)
}

func (o *RenderObject) Label() string           { return o.label }
func (o *RenderObject) Mesh() mesh.MeshInstance { return o.mesh }
func (o *RenderObject) WorldMatrix() mgl32.Mat4 { return o.world }
func (o *RenderObject) Material() uint32        { return o.material }
