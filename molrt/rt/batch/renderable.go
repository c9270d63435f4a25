package batch

import (
	"github.com/gekko3d/molview/molrt/rt/gpu"
)

// Renderable is implemented by RenderObject and RenderObjectList only.
type Renderable interface {
	Label() string
	Update()
	Render(frame gpu.Frame) error

	sealed()
}

func (*RenderObject) sealed()     {}
func (*RenderObjectList) sealed() {}

var (
	_ Renderable = (*RenderObject)(nil)
	_ Renderable = (*RenderObjectList)(nil)
)
