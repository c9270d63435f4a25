package batch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/molview"
	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	// MaxInstances is the instance buffer capacity of one draw call.
	MaxInstances = molview.MaxInstancesPerDraw
	// InstanceDataSize is one packed instance: world matrix, material index, padding.
	InstanceDataSize = 80
)

// ListUpdateFunc uploads instances [start, end) of list before they are drawn.
type ListUpdateFunc func(frame gpu.Frame, list *RenderObjectList, start, end int) error

type Instance struct {
	Scale    mgl32.Vec3
	Position PositionRef
	Material uint32
}

// InstanceData is the per-instance record consumed by the vertex stage.
type InstanceData struct {
	World    mgl32.Mat4
	Material uint32
}

// RenderObjectList draws many instances of one mesh, at most chunkSize per
// draw call.
type RenderObjectList struct {
	ID    string
	label string

	mesh      mesh.MeshInstance
	instances []Instance
	data      []InstanceData

	chunkSize int
	update    ListUpdateFunc
}

func NewRenderObjectList(m mesh.MeshInstance, label string) *RenderObjectList {
	return &RenderObjectList{
		ID:        uuid.NewString(),
		label:     label,
		mesh:      m,
		chunkSize: MaxInstances,
	}
}

// SetChunkSize limits how many instances one draw call may cover. It must not
// exceed the capacity of the buffer the update callback writes to.
func (l *RenderObjectList) SetChunkSize(n int) {
	if n < 1 {
		panic(fmt.Sprintf("render list %q: chunk size %d", l.label, n))
	}
	l.chunkSize = n
}

func (l *RenderObjectList) SetBufferUpdateCallback(fn ListUpdateFunc) {
	l.update = fn
}

// Reserve grows capacity for n more instances.
func (l *RenderObjectList) Reserve(n int) {
	if n <= cap(l.instances)-len(l.instances) {
		return
	}
	l.instances = append(make([]Instance, 0, len(l.instances)+n), l.instances...)
	l.data = append(make([]InstanceData, 0, len(l.data)+n), l.data...)
}

// AddInstance appends an instance and returns its index.
func (l *RenderObjectList) AddInstance(scale mgl32.Vec3, position PositionRef, material uint32) int {
	l.instances = append(l.instances, Instance{Scale: scale, Position: position, Material: material})
	l.data = append(l.data, InstanceData{World: WorldMatrix(scale, position.Position()), Material: material})
	return len(l.instances) - 1
}

// Update recomputes every world matrix from the current positions.
func (l *RenderObjectList) Update() {
	for i, inst := range l.instances {
		l.data[i] = InstanceData{
			World:    WorldMatrix(inst.Scale, inst.Position.Position()),
			Material: inst.Material,
		}
	}
}

// Render issues ceil(N/chunkSize) draws. Before each one the update callback
// is asked to upload the window being drawn.
func (l *RenderObjectList) Render(frame gpu.Frame) error {
	n := len(l.instances)
	if n == 0 {
		panic(fmt.Sprintf("render list %q: Render with no instances", l.label))
	}

	for start := 0; start < n; start += l.chunkSize {
		end := min(start+l.chunkSize, n)
		if l.update != nil {
			if err := l.update(frame, l, start, end); err != nil {
				return fmt.Errorf("%s: buffer update [%d,%d): %w", l.label, start, end, err)
			}
		}
		if err := frame.DrawIndexed(l.mesh.IndexCount, uint32(end-start), l.mesh.StartIndexLocation, l.mesh.BaseVertexLocation, 0); err != nil {
			return fmt.Errorf("%s: draw [%d,%d): %w", l.label, start, end, err)
		}
	}
	return nil
}

// PackInstances appends instances [start, end) to dst[:0] in the layout the
// atom shader reads.
func (l *RenderObjectList) PackInstances(dst []byte, start, end int) []byte {
	dst = dst[:0]
	for _, d := range l.data[start:end] {
		for _, f := range d.World {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
		}
		dst = binary.LittleEndian.AppendUint32(dst, d.Material)
		dst = append(dst, make([]byte, InstanceDataSize-68)...)
	}
	return dst
}

func (l *RenderObjectList) Label() string           { return l.label }
func (l *RenderObjectList) Mesh() mesh.MeshInstance { return l.mesh }
func (l *RenderObjectList) Len() int                { return len(l.instances) }
func (l *RenderObjectList) ChunkSize() int          { return l.chunkSize }
func (l *RenderObjectList) Instance(i int) Instance { return l.instances[i] }
func (l *RenderObjectList) Data(i int) InstanceData { return l.data[i] }
