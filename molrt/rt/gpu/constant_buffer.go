package gpu

import (
	"fmt"
)

// ConstantBuffer is a fixed-size uniform block rewritten as a whole.
type ConstantBuffer struct {
	label string
	size  uint64
	buf   Buffer
}

func NewConstantBuffer(device Device, label string, size uint64) (*ConstantBuffer, error) {
	buf, err := device.CreateBuffer(label, size, BufferUsageUniform|BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("constant buffer %q: %w", label, err)
	}
	return &ConstantBuffer{label: label, size: size, buf: buf}, nil
}

// NewConstantBufferInit creates a constant buffer holding contents from the start.
func NewConstantBufferInit(device Device, label string, contents []byte) (*ConstantBuffer, error) {
	buf, err := device.CreateBufferInit(label, contents, BufferUsageUniform|BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("constant buffer %q: %w", label, err)
	}
	return &ConstantBuffer{label: label, size: uint64(len(contents)), buf: buf}, nil
}

// Update rewrites the block inside the current frame.
func (c *ConstantBuffer) Update(frame Frame, data []byte) error {
	if uint64(len(data)) > c.size {
		return fmt.Errorf("constant buffer %q: %d > %d bytes: %w", c.label, len(data), c.size, ErrBufferTooSmall)
	}
	return frame.WriteBuffer(c.buf, 0, data)
}

func (c *ConstantBuffer) Label() string  { return c.label }
func (c *ConstantBuffer) Size() uint64   { return c.size }
func (c *ConstantBuffer) Buffer() Buffer { return c.buf }

func (c *ConstantBuffer) Release() {
	if c.buf != nil {
		c.buf.Release()
		c.buf = nil
	}
}

// ConstantBufferArray is the ordered set of constant buffers one shader
// stage sees; buffer i is bound at binding i.
type ConstantBufferArray struct {
	stage   ShaderStage
	buffers []*ConstantBuffer
}

func NewConstantBufferArray(stage ShaderStage, buffers ...*ConstantBuffer) *ConstantBufferArray {
	return &ConstantBufferArray{stage: stage, buffers: buffers}
}

func (a *ConstantBufferArray) Add(cb *ConstantBuffer) {
	a.buffers = append(a.buffers, cb)
}

func (a *ConstantBufferArray) Stage() ShaderStage { return a.stage }

func (a *ConstantBufferArray) Len() int {
	if a == nil {
		return 0
	}
	return len(a.buffers)
}

func (a *ConstantBufferArray) At(i int) *ConstantBuffer { return a.buffers[i] }

func (a *ConstantBufferArray) gpuBuffers() []Buffer {
	if a == nil {
		return nil
	}
	out := make([]Buffer, len(a.buffers))
	for i, cb := range a.buffers {
		out[i] = cb.Buffer()
	}
	return out
}
