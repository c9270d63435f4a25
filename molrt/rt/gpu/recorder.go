package gpu

import (
	"fmt"
)

// Call is one recorded frame command.
type Call struct {
	Op    string
	Label string
	Slot  uint32

	Offset uint64
	Data   []byte

	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// RecordedBuffer keeps the latest contents written to it.
type RecordedBuffer struct {
	label    string
	usage    BufferUsage
	data     []byte
	released bool
}

func (b *RecordedBuffer) Label() string      { return b.label }
func (b *RecordedBuffer) Size() uint64       { return uint64(len(b.data)) }
func (b *RecordedBuffer) Usage() BufferUsage { return b.usage }
func (b *RecordedBuffer) Bytes() []byte      { return b.data }
func (b *RecordedBuffer) Released() bool     { return b.released }
func (b *RecordedBuffer) Release()           { b.released = true }

type recordedPipeline struct {
	desc     PipelineDescriptor
	released bool
}

func (p *recordedPipeline) Label() string { return p.desc.Label }
func (p *recordedPipeline) Release()      { p.released = true }

type recordedBindGroup struct {
	pipeline string
	group    uint32
	buffers  []Buffer
}

func (g *recordedBindGroup) Release() {}

// Recorder is a Device that draws nothing and records every command. It backs
// headless runs and tests.
type Recorder struct {
	Buffers    []*RecordedBuffer
	Pipelines  []PipelineDescriptor
	BindGroups int
	Calls      []Call
	Frames     int

	Width  int
	Height int

	// Injected failures for error-path tests.
	CreateBufferErr error
	WriteErr        error
	BeginFrameErr   error

	active *recorderFrame
}

func NewRecorder(width, height int) *Recorder {
	return &Recorder{Width: width, Height: height}
}

func (r *Recorder) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if r.CreateBufferErr != nil {
		return nil, r.CreateBufferErr
	}
	b := &RecordedBuffer{label: label, usage: usage, data: make([]byte, size)}
	r.Buffers = append(r.Buffers, b)
	return b, nil
}

func (r *Recorder) CreateBufferInit(label string, contents []byte, usage BufferUsage) (Buffer, error) {
	buf, err := r.CreateBuffer(label, uint64(len(contents)), usage)
	if err != nil {
		return nil, err
	}
	copy(buf.(*RecordedBuffer).data, contents)
	return buf, nil
}

func (r *Recorder) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if r.WriteErr != nil {
		return r.WriteErr
	}
	rb, ok := buf.(*RecordedBuffer)
	if !ok {
		panic(fmt.Sprintf("recorder: foreign buffer %T", buf))
	}
	if offset+uint64(len(data)) > rb.Size() {
		return fmt.Errorf("write %q at %d (%d bytes): %w", rb.label, offset, len(data), ErrBufferTooSmall)
	}
	copy(rb.data[offset:], data)
	return nil
}

func (r *Recorder) CreatePipeline(desc *PipelineDescriptor) (Pipeline, error) {
	r.Pipelines = append(r.Pipelines, *desc)
	return &recordedPipeline{desc: *desc}, nil
}

func (r *Recorder) CreateBindGroup(pipeline Pipeline, group uint32, buffers []Buffer) (BindGroup, error) {
	r.BindGroups++
	return &recordedBindGroup{pipeline: pipeline.Label(), group: group, buffers: buffers}, nil
}

func (r *Recorder) BeginFrame(clear [4]float64) (Frame, error) {
	if r.BeginFrameErr != nil {
		return nil, r.BeginFrameErr
	}
	if r.active != nil {
		return nil, ErrFrameActive
	}
	r.active = &recorderFrame{r: r}
	r.Calls = append(r.Calls, Call{Op: "BeginFrame"})
	return r.active, nil
}

func (r *Recorder) Resize(width, height int) {
	r.Width, r.Height = width, height
}

func (r *Recorder) Release() {
	for _, b := range r.Buffers {
		b.Release()
	}
}

// Draws returns the recorded DrawIndexed calls in order.
func (r *Recorder) Draws() []Call {
	return r.Filter("DrawIndexed")
}

func (r *Recorder) Filter(op string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls, keeping resources.
func (r *Recorder) Reset() {
	r.Calls = nil
	r.Frames = 0
}

type recorderFrame struct {
	r      *Recorder
	closed bool
}

func (f *recorderFrame) record(c Call) {
	f.r.Calls = append(f.r.Calls, c)
}

func (f *recorderFrame) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if f.closed {
		return ErrFrameClosed
	}
	if err := f.r.WriteBuffer(buf, offset, data); err != nil {
		return err
	}
	f.record(Call{Op: "WriteBuffer", Label: buf.Label(), Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (f *recorderFrame) SetPipeline(p Pipeline) {
	f.record(Call{Op: "SetPipeline", Label: p.Label()})
}

func (f *recorderFrame) SetBindGroup(index uint32, group BindGroup) {
	label := ""
	if g, ok := group.(*recordedBindGroup); ok {
		label = g.pipeline
	}
	f.record(Call{Op: "SetBindGroup", Label: label, Slot: index})
}

func (f *recorderFrame) SetVertexBuffer(slot uint32, buf Buffer) {
	f.record(Call{Op: "SetVertexBuffer", Label: buf.Label(), Slot: slot})
}

func (f *recorderFrame) SetIndexBuffer(buf Buffer, format IndexFormat) {
	f.record(Call{Op: "SetIndexBuffer", Label: buf.Label(), Slot: uint32(format)})
}

func (f *recorderFrame) SetBlendConstant(c [4]float64) {
	f.record(Call{Op: "SetBlendConstant"})
}

func (f *recorderFrame) SetStencilReference(ref uint32) {
	f.record(Call{Op: "SetStencilReference", Slot: ref})
}

func (f *recorderFrame) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	if f.closed {
		return ErrFrameClosed
	}
	f.record(Call{
		Op:            "DrawIndexed",
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
	return nil
}

func (f *recorderFrame) Present() error {
	if f.closed {
		return ErrFrameClosed
	}
	f.closed = true
	f.r.active = nil
	f.r.Frames++
	f.record(Call{Op: "Present"})
	return nil
}

func (f *recorderFrame) Abort() {
	if f.closed {
		return
	}
	f.closed = true
	f.r.active = nil
	f.record(Call{Op: "Abort"})
}
