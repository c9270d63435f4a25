package gpu

import (
	"errors"
)

var (
	ErrFrameActive    = errors.New("gpu: a frame is already being recorded")
	ErrFrameClosed    = errors.New("gpu: frame already presented")
	ErrBufferTooSmall = errors.New("gpu: data does not fit in buffer")
)

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageCopyDst
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
)

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexLayout describes one vertex buffer slot. Instanced slots advance
// once per instance instead of once per vertex.
type VertexLayout struct {
	Stride     uint64
	Instanced  bool
	Attributes []VertexAttribute
}

type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
)

type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type RasterizerState struct {
	CullMode              CullMode
	FrontCounterClockwise bool
}

type BlendState struct {
	Enabled bool
	// UseBlendFactor blends against the constant set by PipelineConfig.SetBlendFactor.
	UseBlendFactor bool
}

type DepthStencilState struct {
	DepthTest  bool
	DepthWrite bool
	// StencilTest compares against the reference set by PipelineConfig.SetStencilRef.
	StencilTest bool
}

// PipelineDescriptor is everything needed to build an immutable pipeline.
// Group 0 holds the vertex stage constant buffers, group 1 the fragment
// stage ones.
type PipelineDescriptor struct {
	Label            string
	ShaderSource     string
	VertexEntry      string
	FragmentEntry    string
	VertexLayouts    []VertexLayout
	Topology         Topology
	Rasterizer       RasterizerState
	Blend            BlendState
	DepthStencil     DepthStencilState
	SampleMask       uint32
	VertexBindings   int
	FragmentBindings int
}

type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

type Pipeline interface {
	Label() string
	Release()
}

type BindGroup interface {
	Release()
}

// Device creates resources. Implementations are not safe for concurrent use.
type Device interface {
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	CreateBufferInit(label string, contents []byte, usage BufferUsage) (Buffer, error)
	// WriteBuffer uploads outside of any frame.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreatePipeline(desc *PipelineDescriptor) (Pipeline, error)
	CreateBindGroup(pipeline Pipeline, group uint32, buffers []Buffer) (BindGroup, error)
	BeginFrame(clear [4]float64) (Frame, error)
	Resize(width, height int)
	Release()
}

// Frame records one frame of draws. A WriteBuffer issued between draws is
// visible to the draws that follow it and not to the ones before it.
type Frame interface {
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	SetPipeline(p Pipeline)
	SetBindGroup(index uint32, group BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	SetBlendConstant(c [4]float64)
	SetStencilReference(ref uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error
	Present() error
	// Abort drops the frame without presenting it.
	Abort()
}
