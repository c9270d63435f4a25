package gpu

import (
	"fmt"
)

const (
	vertexConstantsGroup   = 0
	fragmentConstantsGroup = 1
)

// PipelineConfig bundles a built pipeline with the constant buffers each
// stage reads and the dynamic state applied alongside it.
type PipelineConfig struct {
	desc     PipelineDescriptor
	pipeline Pipeline

	vsConstants *ConstantBufferArray
	fsConstants *ConstantBufferArray
	groups      []BindGroup

	blendFactor [4]float64
	stencilRef  uint32
}

// NewPipelineConfig builds the pipeline and its bind groups. Either array may
// be nil when the stage reads no constants.
func NewPipelineConfig(device Device, desc PipelineDescriptor, vs, fs *ConstantBufferArray) (*PipelineConfig, error) {
	if vs != nil && vs.Stage() != ShaderStageVertex {
		panic(fmt.Sprintf("pipeline %q: vertex constants built for %s stage", desc.Label, vs.Stage()))
	}
	if fs != nil && fs.Stage() != ShaderStageFragment {
		panic(fmt.Sprintf("pipeline %q: fragment constants built for %s stage", desc.Label, fs.Stage()))
	}

	if desc.SampleMask == 0 {
		desc.SampleMask = 0xFFFFFFFF
	}
	desc.VertexBindings = vs.Len()
	desc.FragmentBindings = fs.Len()

	pipeline, err := device.CreatePipeline(&desc)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}

	c := &PipelineConfig{
		desc:        desc,
		pipeline:    pipeline,
		vsConstants: vs,
		fsConstants: fs,
		blendFactor: [4]float64{1, 1, 1, 1},
	}

	// Group indices must be contiguous, so a fragment-only config still gets
	// an empty vertex group.
	if vs.Len() > 0 || fs.Len() > 0 {
		g, err := device.CreateBindGroup(pipeline, vertexConstantsGroup, vs.gpuBuffers())
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("pipeline %q vertex constants: %w", desc.Label, err)
		}
		c.groups = append(c.groups, g)
	}
	if fs.Len() > 0 {
		g, err := device.CreateBindGroup(pipeline, fragmentConstantsGroup, fs.gpuBuffers())
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("pipeline %q fragment constants: %w", desc.Label, err)
		}
		c.groups = append(c.groups, g)
	}
	return c, nil
}

// Apply binds the pipeline, its constant buffers and dynamic state.
func (c *PipelineConfig) Apply(frame Frame) {
	frame.SetPipeline(c.pipeline)
	for i, g := range c.groups {
		frame.SetBindGroup(uint32(i), g)
	}
	if c.desc.Blend.UseBlendFactor {
		frame.SetBlendConstant(c.blendFactor)
	}
	if c.desc.DepthStencil.StencilTest {
		frame.SetStencilReference(c.stencilRef)
	}
}

func (c *PipelineConfig) SetBlendFactor(f [4]float64) { c.blendFactor = f }
func (c *PipelineConfig) SetStencilRef(ref uint32)    { c.stencilRef = ref }

func (c *PipelineConfig) Label() string                           { return c.desc.Label }
func (c *PipelineConfig) Topology() Topology                      { return c.desc.Topology }
func (c *PipelineConfig) SampleMask() uint32                      { return c.desc.SampleMask }
func (c *PipelineConfig) BlendFactor() [4]float64                 { return c.blendFactor }
func (c *PipelineConfig) StencilRef() uint32                      { return c.stencilRef }
func (c *PipelineConfig) VertexConstants() *ConstantBufferArray   { return c.vsConstants }
func (c *PipelineConfig) FragmentConstants() *ConstantBufferArray { return c.fsConstants }

func (c *PipelineConfig) Release() {
	for _, g := range c.groups {
		g.Release()
	}
	c.groups = nil
	if c.pipeline != nil {
		c.pipeline.Release()
		c.pipeline = nil
	}
}
