package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const depthFormat = wgpu.TextureFormatDepth24PlusStencil8

type wgpuBuffer struct {
	label  string
	size   uint64
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type wgpuPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
}

func (p *wgpuPipeline) Label() string { return p.label }

func (p *wgpuPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	for _, l := range p.layouts {
		l.Release()
	}
	p.layouts = nil
}

type wgpuBindGroup struct {
	group *wgpu.BindGroup
}

func (g *wgpuBindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
}

// WGPUDevice renders into a window surface through WebGPU.
type WGPUDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	active *wgpuFrame
}

// NewWGPUDevice requests an adapter compatible with the described surface and
// configures the surface for width x height.
func NewWGPUDevice(surfaceDesc *wgpu.SurfaceDescriptor, width, height int, vsync bool) (*WGPUDevice, error) {
	d := &WGPUDevice{}
	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDesc)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = adapter

	d.device, err = adapter.RequestDevice(nil)
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.queue = d.device.GetQueue()

	caps := d.surface.GetCapabilities(adapter)
	presentMode := wgpu.PresentModeImmediate
	if vsync {
		presentMode = wgpu.PresentModeFifo
	}
	d.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	}
	d.surface.Configure(d.adapter, d.device, d.config)

	if err := d.createDepthTarget(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

func (d *WGPUDevice) createDepthTarget() error {
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              d.config.Width,
			Height:             d.config.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("depth texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("depth view: %w", err)
	}
	d.depthTexture = tex
	d.depthView = view
	return nil
}

func toWGPUUsage(u BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func (d *WGPUDevice) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: toWGPUUsage(usage),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: label, size: size, buffer: buf}, nil
}

func (d *WGPUDevice) CreateBufferInit(label string, contents []byte, usage BufferUsage) (Buffer, error) {
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    toWGPUUsage(usage),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{label: label, size: uint64(len(contents)), buffer: buf}, nil
}

func (d *WGPUDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b := buf.(*wgpuBuffer)
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write %q at %d (%d bytes): %w", b.label, offset, len(data), ErrBufferTooSmall)
	}
	return d.queue.WriteBuffer(b.buffer, offset, data)
}

func toWGPUVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case VertexFormatUint32:
		return wgpu.VertexFormatUint32
	}
	panic(fmt.Sprintf("unknown vertex format %d", f))
}

func (d *WGPUDevice) bindGroupLayout(label string, stage wgpu.ShaderStage, count int) (*wgpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, count)
	for i := range entries {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: stage,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: false,
			},
		}
	}
	return d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
}

func (d *WGPUDevice) CreatePipeline(desc *PipelineDescriptor) (Pipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label + "Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.ShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	defer module.Release()

	p := &wgpuPipeline{label: desc.Label}

	if desc.VertexBindings > 0 || desc.FragmentBindings > 0 {
		bgl, err := d.bindGroupLayout(desc.Label+"VertexBGL", wgpu.ShaderStageVertex, desc.VertexBindings)
		if err != nil {
			return nil, err
		}
		p.layouts = append(p.layouts, bgl)
	}
	if desc.FragmentBindings > 0 {
		bgl, err := d.bindGroupLayout(desc.Label+"FragmentBGL", wgpu.ShaderStageFragment, desc.FragmentBindings)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.layouts = append(p.layouts, bgl)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + "Layout",
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	defer layout.Release()

	buffers := make([]wgpu.VertexBufferLayout, len(desc.VertexLayouts))
	for i, vl := range desc.VertexLayouts {
		stepMode := wgpu.VertexStepModeVertex
		if vl.Instanced {
			stepMode = wgpu.VertexStepModeInstance
		}
		attrs := make([]wgpu.VertexAttribute, len(vl.Attributes))
		for j, a := range vl.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         toWGPUVertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    stepMode,
			Attributes:  attrs,
		}
	}

	target := wgpu.ColorTargetState{
		Format:    d.config.Format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend.Enabled {
		target.Blend = blendState(desc.Blend)
	}

	p.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive:    primitiveState(desc.Topology, desc.Rasterizer),
		DepthStencil: depthStencilState(desc.DepthStencil),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  desc.SampleMask,
		},
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func blendState(b BlendState) *wgpu.BlendState {
	src, dst := wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha
	if b.UseBlendFactor {
		src, dst = wgpu.BlendFactorConstant, wgpu.BlendFactorOneMinusConstant
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: src,
			DstFactor: dst,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
}

func primitiveState(t Topology, r RasterizerState) wgpu.PrimitiveState {
	ps := wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCW,
		CullMode:  wgpu.CullModeNone,
	}
	if t == TopologyLineList {
		ps.Topology = wgpu.PrimitiveTopologyLineList
	}
	if r.FrontCounterClockwise {
		ps.FrontFace = wgpu.FrontFaceCCW
	}
	switch r.CullMode {
	case CullFront:
		ps.CullMode = wgpu.CullModeFront
	case CullBack:
		ps.CullMode = wgpu.CullModeBack
	}
	return ps
}

func depthStencilState(ds DepthStencilState) *wgpu.DepthStencilState {
	depthCompare := wgpu.CompareFunctionLess
	if !ds.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}
	face := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
	if ds.StencilTest {
		face.Compare = wgpu.CompareFunctionEqual
	}
	return &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: ds.DepthTest && ds.DepthWrite,
		DepthCompare:      depthCompare,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   0xFFFFFFFF,
		StencilWriteMask:  0xFFFFFFFF,
	}
}

func (d *WGPUDevice) CreateBindGroup(pipeline Pipeline, group uint32, buffers []Buffer) (BindGroup, error) {
	p := pipeline.(*wgpuPipeline)
	if int(group) >= len(p.layouts) {
		return nil, fmt.Errorf("pipeline %q has no bind group %d", p.label, group)
	}
	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, b := range buffers {
		wb := b.(*wgpuBuffer)
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  wb.buffer,
			Size:    wb.size,
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%sBG%d", p.label, group),
		Layout:  p.layouts[group],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: bg}, nil
}

func (d *WGPUDevice) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.config.Width = uint32(width)
	d.config.Height = uint32(height)
	d.surface.Configure(d.adapter, d.device, d.config)
	// On failure no depth target is left and BeginFrame reports it.
	_ = d.createDepthTarget()
}

func (d *WGPUDevice) Release() {
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
