package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

type vertexBinding struct {
	slot uint32
	buf  *wgpuBuffer
}

// wgpuFrame records into one render pass at a time. Queue writes land before
// the next submit, so a write that follows draws ends the pass, submits it
// and resumes in a fresh pass that loads the previous contents.
type wgpuFrame struct {
	d *WGPUDevice

	texture *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	clear   wgpu.Color
	dirty   bool

	// Bound state re-applied after each flush.
	pipeline    *wgpu.RenderPipeline
	bindGroups  map[uint32]*wgpu.BindGroup
	vertex      []vertexBinding
	index       *wgpuBuffer
	indexFormat wgpu.IndexFormat
	blend       *wgpu.Color
	stencilRef  *uint32
}

func (d *WGPUDevice) BeginFrame(clear [4]float64) (Frame, error) {
	if d.active != nil {
		return nil, ErrFrameActive
	}
	if d.depthView == nil {
		return nil, fmt.Errorf("no depth target for %dx%d surface", d.config.Width, d.config.Height)
	}

	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("surface view: %w", err)
	}

	f := &wgpuFrame{
		d:          d,
		texture:    tex,
		view:       view,
		clear:      wgpu.Color{R: clear[0], G: clear[1], B: clear[2], A: clear[3]},
		bindGroups: make(map[uint32]*wgpu.BindGroup),
	}
	if err := f.beginPass(wgpu.LoadOpClear); err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}
	d.active = f
	return f, nil
}

func (f *wgpuFrame) beginPass(load wgpu.LoadOp) error {
	encoder, err := f.d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	f.encoder = encoder
	f.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       f.view,
				LoadOp:     load,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: f.clear,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              f.d.depthView,
			DepthLoadOp:       load,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1.0,
			StencilLoadOp:     load,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		},
	})
	f.dirty = false
	return nil
}

// submit ends the open pass and queues its commands.
func (f *wgpuFrame) submit() error {
	if err := f.pass.End(); err != nil {
		return fmt.Errorf("render pass end: %w", err)
	}
	f.pass.Release()
	f.pass = nil

	cmd, err := f.encoder.Finish(nil)
	f.encoder.Release()
	f.encoder = nil
	if err != nil {
		return fmt.Errorf("encoder finish: %w", err)
	}
	f.d.queue.Submit(cmd)
	cmd.Release()
	return nil
}

func (f *wgpuFrame) restore() {
	if f.pipeline != nil {
		f.pass.SetPipeline(f.pipeline)
	}
	for i, g := range f.bindGroups {
		f.pass.SetBindGroup(i, g, nil)
	}
	for _, v := range f.vertex {
		f.pass.SetVertexBuffer(v.slot, v.buf.buffer, 0, wgpu.WholeSize)
	}
	if f.index != nil {
		f.pass.SetIndexBuffer(f.index.buffer, f.indexFormat, 0, wgpu.WholeSize)
	}
	if f.blend != nil {
		f.pass.SetBlendConstant(f.blend)
	}
	if f.stencilRef != nil {
		f.pass.SetStencilReference(*f.stencilRef)
	}
}

func (f *wgpuFrame) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if f.pass == nil {
		return ErrFrameClosed
	}
	if f.dirty {
		if err := f.submit(); err != nil {
			return err
		}
		if err := f.d.WriteBuffer(buf, offset, data); err != nil {
			return err
		}
		if err := f.beginPass(wgpu.LoadOpLoad); err != nil {
			return err
		}
		f.restore()
		return nil
	}
	return f.d.WriteBuffer(buf, offset, data)
}

func (f *wgpuFrame) SetPipeline(p Pipeline) {
	f.pipeline = p.(*wgpuPipeline).pipeline
	f.pass.SetPipeline(f.pipeline)
}

func (f *wgpuFrame) SetBindGroup(index uint32, group BindGroup) {
	g := group.(*wgpuBindGroup).group
	f.bindGroups[index] = g
	f.pass.SetBindGroup(index, g, nil)
}

func (f *wgpuFrame) SetVertexBuffer(slot uint32, buf Buffer) {
	b := buf.(*wgpuBuffer)
	replaced := false
	for i := range f.vertex {
		if f.vertex[i].slot == slot {
			f.vertex[i].buf = b
			replaced = true
		}
	}
	if !replaced {
		f.vertex = append(f.vertex, vertexBinding{slot: slot, buf: b})
	}
	f.pass.SetVertexBuffer(slot, b.buffer, 0, wgpu.WholeSize)
}

func (f *wgpuFrame) SetIndexBuffer(buf Buffer, format IndexFormat) {
	f.index = buf.(*wgpuBuffer)
	f.indexFormat = wgpu.IndexFormatUint16
	if format == IndexFormatUint32 {
		f.indexFormat = wgpu.IndexFormatUint32
	}
	f.pass.SetIndexBuffer(f.index.buffer, f.indexFormat, 0, wgpu.WholeSize)
}

func (f *wgpuFrame) SetBlendConstant(c [4]float64) {
	f.blend = &wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
	f.pass.SetBlendConstant(f.blend)
}

func (f *wgpuFrame) SetStencilReference(ref uint32) {
	f.stencilRef = &ref
	f.pass.SetStencilReference(ref)
}

func (f *wgpuFrame) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	if f.pass == nil {
		return ErrFrameClosed
	}
	f.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	f.dirty = true
	return nil
}

func (f *wgpuFrame) Present() error {
	if f.pass == nil {
		return ErrFrameClosed
	}
	err := f.submit()
	if err == nil {
		f.d.surface.Present()
	}
	f.close()
	return err
}

func (f *wgpuFrame) Abort() {
	if f.pass != nil {
		_ = f.pass.End()
		f.pass.Release()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
	f.close()
}

func (f *wgpuFrame) close() {
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.texture != nil {
		f.texture.Release()
		f.texture = nil
	}
	if f.d.active == f {
		f.d.active = nil
	}
}
