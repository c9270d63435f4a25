package app

import (
	"fmt"

	"github.com/gekko3d/molview"
	"github.com/gekko3d/molview/molrt/rt/batch"
	"github.com/gekko3d/molview/molrt/rt/core"
	"github.com/gekko3d/molview/molrt/rt/gpu"
	"github.com/gekko3d/molview/molrt/rt/mesh"
	"github.com/gekko3d/molview/molrt/rt/shaders"
	"github.com/gekko3d/molview/molrt/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
)

// AtomVertex is the vertex format shared by the atom and box pipelines.
type AtomVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

const atomVertexStride = 24

var boxColor = mgl32.Vec4{0.9, 0.9, 0.9, 1}

func toAtomVertices(in []mesh.GenericVertex) []AtomVertex {
	out := make([]AtomVertex, len(in))
	for i, v := range in {
		out[i] = AtomVertex{Position: v.Position, Normal: v.Normal}
	}
	return out
}

func atomPipelineDescriptor() gpu.PipelineDescriptor {
	return gpu.PipelineDescriptor{
		Label:         "Atoms",
		ShaderSource:  shaders.AtomsWGSL,
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		VertexLayouts: []gpu.VertexLayout{
			{
				Stride: atomVertexStride,
				Attributes: []gpu.VertexAttribute{
					{Format: gpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: gpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				},
			},
			{
				Stride:    batch.InstanceDataSize,
				Instanced: true,
				Attributes: []gpu.VertexAttribute{
					{Format: gpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
					{Format: gpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 3},
					{Format: gpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
					{Format: gpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 5},
					{Format: gpu.VertexFormatUint32, Offset: 64, ShaderLocation: 6},
				},
			},
		},
		Topology:     gpu.TopologyTriangleList,
		Rasterizer:   gpu.RasterizerState{CullMode: gpu.CullNone},
		DepthStencil: gpu.DepthStencilState{DepthTest: true, DepthWrite: true},
	}
}

func boxPipelineDescriptor() gpu.PipelineDescriptor {
	return gpu.PipelineDescriptor{
		Label:         "Box",
		ShaderSource:  shaders.BoxWGSL,
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		VertexLayouts: []gpu.VertexLayout{
			{
				Stride: atomVertexStride,
				Attributes: []gpu.VertexAttribute{
					{Format: gpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				},
			},
		},
		Topology:     gpu.TopologyLineList,
		Rasterizer:   gpu.RasterizerState{CullMode: gpu.CullNone},
		DepthStencil: gpu.DepthStencilState{DepthTest: true, DepthWrite: true},
	}
}

// Renderer owns every GPU resource of the scene: one mesh set holding the
// unit sphere and the wire box, the two pipelines, their constant buffers and
// the instance buffer the atom batch streams through.
type Renderer struct {
	device gpu.Device
	logger molview.Logger

	meshes *mesh.MeshSet[AtomVertex]

	passConstants   *gpu.ConstantBuffer
	materials       *gpu.ConstantBuffer
	objectConstants *gpu.ConstantBuffer
	instances       gpu.Buffer

	atomPipeline *gpu.PipelineConfig
	boxPipeline  *gpu.PipelineConfig

	atoms *batch.RenderObjectList
	box   *batch.RenderObject

	lighting    core.Lighting
	radiusScale float32
	passData    []byte
	viewProj    mgl32.Mat4
	scratch     []byte
}

func NewRenderer(device gpu.Device, cfg molview.Config, simulation *sim.Simulation, logger molview.Logger) (_ *Renderer, err error) {
	r := &Renderer{
		device:      device,
		logger:      molview.OrNop(logger),
		lighting:    core.DefaultLighting(),
		radiusScale: cfg.RadiusScale,
		viewProj:    mgl32.Ident4(),
	}
	defer func() {
		if err != nil {
			r.Release()
		}
	}()

	r.meshes = mesh.NewMeshSet[AtomVertex]("Shapes", false)
	r.meshes.SetVertexConversion(toAtomVertices)
	sphere := r.meshes.AddSphere(1, cfg.SphereSlices, cfg.SphereStacks)
	wireBox := r.meshes.AddWireBox(2, 2, 2)
	if err = r.meshes.Finalize(device); err != nil {
		return nil, err
	}

	if r.passConstants, err = gpu.NewConstantBuffer(device, "PassConstants", core.PassConstantsSize); err != nil {
		return nil, err
	}
	if r.materials, err = gpu.NewConstantBufferInit(device, "Materials", core.PackMaterials(core.ElementMaterials())); err != nil {
		return nil, err
	}
	if r.objectConstants, err = gpu.NewConstantBuffer(device, "BoxConstants", core.ObjectConstantsSize); err != nil {
		return nil, err
	}
	instanceBytes := uint64(cfg.MaxInstances) * batch.InstanceDataSize
	if r.instances, err = device.CreateBuffer("Instances", instanceBytes, gpu.BufferUsageVertex|gpu.BufferUsageCopyDst); err != nil {
		return nil, fmt.Errorf("instance buffer: %w", err)
	}

	r.atomPipeline, err = gpu.NewPipelineConfig(device, atomPipelineDescriptor(),
		gpu.NewConstantBufferArray(gpu.ShaderStageVertex, r.passConstants),
		gpu.NewConstantBufferArray(gpu.ShaderStageFragment, r.passConstants, r.materials))
	if err != nil {
		return nil, err
	}
	r.boxPipeline, err = gpu.NewPipelineConfig(device, boxPipelineDescriptor(),
		gpu.NewConstantBufferArray(gpu.ShaderStageVertex, r.objectConstants), nil)
	if err != nil {
		return nil, err
	}

	r.atoms = batch.NewRenderObjectList(sphere, "Atoms")
	r.atoms.SetChunkSize(cfg.MaxInstances)
	r.atoms.SetBufferUpdateCallback(r.uploadInstances)

	boxScale := batch.PositionFunc(func(int) mgl32.Vec3 { return simulation.BoxScaling() })
	boxCenter := batch.PositionFunc(func(int) mgl32.Vec3 { return simulation.BoxCenter() })
	r.box = batch.NewRenderObject(wireBox, "Box", batch.PositionRef{Source: boxScale}, batch.PositionRef{Source: boxCenter}, 0)
	r.box.SetBufferUpdateCallback(r.uploadBoxConstants)

	r.logger.Debugf("renderer ready: meshes=%s vertices=%d indices=%d instance capacity=%d",
		r.meshes.ID, r.meshes.VertexCount(), r.meshes.IndexCount(), cfg.MaxInstances)
	return r, nil
}

func (r *Renderer) uploadInstances(frame gpu.Frame, list *batch.RenderObjectList, start, end int) error {
	r.scratch = list.PackInstances(r.scratch, start, end)
	return frame.WriteBuffer(r.instances, 0, r.scratch)
}

func (r *Renderer) uploadBoxConstants(frame gpu.Frame, obj *batch.RenderObject) error {
	oc := core.ObjectConstants{
		WorldViewProj: r.viewProj.Mul4(obj.WorldMatrix()),
		Color:         boxColor,
	}
	return r.objectConstants.Update(frame, oc.Bytes())
}

func (r *Renderer) Reserve(n int) { r.atoms.Reserve(n) }

// AddAtom registers a batch instance that follows the given simulation slot.
func (r *Renderer) AddAtom(simulation *sim.Simulation, slot int) {
	kind := simulation.KindAt(slot)
	radius := kind.Radius() * r.radiusScale
	r.atoms.AddInstance(mgl32.Vec3{radius, radius, radius}, batch.PositionRef{Source: simulation, Slot: slot}, kind.MaterialIndex())
}

// Update refreshes the CPU side of the frame: pass constants and world matrices.
func (r *Renderer) Update(camera *core.Camera, timer core.FrameTimer) {
	pc := core.BuildPassConstants(camera, timer, r.lighting)
	r.passData = pc.Bytes()
	r.viewProj = pc.ViewProj

	r.atoms.Update()
	r.box.Update()
}

// Render records the atoms and then the box outline.
func (r *Renderer) Render(frame gpu.Frame) error {
	if r.passData == nil {
		panic("renderer: Render before Update")
	}
	if err := r.passConstants.Update(frame, r.passData); err != nil {
		return err
	}

	r.meshes.BindToIA(frame)

	if r.atoms.Len() > 0 {
		r.atomPipeline.Apply(frame)
		frame.SetVertexBuffer(1, r.instances)
		if err := r.atoms.Render(frame); err != nil {
			return err
		}
	}

	r.boxPipeline.Apply(frame)
	return r.box.Render(frame)
}

// DrawCount is the number of draw calls the next Render issues.
func (r *Renderer) DrawCount() int {
	n := r.atoms.Len()
	chunk := r.atoms.ChunkSize()
	return (n+chunk-1)/chunk + 1
}

func (r *Renderer) Atoms() *batch.RenderObjectList { return r.atoms }
func (r *Renderer) Box() *batch.RenderObject       { return r.box }

func (r *Renderer) Release() {
	if r.atomPipeline != nil {
		r.atomPipeline.Release()
	}
	if r.boxPipeline != nil {
		r.boxPipeline.Release()
	}
	if r.instances != nil {
		r.instances.Release()
	}
	for _, cb := range []*gpu.ConstantBuffer{r.passConstants, r.materials, r.objectConstants} {
		if cb != nil {
			cb.Release()
		}
	}
	if r.meshes != nil {
		r.meshes.Release()
	}
}
