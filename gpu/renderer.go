// Package gpu implements the hardware rendering backend for the sprite
// grid pipeline on top of wgpu. It owns the atlas texture, the quad
// batch buffers and the render pipeline, and draws each mapped grid in
// a single indexed draw call.
package gpu

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	log "github.com/sirupsen/logrus"

	"github.com/spritegrid/spritegrid"
)

//go:embed shaders/sprite_grid.wgsl
var spriteGridShaderSource string

// fenceTimeout bounds how long Draw waits for the GPU per frame.
const fenceTimeout = 5 * time.Second

// Renderer implements spritegrid.FrameRenderer against a wgpu device.
// It is not safe for concurrent use; the owning Session serializes all
// calls.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	// Pipeline objects, created lazily on first upload.
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler

	// Persistent buffers and the current atlas texture.
	uniformBuf hal.Buffer
	uvBuf      hal.Buffer
	uvBufSize  uint64
	atlasTex   hal.Texture
	atlasView  hal.TextureView
	bindGroup  hal.BindGroup

	// Quad batch buffers, grown as the grid size demands.
	vertBuf     hal.Buffer
	vertBufSize uint64
	idxBuf      hal.Buffer
	idxCells    int

	// Current render target, set per frame by the host window loop.
	target  hal.TextureView
	targetW int
	targetH int
}

// NewRenderer creates a renderer on an explicit device and queue. The
// format must match the surface the renderer will draw to.
func NewRenderer(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *Renderer {
	return &Renderer{device: device, queue: queue, format: format}
}

// NewRendererFromProvider creates a renderer from a host GPU context
// provider implementing HalDevice() any and HalQueue() any, the shape
// gogpu.App.GPUContextProvider returns. The surface format is assumed
// BGRA8Unorm, the format gogpu presents in.
func NewRendererFromProvider(provider any) (*Renderer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return NewRenderer(device, queue, gputypes.TextureFormatBGRA8Unorm), nil
}

// SetTarget points the renderer at the surface view for the current
// frame. gogpu invalidates the view each frame, so the host draw
// callback calls this before Session.Frame.
func (r *Renderer) SetTarget(view hal.TextureView, w, h int) {
	r.target = view
	r.targetW = w
	r.targetH = h
}

// SetSurfaceTarget is SetTarget for hosts that expose the surface view
// as an untyped value, the way gogpu's draw context does.
func (r *Renderer) SetSurfaceTarget(view any, w, h int) error {
	tv, ok := view.(hal.TextureView)
	if !ok || tv == nil {
		return fmt.Errorf("gpu: surface view is not hal.TextureView")
	}
	r.SetTarget(tv, w, h)
	return nil
}

// UploadAtlas creates a texture from the atlas image and refreshes the
// UV rectangle storage buffer and bind group. The previous texture is
// destroyed only after the new bind group is live, so an in-flight
// frame never samples a freed texture.
func (r *Renderer) UploadAtlas(atlas *spritegrid.Atlas) error {
	if err := r.ensurePipeline(); err != nil {
		return err
	}

	b := atlas.Image.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sprite_atlas",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture: %w", err)
	}

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "sprite_atlas_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create atlas texture view: %w", err)
	}

	r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		atlas.Image.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	// Grow the UV buffer without destroying the one the live bind group
	// still references; the old buffer is released after the swap below.
	uvData := buildUVRectData(atlas.UV)
	var oldUV hal.Buffer
	oldUVSize := r.uvBufSize
	if r.uvBuf == nil || r.uvBufSize < uint64(len(uvData)) {
		uvBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "sprite_grid_uv_rects",
			Size:  uint64(len(uvData)),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			r.device.DestroyTextureView(view)
			r.device.DestroyTexture(tex)
			return fmt.Errorf("create uv buffer: %w", err)
		}
		oldUV = r.uvBuf
		r.uvBuf = uvBuf
		r.uvBufSize = uint64(len(uvData))
	}
	r.queue.WriteBuffer(r.uvBuf, 0, uvData)

	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_grid_bind",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: r.uvBuf.NativeHandle(), Offset: 0, Size: uint64(len(uvData)),
			}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{
				TextureView: gputypes.TextureViewHandle(view.NativeHandle()),
			}},
			{Binding: 3, Resource: gputypes.SamplerBinding{
				Sampler: gputypes.SamplerHandle(r.sampler.NativeHandle()),
			}},
		},
	})
	if err != nil {
		if oldUV != nil {
			r.device.DestroyBuffer(r.uvBuf)
			r.uvBuf = oldUV
			r.uvBufSize = oldUVSize
		}
		r.device.DestroyTextureView(view)
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create bind group: %w", err)
	}

	oldBind, oldView, oldTex := r.bindGroup, r.atlasView, r.atlasTex
	r.bindGroup = bindGroup
	r.atlasView = view
	r.atlasTex = tex
	if oldBind != nil {
		r.device.DestroyBindGroup(oldBind)
	}
	if oldView != nil {
		r.device.DestroyTextureView(oldView)
	}
	if oldTex != nil {
		r.device.DestroyTexture(oldTex)
	}
	if oldUV != nil {
		r.device.DestroyBuffer(oldUV)
	}

	log.WithFields(log.Fields{
		"width":   w,
		"height":  h,
		"sprites": atlas.Len(),
	}).Debug("atlas uploaded")
	return nil
}

// Draw renders one grid into the viewport region of the current target
// as a single indexed draw over one quad per cell. The pass clears the
// target to transparent so the letterbox bars show the surface beneath.
func (r *Renderer) Draw(grid *spritegrid.Grid, atlas *spritegrid.Atlas, vp spritegrid.Viewport) error {
	if r.target == nil {
		return fmt.Errorf("gpu: no render target set")
	}
	if r.bindGroup == nil {
		return spritegrid.ErrNoAtlas
	}

	r.queue.WriteBuffer(r.uniformBuf, 0, buildUniformData(r.targetW, r.targetH))

	vertexData := buildGridVertices(grid, vp)
	if err := r.ensureVertexBuffer(uint64(len(vertexData))); err != nil {
		return err
	}
	r.queue.WriteBuffer(r.vertBuf, 0, vertexData)

	cells := grid.Cells()
	if err := r.ensureIndexBuffer(cells); err != nil {
		return err
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "sprite_grid_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("sprite_grid"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "sprite_grid_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       r.target,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, r.bindGroup, nil)
	rp.SetVertexBuffer(0, r.vertBuf, 0)
	rp.SetIndexBuffer(r.idxBuf, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(uint32(cells*indicesPerCell), 1, 0, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// Release frees every GPU resource in reverse creation order. Safe to
// call multiple times.
func (r *Renderer) Release() {
	if r.device == nil {
		return
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	if r.atlasView != nil {
		r.device.DestroyTextureView(r.atlasView)
		r.atlasView = nil
	}
	if r.atlasTex != nil {
		r.device.DestroyTexture(r.atlasTex)
		r.atlasTex = nil
	}
	if r.idxBuf != nil {
		r.device.DestroyBuffer(r.idxBuf)
		r.idxBuf = nil
		r.idxCells = 0
	}
	if r.vertBuf != nil {
		r.device.DestroyBuffer(r.vertBuf)
		r.vertBuf = nil
		r.vertBufSize = 0
	}
	if r.uvBuf != nil {
		r.device.DestroyBuffer(r.uvBuf)
		r.uvBuf = nil
		r.uvBufSize = 0
	}
	if r.uniformBuf != nil {
		r.device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
	r.target = nil
}

func (r *Renderer) ensureVertexBuffer(size uint64) error {
	if r.vertBuf != nil && r.vertBufSize >= size {
		return nil
	}
	if r.vertBuf != nil {
		r.device.DestroyBuffer(r.vertBuf)
		r.vertBuf = nil
	}
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_grid_verts",
		Size:  size,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	r.vertBuf = buf
	r.vertBufSize = size
	return nil
}

// ensureIndexBuffer builds the quad index pattern for the given cell
// count. The pattern only depends on the cell count, so the buffer is
// rebuilt only when the grid is resized.
func (r *Renderer) ensureIndexBuffer(cells int) error {
	if r.idxBuf != nil && r.idxCells == cells {
		return nil
	}
	if r.idxBuf != nil {
		r.device.DestroyBuffer(r.idxBuf)
		r.idxBuf = nil
	}
	data := buildGridIndices(cells)
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_grid_indices",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create index buffer: %w", err)
	}
	r.queue.WriteBuffer(buf, 0, data)
	r.idxBuf = buf
	r.idxCells = cells
	return nil
}

// ensurePipeline compiles the shader and creates the pipeline, sampler
// and uniform buffer on first use.
func (r *Renderer) ensurePipeline() error {
	if r.pipeline != nil {
		return nil
	}
	if spriteGridShaderSource == "" {
		return fmt.Errorf("sprite_grid shader source is empty")
	}

	shader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "sprite_grid_shader",
		Source: hal.ShaderSource{WGSL: spriteGridShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile sprite_grid shader: %w", err)
	}
	r.shader = shader

	// Bind group layout:
	//   Binding 0: GridUniforms (uniform buffer, vertex)
	//   Binding 1: UV rectangle table (read-only storage, vertex)
	//   Binding 2: Atlas texture (texture_2d, fragment)
	//   Binding 3: Sampler (fragment)
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_grid_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "sprite_grid_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "sprite_grid_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	r.sampler = sampler

	uniformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_grid_uniform",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "sprite_grid_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    gridVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline

	return nil
}

// gridVertexLayout returns the vertex buffer layout for the sprite grid
// pipeline. Matches VertexInput in sprite_grid.wgsl.
func gridVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // local
				{Format: gputypes.VertexFormatFloat32, Offset: 16, ShaderLocation: 2},   // sprite_index
			},
		},
	}
}
