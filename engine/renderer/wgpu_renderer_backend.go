package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/feyworks/polywog/common"
)

// wgpuBackend is the WebGPU implementation of the Backend interface.
type wgpuBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// Pre-creation config collected from builder options.
	forceFallbackAdapter bool

	// Frame state for batched rendering across multiple passes.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ Backend = &wgpuBackend{}

// WGPUBackendOption is a functional option used to configure the WebGPU backend during construction.
type WGPUBackendOption func(*wgpuBackend)

// WithForceFallbackAdapter forces the software fallback adapter, useful for
// headless environments and CI.
//
// Returns:
//   - WGPUBackendOption: a function that sets the fallback adapter flag
func WithForceFallbackAdapter() WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = true
	}
}

// WithVSync selects FIFO presentation instead of the default immediate mode.
//
// Returns:
//   - WGPUBackendOption: a function that sets the present mode
func WithVSync() WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.presentMode = wgpu.PresentModeFifo
	}
}

// NewWGPUBackend creates the WebGPU rendering backend for the given surface
// descriptor (typically obtained from window.Window.SurfaceDescriptor).
// Panics if no adapter or device can be acquired; there is nothing sensible a
// caller can do to recover from a machine without a usable GPU.
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor
//   - options: variadic list of WGPUBackendOption functions
//
// Returns:
//   - Backend: the configured backend
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) Backend {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	for _, opt := range options {
		opt(b)
	}

	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	b.device = device
	b.queue = device.GetQueue()

	return b
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuBackend) SurfaceFormat() TextureFormat {
	switch b.surfaceFormat {
	case wgpu.TextureFormatRGBA8Unorm:
		return FormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return FormatRGBA8UnormSrgb
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return FormatBGRA8UnormSrgb
	default:
		return FormatBGRA8Unorm
	}
}

// wgpuBuffer wraps a GPU buffer with its capacity and the queue used for writes.
type wgpuBuffer struct {
	buf      *wgpu.Buffer
	capacity uint64
	queue    *wgpu.Queue
}

func (w *wgpuBuffer) Upload(data []byte) {
	w.queue.WriteBuffer(w.buf, 0, data)
}

func (w *wgpuBuffer) Capacity() uint64 {
	return w.capacity
}

func (w *wgpuBuffer) Release() {
	w.buf.Release()
}

func (b *wgpuBackend) CreateBuffer(label string, capacity uint64, usage BufferUsage) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var wgpuUsage wgpu.BufferUsage
	switch usage {
	case BufferVertex:
		wgpuUsage = wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	case BufferIndex:
		wgpuUsage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case BufferUniform:
		wgpuUsage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  capacity,
		Usage: wgpuUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	return &wgpuBuffer{buf: buf, capacity: capacity, queue: b.queue}, nil
}

// wgpuTexture wraps a GPU texture together with its sampled view.
type wgpuTexture struct {
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	format TextureFormat
}

func (w *wgpuTexture) Format() TextureFormat {
	return w.format
}

func (w *wgpuTexture) Release() {
	w.view.Release()
	w.tex.Release()
}

func (b *wgpuBackend) CreateTexture(label string, staging common.TextureStagingData, renderable bool) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if renderable {
		usage |= wgpu.TextureUsageRenderAttachment
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	if len(staging.Pixels) > 0 {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			staging.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  staging.Width * 4,
				RowsPerImage: staging.Height,
			},
			&wgpu.Extent3D{
				Width:              staging.Width,
				Height:             staging.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create texture view %q: %w", label, err)
	}

	return &wgpuTexture{tex: tex, view: view, format: FormatRGBA8Unorm}, nil
}

// wgpuSampler wraps a GPU sampler.
type wgpuSampler struct {
	samp *wgpu.Sampler
}

func (w *wgpuSampler) Release() {
	w.samp.Release()
}

func wgpuFilter(f common.FilterMode) wgpu.FilterMode {
	if f == common.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func wgpuAddressMode(m common.AddressMode) wgpu.AddressMode {
	switch m {
	case common.AddressRepeat:
		return wgpu.AddressModeRepeat
	case common.AddressMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func (b *wgpuBackend) CreateSampler(desc common.SamplerDescriptor) (Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Sampler",
		AddressModeU:  wgpuAddressMode(desc.AddressModeU),
		AddressModeV:  wgpuAddressMode(desc.AddressModeV),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpuFilter(desc.MagFilter),
		MinFilter:     wgpuFilter(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	return &wgpuSampler{samp: samp}, nil
}

// wgpuPipeline wraps a compiled render pipeline.
type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (w *wgpuPipeline) Release() {
	w.pipeline.Release()
}

func wgpuTextureFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	default:
		return wgpu.TextureFormatBGRA8Unorm
	}
}

func wgpuTopology(t Topology) wgpu.PrimitiveTopology {
	switch t {
	case TopologyLines:
		return wgpu.PrimitiveTopologyLineList
	case TopologyPoints:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func wgpuBlendState(mode BlendMode) *wgpu.BlendState {
	switch mode {
	case BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case BlendMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorDst,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorDstAlpha,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case BlendNone:
		return nil
	default: // BlendAlpha
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}
}

func wgpuVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFloat32:
		return wgpu.VertexFormatFloat32
	case VertexFloat32x2:
		return wgpu.VertexFormatFloat32x2
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

func (b *wgpuBackend) CompileRenderPipeline(desc PipelineDescriptor) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.ShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %q: %w", desc.Label, err)
	}

	attributes := make([]wgpu.VertexAttribute, len(desc.VertexLayout.Attributes))
	for i, a := range desc.VertexLayout.Attributes {
		attributes[i] = wgpu.VertexAttribute{
			ShaderLocation: a.Location,
			Offset:         a.Offset,
			Format:         wgpuVertexFormat(a.Format),
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label + " Render Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: desc.VertexLayout.Stride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  attributes,
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpuTextureFormat(desc.Format),
					Blend:     wgpuBlendState(desc.Blend),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpuTopology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}

	return &wgpuPipeline{pipeline: created}, nil
}

// wgpuBindGroup wraps a realized bind group and the layout it was created with.
type wgpuBindGroup struct {
	group  *wgpu.BindGroup
	layout *wgpu.BindGroupLayout
}

func (w *wgpuBindGroup) Release() {
	w.group.Release()
	w.layout.Release()
}

func (b *wgpuBackend) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	groupEntries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		layoutEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    entry.Binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		switch {
		case entry.Buffer != nil:
			layoutEntries[i].Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: entry.Buffer.Capacity(),
			}
			groupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  entry.Buffer.(*wgpuBuffer).buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		case entry.Texture != nil:
			layoutEntries[i].Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
			groupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: entry.Texture.(*wgpuTexture).view,
			}
		case entry.Sampler != nil:
			layoutEntries[i].Sampler = wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			}
			groupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: entry.Sampler.(*wgpuSampler).samp,
			}
		default:
			return nil, fmt.Errorf("bind group %q entry %d has no resource", desc.Label, i)
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout %q: %w", desc.Label, err)
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}

	return &wgpuBindGroup{group: group, layout: layout}, nil
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one. This prevents wgpu-native validation errors like
	// "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("failed to create surface view: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return fmt.Errorf("failed to create command encoder: %w", err)
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackend) BeginRenderPass(target Texture, load LoadOp, clear common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return fmt.Errorf("render pass begun outside a frame")
	}

	view := b.frameView
	if target != nil {
		view = target.(*wgpuTexture).view
	}

	loadOp := wgpu.LoadOpClear
	if load == LoadPreserve {
		loadOp = wgpu.LoadOpLoad
	}

	b.framePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  loadOp,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(clear.R),
					G: float64(clear.G),
					B: float64(clear.B),
					A: float64(clear.A),
				},
			},
		},
	})
	return nil
}

func (b *wgpuBackend) Draw(cmd DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	b.framePass.SetPipeline(cmd.Pipeline.(*wgpuPipeline).pipeline)
	b.framePass.SetBindGroup(0, cmd.BindGroup.(*wgpuBindGroup).group, nil)
	if cmd.Scissor != nil {
		b.framePass.SetScissorRect(cmd.Scissor.X, cmd.Scissor.Y, cmd.Scissor.W, cmd.Scissor.H)
	}
	b.framePass.SetVertexBuffer(0, cmd.VertexBuffer.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(cmd.IndexBuffer.(*wgpuBuffer).buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(cmd.IndexCount, 1, 0, 0, 0)
}

func (b *wgpuBackend) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return fmt.Errorf("frame ended without a begin")
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	return nil
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}
