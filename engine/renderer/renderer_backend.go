package renderer

import (
	"github.com/feyworks/polywog/common"
)

// Buffer is an opaque GPU buffer with a fixed capacity. Contents can be
// rewritten in place via Upload; the capacity never changes.
type Buffer interface {
	// Upload writes data into the buffer starting at offset zero.
	// len(data) must not exceed Capacity.
	//
	// Parameters:
	//   - data: the bytes to write
	Upload(data []byte)

	// Capacity returns the buffer's byte capacity.
	//
	// Returns:
	//   - uint64: the capacity in bytes
	Capacity() uint64

	// Release frees the GPU buffer.
	Release()
}

// Texture is an opaque GPU texture usable as a sampled binding and, when
// created renderable, as a render pass target.
type Texture interface {
	// Format returns the texture's pixel format.
	//
	// Returns:
	//   - TextureFormat: the format
	Format() TextureFormat

	// Release frees the GPU texture.
	Release()
}

// Sampler is an opaque GPU sampler object.
type Sampler interface {
	// Release frees the GPU sampler.
	Release()
}

// Pipeline is an opaque compiled render pipeline.
type Pipeline interface {
	// Release frees the GPU pipeline.
	Release()
}

// BindGroup is an opaque realized resource binding object.
type BindGroup interface {
	// Release frees the GPU bind group.
	Release()
}

// Backend is the downstream graphics collaborator consumed by the draw core.
// It wraps resource creation and the per-frame encode/submit/present sequence
// behind opaque objects so nothing above it touches the native API.
//
// All methods must be called from the thread that created the backend; GPU
// submission is fire-and-forget and never awaited.
type Backend interface {
	// SurfaceFormat returns the pixel format of the window surface, needed to
	// compile pipelines that draw to the window.
	//
	// Returns:
	//   - TextureFormat: the configured surface format
	SurfaceFormat() TextureFormat

	// ConfigureSurface (re)configures the window surface for a new size.
	// Must be called before the first frame and after every resize.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	ConfigureSurface(width, height int)

	// CreateBuffer creates a GPU buffer of the given capacity and usage.
	//
	// Parameters:
	//   - label: debug label
	//   - capacity: byte capacity
	//   - usage: what the buffer will be bound as
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if creation fails
	CreateBuffer(label string, capacity uint64, usage BufferUsage) (Buffer, error)

	// CreateTexture creates a GPU texture and uploads the staging pixels.
	// Renderable textures can additionally be used as render pass targets.
	//
	// Parameters:
	//   - label: debug label
	//   - staging: RGBA pixel data and dimensions (Pixels may be nil for
	//     renderable textures that are only ever drawn into)
	//   - renderable: whether the texture can be a render pass target
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if creation fails
	CreateTexture(label string, staging common.TextureStagingData, renderable bool) (Texture, error)

	// CreateSampler creates a GPU sampler from a descriptor.
	//
	// Parameters:
	//   - desc: the sampler configuration
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	CreateSampler(desc common.SamplerDescriptor) (Sampler, error)

	// CompileRenderPipeline compiles a render pipeline from shader source and
	// fixed-function state.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - Pipeline: the compiled pipeline
	//   - error: an error if compilation fails
	CompileRenderPipeline(desc PipelineDescriptor) (Pipeline, error)

	// CreateBindGroup realizes a resource binding object from a list of
	// bound resources. The binding layout is derived from the entries.
	//
	// Parameters:
	//   - desc: the bind group description
	//
	// Returns:
	//   - BindGroup: the realized bind group
	//   - error: an error if creation fails
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// BeginFrame acquires the swapchain texture and creates the frame's
	// command encoder. Must be paired with EndFrame and Present.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// BeginRenderPass opens a render pass against a target within the current
	// frame. A nil target means the window surface.
	//
	// Parameters:
	//   - target: the render target texture, or nil for the window
	//   - load: whether to clear or preserve the target's contents
	//   - clear: the clear color used when load is LoadClear
	//
	// Returns:
	//   - error: an error if the pass could not be opened
	BeginRenderPass(target Texture, load LoadOp, clear common.Color) error

	// Draw records one indexed draw into the current render pass.
	//
	// Parameters:
	//   - cmd: the draw command
	Draw(cmd DrawCommand)

	// EndRenderPass closes the current render pass.
	EndRenderPass()

	// EndFrame finishes the frame's command encoder and submits it to the GPU
	// queue. Submission is not awaited.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the window surface and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}
