package renderer

// Topology selects how vertices are assembled into primitives.
type Topology uint8

const (
	// TopologyTriangles assembles every three indices into a triangle.
	TopologyTriangles Topology = iota

	// TopologyLines assembles every two indices into a line segment.
	TopologyLines

	// TopologyPoints draws one point per index.
	TopologyPoints
)

// BlendMode selects how fragment output is combined with the target.
type BlendMode uint8

const (
	// BlendAlpha is standard premultiplied-style alpha blending, the default.
	BlendAlpha BlendMode = iota

	// BlendAdditive adds fragment color to the target, for glow/particle effects.
	BlendAdditive

	// BlendMultiply multiplies the target by the fragment color.
	BlendMultiply

	// BlendNone disables blending; fragments overwrite the target.
	BlendNone
)

// TextureFormat identifies the pixel format of a texture or render target.
type TextureFormat uint8

const (
	// FormatRGBA8Unorm is 8-bit-per-channel RGBA, linear.
	FormatRGBA8Unorm TextureFormat = iota

	// FormatRGBA8UnormSrgb is 8-bit-per-channel RGBA with sRGB encoding.
	FormatRGBA8UnormSrgb

	// FormatBGRA8Unorm is 8-bit-per-channel BGRA, linear (common swapchain format).
	FormatBGRA8Unorm

	// FormatBGRA8UnormSrgb is 8-bit-per-channel BGRA with sRGB encoding.
	FormatBGRA8UnormSrgb
)

// LoadOp selects what happens to a render target's existing contents when a
// render pass begins.
type LoadOp uint8

const (
	// LoadClear clears the target to a clear color before rendering.
	LoadClear LoadOp = iota

	// LoadPreserve keeps the target's existing contents.
	LoadPreserve
)

// BufferUsage identifies what a GPU buffer will be bound as.
type BufferUsage uint8

const (
	// BufferVertex marks a buffer holding vertex data.
	BufferVertex BufferUsage = iota

	// BufferIndex marks a buffer holding 32-bit index data.
	BufferIndex

	// BufferUniform marks a buffer bound as a shader uniform.
	BufferUniform
)

// VertexFormat identifies the type of a single vertex attribute.
type VertexFormat uint8

const (
	// VertexFloat32 is a single 32-bit float.
	VertexFloat32 VertexFormat = iota

	// VertexFloat32x2 is a pair of 32-bit floats.
	VertexFloat32x2

	// VertexFloat32x4 is four 32-bit floats.
	VertexFloat32x4
)

// VertexAttribute describes one attribute within a vertex layout.
type VertexAttribute struct {
	// Location is the shader @location index.
	Location uint32
	// Offset is the attribute's byte offset within a vertex.
	Offset uint64
	// Format is the attribute's data type.
	Format VertexFormat
}

// VertexLayout describes the memory layout of a vertex buffer.
type VertexLayout struct {
	// Stride is the byte size of one vertex.
	Stride uint64
	// Attributes lists the attributes in the vertex, in location order.
	Attributes []VertexAttribute
}

// PipelineDescriptor carries everything the backend needs to compile a render
// pipeline: the shader module source plus the fixed-function state.
type PipelineDescriptor struct {
	// Label is a debug label attached to the created GPU objects.
	Label string
	// ShaderSource is the WGSL source containing vertex and fragment entry points.
	ShaderSource string
	// VertexEntryPoint and FragmentEntryPoint name the shader entry functions.
	VertexEntryPoint, FragmentEntryPoint string
	// VertexLayout describes the single vertex buffer consumed by the pipeline.
	VertexLayout VertexLayout
	// Topology is the primitive assembly mode.
	Topology Topology
	// Format is the pixel format of the render target the pipeline draws to.
	Format TextureFormat
	// Blend is the blend state applied to the color target.
	Blend BlendMode
}

// BindGroupEntry describes one resource bound at a binding index. Exactly one
// of Buffer, Texture, or Sampler must be non-nil.
type BindGroupEntry struct {
	// Binding is the shader @binding index.
	Binding uint32
	// Buffer is a uniform buffer resource, or nil.
	Buffer Buffer
	// Texture is a sampled texture resource, or nil.
	Texture Texture
	// Sampler is a sampler resource, or nil.
	Sampler Sampler
}

// BindGroupDescriptor describes a complete resource binding object.
type BindGroupDescriptor struct {
	// Label is a debug label attached to the created GPU objects.
	Label string
	// Entries lists the bound resources in binding order.
	Entries []BindGroupEntry
}

// DrawCommand is one indexed draw recorded into the current render pass.
type DrawCommand struct {
	// Pipeline is the compiled pipeline to draw with.
	Pipeline Pipeline
	// BindGroup is the realized resource binding object.
	BindGroup BindGroup
	// VertexBuffer and IndexBuffer hold the geometry. Indices are uint32.
	VertexBuffer, IndexBuffer Buffer
	// IndexCount is the number of indices to draw.
	IndexCount uint32
	// Scissor restricts rasterization to a sub-rectangle of the target when
	// non-nil; nil means the full target.
	Scissor *ScissorRect
}

// ScissorRect is a pixel-space clip rectangle applied to a draw.
type ScissorRect struct {
	X, Y, W, H uint32
}
