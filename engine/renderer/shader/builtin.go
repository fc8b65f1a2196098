package shader

// Reserved parameter names whose values the draw core refreshes automatically
// at every flush. Shaders that declare parameters with these names receive the
// layer's view matrix, main texture, and main sampler without any SetParam call.
const (
	// ViewParam is the combined projection and camera matrix.
	ViewParam = "view"

	// TextureParam is the layer's main texture.
	TextureParam = "tex"

	// SamplerParam is the layer's main sampler.
	SamplerParam = "tex_sampler"
)

// builtin2DSource is the WGSL source of the standard 2D shader. The vertex
// mode attribute selects between untextured (0), textured (1), and text (2)
// output so shape, sprite, and glyph geometry can share one pipeline. Text
// mode reads only the texel alpha, which is what a glyph atlas carries.
const builtin2DSource = `
struct VertexInput {
    @location(0) pos: vec2<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) color: vec4<f32>,
    @location(3) mode: f32,
}

struct VertexOutput {
    @builtin(position) clip_pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec4<f32>,
    @location(2) mode: f32,
}

@group(0) @binding(0) var<uniform> view: mat4x4<f32>;
@group(0) @binding(1) var tex: texture_2d<f32>;
@group(0) @binding(2) var tex_sampler: sampler;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_pos = view * vec4<f32>(in.pos, 0.0, 1.0);
    out.uv = in.uv;
    out.color = in.color;
    out.mode = in.mode;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texel = textureSample(tex, tex_sampler, in.uv);
    if (in.mode > 1.5) {
        return vec4<f32>(in.color.rgb, in.color.a * texel.a);
    }
    return mix(in.color, texel * in.color, in.mode);
}
`

// NewBuiltin2D creates a fresh instance of the standard 2D shader: a view
// matrix, a main texture, and a main sampler, with per-vertex color and a
// textured/untextured mode switch.
//
// Returns:
//   - Shader: the built-in 2D shader
func NewBuiltin2D() Shader {
	return NewShader("builtin2d", builtin2DSource)
}
