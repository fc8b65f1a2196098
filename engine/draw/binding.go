package draw

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// BindingValue is one value assignable to a shader parameter: a texture
// handle, a sampler descriptor, or a uniform of a fixed type. Construct with
// the typed helpers; the zero value is not a valid binding.
type BindingValue struct {
	kind    shader.ParamKind
	uniform shader.UniformType
	texture *graphics.Texture
	sampler common.SamplerDescriptor

	// data holds the uniform payload as raw 32-bit words. Integer uniforms
	// must not pass through float storage; NaN bit patterns are not preserved
	// by float copies on every platform.
	data [16]uint32
}

// uniformValue packs float components into a uniform binding's raw words.
func uniformValue(t shader.UniformType, vals ...float32) BindingValue {
	v := BindingValue{kind: shader.ParamUniform, uniform: t}
	for i, f := range vals {
		v.data[i] = math.Float32bits(f)
	}
	return v
}

// TextureValue binds a texture handle.
//
// Parameters:
//   - t: the texture to bind
//
// Returns:
//   - BindingValue: the texture binding
func TextureValue(t *graphics.Texture) BindingValue {
	return BindingValue{kind: shader.ParamTexture, texture: t}
}

// SamplerValue binds a sampler configuration.
//
// Parameters:
//   - desc: the sampler configuration
//
// Returns:
//   - BindingValue: the sampler binding
func SamplerValue(desc common.SamplerDescriptor) BindingValue {
	return BindingValue{kind: shader.ParamSampler, sampler: desc}
}

// FloatValue binds a single f32 uniform.
func FloatValue(v float32) BindingValue {
	return uniformValue(shader.UniformFloat, v)
}

// IntValue binds a single i32 uniform.
func IntValue(v int32) BindingValue {
	b := BindingValue{kind: shader.ParamUniform, uniform: shader.UniformInt}
	b.data[0] = uint32(v)
	return b
}

// UintValue binds a single u32 uniform.
func UintValue(v uint32) BindingValue {
	b := BindingValue{kind: shader.ParamUniform, uniform: shader.UniformUint}
	b.data[0] = v
	return b
}

// Vec2Value binds a vec2<f32> uniform.
func Vec2Value(x, y float32) BindingValue {
	return uniformValue(shader.UniformVec2, x, y)
}

// Vec3Value binds a vec3<f32> uniform.
func Vec3Value(x, y, z float32) BindingValue {
	return uniformValue(shader.UniformVec3, x, y, z)
}

// Vec4Value binds a vec4<f32> uniform.
func Vec4Value(x, y, z, w float32) BindingValue {
	return uniformValue(shader.UniformVec4, x, y, z, w)
}

// ColorValue binds a color as a vec4<f32> uniform.
func ColorValue(c common.Color) BindingValue {
	return Vec4Value(c.R, c.G, c.B, c.A)
}

// Mat2Value binds a mat2x2<f32> uniform from column-major values.
func Mat2Value(m [4]float32) BindingValue {
	return uniformValue(shader.UniformMat2, m[:]...)
}

// Mat3Value binds a mat3x3<f32> uniform from column-major values.
func Mat3Value(m [9]float32) BindingValue {
	return uniformValue(shader.UniformMat3, m[:]...)
}

// Mat4Value binds a mat4x4<f32> uniform.
func Mat4Value(m common.Mat4) BindingValue {
	return uniformValue(shader.UniformMat4, m[:]...)
}

// Texture returns the bound texture handle, or nil for non-texture bindings.
func (v BindingValue) Texture() *graphics.Texture {
	return v.texture
}

// matches reports whether the value satisfies the parameter's declaration.
func (v BindingValue) matches(p shader.Param) bool {
	if v.kind != p.Kind {
		return false
	}
	return p.Kind != shader.ParamUniform || v.uniform == p.Uniform
}

// encodeUniform appends the uniform's bytes to dst per WGSL uniform layout
// rules. mat3 columns are padded to 16 bytes.
func (v BindingValue) encodeUniform(dst []byte) []byte {
	appendWords := func(dst []byte, words []uint32) []byte {
		for _, w := range words {
			dst = binary.LittleEndian.AppendUint32(dst, w)
		}
		return dst
	}
	switch v.uniform {
	case shader.UniformFloat, shader.UniformInt, shader.UniformUint:
		return appendWords(dst, v.data[:1])
	case shader.UniformVec2:
		return appendWords(dst, v.data[:2])
	case shader.UniformVec3:
		return appendWords(dst, v.data[:3])
	case shader.UniformVec4, shader.UniformMat2:
		return appendWords(dst, v.data[:4])
	case shader.UniformMat3:
		for col := 0; col < 3; col++ {
			dst = appendWords(dst, v.data[col*3:col*3+3])
			dst = binary.LittleEndian.AppendUint32(dst, 0)
		}
		return dst
	case shader.UniformMat4:
		return appendWords(dst, v.data[:16])
	default:
		return dst
	}
}

// bindingSet is the live named-parameter state for one shader: a dense slice
// of values whose order mirrors the shader's declared parameter list. It is
// reseeded to defaults on shader change and mutated in place otherwise.
type bindingSet struct {
	shader shader.Shader
	values []BindingValue
}

// seed resets the set to the shader's declared schema with type-appropriate
// defaults: textures get the fallback texture, samplers the default
// descriptor, uniforms the zero of their declared type.
func (b *bindingSet) seed(sh shader.Shader, fallback *graphics.Texture) {
	b.shader = sh
	params := sh.Params()
	if cap(b.values) < len(params) {
		b.values = make([]BindingValue, len(params))
	}
	b.values = b.values[:len(params)]
	for i, p := range params {
		switch p.Kind {
		case shader.ParamTexture:
			b.values[i] = TextureValue(fallback)
		case shader.ParamSampler:
			b.values[i] = SamplerValue(common.DefaultSampler())
		default:
			b.values[i] = BindingValue{kind: shader.ParamUniform, uniform: p.Uniform}
		}
	}
}

// set writes a validated value at the parameter's position. The caller has
// already resolved and checked the parameter against the shader.
func (b *bindingSet) set(p shader.Param, v BindingValue) error {
	for i, decl := range b.shader.Params() {
		if decl.Binding == p.Binding {
			b.values[i] = v
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownParam, p.Name)
}

// copyInto snapshots the set into dst, reusing dst's backing storage.
func (b *bindingSet) copyInto(dst *bindingSet) {
	dst.shader = b.shader
	if cap(dst.values) < len(b.values) {
		dst.values = make([]BindingValue, len(b.values))
	}
	dst.values = dst.values[:len(b.values)]
	copy(dst.values, b.values)
}

// clear drops references so pooled sets do not pin textures across frames.
func (b *bindingSet) clear() {
	b.shader = nil
	for i := range b.values {
		b.values[i] = BindingValue{}
	}
	b.values = b.values[:0]
}

// fingerprint appends a key identifying the backend objects the set
// references: texture identities and sampler descriptor values. Uniform
// values are excluded; they are written into existing buffers in place.
func (b *bindingSet) fingerprint(dst []byte) []byte {
	for i, p := range b.shader.Params() {
		v := b.values[i]
		switch p.Kind {
		case shader.ParamTexture:
			dst = append(dst, 'T')
			dst = binary.LittleEndian.AppendUint64(dst, v.texture.ID())
		case shader.ParamSampler:
			dst = append(dst, 'S',
				byte(v.sampler.MinFilter), byte(v.sampler.MagFilter),
				byte(v.sampler.AddressModeU), byte(v.sampler.AddressModeV))
		}
	}
	return dst
}
