package draw

import (
	"bytes"
	"testing"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

func TestUniformEncodingSizes(t *testing.T) {
	tests := []struct {
		name  string
		value BindingValue
		want  int
	}{
		{"float", FloatValue(1.5), 4},
		{"int", IntValue(-3), 4},
		{"uint", UintValue(7), 4},
		{"vec2", Vec2Value(1, 2), 8},
		{"vec3", Vec3Value(1, 2, 3), 12},
		{"vec4", Vec4Value(1, 2, 3, 4), 16},
		{"mat2", Mat2Value([4]float32{1, 0, 0, 1}), 16},
		{"mat3", Mat3Value([9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}), 48},
		{"mat4", Mat4Value(common.Mat4Identity()), 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.value.encodeUniform(nil)
			if len(got) != tt.want {
				t.Errorf("encoded %d bytes, want %d", len(got), tt.want)
			}
			if uint64(tt.want) != tt.value.uniform.ByteSize() {
				t.Errorf("declared size %d disagrees with encoding %d", tt.value.uniform.ByteSize(), tt.want)
			}
		})
	}
}

func TestIntegerUniformsEncodeBitExact(t *testing.T) {
	tests := []struct {
		name  string
		value BindingValue
		want  uint32
	}{
		// Bit patterns that are NaNs when read as floats must survive
		// unchanged; float storage is not guaranteed to preserve them.
		{"signaling NaN pattern", IntValue(0x7F800001), 0x7F800001},
		{"negative int", IntValue(-3), 0xFFFFFFFD},
		{"uint NaN pattern", UintValue(0x7FC00001), 0x7FC00001},
		{"uint max", UintValue(0xFFFFFFFF), 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.value.encodeUniform(nil)
			if len(got) != 4 {
				t.Fatalf("encoded %d bytes, want 4", len(got))
			}
			word := uint32(got[0]) | uint32(got[1])<<8 | uint32(got[2])<<16 | uint32(got[3])<<24
			if word != tt.want {
				t.Errorf("encoded word = %#08x, want %#08x", word, tt.want)
			}
		})
	}
}

func TestMat3EncodingPadsColumns(t *testing.T) {
	v := Mat3Value([9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	got := v.encodeUniform(nil)

	// Each vec3 column occupies 16 bytes; the pad word is zero.
	zero := []byte{0, 0, 0, 0}
	for col := 0; col < 3; col++ {
		pad := got[col*16+12 : col*16+16]
		if !bytes.Equal(pad, zero) {
			t.Errorf("column %d pad = %v", col, pad)
		}
	}
}

func TestFingerprintIgnoresUniforms(t *testing.T) {
	d, backend := newTestContext(t)
	texA := newTestTexture(t, backend, 2, 2)
	defer texA.Release()
	texB := newTestTexture(t, backend, 2, 2)
	defer texB.Release()

	sh := d.defaultShader
	texParam, _ := sh.Param(shader.TextureParam)
	viewParam, _ := sh.Param(shader.ViewParam)

	var a, b bindingSet
	a.seed(sh, d.fallback)
	a.set(texParam, TextureValue(texA))
	a.set(viewParam, Mat4Value(common.Mat4Identity()))

	b.seed(sh, d.fallback)
	b.set(texParam, TextureValue(texA))
	b.set(viewParam, Mat4Value(common.Ortho2D(640, 480)))

	keyA := string(a.fingerprint(nil))
	keyB := string(b.fingerprint(nil))
	if keyA != keyB {
		t.Error("uniform values leaked into the fingerprint")
	}

	b.set(texParam, TextureValue(texB))
	if keyA == string(b.fingerprint(nil)) {
		t.Error("different textures produced the same fingerprint")
	}

	b.set(texParam, TextureValue(texA))
	samplerParam, _ := sh.Param(shader.SamplerParam)
	b.set(samplerParam, SamplerValue(common.SamplerDescriptor{
		MinFilter:    common.FilterNearest,
		MagFilter:    common.FilterNearest,
		AddressModeU: common.AddressRepeat,
		AddressModeV: common.AddressRepeat,
	}))
	if keyA == string(b.fingerprint(nil)) {
		t.Error("different samplers produced the same fingerprint")
	}
}

func TestSeedDefaults(t *testing.T) {
	d, _ := newTestContext(t)
	sh := shader.NewShader("seed-test", testEffectSource)

	var b bindingSet
	b.seed(sh, d.fallback)

	params := sh.Params()
	if len(b.values) != len(params) {
		t.Fatalf("seeded %d values for %d params", len(b.values), len(params))
	}
	for i, p := range params {
		v := b.values[i]
		switch p.Kind {
		case shader.ParamTexture:
			if v.texture != d.fallback {
				t.Errorf("%s: texture default is not the fallback", p.Name)
			}
		case shader.ParamSampler:
			if v.sampler != common.DefaultSampler() {
				t.Errorf("%s: sampler default mismatch", p.Name)
			}
		case shader.ParamUniform:
			if v.uniform != p.Uniform {
				t.Errorf("%s: uniform seeded with wrong type", p.Name)
			}
			if v.data != ([16]uint32{}) {
				t.Errorf("%s: uniform default not zero", p.Name)
			}
		}
	}
}
