package graphics

import (
	"errors"
	"testing"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/renderer"
)

// stubTexture records release calls.
type stubTexture struct {
	format   renderer.TextureFormat
	released bool
}

func (t *stubTexture) Format() renderer.TextureFormat { return t.format }
func (t *stubTexture) Release()                       { t.released = true }

// stubBackend implements renderer.Backend for handle tests; only texture
// creation does anything.
type stubBackend struct {
	created     []*stubTexture
	failCreate  bool
	lastStaging common.TextureStagingData
}

var errStubCreate = errors.New("stub create failure")

func (b *stubBackend) SurfaceFormat() renderer.TextureFormat { return renderer.FormatBGRA8Unorm }
func (b *stubBackend) ConfigureSurface(width, height int)    {}

func (b *stubBackend) CreateBuffer(label string, capacity uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	return nil, nil
}

func (b *stubBackend) CreateTexture(label string, staging common.TextureStagingData, renderable bool) (renderer.Texture, error) {
	if b.failCreate {
		return nil, errStubCreate
	}
	b.lastStaging = staging
	t := &stubTexture{format: renderer.FormatRGBA8Unorm}
	b.created = append(b.created, t)
	return t, nil
}

func (b *stubBackend) CreateSampler(desc common.SamplerDescriptor) (renderer.Sampler, error) {
	return nil, nil
}

func (b *stubBackend) CompileRenderPipeline(desc renderer.PipelineDescriptor) (renderer.Pipeline, error) {
	return nil, nil
}

func (b *stubBackend) CreateBindGroup(desc renderer.BindGroupDescriptor) (renderer.BindGroup, error) {
	return nil, nil
}

func (b *stubBackend) BeginFrame() error { return nil }
func (b *stubBackend) BeginRenderPass(target renderer.Texture, load renderer.LoadOp, clear common.Color) error {
	return nil
}
func (b *stubBackend) Draw(cmd renderer.DrawCommand) {}
func (b *stubBackend) EndRenderPass()                {}
func (b *stubBackend) EndFrame() error               { return nil }
func (b *stubBackend) Present()                      {}

var _ renderer.Backend = &stubBackend{}

func TestNewTextureStartsWithOneReference(t *testing.T) {
	backend := &stubBackend{}
	tex, err := NewTexture(backend, "test", common.TextureStagingData{
		Pixels: make([]byte, 8*8*4),
		Width:  8,
		Height: 8,
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	if tex.StrongCount() != 1 {
		t.Errorf("strong count = %d, want 1", tex.StrongCount())
	}
	if tex.Width() != 8 || tex.Height() != 8 {
		t.Errorf("size = %dx%d, want 8x8", tex.Width(), tex.Height())
	}
	if tex.ID() == 0 {
		t.Error("texture has no identity")
	}
}

func TestTextureIdentitiesAreUnique(t *testing.T) {
	backend := &stubBackend{}
	staging := common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1}

	a, err := NewTexture(backend, "a", staging)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	b, err := NewTexture(backend, "b", staging)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	if a.ID() == b.ID() {
		t.Errorf("both textures share identity %d", a.ID())
	}
}

func TestRetainReleaseLifecycle(t *testing.T) {
	backend := &stubBackend{}
	tex, err := NewTexture(backend, "test", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	res := backend.created[0]

	if got := tex.Retain(); got != tex {
		t.Error("Retain did not return the same handle")
	}
	if tex.StrongCount() != 2 {
		t.Fatalf("strong count = %d, want 2", tex.StrongCount())
	}

	tex.Release()
	if res.released {
		t.Fatal("GPU texture freed while a reference remains")
	}
	tex.Release()
	if !res.released {
		t.Fatal("GPU texture not freed when the last reference dropped")
	}
}

func TestReleasePastZeroPanics(t *testing.T) {
	backend := &stubBackend{}
	tex, err := NewTexture(backend, "test", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	tex.Release()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on over-release")
		}
	}()
	tex.Release()
}

func TestNewTexturePropagatesBackendError(t *testing.T) {
	backend := &stubBackend{failCreate: true}
	if _, err := NewTexture(backend, "test", common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1}); !errors.Is(err, errStubCreate) {
		t.Errorf("err = %v, want wrapped %v", err, errStubCreate)
	}
}

func TestNewFallbackTextureIsOpaqueWhitePixel(t *testing.T) {
	backend := &stubBackend{}
	tex, err := NewFallbackTexture(backend)
	if err != nil {
		t.Fatalf("NewFallbackTexture: %v", err)
	}
	if tex.Width() != 1 || tex.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", tex.Width(), tex.Height())
	}
	want := []byte{0xff, 0xff, 0xff, 0xff}
	got := backend.lastStaging.Pixels
	if len(got) != len(want) {
		t.Fatalf("pixel bytes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel bytes = %v, want %v", got, want)
		}
	}
}

func TestSurfaceTextureIsReleasable(t *testing.T) {
	backend := &stubBackend{}
	surf, err := NewSurface(backend, "offscreen", 64, 32)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	if surf.Width() != 64 || surf.Height() != 32 {
		t.Errorf("size = %dx%d, want 64x32", surf.Width(), surf.Height())
	}
	if surf.Texture().StrongCount() != 1 {
		t.Errorf("strong count = %d, want 1", surf.Texture().StrongCount())
	}

	res := backend.created[0]
	surf.Texture().Retain()
	surf.Release()
	if res.released {
		t.Fatal("surface texture freed while a sampling reference remains")
	}
	surf.Texture().Release()
	if !res.released {
		t.Fatal("surface texture not freed")
	}
}
