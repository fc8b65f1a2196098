package draw

import (
	"errors"
	"testing"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
)

// The fakes below stand in for the GPU so every batching and caching property
// is observable without a device: the backend counts object creation and
// records render passes and draw commands in order.

type fakeBuffer struct {
	capacity uint64
	usage    renderer.BufferUsage
	data     []byte
	uploads  int
	released bool
}

func (b *fakeBuffer) Upload(data []byte) {
	b.data = append(b.data[:0], data...)
	b.uploads++
}

func (b *fakeBuffer) Capacity() uint64 { return b.capacity }
func (b *fakeBuffer) Release()         { b.released = true }

type fakeTexture struct {
	format   renderer.TextureFormat
	released bool
}

func (t *fakeTexture) Format() renderer.TextureFormat { return t.format }
func (t *fakeTexture) Release()                       { t.released = true }

type fakeSampler struct{ released bool }

func (s *fakeSampler) Release() { s.released = true }

type fakePipeline struct {
	desc     renderer.PipelineDescriptor
	released bool
}

func (p *fakePipeline) Release() { p.released = true }

type fakeBindGroup struct {
	desc     renderer.BindGroupDescriptor
	released bool
}

func (g *fakeBindGroup) Release() { g.released = true }

type fakePass struct {
	target renderer.Texture
	load   renderer.LoadOp
	clear  common.Color
	draws  []renderer.DrawCommand
}

type fakeBackend struct {
	buffers    []*fakeBuffer
	textures   []*fakeTexture
	samplers   []*fakeSampler
	pipelines  []*fakePipeline
	bindGroups []*fakeBindGroup

	passes   []*fakePass
	frames   int
	presents int
	passEnds int

	// frameOpen and passOpen mirror the real backend's held surface and
	// recording pass, so tests can assert nothing is left dangling after a
	// failed frame.
	frameOpen bool
	passOpen  bool

	failBuffers    bool
	failPipelines  bool
	failBindGroups bool
}

var _ renderer.Backend = &fakeBackend{}

var (
	errFakeBuffer    = errors.New("buffer creation refused")
	errFakePipeline  = errors.New("pipeline compilation refused")
	errFakeBindGroup = errors.New("bind group creation refused")
)

func (f *fakeBackend) SurfaceFormat() renderer.TextureFormat { return renderer.FormatBGRA8Unorm }
func (f *fakeBackend) ConfigureSurface(width, height int)    {}

func (f *fakeBackend) CreateBuffer(label string, capacity uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	if f.failBuffers {
		return nil, errFakeBuffer
	}
	b := &fakeBuffer{capacity: capacity, usage: usage}
	f.buffers = append(f.buffers, b)
	return b, nil
}

func (f *fakeBackend) CreateTexture(label string, staging common.TextureStagingData, renderable bool) (renderer.Texture, error) {
	t := &fakeTexture{format: renderer.FormatRGBA8Unorm}
	f.textures = append(f.textures, t)
	return t, nil
}

func (f *fakeBackend) CreateSampler(desc common.SamplerDescriptor) (renderer.Sampler, error) {
	s := &fakeSampler{}
	f.samplers = append(f.samplers, s)
	return s, nil
}

func (f *fakeBackend) CompileRenderPipeline(desc renderer.PipelineDescriptor) (renderer.Pipeline, error) {
	if f.failPipelines {
		return nil, errFakePipeline
	}
	p := &fakePipeline{desc: desc}
	f.pipelines = append(f.pipelines, p)
	return p, nil
}

func (f *fakeBackend) CreateBindGroup(desc renderer.BindGroupDescriptor) (renderer.BindGroup, error) {
	if f.failBindGroups {
		return nil, errFakeBindGroup
	}
	g := &fakeBindGroup{desc: desc}
	f.bindGroups = append(f.bindGroups, g)
	return g, nil
}

func (f *fakeBackend) BeginFrame() error {
	if f.frameOpen {
		return errors.New("previous frame surface not yet presented")
	}
	f.frameOpen = true
	f.frames++
	return nil
}

func (f *fakeBackend) BeginRenderPass(target renderer.Texture, load renderer.LoadOp, clear common.Color) error {
	f.passOpen = true
	f.passes = append(f.passes, &fakePass{target: target, load: load, clear: clear})
	return nil
}

func (f *fakeBackend) Draw(cmd renderer.DrawCommand) {
	pass := f.passes[len(f.passes)-1]
	pass.draws = append(pass.draws, cmd)
}

func (f *fakeBackend) EndRenderPass() {
	f.passOpen = false
	f.passEnds++
}

func (f *fakeBackend) EndFrame() error { return nil }

func (f *fakeBackend) Present() {
	f.presents++
	f.frameOpen = false
}

// draws flattens every recorded draw command in submission order.
func (f *fakeBackend) draws() []renderer.DrawCommand {
	var all []renderer.DrawCommand
	for _, p := range f.passes {
		all = append(all, p.draws...)
	}
	return all
}

func newTestContext(t *testing.T) (*drawContext, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	ctx, err := NewDrawContext(backend)
	if err != nil {
		t.Fatalf("NewDrawContext: %v", err)
	}
	return ctx.(*drawContext), backend
}

func newTestTexture(t *testing.T, backend renderer.Backend, w, h uint32) *graphics.Texture {
	t.Helper()
	tex, err := graphics.NewTexture(backend, "test", common.TextureStagingData{
		Pixels: make([]byte, w*h*4),
		Width:  w,
		Height: h,
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	return tex
}
