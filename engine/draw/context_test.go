package draw

import (
	"errors"
	"testing"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// testEffectSource declares the reserved bindings plus one free uniform so
// tests can exercise explicit parameter writes.
const testEffectSource = `
@group(0) @binding(0) var<uniform> view: mat4x4<f32>;
@group(0) @binding(1) var tex: texture_2d<f32>;
@group(0) @binding(2) var tex_sampler: sampler;
@group(0) @binding(3) var<uniform> opacity: f32;

@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return view * vec4<f32>(pos, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(opacity);
}
`

func TestFlushEmptyPendingAppendsNothing(t *testing.T) {
	d, _ := newTestContext(t)
	d.BeginFrame(800, 600)

	l := d.layer()
	l.flush()
	l.flush()

	if len(l.calls) != 0 {
		t.Fatalf("flush on empty layer appended %d calls", len(l.calls))
	}
	if d.stats.Flushes != 0 {
		t.Fatalf("empty flush counted: %d", d.stats.Flushes)
	}
}

func TestBatchingCoalescesSameState(t *testing.T) {
	d, backend := newTestContext(t)
	tex := newTestTexture(t, backend, 8, 8)
	defer tex.Release()

	const n = 5
	d.BeginFrame(800, 600)
	for i := 0; i < n; i++ {
		d.DrawTexture(tex, float32(i)*10, 0, common.ColorWhite)
	}
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	draws := backend.draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw call, got %d", len(draws))
	}
	if draws[0].IndexCount != 6*n {
		t.Errorf("expected %d indices, got %d", 6*n, draws[0].IndexCount)
	}
	vb := draws[0].VertexBuffer.(*fakeBuffer)
	if got, want := len(vb.data), 4*n*vertexStride; got != want {
		t.Errorf("expected %d vertex bytes, got %d", want, got)
	}
}

func TestSetParamAlwaysSplitsBatch(t *testing.T) {
	d, backend := newTestContext(t)
	effect := shader.NewShader("effect", testEffectSource)

	d.BeginFrame(800, 600)
	d.SetShader(effect)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	if err := d.SetParam("opacity", FloatValue(0.5)); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	d.DrawRect(common.NewRect(20, 0, 10, 10), common.ColorWhite)
	// Identical value must still split.
	if err := d.SetParam("opacity", FloatValue(0.5)); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	d.DrawRect(common.NewRect(40, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	if draws := backend.draws(); len(draws) != 3 {
		t.Fatalf("expected 3 draw calls, got %d", len(draws))
	}
}

func TestStateDiffSuppression(t *testing.T) {
	d, backend := newTestContext(t)

	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	d.SetBlendMode(renderer.BlendAdditive)
	d.DrawRect(common.NewRect(20, 0, 10, 10), common.ColorWhite)
	d.SetBlendMode(renderer.BlendAdditive)
	d.DrawRect(common.NewRect(40, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	if draws := backend.draws(); len(draws) != 2 {
		t.Fatalf("expected 2 draw calls, got %d", len(draws))
	}
}

func TestTransformComposition(t *testing.T) {
	d, _ := newTestContext(t)
	d.BeginFrame(800, 600)

	d.PushTransform(common.Translation(10, 20))
	d.PushTransform(common.Scaling(2, 3))
	d.DrawPoint(1, 1, common.ColorWhite)

	// Scale applies first, then the translation: (1,1) -> (2,3) -> (12,23).
	v := d.layer().pendingVertices[0]
	if v.Pos != [2]float32{12, 23} {
		t.Fatalf("expected point at (12,23), got %v", v.Pos)
	}

	if err := d.PopTransform(); err != nil {
		t.Fatalf("first pop: %v", err)
	}
	if err := d.PopTransform(); err != nil {
		t.Fatalf("second pop: %v", err)
	}
	if d.Transform() != common.AffineIdentity() {
		t.Errorf("expected identity after popping both, got %v", d.Transform())
	}
	if err := d.PopTransform(); !errors.Is(err, ErrTransformStackUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestFrameRecyclingPoolsNeverShrink(t *testing.T) {
	d, backend := newTestContext(t)
	tex := newTestTexture(t, backend, 8, 8)
	defer tex.Release()

	type poolSizes struct {
		calls, layers, passes, bindings, buffers int
	}
	measure := func() poolSizes {
		return poolSizes{
			calls:    len(d.pools.calls),
			layers:   len(d.pools.layers),
			passes:   len(d.pools.passes),
			bindings: len(d.pools.bindings),
			buffers:  d.buffers.size(),
		}
	}

	var prev poolSizes
	for frame := uint64(1); frame <= 4; frame++ {
		d.BeginFrame(800, 600)
		cur := measure()
		if frame > 1 {
			if cur.calls < prev.calls || cur.layers < prev.layers ||
				cur.passes < prev.passes || cur.bindings < prev.bindings ||
				cur.buffers < prev.buffers {
				t.Fatalf("frame %d: pools shrank: %+v -> %+v", frame, prev, cur)
			}
		}
		prev = cur

		d.DrawTexture(tex, 0, 0, common.ColorWhite)
		d.DrawRect(common.NewRect(0, 0, 5, 5), common.ColorWhite)
		if err := d.EndFrame(frame); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}

	// Once warm, nothing new is created backend-side either.
	warmBuffers := len(backend.buffers)
	warmGroups := len(backend.bindGroups)
	d.BeginFrame(800, 600)
	d.DrawTexture(tex, 0, 0, common.ColorWhite)
	d.DrawRect(common.NewRect(0, 0, 5, 5), common.ColorWhite)
	if err := d.EndFrame(5); err != nil {
		t.Fatalf("warm frame: %v", err)
	}
	if len(backend.buffers) != warmBuffers {
		t.Errorf("warm frame created %d new buffers", len(backend.buffers)-warmBuffers)
	}
	if len(backend.bindGroups) != warmGroups {
		t.Errorf("warm frame created %d new bind groups", len(backend.bindGroups)-warmGroups)
	}
	if stats := d.Stats(); stats.BuffersCreated != 0 || stats.PipelinesCompiled != 0 {
		t.Errorf("warm frame reported creation: %+v", stats)
	}
}

func TestBindGroupReuseAcrossFrames(t *testing.T) {
	d, backend := newTestContext(t)
	tex := newTestTexture(t, backend, 8, 8)
	defer tex.Release()

	runFrame := func(frame uint64, camera common.Mat4) renderer.BindGroup {
		d.BeginFrame(800, 600)
		d.SetViewMatrix(camera)
		d.DrawTexture(tex, 0, 0, common.ColorWhite)
		if err := d.EndFrame(frame); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		draws := backend.draws()
		return draws[len(draws)-1].BindGroup
	}

	camA := common.Mat4Identity()
	camB := common.AffineToMat4(common.Translation(5, 5))

	// Different uniform values, identical texture/sampler identity: the same
	// backend object must come back with rewritten contents.
	first := runFrame(1, camA)
	second := runFrame(2, camB)
	if first != second {
		t.Fatal("expected the same bind group object across frames")
	}
	if len(backend.bindGroups) != 1 {
		t.Fatalf("expected 1 bind group created, got %d", len(backend.bindGroups))
	}

	var viewBuf *fakeBuffer
	for _, b := range backend.buffers {
		if b.usage == renderer.BufferUniform {
			viewBuf = b
		}
	}
	if viewBuf == nil {
		t.Fatal("no uniform buffer created")
	}
	if viewBuf.uploads < 2 {
		t.Errorf("expected in-place uniform rewrite, got %d uploads", viewBuf.uploads)
	}
}

func TestBindGroupEvictionAfterDroppedRefs(t *testing.T) {
	d, backend := newTestContext(t)
	tex := newTestTexture(t, backend, 8, 8)
	texRes := tex.Resource().(*fakeTexture)

	for frame := uint64(1); frame <= 3; frame++ {
		d.BeginFrame(800, 600)
		d.DrawTexture(tex, 0, 0, common.ColorWhite)
		if err := d.EndFrame(frame); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}

	caches := d.caches[d.defaultShader]
	if len(caches.bindGroups.entries) != 1 {
		t.Fatalf("expected 1 cache entry before eviction, got %d", len(caches.bindGroups.entries))
	}

	// Drop the last external reference; the cache alone keeps the texture
	// alive now, and the next recycling pass must notice.
	tex.Release()

	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 5, 5), common.ColorWhite)
	if err := d.EndFrame(4); err != nil {
		t.Fatalf("frame 4: %v", err)
	}

	if len(caches.bindGroups.entries) != 1 {
		t.Fatalf("expected only the fallback entry after eviction, got %d", len(caches.bindGroups.entries))
	}
	if !texRes.released {
		t.Error("evicted texture's GPU resource was not freed")
	}
}

func TestPassPruning(t *testing.T) {
	d, backend := newTestContext(t)
	surf, err := graphics.NewSurface(backend, "target-a", 64, 64)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	defer surf.Release()

	d.BeginFrame(800, 600)
	// Replace the default pass with a window pass that neither clears nor
	// draws, then move to an offscreen clear-only pass.
	d.SetSurface(nil, nil)
	black := common.ColorBlack
	d.SetSurface(surf, &black)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	// The default clear pass and the offscreen clear pass survive; the bare
	// window pass between them is dropped.
	if len(backend.passes) != 2 {
		t.Fatalf("expected 2 native passes, got %d", len(backend.passes))
	}
	if backend.passes[0].target != nil {
		t.Errorf("first pass should target the window")
	}
	if backend.passes[1].target != surf.Texture().Resource() {
		t.Errorf("second pass should target the offscreen surface")
	}
	if backend.passes[1].load != renderer.LoadClear {
		t.Errorf("offscreen pass should clear")
	}
}

func TestEmptyFrameStillPresents(t *testing.T) {
	d, backend := newTestContext(t)

	d.BeginFrame(800, 600)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	if len(backend.passes) != 1 {
		t.Fatalf("expected a single clear pass, got %d", len(backend.passes))
	}
	if backend.passes[0].load != renderer.LoadClear || backend.passes[0].clear != common.ColorBlack {
		t.Errorf("empty frame must clear to black")
	}
	if len(backend.passes[0].draws) != 0 {
		t.Errorf("empty frame issued %d draws", len(backend.passes[0].draws))
	}
	if backend.presents != 1 {
		t.Errorf("expected 1 present, got %d", backend.presents)
	}
}

func TestSetParamValidation(t *testing.T) {
	d, _ := newTestContext(t)
	effect := shader.NewShader("effect-validate", testEffectSource)

	d.BeginFrame(800, 600)
	d.SetShader(effect)

	if err := d.SetParam("nope", FloatValue(1)); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("unknown name: got %v", err)
	}
	if err := d.SetParam("opacity", Vec2Value(1, 2)); !errors.Is(err, ErrParamKind) {
		t.Errorf("uniform type mismatch: got %v", err)
	}
	if err := d.SetParam("opacity", SamplerValue(common.DefaultSampler())); !errors.Is(err, ErrParamKind) {
		t.Errorf("kind mismatch: got %v", err)
	}
	if err := d.SetParam("opacity", FloatValue(0.25)); err != nil {
		t.Errorf("valid write rejected: %v", err)
	}
}

func TestShaderSwitchReseedsParams(t *testing.T) {
	d, _ := newTestContext(t)
	effect := shader.NewShader("effect-reseed", testEffectSource)

	d.BeginFrame(800, 600)
	d.SetShader(effect)
	if err := d.SetParam("opacity", FloatValue(0.5)); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	d.SetShader(d.defaultShader)
	d.SetShader(effect)

	// Binding 3 is opacity; a reseed zeroes it.
	l := d.layer()
	if got := l.bindings.values[3].data[0]; got != 0 {
		t.Fatalf("expected reseeded opacity 0, got %v", got)
	}
}

func TestScissorAppliedToDraw(t *testing.T) {
	d, backend := newTestContext(t)

	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	d.SetScissor(common.NewRect(10, 20, 30, 40))
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	draws := backend.draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].Scissor != nil {
		t.Errorf("unclipped draw carried a scissor")
	}
	want := renderer.ScissorRect{X: 10, Y: 20, W: 30, H: 40}
	if draws[1].Scissor == nil || *draws[1].Scissor != want {
		t.Errorf("expected scissor %+v, got %+v", want, draws[1].Scissor)
	}
}

func TestFractionalScissorRoundsOutward(t *testing.T) {
	d, backend := newTestContext(t)

	// A fractional clip rect must floor its origin and ceil its far corner;
	// truncating both sides would shave covered pixels off the right and
	// bottom edges.
	d.BeginFrame(800, 600)
	d.SetScissor(common.NewRect(10.6, 20.3, 30.5, 40.2))
	d.DrawRect(common.NewRect(0, 0, 100, 100), common.ColorWhite)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	draws := backend.draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	want := renderer.ScissorRect{X: 10, Y: 20, W: 32, H: 41}
	if draws[0].Scissor == nil || *draws[0].Scissor != want {
		t.Errorf("expected scissor %+v, got %+v", want, draws[0].Scissor)
	}
}

func TestDegeneratePrimitivesAreNoOps(t *testing.T) {
	d, _ := newTestContext(t)
	d.BeginFrame(800, 600)

	d.DrawPolygon([][2]float32{{0, 0}, {1, 1}}, common.ColorWhite)
	d.DrawLines([][2]float32{{0, 0}}, common.ColorWhite)
	d.DrawGlyphs(d.fallback, nil, common.ColorWhite)

	if n := len(d.layer().pendingVertices); n != 0 {
		t.Fatalf("degenerate primitives appended %d vertices", n)
	}
}

func TestBackendFailureSkipsFrameAndRecovers(t *testing.T) {
	d, backend := newTestContext(t)

	backend.failBuffers = true
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	err := d.EndFrame(1)
	if !errors.Is(err, errFakeBuffer) {
		t.Fatalf("expected buffer failure, got %v", err)
	}
	if backend.presents != 0 {
		t.Errorf("failed frame must not present")
	}

	backend.failBuffers = false
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(2); err != nil {
		t.Fatalf("recovery frame: %v", err)
	}
	if backend.presents != 1 {
		t.Errorf("recovery frame did not present")
	}
}

func TestPipelineFailureReleasesFrameAndRecovers(t *testing.T) {
	d, backend := newTestContext(t)

	// Pipeline compilation fails mid-encode, after the backend frame and a
	// native pass are already open. Both must be closed out before EndFrame
	// returns or the backend refuses every following frame.
	backend.failPipelines = true
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	err := d.EndFrame(1)
	if !errors.Is(err, errFakePipeline) {
		t.Fatalf("expected pipeline failure, got %v", err)
	}
	if backend.passOpen {
		t.Error("render pass left open after failed encode")
	}
	if backend.frameOpen {
		t.Error("backend frame left open after failed encode")
	}

	backend.failPipelines = false
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(2); err != nil {
		t.Fatalf("recovery frame: %v", err)
	}
	if got := backend.draws(); len(got) != 1 {
		t.Errorf("recovery frame issued %d draws, want 1", len(got))
	}
}

func TestBindGroupFailureReleasesFrameAndRecovers(t *testing.T) {
	d, backend := newTestContext(t)

	backend.failBindGroups = true
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	err := d.EndFrame(1)
	if !errors.Is(err, errFakeBindGroup) {
		t.Fatalf("expected bind group failure, got %v", err)
	}
	if backend.passOpen || backend.frameOpen {
		t.Error("backend state left open after failed encode")
	}

	backend.failBindGroups = false
	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(2); err != nil {
		t.Fatalf("recovery frame: %v", err)
	}
}

func TestLayerSwitchingDoesNotFlush(t *testing.T) {
	d, backend := newTestContext(t)

	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	d.SetLayer(1)
	d.DrawRect(common.NewRect(20, 0, 10, 10), common.ColorWhite)
	d.SetLayer(0)
	d.DrawRect(common.NewRect(40, 0, 10, 10), common.ColorWhite)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	// Layer 0's two rects stay one batch; layer 1 contributes the second
	// call. Layers submit in ascending order.
	draws := backend.draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].IndexCount != 12 {
		t.Errorf("layer 0 should batch both rects, got %d indices", draws[0].IndexCount)
	}
	if draws[1].IndexCount != 6 {
		t.Errorf("layer 1 should hold one rect, got %d indices", draws[1].IndexCount)
	}
}

func TestSubmitBuffersBypassesCache(t *testing.T) {
	d, backend := newTestContext(t)

	vb, _ := backend.CreateBuffer("external-vertex", 1024, renderer.BufferVertex)
	ib, _ := backend.CreateBuffer("external-index", 1024, renderer.BufferIndex)

	d.BeginFrame(800, 600)
	d.DrawRect(common.NewRect(0, 0, 10, 10), common.ColorWhite)
	d.SubmitBuffers(vb, ib, 42)
	if err := d.EndFrame(1); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	draws := backend.draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[1].VertexBuffer != vb || draws[1].IndexBuffer != ib {
		t.Errorf("external buffers not referenced directly")
	}
	if draws[1].IndexCount != 42 {
		t.Errorf("expected 42 indices, got %d", draws[1].IndexCount)
	}
}
