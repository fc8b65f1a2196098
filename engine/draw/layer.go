package draw

import (
	"fmt"
	"math"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// drawCall is an immutable snapshot of one indexed draw, taken at flush. It
// stays valid however its originating layer mutates afterwards.
type drawCall struct {
	shader     shader.Shader
	bindings   *bindingSet
	topology   renderer.Topology
	blend      renderer.BlendMode
	scissor    common.Rect
	vertexBuf  renderer.Buffer
	indexBuf   renderer.Buffer
	indexCount uint32
}

// renderLayer is one batching channel: it accumulates geometry under a fixed
// binding state and converts it into the minimal draw-call sequence that
// reproduces the same visual result. State writes that would change the
// meaning of already-accumulated geometry flush first; writes that match the
// current state are suppressed, which is what lets consecutive same-texture
// draws merge into one call.
type renderLayer struct {
	ctx *drawContext

	shader   shader.Shader
	bindings bindingSet
	topology renderer.Topology
	blend    renderer.BlendMode
	scissor  common.Rect
	camera   common.Mat4
	sampler  common.SamplerDescriptor
	texture  *graphics.Texture

	format     renderer.TextureFormat
	projMatrix common.Mat4
	targetW    uint32
	targetH    uint32

	pendingVertices []Vertex
	pendingIndices  []uint32
	calls           []*drawCall
}

// reset prepares a pooled layer for a pass target: default shader, default
// binding state, identity camera, projection sized to the target.
func (l *renderLayer) reset(ctx *drawContext, format renderer.TextureFormat, width, height uint32) {
	l.ctx = ctx
	l.shader = ctx.defaultShader
	l.bindings.seed(l.shader, ctx.fallback)
	l.topology = renderer.TopologyTriangles
	l.blend = renderer.BlendAlpha
	l.scissor = common.Rect{}
	l.camera = common.Mat4Identity()
	l.sampler = common.DefaultSampler()
	l.texture = ctx.fallback
	l.format = format
	l.projMatrix = common.Ortho2D(float32(width), float32(height))
	l.targetW = width
	l.targetH = height
	l.pendingVertices = l.pendingVertices[:0]
	l.pendingIndices = l.pendingIndices[:0]
	l.calls = l.calls[:0]
}

// setShader switches the active shader. Identical shader is a no-op; a real
// switch flushes and reseeds the binding state to the new shader's defaults.
func (l *renderLayer) setShader(sh shader.Shader) {
	if sh == l.shader {
		return
	}
	l.flush()
	l.shader = sh
	l.bindings.seed(sh, l.ctx.fallback)
}

// setParam writes a named shader parameter. The write is unconditionally
// preceded by a flush: an explicit parameter write is always treated as new
// content, even when the value is identical, so the batching burden for
// frequently-varying uniforms sits with the caller. Unknown names and
// mismatched kinds are rejected, never silently defaulted.
//
// The reserved view/texture/sampler names route to the layer's derived state
// instead of the binding slot, since flush refreshes those slots itself.
func (l *renderLayer) setParam(name string, v BindingValue) error {
	p, ok := l.shader.Param(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	if !v.matches(p) {
		return fmt.Errorf("%w: %q", ErrParamKind, name)
	}
	l.flush()
	switch name {
	case shader.ViewParam:
		var m common.Mat4
		for i, w := range v.data {
			m[i] = math.Float32frombits(w)
		}
		l.camera = m
	case shader.TextureParam:
		l.texture = v.texture
	case shader.SamplerParam:
		l.sampler = v.sampler
	default:
		return l.bindings.set(p, v)
	}
	return nil
}

func (l *renderLayer) setBlendMode(b renderer.BlendMode) {
	if b == l.blend {
		return
	}
	l.flush()
	l.blend = b
}

func (l *renderLayer) setScissor(r common.Rect) {
	if r == l.scissor {
		return
	}
	l.flush()
	l.scissor = r
}

func (l *renderLayer) setTopology(t renderer.Topology) {
	if t == l.topology {
		return
	}
	l.flush()
	l.topology = t
}

func (l *renderLayer) setViewMatrix(m common.Mat4) {
	if m == l.camera {
		return
	}
	l.flush()
	l.camera = m
}

func (l *renderLayer) setMainSampler(desc common.SamplerDescriptor) {
	if desc == l.sampler {
		return
	}
	l.flush()
	l.sampler = desc
}

// setMainTexture switches the texture bound for textured geometry. This is
// the dominant real-world flush trigger: sprite draws from different textures
// cannot share a bind group.
func (l *renderLayer) setMainTexture(t *graphics.Texture) {
	if t.ID() == l.texture.ID() {
		return
	}
	l.flush()
	l.texture = t
}

// flush converts the pending geometry into an immutable draw call. A layer
// with nothing pending is a no-op. The three derived bindings are refreshed
// right before the snapshot: the view matrix (projection composed with the
// camera), the main texture, and the main sampler.
func (l *renderLayer) flush() {
	if len(l.pendingVertices) == 0 {
		return
	}
	if l.ctx.frameErr != nil {
		l.pendingVertices = l.pendingVertices[:0]
		l.pendingIndices = l.pendingIndices[:0]
		return
	}

	pair, err := l.ctx.buffers.request(
		common.SliceToBytes(l.pendingVertices),
		common.SliceToBytes(l.pendingIndices),
	)
	if err != nil {
		l.ctx.fail(err)
		l.pendingVertices = l.pendingVertices[:0]
		l.pendingIndices = l.pendingIndices[:0]
		return
	}

	l.refreshDerived()
	l.appendCall(pair.vertex, pair.index, uint32(len(l.pendingIndices)))
	l.pendingVertices = l.pendingVertices[:0]
	l.pendingIndices = l.pendingIndices[:0]
	l.ctx.stats.Flushes++
}

// submitBuffers flushes pending geometry, then appends a call referencing
// caller-supplied buffers directly, bypassing the buffer cache. Used for
// precomputed or externally managed batches; the buffers must stay alive
// until the frame is submitted.
func (l *renderLayer) submitBuffers(vertex, index renderer.Buffer, indexCount uint32) {
	l.flush()
	if l.ctx.frameErr != nil {
		return
	}
	l.refreshDerived()
	l.appendCall(vertex, index, indexCount)
}

// refreshDerived writes the reserved bindings the layer maintains itself,
// when the active shader declares them.
func (l *renderLayer) refreshDerived() {
	if p, ok := l.shader.Param(shader.ViewParam); ok {
		l.bindings.set(p, Mat4Value(l.projMatrix.Mul(l.camera)))
	}
	if p, ok := l.shader.Param(shader.TextureParam); ok {
		l.bindings.set(p, TextureValue(l.texture))
	}
	if p, ok := l.shader.Param(shader.SamplerParam); ok {
		l.bindings.set(p, SamplerValue(l.sampler))
	}
}

func (l *renderLayer) appendCall(vertex, index renderer.Buffer, indexCount uint32) {
	call := l.ctx.pools.borrowCall()
	call.shader = l.shader
	call.bindings = l.ctx.pools.borrowBindingSet()
	l.bindings.copyInto(call.bindings)
	call.topology = l.topology
	call.blend = l.blend
	call.scissor = l.scissor
	call.vertexBuf = vertex
	call.indexBuf = index
	call.indexCount = indexCount
	l.calls = append(l.calls, call)
}

// appendGeometry adds transformed, ready-to-upload geometry to the pending
// lists. Indices are relative to the geometry being appended.
func (l *renderLayer) appendGeometry(vertices []Vertex, indices []uint32) {
	base := uint32(len(l.pendingVertices))
	l.pendingVertices = append(l.pendingVertices, vertices...)
	for _, ix := range indices {
		l.pendingIndices = append(l.pendingIndices, base+ix)
	}
}
