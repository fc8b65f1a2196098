package draw

import (
	"fmt"
	"math"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// Glyph is one prerasterized glyph to draw from an atlas texture: a
// destination rectangle in target pixels and a source rectangle in atlas
// pixels.
type Glyph struct {
	Dst common.Rect
	Src common.Rect
}

// DrawContext defines the immediate-mode 2D drawing surface. Geometry and
// state calls accumulate into batched draw calls per layer; EndFrame resolves
// the frame's passes into backend submissions.
//
// The whole frame path is single threaded and synchronous. Backend failures
// are fatal for the frame: the first one is recorded, subsequent drawing
// becomes a no-op, and EndFrame returns the error so the caller can skip the
// frame. Pooled state stays coherent either way; the next BeginFrame fully
// recovers.
type DrawContext interface {
	// BeginFrame starts a new frame sized to the window, draining the
	// previous frame's containers back into the pools and opening the
	// default pass: window target, clear to black, layer 0 active.
	//
	// Parameters:
	//   - width, height: the window size in pixels
	BeginFrame(width, height uint32)

	// SetSurface finishes the current pass, keeps it if it produced work,
	// and starts a fresh pass against the given target with layer 0 active.
	//
	// Parameters:
	//   - surface: the offscreen target, or nil for the window
	//   - clear: the clear color, or nil to preserve the target's contents
	SetSurface(surface *graphics.Surface, clear *common.Color)

	// SetLayer selects the active batching layer within the current pass,
	// growing the layer list as needed. Switching layers never flushes;
	// each layer's pending state is independent.
	//
	// Parameters:
	//   - i: the layer index
	SetLayer(i int)

	// PushTransform composes m inside the current transform and makes the
	// result current, nesting local space inside the caller's.
	//
	// Parameters:
	//   - m: the local transform
	PushTransform(m common.Affine)

	// PushNewTransform saves the current transform and replaces it with m
	// outright, without composition.
	//
	// Parameters:
	//   - m: the replacement transform
	PushNewTransform(m common.Affine)

	// PopTransform restores the previously pushed transform.
	//
	// Returns:
	//   - error: ErrTransformStackUnderflow if nothing was pushed
	PopTransform() error

	// PopTransforms pops n transforms, stopping at the first failure.
	//
	// Parameters:
	//   - n: how many transforms to pop
	//
	// Returns:
	//   - error: ErrTransformStackUnderflow if the stack ran out early
	PopTransforms(n int) error

	// Transform returns the current transform without modifying the stack.
	//
	// Returns:
	//   - common.Affine: the transform applied to subsequent geometry
	Transform() common.Affine

	// SetShader switches the active layer's shader. A no-op when the shader
	// is already active; otherwise pending geometry flushes and the
	// parameter state reseeds to the new shader's defaults.
	//
	// Parameters:
	//   - sh: the shader to activate
	SetShader(sh shader.Shader)

	// SetParam writes a named parameter on the active layer's shader. The
	// write always flushes first, even when the value is unchanged.
	//
	// Parameters:
	//   - name: the declared parameter name
	//   - value: the value to bind
	//
	// Returns:
	//   - error: ErrUnknownParam or ErrParamKind on a bad write
	SetParam(name string, value BindingValue) error

	// SetBlendMode sets the active layer's blend mode, flushing only on a
	// real change.
	//
	// Parameters:
	//   - b: the blend mode
	SetBlendMode(b renderer.BlendMode)

	// SetScissor sets the active layer's clip rectangle in target pixels,
	// flushing only on a real change. An empty rectangle disables clipping.
	//
	// Parameters:
	//   - r: the clip rectangle
	SetScissor(r common.Rect)

	// SetViewMatrix sets the active layer's camera matrix, composed with the
	// target's pixel projection at flush time. Flushes only on a real change.
	//
	// Parameters:
	//   - m: the camera matrix
	SetViewMatrix(m common.Mat4)

	// SetSampler sets the active layer's main sampler, flushing only on a
	// real change.
	//
	// Parameters:
	//   - desc: the sampler configuration
	SetSampler(desc common.SamplerDescriptor)

	// DrawPoint draws a single point.
	DrawPoint(x, y float32, c common.Color)

	// DrawLine draws a line segment.
	DrawLine(x1, y1, x2, y2 float32, c common.Color)

	// DrawLines draws a connected polyline through the given points. Fewer
	// than two points is a no-op.
	DrawLines(points [][2]float32, c common.Color)

	// DrawTriangle draws a filled triangle.
	DrawTriangle(x1, y1, x2, y2, x3, y3 float32, c common.Color)

	// DrawQuad draws a filled quadrilateral from four corners in winding
	// order.
	DrawQuad(corners [4][2]float32, c common.Color)

	// DrawRect draws a filled axis-aligned rectangle.
	DrawRect(r common.Rect, c common.Color)

	// DrawRectOutline draws an axis-aligned rectangle outline.
	DrawRectOutline(r common.Rect, c common.Color)

	// DrawPolygon draws a filled convex polygon as a triangle fan. Fewer
	// than three points is a no-op.
	DrawPolygon(points [][2]float32, c common.Color)

	// DrawCircle draws a filled circle tessellated into segments; pass
	// segments <= 0 to pick a count from the radius.
	DrawCircle(cx, cy, radius float32, segments int, c common.Color)

	// DrawTexture draws the whole texture as a quad at (x, y), modulated by
	// tint.
	DrawTexture(t *graphics.Texture, x, y float32, tint common.Color)

	// DrawTextureRegion draws the given sub-rectangle of the texture, in
	// texture pixels, as a quad at (x, y).
	DrawTextureRegion(t *graphics.Texture, region common.Rect, x, y float32, tint common.Color)

	// DrawGlyphs draws a text run from a prerasterized glyph atlas. Glyph
	// color comes from tint; the atlas supplies coverage alpha.
	DrawGlyphs(atlas *graphics.Texture, glyphs []Glyph, tint common.Color)

	// DrawGeometry draws caller-supplied vertices and indices, transformed
	// by the current transform. A nil texture draws untextured.
	DrawGeometry(t *graphics.Texture, vertices []Vertex, indices []uint32)

	// SubmitBuffers appends a draw call referencing caller-managed GPU
	// buffers directly. The buffers must stay alive until the frame is
	// submitted.
	SubmitBuffers(vertexBuffer, indexBuffer renderer.Buffer, indexCount uint32)

	// EndFrame finishes the frame's passes and submits them: one native
	// render pass per kept pass, one indexed draw per draw call, pipelines
	// and bind groups resolved through the per-shader caches. A frame that
	// produced no passes still presents a deterministic black image. When
	// encoding fails partway, the begun backend frame is closed out and
	// presented before the error returns, so the backend holds no state
	// from the failed frame.
	//
	// Parameters:
	//   - frame: a monotonically increasing frame counter driving per-frame
	//     cache recycling
	//
	// Returns:
	//   - error: the first backend failure of the frame, if any
	EndFrame(frame uint64) error

	// Stats returns the counters accumulated since BeginFrame.
	//
	// Returns:
	//   - FrameStats: the current frame's counters
	Stats() FrameStats

	// Release frees every GPU object the context owns: cached pipelines,
	// bind groups, samplers, pooled buffers, and the fallback texture. The
	// context must not be used afterwards.
	Release()
}

type shaderCaches struct {
	pipelines  *pipelineCache
	bindGroups *bindGroupCache
}

// drawContext is the implementation of the DrawContext interface.
type drawContext struct {
	backend       renderer.Backend
	defaultShader shader.Shader
	fallback      *graphics.Texture

	pools      poolManager
	buffers    *bufferCache
	transforms *transformStack
	caches     map[shader.Shader]*shaderCaches
	stats      FrameStats

	width, height uint32
	committed     []*renderPass
	current       *renderPass
	activeLayer   int
	frameErr      error

	pointScratch [][2]float32
	vertScratch  []Vertex
	idxScratch   []uint32
}

var _ DrawContext = &drawContext{}

// fail records the frame's first backend error. Later drawing is a no-op
// until the next BeginFrame; EndFrame surfaces the error.
func (d *drawContext) fail(err error) {
	if d.frameErr == nil {
		d.frameErr = err
	}
}

func (d *drawContext) layer() *renderLayer {
	return d.current.layer(d.activeLayer)
}

func (d *drawContext) shaderCache(sh shader.Shader) *shaderCaches {
	c, ok := d.caches[sh]
	if !ok {
		c = &shaderCaches{
			pipelines:  newPipelineCache(d.backend, &d.stats, sh),
			bindGroups: newBindGroupCache(d.backend, &d.stats),
		}
		d.caches[sh] = c
	}
	return c
}

func (d *drawContext) BeginFrame(width, height uint32) {
	for _, pass := range d.committed {
		d.drainPass(pass)
	}
	d.committed = d.committed[:0]
	if d.current != nil {
		d.drainPass(d.current)
		d.current = nil
	}

	d.buffers.reset()
	d.transforms.reset()
	d.stats = FrameStats{}
	d.frameErr = nil
	d.width = width
	d.height = height

	d.startPass(nil, &common.ColorBlack)
}

// drainPass returns a pass and everything it accumulated to the pools.
func (d *drawContext) drainPass(pass *renderPass) {
	for _, l := range pass.layers {
		for _, call := range l.calls {
			d.pools.returnCall(call)
		}
		d.pools.returnLayer(l)
	}
	d.pools.returnPass(pass)
}

// startPass opens a fresh pass with layer 0 active.
func (d *drawContext) startPass(surface *graphics.Surface, clear *common.Color) {
	pass := d.pools.borrowPass()
	pass.target = surface
	pass.hasClear = clear != nil
	if clear != nil {
		pass.clear = *clear
	}
	d.current = pass
	d.activeLayer = 0
	pass.ensureLayer(0, d)
}

func (d *drawContext) SetSurface(surface *graphics.Surface, clear *common.Color) {
	if d.current.finish() {
		d.committed = append(d.committed, d.current)
	} else {
		d.drainPass(d.current)
	}
	d.startPass(surface, clear)
}

func (d *drawContext) SetLayer(i int) {
	d.current.ensureLayer(i, d)
	d.activeLayer = i
}

func (d *drawContext) PushTransform(m common.Affine) {
	d.transforms.push(m)
}

func (d *drawContext) PushNewTransform(m common.Affine) {
	d.transforms.pushNew(m)
}

func (d *drawContext) PopTransform() error {
	return d.transforms.pop()
}

func (d *drawContext) PopTransforms(n int) error {
	return d.transforms.popN(n)
}

func (d *drawContext) Transform() common.Affine {
	return d.transforms.current
}

func (d *drawContext) SetShader(sh shader.Shader) {
	d.layer().setShader(sh)
}

func (d *drawContext) SetParam(name string, value BindingValue) error {
	return d.layer().setParam(name, value)
}

func (d *drawContext) SetBlendMode(b renderer.BlendMode) {
	d.layer().setBlendMode(b)
}

func (d *drawContext) SetScissor(r common.Rect) {
	d.layer().setScissor(r)
}

func (d *drawContext) SetViewMatrix(m common.Mat4) {
	d.layer().setViewMatrix(m)
}

func (d *drawContext) SetSampler(desc common.SamplerDescriptor) {
	d.layer().setMainSampler(desc)
}

// vert builds one vertex with the current transform applied.
func (d *drawContext) vert(x, y, u, v float32, c common.Color, mode float32) Vertex {
	tx, ty := d.transforms.current.Apply(x, y)
	return Vertex{
		Pos:   [2]float32{tx, ty},
		UV:    [2]float32{u, v},
		Color: [4]float32{c.R, c.G, c.B, c.A},
		Mode:  mode,
	}
}

func (d *drawContext) DrawPoint(x, y float32, c common.Color) {
	l := d.layer()
	l.setTopology(renderer.TopologyPoints)
	d.vertScratch = append(d.vertScratch[:0], d.vert(x, y, 0, 0, c, modeUntextured))
	d.idxScratch = append(d.idxScratch[:0], 0)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawLine(x1, y1, x2, y2 float32, c common.Color) {
	l := d.layer()
	l.setTopology(renderer.TopologyLines)
	d.vertScratch = append(d.vertScratch[:0],
		d.vert(x1, y1, 0, 0, c, modeUntextured),
		d.vert(x2, y2, 0, 0, c, modeUntextured),
	)
	d.idxScratch = append(d.idxScratch[:0], 0, 1)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawLines(points [][2]float32, c common.Color) {
	if len(points) < 2 {
		return
	}
	l := d.layer()
	l.setTopology(renderer.TopologyLines)
	d.vertScratch = d.vertScratch[:0]
	d.idxScratch = d.idxScratch[:0]
	for i, p := range points {
		d.vertScratch = append(d.vertScratch, d.vert(p[0], p[1], 0, 0, c, modeUntextured))
		if i > 0 {
			d.idxScratch = append(d.idxScratch, uint32(i-1), uint32(i))
		}
	}
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawTriangle(x1, y1, x2, y2, x3, y3 float32, c common.Color) {
	l := d.layer()
	l.setTopology(renderer.TopologyTriangles)
	d.vertScratch = append(d.vertScratch[:0],
		d.vert(x1, y1, 0, 0, c, modeUntextured),
		d.vert(x2, y2, 0, 0, c, modeUntextured),
		d.vert(x3, y3, 0, 0, c, modeUntextured),
	)
	d.idxScratch = append(d.idxScratch[:0], 0, 1, 2)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawQuad(corners [4][2]float32, c common.Color) {
	l := d.layer()
	l.setTopology(renderer.TopologyTriangles)
	d.vertScratch = d.vertScratch[:0]
	for _, p := range corners {
		d.vertScratch = append(d.vertScratch, d.vert(p[0], p[1], 0, 0, c, modeUntextured))
	}
	d.idxScratch = append(d.idxScratch[:0], 0, 1, 2, 0, 2, 3)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawRect(r common.Rect, c common.Color) {
	d.DrawQuad([4][2]float32{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X + r.W, r.Y + r.H},
		{r.X, r.Y + r.H},
	}, c)
}

func (d *drawContext) DrawRectOutline(r common.Rect, c common.Color) {
	l := d.layer()
	l.setTopology(renderer.TopologyLines)
	d.vertScratch = append(d.vertScratch[:0],
		d.vert(r.X, r.Y, 0, 0, c, modeUntextured),
		d.vert(r.X+r.W, r.Y, 0, 0, c, modeUntextured),
		d.vert(r.X+r.W, r.Y+r.H, 0, 0, c, modeUntextured),
		d.vert(r.X, r.Y+r.H, 0, 0, c, modeUntextured),
	)
	d.idxScratch = append(d.idxScratch[:0], 0, 1, 1, 2, 2, 3, 3, 0)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawPolygon(points [][2]float32, c common.Color) {
	if len(points) < 3 {
		return
	}
	l := d.layer()
	l.setTopology(renderer.TopologyTriangles)
	d.vertScratch = d.vertScratch[:0]
	d.idxScratch = d.idxScratch[:0]
	for _, p := range points {
		d.vertScratch = append(d.vertScratch, d.vert(p[0], p[1], 0, 0, c, modeUntextured))
	}
	for i := 1; i < len(points)-1; i++ {
		d.idxScratch = append(d.idxScratch, 0, uint32(i), uint32(i+1))
	}
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawCircle(cx, cy, radius float32, segments int, c common.Color) {
	if segments <= 0 {
		segments = common.CircleSegments(radius)
	}
	d.pointScratch = common.AppendEllipsePoints(d.pointScratch[:0], cx, cy, radius, radius, segments)
	d.DrawPolygon(d.pointScratch, c)
}

func (d *drawContext) DrawTexture(t *graphics.Texture, x, y float32, tint common.Color) {
	d.drawTexturedQuad(t, x, y, float32(t.Width()), float32(t.Height()), 0, 0, 1, 1, tint, modeTextured)
}

func (d *drawContext) DrawTextureRegion(t *graphics.Texture, region common.Rect, x, y float32, tint common.Color) {
	tw := float32(t.Width())
	th := float32(t.Height())
	d.drawTexturedQuad(t, x, y, region.W, region.H,
		region.X/tw, region.Y/th, (region.X+region.W)/tw, (region.Y+region.H)/th,
		tint, modeTextured)
}

func (d *drawContext) DrawGlyphs(atlas *graphics.Texture, glyphs []Glyph, tint common.Color) {
	if len(glyphs) == 0 {
		return
	}
	aw := float32(atlas.Width())
	ah := float32(atlas.Height())
	for _, g := range glyphs {
		d.drawTexturedQuad(atlas, g.Dst.X, g.Dst.Y, g.Dst.W, g.Dst.H,
			g.Src.X/aw, g.Src.Y/ah, (g.Src.X+g.Src.W)/aw, (g.Src.Y+g.Src.H)/ah,
			tint, modeText)
	}
}

// drawTexturedQuad appends one textured quad with explicit UV corners. It
// binds the texture first, which flushes when the texture actually changes.
func (d *drawContext) drawTexturedQuad(t *graphics.Texture, x, y, w, h, u0, v0, u1, v1 float32, tint common.Color, mode float32) {
	l := d.layer()
	l.setTopology(renderer.TopologyTriangles)
	l.setMainTexture(t)
	d.vertScratch = append(d.vertScratch[:0],
		d.vert(x, y, u0, v0, tint, mode),
		d.vert(x+w, y, u1, v0, tint, mode),
		d.vert(x+w, y+h, u1, v1, tint, mode),
		d.vert(x, y+h, u0, v1, tint, mode),
	)
	d.idxScratch = append(d.idxScratch[:0], 0, 1, 2, 0, 2, 3)
	l.appendGeometry(d.vertScratch, d.idxScratch)
}

func (d *drawContext) DrawGeometry(t *graphics.Texture, vertices []Vertex, indices []uint32) {
	if len(vertices) == 0 || len(indices) == 0 {
		return
	}
	l := d.layer()
	l.setTopology(renderer.TopologyTriangles)
	if t != nil {
		l.setMainTexture(t)
	}
	cur := d.transforms.current
	d.vertScratch = d.vertScratch[:0]
	for _, v := range vertices {
		v.Pos[0], v.Pos[1] = cur.Apply(v.Pos[0], v.Pos[1])
		d.vertScratch = append(d.vertScratch, v)
	}
	l.appendGeometry(d.vertScratch, indices)
}

func (d *drawContext) SubmitBuffers(vertexBuffer, indexBuffer renderer.Buffer, indexCount uint32) {
	d.layer().submitBuffers(vertexBuffer, indexBuffer, indexCount)
}

func (d *drawContext) EndFrame(frame uint64) error {
	if d.current.finish() {
		d.committed = append(d.committed, d.current)
	} else {
		d.drainPass(d.current)
	}
	d.current = nil

	if d.frameErr != nil {
		return d.frameErr
	}

	if err := d.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}

	if len(d.committed) == 0 {
		// No drawing happened; still present a deterministic image.
		if err := d.backend.BeginRenderPass(nil, renderer.LoadClear, common.ColorBlack); err != nil {
			return d.abortFrame(fmt.Errorf("failed to begin clear pass: %w", err))
		}
		d.backend.EndRenderPass()
	}

	for _, pass := range d.committed {
		if err := d.encodePass(pass, frame); err != nil {
			return d.abortFrame(err)
		}
	}

	if err := d.backend.EndFrame(); err != nil {
		d.backend.Present()
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	d.backend.Present()
	return nil
}

// abortFrame closes out a begun backend frame after a mid-encode failure.
// The encoder is submitted as-is and the acquired surface presented so the
// backend holds no frame state and the next BeginFrame starts clean; the
// caller turns err into a skipped frame.
func (d *drawContext) abortFrame(err error) error {
	_ = d.backend.EndFrame()
	d.backend.Present()
	return err
}

// encodePass opens one native render pass and issues every draw call the
// pass accumulated, in layer then call order.
func (d *drawContext) encodePass(pass *renderPass, frame uint64) error {
	var target renderer.Texture
	if pass.target != nil {
		target = pass.target.Texture().Resource()
	}
	load := renderer.LoadPreserve
	if pass.hasClear {
		load = renderer.LoadClear
	}
	if err := d.backend.BeginRenderPass(target, load, pass.clear); err != nil {
		return fmt.Errorf("failed to begin render pass: %w", err)
	}

	format := pass.targetFormat(d.backend)
	targetW, targetH := pass.targetSize(d.width, d.height)

	for _, l := range pass.layers {
		for _, call := range l.calls {
			caches := d.shaderCache(call.shader)
			pipeline, err := caches.pipelines.request(call.topology, format, call.blend)
			if err != nil {
				d.backend.EndRenderPass()
				return err
			}
			bindGroup, err := caches.bindGroups.request(call.bindings, frame)
			if err != nil {
				d.backend.EndRenderPass()
				return err
			}

			var scissor *renderer.ScissorRect
			if !call.scissor.Empty() {
				r := call.scissor.Clamped(float32(targetW), float32(targetH))
				if r.Empty() {
					continue
				}
				// Floor the origin and ceil the far corner so fractional
				// rects never clip away covered pixels.
				x0 := uint32(math.Floor(float64(r.X)))
				y0 := uint32(math.Floor(float64(r.Y)))
				x1 := uint32(math.Ceil(float64(r.X + r.W)))
				y1 := uint32(math.Ceil(float64(r.Y + r.H)))
				scissor = &renderer.ScissorRect{
					X: x0, Y: y0,
					W: x1 - x0, H: y1 - y0,
				}
			}

			d.backend.Draw(renderer.DrawCommand{
				Pipeline:     pipeline,
				BindGroup:    bindGroup,
				VertexBuffer: call.vertexBuf,
				IndexBuffer:  call.indexBuf,
				IndexCount:   call.indexCount,
				Scissor:      scissor,
			})
			d.stats.DrawCalls++
		}
	}

	d.backend.EndRenderPass()
	return nil
}

func (d *drawContext) Stats() FrameStats {
	return d.stats
}

func (d *drawContext) Release() {
	if d.current != nil {
		d.drainPass(d.current)
		d.current = nil
	}
	for _, pass := range d.committed {
		d.drainPass(pass)
	}
	d.committed = d.committed[:0]

	d.buffers.reset()
	for _, list := range d.buffers.free {
		for _, pair := range list {
			pair.vertex.Release()
			pair.index.Release()
		}
	}
	d.buffers.free = make(map[bufferClassKey][]*bufferPair)

	for sh, caches := range d.caches {
		caches.pipelines.release()
		caches.bindGroups.releaseAll()
		delete(d.caches, sh)
	}

	d.fallback.Release()
	d.fallback = nil
}
