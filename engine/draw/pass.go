package draw

import (
	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
)

// renderPass is the ordered rendering work for one target surface within a
// frame: its layers, plus an optional clear. A nil target means the window.
type renderPass struct {
	target   *graphics.Surface
	clear    common.Color
	hasClear bool
	layers   []*renderLayer
}

// targetSize reports the pixel size the pass renders into.
func (p *renderPass) targetSize(windowW, windowH uint32) (uint32, uint32) {
	if p.target != nil {
		return p.target.Width(), p.target.Height()
	}
	return windowW, windowH
}

// targetFormat reports the pixel format pipelines for this pass compile
// against.
func (p *renderPass) targetFormat(backend renderer.Backend) renderer.TextureFormat {
	if p.target != nil {
		return p.target.Texture().Resource().Format()
	}
	return backend.SurfaceFormat()
}

// ensureLayer grows the layer list with pooled layers sized for the pass's
// target until index i exists.
func (p *renderPass) ensureLayer(i int, ctx *drawContext) {
	w, h := p.targetSize(ctx.width, ctx.height)
	format := p.targetFormat(ctx.backend)
	for len(p.layers) <= i {
		l := ctx.pools.borrowLayer()
		l.reset(ctx, format, w, h)
		p.layers = append(p.layers, l)
	}
}

// layer returns the layer at index i, which must exist.
func (p *renderPass) layer(i int) *renderLayer {
	return p.layers[i]
}

// finish flushes every layer and reports whether the pass carries any work
// worth submitting: a clear, or at least one draw call.
func (p *renderPass) finish() bool {
	keep := p.hasClear
	for _, l := range p.layers {
		l.flush()
		if len(l.calls) > 0 {
			keep = true
		}
	}
	return keep
}
