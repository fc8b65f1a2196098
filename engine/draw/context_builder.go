package draw

import (
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// DrawContextOption configures a DrawContext at construction.
type DrawContextOption func(*drawContext)

// WithDefaultShader overrides the shader layers start with. The default is
// the built-in 2D shader.
//
// Parameters:
//   - sh: the shader new layers are seeded with
//
// Returns:
//   - DrawContextOption: the configured option
func WithDefaultShader(sh shader.Shader) DrawContextOption {
	return func(d *drawContext) {
		d.defaultShader = sh
	}
}

// WithFallbackTexture overrides the texture bound to texture parameters that
// have no explicit value. The default is a 1x1 white texture. The context
// takes over the caller's reference.
//
// Parameters:
//   - t: the fallback texture
//
// Returns:
//   - DrawContextOption: the configured option
func WithFallbackTexture(t *graphics.Texture) DrawContextOption {
	return func(d *drawContext) {
		d.fallback = t
	}
}

// NewDrawContext creates the immediate-mode drawing surface over a backend.
// The backend's surface must already be configured; call BeginFrame before
// any drawing.
//
// Parameters:
//   - backend: the graphics backend
//   - opts: optional configuration
//
// Returns:
//   - DrawContext: the drawing surface
//   - error: an error if the fallback texture could not be created
func NewDrawContext(backend renderer.Backend, opts ...DrawContextOption) (DrawContext, error) {
	d := &drawContext{
		backend:    backend,
		transforms: newTransformStack(),
		caches:     make(map[shader.Shader]*shaderCaches),
	}
	d.buffers = newBufferCache(backend, &d.stats)
	for _, opt := range opts {
		opt(d)
	}
	if d.defaultShader == nil {
		d.defaultShader = shader.NewBuiltin2D()
	}
	if d.fallback == nil {
		fallback, err := graphics.NewFallbackTexture(backend)
		if err != nil {
			return nil, err
		}
		d.fallback = fallback
	}
	return d, nil
}
