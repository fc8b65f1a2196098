// package graphics provides CPU-side handles for GPU resources: reference
// counted textures, offscreen surfaces, and asset loading helpers. Handles are
// shared by pointer; the reference count is queryable so caches can detect
// when they are the last holder of a resource.
package graphics

import (
	"fmt"
	"sync/atomic"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/renderer"
)

// nextTextureID hands out process-unique texture identities used as cache
// fingerprint components.
var nextTextureID atomic.Uint64

// Texture is a reference-counted handle to a GPU texture. A newly created
// texture has a strong count of one, owned by the caller. Handles are shared
// by Retain/Release pairs; the backing GPU texture is freed when the count
// reaches zero.
//
// The count is not synchronized; like the rest of the draw path, textures
// belong to a single thread.
type Texture struct {
	id     uint64
	res    renderer.Texture
	width  uint32
	height uint32
	refs   int
}

// NewTexture creates a texture from RGBA staging data and uploads it to the GPU.
//
// Parameters:
//   - backend: the graphics backend
//   - label: debug label
//   - staging: RGBA pixel data with dimensions
//
// Returns:
//   - *Texture: the created handle with a strong count of one
//   - error: an error if GPU texture creation fails
func NewTexture(backend renderer.Backend, label string, staging common.TextureStagingData) (*Texture, error) {
	res, err := backend.CreateTexture(label, staging, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	return &Texture{
		id:     nextTextureID.Add(1),
		res:    res,
		width:  staging.Width,
		height: staging.Height,
		refs:   1,
	}, nil
}

// NewFallbackTexture creates the 1x1 opaque white texture bound wherever a
// shader's texture parameter has not been set explicitly.
//
// Parameters:
//   - backend: the graphics backend
//
// Returns:
//   - *Texture: the fallback texture
//   - error: an error if GPU texture creation fails
func NewFallbackTexture(backend renderer.Backend) (*Texture, error) {
	return NewTexture(backend, "Fallback White", common.TextureStagingData{
		Pixels: []byte{0xff, 0xff, 0xff, 0xff},
		Width:  1,
		Height: 1,
	})
}

// ID returns the texture's process-unique identity.
//
// Returns:
//   - uint64: the identity
func (t *Texture) ID() uint64 {
	return t.id
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 {
	return t.width
}

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 {
	return t.height
}

// Resource returns the underlying backend texture for binding and render
// target use.
//
// Returns:
//   - renderer.Texture: the backend texture
func (t *Texture) Resource() renderer.Texture {
	return t.res
}

// Retain increments the strong count and returns the same handle, for callers
// that store a texture beyond the current scope.
//
// Returns:
//   - *Texture: the same handle
func (t *Texture) Retain() *Texture {
	t.refs++
	return t
}

// Release decrements the strong count, freeing the GPU texture when it
// reaches zero. Releasing more times than retained panics; that is a
// bookkeeping bug, not a runtime condition.
func (t *Texture) Release() {
	if t.refs <= 0 {
		panic(fmt.Sprintf("texture %d released with strong count %d", t.id, t.refs))
	}
	t.refs--
	if t.refs == 0 {
		t.res.Release()
		t.res = nil
	}
}

// StrongCount returns the number of outstanding strong references. A cache
// holding one reference can conclude it is the sole owner when this returns 1.
//
// Returns:
//   - int: the strong count
func (t *Texture) StrongCount() int {
	return t.refs
}
