package graphics

import (
	"fmt"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/renderer"
)

// Surface is an offscreen render target. Draw passes can render into it and
// its texture can then be sampled like any other, so effects can be composed
// across passes within a frame.
type Surface struct {
	tex    *Texture
	width  uint32
	height uint32
}

// NewSurface creates an offscreen render target of the given size.
//
// Parameters:
//   - backend: the graphics backend
//   - label: debug label
//   - width, height: the target size in pixels
//
// Returns:
//   - *Surface: the created surface
//   - error: an error if GPU texture creation fails
func NewSurface(backend renderer.Backend, label string, width, height uint32) (*Surface, error) {
	res, err := backend.CreateTexture(label, common.TextureStagingData{
		Width:  width,
		Height: height,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface %q: %w", label, err)
	}
	return &Surface{
		tex: &Texture{
			id:     nextTextureID.Add(1),
			res:    res,
			width:  width,
			height: height,
			refs:   1,
		},
		width:  width,
		height: height,
	}, nil
}

// Texture returns the surface's backing texture handle, for sampling the
// rendered result in later passes.
//
// Returns:
//   - *Texture: the backing texture
func (s *Surface) Texture() *Texture {
	return s.tex
}

// Width returns the surface width in pixels.
func (s *Surface) Width() uint32 {
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() uint32 {
	return s.height
}

// Release drops the surface's reference to its backing texture.
func (s *Surface) Release() {
	s.tex.Release()
}
