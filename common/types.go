// package common contains common types that are used throughout this framework. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Color is a normalized RGBA color with float32 channels in the [0, 1] range.
type Color struct {
	R, G, B, A float32
}

// Common colors used as defaults throughout the framework.
var (
	ColorBlack       = Color{0, 0, 0, 1}
	ColorWhite       = Color{1, 1, 1, 1}
	ColorTransparent = Color{0, 0, 0, 0}
)

// RGB returns an opaque Color from the given channel values.
//
// Parameters:
//   - r, g, b: normalized channel values in the [0, 1] range
//
// Returns:
//   - Color: the opaque color
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Rect is an axis-aligned rectangle described by its top-left corner and size.
type Rect struct {
	X, Y, W, H float32
}

// NewRect constructs a Rect from position and size.
//
// Parameters:
//   - x, y: top-left corner
//   - w, h: width and height
//
// Returns:
//   - Rect: the rectangle
func NewRect(x, y, w, h float32) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Empty reports whether the rectangle has no area.
//
// Returns:
//   - bool: true when width or height is <= 0
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Clamped returns the rectangle intersected with the region [0, 0, width, height],
// suitable for use as a scissor rect on a render target of that size.
//
// Parameters:
//   - width, height: the target dimensions in pixels
//
// Returns:
//   - Rect: the clamped rectangle (possibly empty)
func (r Rect) Clamped(width, height float32) Rect {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.X+r.W, width)
	y1 := min(r.Y+r.H, height)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// FilterMode selects the texture filtering used by a sampler.
type FilterMode uint8

const (
	// FilterLinear interpolates between the nearest texels.
	FilterLinear FilterMode = iota

	// FilterNearest snaps to the nearest texel, for crisp pixel art.
	FilterNearest
)

// AddressMode selects how texture coordinates outside [0, 1] are resolved.
type AddressMode uint8

const (
	// AddressClampToEdge extends the edge texels.
	AddressClampToEdge AddressMode = iota

	// AddressRepeat tiles the texture.
	AddressRepeat

	// AddressMirrorRepeat tiles the texture, mirroring every other repetition.
	AddressMirrorRepeat
)

// SamplerDescriptor is a plain value describing a GPU sampler. Two descriptors
// with equal fields describe the same sampler, so the type is comparable and
// safe to use as a cache key component.
type SamplerDescriptor struct {
	MinFilter, MagFilter       FilterMode
	AddressModeU, AddressModeV AddressMode
}

// DefaultSampler returns the sampler configuration used when a shader's sampler
// parameter has not been set explicitly: linear filtering, clamp to edge.
//
// Returns:
//   - SamplerDescriptor: the default descriptor
func DefaultSampler() SamplerDescriptor {
	return SamplerDescriptor{
		MinFilter:    FilterLinear,
		MagFilter:    FilterLinear,
		AddressModeU: AddressClampToEdge,
		AddressModeV: AddressClampToEdge,
	}
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// DecodeImage decodes PNG or JPEG bytes into RGBA staging data ready for GPU upload.
//
// Parameters:
//   - data: raw encoded image bytes
//
// Returns:
//   - TextureStagingData: decoded RGBA pixels with dimensions
//   - error: error if decoding fails
func DecodeImage(data []byte) (TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return imageToStaging(img), nil
}

// DecodeImageFile reads and decodes a PNG or JPEG file into RGBA staging data.
//
// Parameters:
//   - path: path to the image file on disk
//
// Returns:
//   - TextureStagingData: decoded RGBA pixels with dimensions
//   - error: error if the file cannot be read or decoded
func DecodeImageFile(path string) (TextureStagingData, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image file %s: %w", path, err)
	}
	return imageToStaging(img), nil
}

func imageToStaging(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
