package common

import (
	"math"
)

// Affine is a 2D affine transform: a 2x2 linear map plus a translation.
// The matrix form is
//
//	| A  C  TX |
//	| B  D  TY |
//
// applied to column vectors (x, y, 1). The zero value is NOT the identity;
// use AffineIdentity.
type Affine struct {
	A, B, C, D, TX, TY float32
}

// AffineIdentity returns the identity transform.
//
// Returns:
//   - Affine: the identity transform
func AffineIdentity() Affine {
	return Affine{A: 1, D: 1}
}

// Translation returns a transform that translates by (x, y).
func Translation(x, y float32) Affine {
	return Affine{A: 1, D: 1, TX: x, TY: y}
}

// Scaling returns a transform that scales by (sx, sy) around the origin.
func Scaling(sx, sy float32) Affine {
	return Affine{A: sx, D: sy}
}

// Rotation returns a transform that rotates by the given angle in radians,
// counter-clockwise in a y-up space (clockwise on screen with y-down pixels).
func Rotation(radians float32) Affine {
	sin, cos := math.Sincos(float64(radians))
	s, c := float32(sin), float32(cos)
	return Affine{A: c, B: s, C: -s, D: c}
}

// Mul composes two transforms. m.Mul(n) applies n first, then m, so nesting a
// local space inside a parent is parent.Mul(local).
//
// Parameters:
//   - n: the transform applied first
//
// Returns:
//   - Affine: the composed transform
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A:  m.A*n.A + m.C*n.B,
		B:  m.B*n.A + m.D*n.B,
		C:  m.A*n.C + m.C*n.D,
		D:  m.B*n.C + m.D*n.D,
		TX: m.A*n.TX + m.C*n.TY + m.TX,
		TY: m.B*n.TX + m.D*n.TY + m.TY,
	}
}

// Apply transforms the point (x, y).
//
// Parameters:
//   - x, y: the point to transform
//
// Returns:
//   - float32: transformed x
//   - float32: transformed y
func (m Affine) Apply(x, y float32) (float32, float32) {
	return m.A*x + m.C*y + m.TX, m.B*x + m.D*y + m.TY
}

// Mat4 is a 4x4 matrix stored in column-major order (WebGPU convention),
// used for the view uniform consumed by shaders.
type Mat4 [16]float32

// Mat4Identity returns the 4x4 identity matrix.
func Mat4Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Ortho2D builds an orthographic projection mapping pixel coordinates
// (0, 0)..(width, height) with y increasing downward onto WebGPU clip space
// x, y in [-1, 1] and z in [0, 1].
//
// Parameters:
//   - width, height: the render target size in pixels
//
// Returns:
//   - Mat4: the projection matrix
func Ortho2D(width, height float32) Mat4 {
	var m Mat4
	m[0] = 2 / width
	m[5] = -2 / height
	m[10] = 1
	m[12] = -1
	m[13] = 1
	m[15] = 1
	return m
}

// Mul multiplies two 4x4 matrices: out = m * n, so n is applied first.
//
// Parameters:
//   - n: the right-hand matrix
//
// Returns:
//   - Mat4: the product
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// AffineToMat4 expands a 2D affine transform into a 4x4 matrix suitable for
// composition with a projection matrix.
//
// Parameters:
//   - a: the affine transform
//
// Returns:
//   - Mat4: the equivalent 4x4 matrix
func AffineToMat4(a Affine) Mat4 {
	m := Mat4Identity()
	m[0] = a.A
	m[1] = a.B
	m[4] = a.C
	m[5] = a.D
	m[12] = a.TX
	m[13] = a.TY
	return m
}

// AppendEllipsePoints appends the perimeter points of an ellipse to dst and
// returns the extended slice. Appending into a caller-retained scratch slice
// keeps the steady-state frame loop allocation free.
//
// Parameters:
//   - dst: destination slice (may be nil)
//   - cx, cy: ellipse center
//   - rx, ry: ellipse radii
//   - segments: number of perimeter points (values < 3 produce no points)
//
// Returns:
//   - [][2]float32: dst with the perimeter points appended
func AppendEllipsePoints(dst [][2]float32, cx, cy, rx, ry float32, segments int) [][2]float32 {
	if segments < 3 {
		return dst
	}
	step := 2 * math.Pi / float64(segments)
	for i := 0; i < segments; i++ {
		sin, cos := math.Sincos(step * float64(i))
		dst = append(dst, [2]float32{cx + rx*float32(cos), cy + ry*float32(sin)})
	}
	return dst
}

// CircleSegments picks a segment count for a circle of the given radius,
// bounded so both tiny and huge circles stay reasonable.
//
// Parameters:
//   - radius: the circle radius in pixels
//
// Returns:
//   - int: the chosen segment count
func CircleSegments(radius float32) int {
	if radius <= 0 {
		return 3
	}
	n := int(math.Ceil(math.Sqrt(float64(radius)) * 4))
	return min(max(n, 8), 128)
}
