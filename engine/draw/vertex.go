package draw

import (
	"github.com/feyworks/polywog/engine/renderer"
)

// Vertex mode values consumed by the built-in fragment shader.
const (
	modeUntextured float32 = 0
	modeTextured   float32 = 1
	modeText       float32 = 2
)

// Vertex is one vertex as uploaded to the GPU, byte for byte. The layout must
// stay in sync with VertexLayout2D and the built-in shader's vertex inputs.
type Vertex struct {
	// Pos is the position in target pixel coordinates.
	Pos [2]float32
	// UV is the texture coordinate, normalized to [0, 1].
	UV [2]float32
	// Color is the vertex color, straight RGBA in [0, 1].
	Color [4]float32
	// Mode selects the fragment path: 0 untextured, 1 textured, 2 text.
	Mode float32
}

// vertexStride is the byte size of one Vertex.
const vertexStride = 9 * 4

// VertexLayout2D describes the Vertex memory layout for pipeline compilation.
//
// Returns:
//   - renderer.VertexLayout: the layout matching the Vertex struct
func VertexLayout2D() renderer.VertexLayout {
	return renderer.VertexLayout{
		Stride: vertexStride,
		Attributes: []renderer.VertexAttribute{
			{Location: 0, Offset: 0, Format: renderer.VertexFloat32x2},
			{Location: 1, Offset: 8, Format: renderer.VertexFloat32x2},
			{Location: 2, Offset: 16, Format: renderer.VertexFloat32x4},
			{Location: 3, Offset: 32, Format: renderer.VertexFloat32},
		},
	}
}
