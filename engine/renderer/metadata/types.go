package metadata

import (
	"encoding/binary"
	"math"
)

// Demo geometry defaults, matching the window the swapchain is built for.
const (
	DefaultRenderWidth  uint32 = 1080
	DefaultRenderHeight uint32 = 960
	// Exactly two buffers; the synchronizer assumes nothing beyond that.
	FrameBufferCount int = 2
)

// ClearColor is the fixed frame background.
var ClearColor = [4]float32{0.0, 0.2, 0.4, 1.0}

// Vertex is the input layout the shader artifact was compiled against:
// position at byte offset 0, color at byte offset 12.
type Vertex struct {
	Position [3]float32
	Color    [4]float32
}

const (
	VertexStrideBytes    uint32 = 28
	PositionByteOffset   uint32 = 0
	ColorByteOffset      uint32 = 12
	TriangleVertexCount  uint32 = 3
	TriangleInstanceCnt  uint32 = 1
)

// TriangleVertices is the single fixed piece of geometry this system draws,
// scaled by the render-target aspect ratio.
func TriangleVertices(width, height uint32) []Vertex {
	aspect := float32(width) / float32(height)
	return []Vertex{
		{Position: [3]float32{0.0, 0.25 * aspect, 0.0}, Color: [4]float32{1.0, 0.0, 0.0, 1.0}},
		{Position: [3]float32{0.25, -0.25 * aspect, 0.0}, Color: [4]float32{0.0, 1.0, 0.0, 1.0}},
		{Position: [3]float32{-0.25, -0.25 * aspect, 0.0}, Color: [4]float32{0.0, 0.0, 1.0, 1.0}},
	}
}

// EncodeVertices packs vertices into the byte layout the input layout
// describes, little-endian, no padding.
func EncodeVertices(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(VertexStrideBytes))
	for _, v := range vertices {
		for _, f := range v.Position {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		for _, f := range v.Color {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out
}
