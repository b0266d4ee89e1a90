package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriangleVerticesScaleWithAspect(t *testing.T) {
	vertices := TriangleVertices(DefaultRenderWidth, DefaultRenderHeight)
	require.Len(t, vertices, int(TriangleVertexCount))

	aspect := float32(DefaultRenderWidth) / float32(DefaultRenderHeight)
	assert.Equal(t, 0.25*aspect, vertices[0].Position[1])
	assert.Equal(t, -0.25*aspect, vertices[1].Position[1])
	assert.Equal(t, -0.25*aspect, vertices[2].Position[1])

	// X coordinates are aspect independent.
	assert.Equal(t, float32(0.0), vertices[0].Position[0])
	assert.Equal(t, float32(0.25), vertices[1].Position[0])
	assert.Equal(t, float32(-0.25), vertices[2].Position[0])
}

func TestEncodeVerticesLayout(t *testing.T) {
	vertices := []Vertex{
		{Position: [3]float32{1.0, 2.0, 3.0}, Color: [4]float32{0.5, 0.25, 0.125, 1.0}},
	}
	encoded := EncodeVertices(vertices)
	require.Len(t, encoded, int(VertexStrideBytes))

	readFloat := func(offset uint32) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(encoded[offset:]))
	}
	assert.Equal(t, float32(1.0), readFloat(PositionByteOffset))
	assert.Equal(t, float32(2.0), readFloat(PositionByteOffset+4))
	assert.Equal(t, float32(3.0), readFloat(PositionByteOffset+8))
	assert.Equal(t, float32(0.5), readFloat(ColorByteOffset))
	assert.Equal(t, float32(1.0), readFloat(ColorByteOffset+12))
}

func TestEncodeVerticesTriangleSize(t *testing.T) {
	encoded := EncodeVertices(TriangleVertices(800, 600))
	assert.Len(t, encoded, int(TriangleVertexCount*VertexStrideBytes))
}
