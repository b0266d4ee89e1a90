package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

func TestUploadStaticRoundTrip(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	payload := metadata.EncodeVertices(metadata.TriangleVertices(64, 64))
	buf, err := stack.uploader.UploadStatic(payload)
	require.NoError(t, err)
	require.Equal(t, uint64(len(payload)), buf.SizeBytes())

	// Read back before any GPU draw consumes the buffer.
	mem, err := buf.Map()
	require.NoError(t, err)
	defer buf.Unmap()
	require.Equal(t, payload, mem)
}

func TestUploadStaticExactSize(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	for _, size := range []int{1, 28, 84, 4096} {
		buf, err := stack.uploader.UploadStatic(make([]byte, size))
		require.NoError(t, err)
		require.Equal(t, uint64(size), buf.SizeBytes())
	}
}

func TestColorTableSelectorBounds(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	require.ErrorIs(t, stack.colors.SetSelector(-1), core.ErrIndexOutOfRange)
	require.ErrorIs(t, stack.colors.SetSelector(ColorTableSlots), core.ErrIndexOutOfRange)
	require.ErrorIs(t, stack.colors.SetSelector(ColorTableSlots+100), core.ErrIndexOutOfRange)

	require.NoError(t, stack.colors.SetSelector(0))
	require.NoError(t, stack.colors.SetSelector(ColorTableSlots-1))
}

func TestColorTableSelectorPersists(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	require.NoError(t, stack.colors.SetSelector(3))
	require.Equal(t, 3, stack.colors.Selector())

	// The table stays mapped; updating the selector must not disturb the
	// color slots.
	require.Equal(t, testPalette()[2], stack.colors.SlotColor(3))
}

func TestColorTableSlotLayout(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	palette := testPalette()
	for i, want := range palette {
		require.Equal(t, want, stack.colors.SlotColor(i+1), "slot %d", i+1)
	}
	// Unpopulated slots read back zero.
	require.Equal(t, [4]float32{}, stack.colors.SlotColor(len(palette)+1))
}

func TestColorTableCapacity(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	tooMany := make([][4]float32, ColorTableSlots)
	_, err := stack.uploader.NewColorTable(tooMany)
	require.ErrorIs(t, err, core.ErrResourceCreationFailed)
}
