package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

func TestFrameRingViewStride(t *testing.T) {
	stack := newSoftStack(t, 0, metadata.DefaultRenderWidth, metadata.DefaultRenderHeight)

	base := stack.ring.ViewHandle(0)
	for i := 1; i < stack.ring.BufferCount(); i++ {
		require.Equal(t, uint64(i)*softDescriptorIncrement, uint64(stack.ring.ViewHandle(i)-base),
			"view %d must sit one cached increment past its neighbor", i)
	}
}

func TestFrameRingIndexAlwaysInRange(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	// Script a presentation surface that does not alternate strictly: the
	// index re-query must still stay in range and the pipeline must follow
	// whatever the surface reports.
	sequence := []int{0, 0, 1, 0, 1, 1, 0}
	step := 0
	stack.device.surface.advance = func(current, presents int) int {
		next := sequence[step%len(sequence)]
		step++
		return next
	}

	for frame := 0; frame < len(sequence); frame++ {
		require.NoError(t, stack.loop.RenderFrame())
		index := stack.ring.CurrentBackBufferIndex()
		require.GreaterOrEqual(t, index, 0)
		require.Less(t, index, stack.ring.BufferCount())
		require.Equal(t, index, stack.loop.BackBufferIndex(),
			"loop must adopt the surface's index, not assume round-robin")
	}
}

func TestFrameRingDimensions(t *testing.T) {
	stack := newSoftStack(t, 0, 1080, 960)

	require.Equal(t, metadata.FrameBufferCount, stack.ring.BufferCount())
	require.Equal(t, uint32(1080), stack.ring.Width())
	require.Equal(t, uint32(960), stack.ring.Height())
	for i := 0; i < stack.ring.BufferCount(); i++ {
		require.Equal(t, uint32(1080), stack.ring.Target(i).Width())
		require.Equal(t, uint32(960), stack.ring.Target(i).Height())
	}
}
