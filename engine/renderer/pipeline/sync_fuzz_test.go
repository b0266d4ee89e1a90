package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// FuzzWaitForPrevious drives randomized frame counts against randomized GPU
// completion latencies. Whatever the timing, a returned wait means the GPU
// has fully caught up and the surface index is inside the ring.
func FuzzWaitForPrevious(f *testing.F) {
	f.Add(uint8(1), uint16(0))
	f.Add(uint8(5), uint16(250))
	f.Add(uint8(12), uint16(2000))

	f.Fuzz(func(t *testing.T, frames uint8, latencyMicros uint16) {
		frames = frames%16 + 1
		latency := time.Duration(latencyMicros%5000) * time.Microsecond

		stack := newSoftStack(t, latency, 32, 32)
		for i := 0; i < int(frames); i++ {
			require.NoError(t, stack.loop.RenderFrame())
			require.GreaterOrEqual(t, stack.synchronizer.Completed(), stack.synchronizer.Expected())

			index := stack.ring.CurrentBackBufferIndex()
			require.GreaterOrEqual(t, index, 0)
			require.Less(t, index, stack.ring.BufferCount())
		}
		require.NoError(t, stack.loop.Drain())
		require.Equal(t, uint64(frames)+1, stack.synchronizer.Expected(),
			"one signal per frame plus the drain")
	})
}
