package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/core"
)

// The reference scenario: bufferCount=2, 1080x960, five consecutive frames.
// Every wait must complete before the next recording begins, and the queue
// must never see two submissions between two fence signals.
func TestFiveFrameScenario(t *testing.T) {
	stack := newSoftStack(t, time.Millisecond, 1080, 960)

	for frame := 0; frame < 5; frame++ {
		require.NoError(t, stack.loop.RenderFrame())
		require.GreaterOrEqual(t, stack.synchronizer.Completed(), stack.synchronizer.Expected())
	}

	require.Equal(t, 5, stack.device.surface.presentCount())
	require.Equal(t, uint64(5), stack.synchronizer.Expected())

	history := stack.device.gpu.history()
	submitsSinceSignal := 0
	for _, op := range history {
		if op == "submit" {
			submitsSinceSignal++
			require.LessOrEqual(t, submitsSinceSignal, 1,
				"two submissions landed between two fence signals: %v", history)
		} else if strings.HasPrefix(op, "signal:") {
			submitsSinceSignal = 0
		}
	}
}

// Selector slot 3 must shade every rendered pixel with slot 3's color.
func TestSelectorPicksTableSlot(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	require.NoError(t, stack.colors.SetSelector(3))
	rendered := stack.loop.BackBufferIndex()
	require.NoError(t, stack.loop.RenderFrame())

	want := stack.colors.SlotColor(3)
	target := stack.ring.Target(rendered).(*softTarget)
	for _, probe := range [][2]uint32{{0, 0}, {32, 32}, {63, 63}} {
		require.Equal(t, want, target.at(probe[0], probe[1]),
			"pixel (%d,%d) must carry slot 3's color", probe[0], probe[1])
	}
	require.Zero(t, target.stateViolations())
}

func TestDrainWaitsBeforeTeardown(t *testing.T) {
	stack := newSoftStack(t, 2*time.Millisecond, 64, 64)

	for i := 0; i < 3; i++ {
		require.NoError(t, stack.loop.RenderFrame())
	}
	require.NoError(t, stack.loop.Drain())
	require.GreaterOrEqual(t, stack.synchronizer.Completed(), stack.synchronizer.Expected())
	// 3 frames + 1 drain.
	require.Equal(t, uint64(4), stack.synchronizer.Expected())
}

func TestSubmitFailureAbortsFrame(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)
	stack.queue.submitErr = errors.New("queue dead")

	err := stack.loop.RenderFrame()
	require.ErrorIs(t, err, core.ErrSubmissionFailed)
	// Nothing was presented for the aborted frame.
	require.Zero(t, stack.device.surface.presentCount())
}

func TestPresentFailureSurfaces(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)
	stack.device.surface.presentErr = errors.New("surface lost")

	err := stack.loop.RenderFrame()
	require.ErrorIs(t, err, core.ErrPresentFailed)
}

func TestRenderFrameAdoptsSurfaceIndex(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	before := stack.loop.BackBufferIndex()
	require.NoError(t, stack.loop.RenderFrame())
	after := stack.loop.BackBufferIndex()

	require.Equal(t, stack.ring.CurrentBackBufferIndex(), after)
	require.NotEqual(t, before, after, "default surface alternates buffers")
}
