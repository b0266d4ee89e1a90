package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

func TestRecordOrder(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	list, err := stack.recorder.Record(stack.ring, 0, stack.vertexBuffer, stack.colors)
	require.NoError(t, err)

	require.Equal(t, []string{
		"bind-table",
		"viewport",
		"scissor",
		"barrier", // present -> render-target
		"set-target",
		"clear",
		"bind-vb",
		"draw",
		"barrier", // render-target -> present
	}, list.(*softList).opNames())
}

func TestRecordBarriersBracketTargetUse(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	list, err := stack.recorder.Record(stack.ring, 1, stack.vertexBuffer, stack.colors)
	require.NoError(t, err)

	ops := list.(*softList).ops
	var barriers []softOp
	for _, op := range ops {
		if op.name == "barrier" {
			barriers = append(barriers, op)
		}
	}
	require.Len(t, barriers, 2)
	require.Equal(t, hal.ResourceStatePresent, barriers[0].from)
	require.Equal(t, hal.ResourceStateRenderTarget, barriers[0].to)
	require.Equal(t, hal.ResourceStateRenderTarget, barriers[1].from)
	require.Equal(t, hal.ResourceStatePresent, barriers[1].to)
	require.Same(t, stack.ring.Target(1), barriers[0].target)
}

func TestRecordTargetsRequestedBackBuffer(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	for index := 0; index < stack.ring.BufferCount(); index++ {
		list, err := stack.recorder.Record(stack.ring, index, stack.vertexBuffer, stack.colors)
		require.NoError(t, err)

		for _, op := range list.(*softList).ops {
			if op.name == "clear" || op.name == "set-target" {
				require.Equal(t, stack.ring.ViewHandle(index), op.view)
			}
		}
	}
}

func TestRecordFailureSubmitsNothing(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)
	stack.device.allocErr = errors.New("allocator reset refused")

	recorder, err := NewRecorder(stack.device, &softPSO{})
	require.NoError(t, err)

	_, err = recorder.Record(stack.ring, 0, stack.vertexBuffer, stack.colors)
	require.ErrorIs(t, err, core.ErrRecordingFailed)

	// Nothing reaches the queue on a recording failure.
	require.Empty(t, stack.device.gpu.history())
}

func TestRecordedListIsClosedBeforeSubmission(t *testing.T) {
	stack := newSoftStack(t, 0, 64, 64)

	list, err := stack.recorder.Record(stack.ring, 0, stack.vertexBuffer, stack.colors)
	require.NoError(t, err)
	require.True(t, list.(*softList).closed)

	// The queue refuses open lists; Record must never hand one back.
	require.NoError(t, stack.queue.Submit(list))
}
