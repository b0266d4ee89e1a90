package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

// Recorder builds the command sequence for one frame. The step order is
// fixed and must not be rearranged: the barriers bracket every use of the
// back buffer, and nothing reaches the queue until Close succeeds, so a
// failure at any step leaves the GPU untouched.
type Recorder struct {
	alloc hal.CommandAllocator
	list  hal.CommandList
	pso   hal.PipelineState
}

func NewRecorder(device hal.Device, pso hal.PipelineState) (*Recorder, error) {
	alloc, err := device.CreateCommandAllocator()
	if err != nil {
		err := fmt.Errorf("%w: command allocator: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	list, err := device.CreateCommandList(alloc)
	if err != nil {
		alloc.Destroy()
		err := fmt.Errorf("%w: command list: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	return &Recorder{alloc: alloc, list: list, pso: pso}, nil
}

// Record re-records the per-frame command list against the given back
// buffer. The caller must have observed the synchronizer's completion for
// the previous frame before calling; resetting the allocator while the GPU
// is still consuming it is undefined.
func (rec *Recorder) Record(ring *FrameRing, backIndex int, vertexBuffer hal.Buffer, colors *ColorTable) (hal.CommandList, error) {
	// Command allocator first, then the list against it with the starting
	// pipeline state.
	if err := rec.alloc.Reset(); err != nil {
		return nil, rec.fail("allocator reset", err)
	}
	if err := rec.list.Reset(rec.alloc, rec.pso); err != nil {
		return nil, rec.fail("list reset", err)
	}

	rec.list.BindConstantTable(colors.Buffer())
	rec.list.SetViewport(ring.Width(), ring.Height())
	rec.list.SetScissor(ring.Width(), ring.Height())

	target := ring.Target(backIndex)
	view := ring.ViewHandle(backIndex)

	rec.list.Transition(target, hal.ResourceStatePresent, hal.ResourceStateRenderTarget)
	rec.list.SetRenderTarget(view)
	rec.list.ClearRenderTarget(view, metadata.ClearColor)

	rec.list.BindVertexBuffer(vertexBuffer, metadata.VertexStrideBytes)
	rec.list.DrawTriangleList(metadata.TriangleVertexCount, metadata.TriangleInstanceCnt)

	rec.list.Transition(target, hal.ResourceStateRenderTarget, hal.ResourceStatePresent)

	// An open list cannot be submitted.
	if err := rec.list.Close(); err != nil {
		return nil, rec.fail("close", err)
	}
	return rec.list, nil
}

func (rec *Recorder) fail(step string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %v", core.ErrRecordingFailed, step, err)
	core.LogError(wrapped.Error())
	return wrapped
}

func (rec *Recorder) Destroy() {
	rec.list.Destroy()
	rec.alloc.Destroy()
}
