package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// Loop orchestrates one frame per paint event: record, submit, present,
// synchronize. It owns the active back-buffer index, which only changes on
// the far side of a successful wait.
type Loop struct {
	queue        hal.Queue
	ring         *FrameRing
	recorder     *Recorder
	synchronizer *Synchronizer
	vertexBuffer hal.Buffer
	colors       *ColorTable
	backIndex    int
}

func NewLoop(queue hal.Queue, ring *FrameRing, recorder *Recorder, synchronizer *Synchronizer, vertexBuffer hal.Buffer, colors *ColorTable) *Loop {
	return &Loop{
		queue:        queue,
		ring:         ring,
		recorder:     recorder,
		synchronizer: synchronizer,
		vertexBuffer: vertexBuffer,
		colors:       colors,
		backIndex:    ring.CurrentBackBufferIndex(),
	}
}

// RenderFrame runs one full pipeline iteration. Any error aborts the frame;
// by construction nothing was submitted unless recording closed cleanly, and
// nothing is reused until the wait returned.
func (l *Loop) RenderFrame() error {
	list, err := l.recorder.Record(l.ring, l.backIndex, l.vertexBuffer, l.colors)
	if err != nil {
		return err
	}

	if err := l.queue.Submit(list); err != nil {
		err := fmt.Errorf("%w: %v", core.ErrSubmissionFailed, err)
		core.LogError(err.Error())
		return err
	}

	if err := l.ring.Present(); err != nil {
		return err
	}

	index, err := l.synchronizer.WaitForPrevious()
	if err != nil {
		return err
	}
	l.backIndex = index
	return nil
}

// Drain blocks until the GPU has retired everything submitted so far. Called
// once before any GPU resource is released at shutdown.
func (l *Loop) Drain() error {
	_, err := l.synchronizer.WaitForPrevious()
	return err
}

// BackBufferIndex is the index the next frame will record against.
func (l *Loop) BackBufferIndex() int {
	return l.backIndex
}
