package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// Synchronizer is the fence-counter state machine that keeps the CPU from
// reusing anything the GPU is still reading. One fence value is in flight at
// a time: the CPU stalls until the GPU fully drains before the next frame is
// recorded. That trades all CPU/GPU overlap for a correctness argument
// simple enough to state in one sentence: allocators, command lists and back
// buffers are only touched between a successful WaitForPrevious return and
// the next submission. Per-buffer fence values would pipeline recording
// ahead of execution; this design deliberately does not.
type Synchronizer struct {
	queue    hal.Queue
	fence    hal.Fence
	ring     *FrameRing
	expected uint64
}

func NewSynchronizer(device hal.Device, queue hal.Queue, ring *FrameRing) (*Synchronizer, error) {
	fence, err := device.CreateFence(0)
	if err != nil {
		err := fmt.Errorf("%w: fence: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	return &Synchronizer{
		queue: queue,
		fence: fence,
		ring:  ring,
	}, nil
}

// WaitForPrevious bumps the fence target, enqueues the signal behind all
// previously submitted work, and blocks until the GPU reaches it. It returns
// the fresh back-buffer index; this is the only point in the frame where the
// active index is allowed to change.
func (s *Synchronizer) WaitForPrevious() (int, error) {
	s.expected++

	// The signal lands in queue order, so it fires only after every prior
	// submission has retired.
	if err := s.queue.Signal(s.fence, s.expected); err != nil {
		err := fmt.Errorf("%w: signal %d: %v", core.ErrSyncFailed, s.expected, err)
		core.LogError(err.Error())
		return 0, err
	}

	if s.fence.Completed() < s.expected {
		// Block with no timeout. A hang here is fatal to the process; there
		// is no watchdog.
		if err := s.fence.WaitFor(s.expected); err != nil {
			err := fmt.Errorf("%w: wait for %d: %v", core.ErrSyncFailed, s.expected, err)
			core.LogError(err.Error())
			return 0, err
		}
	}

	return s.ring.CurrentBackBufferIndex(), nil
}

// Expected is the CPU-side fence target.
func (s *Synchronizer) Expected() uint64 {
	return s.expected
}

// Completed polls the GPU-side progress value.
func (s *Synchronizer) Completed() uint64 {
	return s.fence.Completed()
}

func (s *Synchronizer) Destroy() {
	s.fence.Destroy()
}
