package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// FrameRing is the double-buffered presentation surface plus one
// render-target view per buffer. Views live in a small fixed-capacity
// descriptor table; view i sits at base + i*increment, where the increment
// is device-specific, queried once and cached here.
type FrameRing struct {
	surface   hal.Surface
	table     hal.DescriptorTable
	increment uint64
	targets   []hal.RenderTarget
	width     uint32
	height    uint32
}

func NewFrameRing(device hal.Device, queue hal.Queue, window hal.WindowHandle, width, height uint32, bufferCount int) (*FrameRing, error) {
	surface, err := device.CreateSwapchain(queue, window, width, height, bufferCount)
	if err != nil {
		err := fmt.Errorf("%w: swapchain: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}

	// The surface may round the buffer count up to the driver minimum; its
	// answer, not the request, sizes the ring.
	bufferCount = surface.BufferCount()

	table, err := device.CreateDescriptorTable(hal.DescriptorKindRenderTarget, uint32(bufferCount))
	if err != nil {
		surface.Destroy()
		err := fmt.Errorf("%w: render-target descriptor table: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}

	ring := &FrameRing{
		surface:   surface,
		table:     table,
		increment: device.DescriptorIncrement(hal.DescriptorKindRenderTarget),
		targets:   make([]hal.RenderTarget, bufferCount),
		width:     width,
		height:    height,
	}

	for i := 0; i < bufferCount; i++ {
		ring.targets[i] = surface.Buffer(i)
		if err := device.CreateRenderTargetView(ring.targets[i], ring.ViewHandle(i)); err != nil {
			err := fmt.Errorf("%w: render-target view %d: %v", core.ErrResourceCreationFailed, i, err)
			core.LogError(err.Error())
			return nil, err
		}
	}

	core.LogInfo("frame ring created: %d buffers, %dx%d, descriptor increment %d",
		bufferCount, width, height, ring.increment)
	return ring, nil
}

// ViewHandle computes the descriptor-table address of buffer i's view.
func (r *FrameRing) ViewHandle(i int) hal.DescriptorHandle {
	return r.table.BaseHandle() + hal.DescriptorHandle(uint64(i)*r.increment)
}

// CurrentBackBufferIndex is re-queried from the surface every time; the
// surface owns back-buffer selection and alternation is not guaranteed to be
// strict round-robin.
func (r *FrameRing) CurrentBackBufferIndex() int {
	index := r.surface.CurrentBackBufferIndex()
	if index < 0 || index >= len(r.targets) {
		core.LogFatal("presentation surface reported back-buffer index %d outside [0,%d)", index, len(r.targets))
	}
	return index
}

func (r *FrameRing) Target(i int) hal.RenderTarget {
	return r.targets[i]
}

func (r *FrameRing) BufferCount() int {
	return len(r.targets)
}

func (r *FrameRing) Width() uint32 {
	return r.width
}

func (r *FrameRing) Height() uint32 {
	return r.height
}

func (r *FrameRing) Present() error {
	if err := r.surface.Present(); err != nil {
		err := fmt.Errorf("%w: %v", core.ErrPresentFailed, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (r *FrameRing) Destroy() {
	r.table.Destroy()
	r.surface.Destroy()
}
