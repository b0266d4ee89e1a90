// Package hal is the narrow hardware abstraction the frame pipeline is
// written against. The Vulkan backend implements it for real hardware; tests
// drive the pipeline through a scripted software implementation.
package hal

import (
	"github.com/aquila-gfx/aquila/engine/core"
)

// FeatureLevel is the minimum capability an adapter must expose before the
// pipeline will consider it.
type FeatureLevel uint32

const (
	// FeatureLevelBaseline: a graphics-capable queue, presentation support
	// and explicit host/device synchronization primitives.
	FeatureLevelBaseline FeatureLevel = 0xB000
)

// ResourceState is the declared usage mode of a render target. Transitions
// between states must be recorded explicitly; skipping one is undefined
// behavior on real hardware, not just a performance bug.
type ResourceState int

const (
	ResourceStatePresent ResourceState = iota
	ResourceStateRenderTarget
)

func (s ResourceState) String() string {
	switch s {
	case ResourceStatePresent:
		return "present"
	case ResourceStateRenderTarget:
		return "render-target"
	default:
		return "unknown"
	}
}

// DescriptorKind selects a descriptor table type on the device.
type DescriptorKind int

const (
	DescriptorKindRenderTarget DescriptorKind = iota
)

// DescriptorHandle is an opaque address into a descriptor table. Handles for
// consecutive slots are separated by the device's descriptor increment.
type DescriptorHandle uint64

// WindowHandle is the OS surface handle produced by the platform layer.
type WindowHandle uintptr

type AdapterInfo struct {
	Name string
	// Software adapters are skipped during selection; there is no software
	// fallback in this design.
	IsSoftware bool
}

// Adapter is a physical GPU as enumerated by the platform's graphics
// interface. Selected once at startup, immutable thereafter.
type Adapter interface {
	Info() AdapterInfo
	// SupportsFeatureLevel probes capability without creating a device.
	SupportsFeatureLevel(level FeatureLevel) bool
}

// Backend enumerates adapters and turns the chosen one into a device. It is
// the only entry point the renderer frontend needs from a graphics API.
type Backend interface {
	EnumerateAdapters() ([]Adapter, error)
	CreateDevice(adapter Adapter) (Device, error)
	Shutdown() error
}

// Device owns all GPU-side object creation for the process lifetime. It is
// never recreated; device loss is fatal.
type Device interface {
	DebugID() core.DebugID

	CreateQueue() (Queue, error)
	CreateFence(initialValue uint64) (Fence, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator) (CommandList, error)

	// CreateUploadBuffer allocates a CPU-writable, GPU-readable buffer of
	// exactly sizeBytes.
	CreateUploadBuffer(sizeBytes uint64) (Buffer, error)

	// CreateSwapchain ties the presentation surface to the queue whose work
	// it must wait on before presenting.
	CreateSwapchain(queue Queue, window WindowHandle, width, height uint32, bufferCount int) (Surface, error)

	// DescriptorIncrement is device-specific; callers query it once and
	// cache it.
	DescriptorIncrement(kind DescriptorKind) uint64
	CreateDescriptorTable(kind DescriptorKind, capacity uint32) (DescriptorTable, error)
	CreateRenderTargetView(target RenderTarget, at DescriptorHandle) error

	// CreatePipelineState consumes a compiled shader artifact. Compilation
	// itself happens outside this system.
	CreatePipelineState(artifact *ShaderArtifact) (PipelineState, error)

	Destroy()
}

// Queue is the single ordered channel through which work reaches the GPU.
// FIFO ordering within the queue is the only ordering guarantee the GPU
// provides.
type Queue interface {
	// Submit enqueues a closed command list. Submitting an open list is an
	// error.
	Submit(list CommandList) error
	// Signal enqueues a GPU-side "set fence to value" operation behind any
	// already-enqueued work.
	Signal(fence Fence, value uint64) error
}

// Fence is a monotonically increasing GPU-to-CPU progress counter.
type Fence interface {
	DebugID() core.DebugID
	// Completed is the value the GPU has signaled so far, polled from the CPU.
	Completed() uint64
	// WaitFor blocks the calling thread until Completed() >= value. There is
	// no timeout; a hang here is fatal to the process.
	WaitFor(value uint64) error
	Destroy()
}

// CommandAllocator backs the recording storage of a command list. It must
// never be reset while the GPU may still be executing work recorded from it;
// that discipline is enforced by the frame synchronizer, not by the API.
type CommandAllocator interface {
	Reset() error
	Destroy()
}

// CommandList records one frame's worth of GPU operations. Lifecycle:
// reset -> record -> close -> submit -> reset again next frame.
type CommandList interface {
	Reset(alloc CommandAllocator, initial PipelineState) error
	SetViewport(width, height uint32)
	SetScissor(width, height uint32)
	// BindConstantTable makes the shading-stage color table visible to the
	// pipeline state bound at Reset.
	BindConstantTable(table Buffer)
	// Transition records a resource-state barrier on a render target.
	Transition(target RenderTarget, from, to ResourceState)
	SetRenderTarget(view DescriptorHandle)
	ClearRenderTarget(view DescriptorHandle, color [4]float32)
	BindVertexBuffer(buf Buffer, strideBytes uint32)
	// DrawTriangleList issues a non-indexed draw.
	DrawTriangleList(vertexCount, instanceCount uint32)
	Close() error
	Destroy()
}

// Surface is the presentation side of the frame ring. The surface, not the
// application, decides which buffer is the current back buffer.
type Surface interface {
	BufferCount() int
	Buffer(i int) RenderTarget
	// CurrentBackBufferIndex is authoritative and must be re-queried after
	// every present+sync cycle; alternation is not guaranteed to be strict
	// round-robin.
	CurrentBackBufferIndex() int
	Present() error
	Destroy()
}

// DescriptorTable is a fixed-capacity table of resource views. Slot i is
// addressed at BaseHandle() + i * the device's descriptor increment.
type DescriptorTable interface {
	Capacity() uint32
	BaseHandle() DescriptorHandle
	Destroy()
}

// RenderTarget is one buffer of the presentation surface.
type RenderTarget interface {
	Width() uint32
	Height() uint32
}

// Buffer is a CPU-writable GPU buffer created through the upload path.
type Buffer interface {
	DebugID() core.DebugID
	SizeBytes() uint64
	// Map exposes the buffer memory for writing (and readback in tests).
	// The mapping stays valid until Unmap.
	Map() ([]byte, error)
	Unmap()
	Destroy()
}

// PipelineState is the opaque compiled-program handle consumed at
// command-list reset time.
type PipelineState interface {
	DebugID() core.DebugID
	Destroy()
}

// ShaderArtifact is the output of the external shader-compilation step: one
// vertex-stage and one pixel-stage program plus the vertex input layout they
// were compiled against.
type ShaderArtifact struct {
	Name        string
	VertexCode  []byte
	PixelCode   []byte
	InputLayout []VertexAttribute
}

// VertexAttribute describes one element of the vertex input layout.
type VertexAttribute struct {
	Semantic   string
	Floats     uint32
	ByteOffset uint32
}
