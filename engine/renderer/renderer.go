package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
	"github.com/aquila-gfx/aquila/engine/renderer/pipeline"
	"github.com/aquila-gfx/aquila/engine/renderer/vulkan"
)

// DefaultPalette fills the first slots of the shading-stage color table.
// Slot 0 is the selector; these land in slots 1 onward.
var DefaultPalette = [][4]float32{
	{1.0, 0.0, 0.0, 1.0},
	{0.0, 1.0, 0.0, 1.0},
	{0.0, 0.0, 1.0, 1.0},
	{1.0, 1.0, 0.0, 1.0},
	{0.0, 1.0, 1.0, 1.0},
	{1.0, 0.0, 1.0, 1.0},
	{1.0, 1.0, 1.0, 1.0},
}

// Renderer assembles the frame pipeline over the Vulkan backend. There is
// exactly one per process and it is handed around explicitly; nothing in here
// lives in package state.
type Renderer struct {
	backend hal.Backend
	device  hal.Device
	queue   hal.Queue

	ring         *pipeline.FrameRing
	uploader     *pipeline.Uploader
	vertexBuffer hal.Buffer
	colors       *pipeline.ColorTable
	pso          hal.PipelineState
	recorder     *pipeline.Recorder
	synchronizer *pipeline.Synchronizer
	loop         *pipeline.Loop

	frames uint64
}

// New stands the whole stack up: adapter selection, device, queue, frame
// ring, uploads, pipeline state, recorder and synchronizer. The window must
// already exist and the artifact must already be loaded.
func New(appName string, window *glfw.Window, width, height uint32, debug bool, artifact *hal.ShaderArtifact) (*Renderer, error) {
	backend, err := vulkan.NewBackend(appName, window, debug)
	if err != nil {
		return nil, err
	}
	return newWithBackend(backend, hal.WindowHandle(uintptr(unsafe.Pointer(window))), width, height, artifact)
}

func newWithBackend(backend hal.Backend, window hal.WindowHandle, width, height uint32, artifact *hal.ShaderArtifact) (*Renderer, error) {
	adapter, err := pipeline.SelectHardwareAdapter(backend)
	if err != nil {
		backend.Shutdown()
		return nil, err
	}
	core.LogInfo("rendering on '%s'", adapter.Info().Name)

	device, err := pipeline.CreateDevice(backend, adapter)
	if err != nil {
		backend.Shutdown()
		return nil, err
	}

	queue, err := pipeline.CreateQueue(device)
	if err != nil {
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	ring, err := pipeline.NewFrameRing(device, queue, window, width, height, metadata.FrameBufferCount)
	if err != nil {
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	uploader := pipeline.NewUploader(device)
	vertexBuffer, err := uploader.UploadStatic(metadata.EncodeVertices(metadata.TriangleVertices(width, height)))
	if err != nil {
		ring.Destroy()
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	colors, err := uploader.NewColorTable(DefaultPalette)
	if err != nil {
		vertexBuffer.Destroy()
		ring.Destroy()
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	pso, err := device.CreatePipelineState(artifact)
	if err != nil {
		err := fmt.Errorf("%w: pipeline state '%s': %v", core.ErrResourceCreationFailed, artifact.Name, err)
		core.LogError(err.Error())
		colors.Destroy()
		vertexBuffer.Destroy()
		ring.Destroy()
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	recorder, err := pipeline.NewRecorder(device, pso)
	if err != nil {
		pso.Destroy()
		colors.Destroy()
		vertexBuffer.Destroy()
		ring.Destroy()
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	synchronizer, err := pipeline.NewSynchronizer(device, queue, ring)
	if err != nil {
		recorder.Destroy()
		pso.Destroy()
		colors.Destroy()
		vertexBuffer.Destroy()
		ring.Destroy()
		device.Destroy()
		backend.Shutdown()
		return nil, err
	}

	return &Renderer{
		backend:      backend,
		device:       device,
		queue:        queue,
		ring:         ring,
		uploader:     uploader,
		vertexBuffer: vertexBuffer,
		colors:       colors,
		pso:          pso,
		recorder:     recorder,
		synchronizer: synchronizer,
		loop:         pipeline.NewLoop(queue, ring, recorder, synchronizer, vertexBuffer, colors),
	}, nil
}

// DrawFrame runs one record-submit-present-wait cycle.
func (r *Renderer) DrawFrame() error {
	if err := r.loop.RenderFrame(); err != nil {
		return err
	}
	r.frames++
	return nil
}

// SetColorSlot points the shading stage at a different color table slot.
// Slot 0 keeps the interpolated vertex colors.
func (r *Renderer) SetColorSlot(slot int) error {
	return r.colors.SetSelector(slot)
}

func (r *Renderer) ColorSlot() int {
	return r.colors.Selector()
}

func (r *Renderer) FramesPresented() uint64 {
	return r.frames
}

// Shutdown drains the GPU and releases everything in reverse creation order.
func (r *Renderer) Shutdown() error {
	core.LogInfo("renderer shutting down after %d frames", r.frames)

	if err := r.loop.Drain(); err != nil {
		core.LogError("drain on shutdown failed: %s", err)
	}

	r.synchronizer.Destroy()
	r.recorder.Destroy()
	r.pso.Destroy()
	r.colors.Destroy()
	r.vertexBuffer.Destroy()
	r.ring.Destroy()
	r.device.Destroy()
	return r.backend.Shutdown()
}
