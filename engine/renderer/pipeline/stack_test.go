package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/renderer/hal"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

// softStack wires the whole pipeline over the software HAL the way the
// renderer frontend does over Vulkan.
type softStack struct {
	backend      *softBackend
	device       *softDevice
	queue        *softQueue
	ring         *FrameRing
	uploader     *Uploader
	vertexBuffer hal.Buffer
	colors       *ColorTable
	recorder     *Recorder
	synchronizer *Synchronizer
	loop         *Loop
}

func testPalette() [][4]float32 {
	return [][4]float32{
		{1, 0, 0, 1},
		{0, 1, 0, 1},
		{0, 0, 1, 1},
		{1, 1, 0, 1},
		{0, 1, 1, 1},
	}
}

func newSoftStack(t *testing.T, latency time.Duration, width, height uint32) *softStack {
	t.Helper()

	backend := &softBackend{
		adapters: []hal.Adapter{
			&softAdapter{name: "soft-hw", level: hal.FeatureLevelBaseline},
		},
		latency: latency,
	}

	adapter, err := SelectHardwareAdapter(backend)
	require.NoError(t, err)

	device, err := CreateDevice(backend, adapter)
	require.NoError(t, err)
	t.Cleanup(device.Destroy)

	queue, err := CreateQueue(device)
	require.NoError(t, err)

	ring, err := NewFrameRing(device, queue, 0, width, height, metadata.FrameBufferCount)
	require.NoError(t, err)

	uploader := NewUploader(device)
	vb, err := uploader.UploadStatic(metadata.EncodeVertices(metadata.TriangleVertices(width, height)))
	require.NoError(t, err)

	colors, err := uploader.NewColorTable(testPalette())
	require.NoError(t, err)

	pso, err := device.CreatePipelineState(&hal.ShaderArtifact{Name: "triangle"})
	require.NoError(t, err)

	recorder, err := NewRecorder(device, pso)
	require.NoError(t, err)

	synchronizer, err := NewSynchronizer(device, queue, ring)
	require.NoError(t, err)

	softDev := device.(*softDevice)
	softQ := queue.(*softQueue)

	return &softStack{
		backend:      backend,
		device:       softDev,
		queue:        softQ,
		ring:         ring,
		uploader:     uploader,
		vertexBuffer: vb,
		colors:       colors,
		recorder:     recorder,
		synchronizer: synchronizer,
		loop:         NewLoop(queue, ring, recorder, synchronizer, vb, colors),
	}
}
