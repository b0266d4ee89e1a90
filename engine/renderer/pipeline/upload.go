package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// ColorTableSlots is the fixed capacity of the shading-stage color table.
const ColorTableSlots = 4096

// bytes per slot: 4 floats
const colorSlotBytes = 16

// Uploader creates and populates CPU-writable, GPU-readable buffers. No
// staging buffer is involved; that is correct only because the payloads here
// are tiny and written once before any GPU read. Larger or per-frame data
// needs a default-heap copy through a staging buffer instead.
type Uploader struct {
	device hal.Device
}

func NewUploader(device hal.Device) *Uploader {
	return &Uploader{device: device}
}

// UploadStatic allocates a buffer of exactly len(data) bytes, maps it,
// copies data in and unmaps. Used for the vertex buffer, which is immutable
// after creation.
func (u *Uploader) UploadStatic(data []byte) (hal.Buffer, error) {
	buf, err := u.device.CreateUploadBuffer(uint64(len(data)))
	if err != nil {
		err := fmt.Errorf("%w: upload buffer (%d bytes): %v", core.ErrResourceCreationFailed, len(data), err)
		core.LogError(err.Error())
		return nil, err
	}

	mem, err := buf.Map()
	if err != nil {
		buf.Destroy()
		err := fmt.Errorf("%w: map: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	copy(mem, data)
	buf.Unmap()

	core.LogDebug("static upload complete [%s], %d bytes", buf.DebugID(), len(data))
	return buf, nil
}

// ColorTable is the 4096-slot color array sampled by the pixel stage. Slot 0
// holds the selector index (stored as a float, the layout the shader was
// compiled against); slots 1..4095 hold RGBA colors. The backing buffer
// stays mapped for the process lifetime so selector updates are a 4-byte
// write, not a map/unmap cycle.
type ColorTable struct {
	buffer hal.Buffer
	mapped []byte
}

// NewColorTable uploads the color table and leaves it mapped. colors are
// laid out starting at slot 1; missing slots stay zero.
func (u *Uploader) NewColorTable(colors [][4]float32) (*ColorTable, error) {
	if len(colors) > ColorTableSlots-1 {
		err := fmt.Errorf("%w: %d colors exceed table capacity %d", core.ErrResourceCreationFailed, len(colors), ColorTableSlots-1)
		core.LogError(err.Error())
		return nil, err
	}

	buf, err := u.device.CreateUploadBuffer(uint64(ColorTableSlots * colorSlotBytes))
	if err != nil {
		err := fmt.Errorf("%w: color table: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}

	mem, err := buf.Map()
	if err != nil {
		buf.Destroy()
		err := fmt.Errorf("%w: color table map: %v", core.ErrResourceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}

	table := &ColorTable{buffer: buf, mapped: mem}
	for i, c := range colors {
		table.writeSlot(i+1, c)
	}
	// Selector starts at slot 1, the first real color.
	if err := table.SetSelector(1); err != nil {
		buf.Unmap()
		buf.Destroy()
		return nil, err
	}

	core.LogDebug("color table uploaded [%s], %d slots populated", buf.DebugID(), len(colors))
	return table, nil
}

// SetSelector bakes the selected slot index into slot 0. Out-of-range
// selectors are rejected here so the shading stage can never read past the
// table.
func (t *ColorTable) SetSelector(slot int) error {
	if slot < 0 || slot >= ColorTableSlots {
		err := fmt.Errorf("%w: selector %d, table holds [0,%d)", core.ErrIndexOutOfRange, slot, ColorTableSlots)
		core.LogError(err.Error())
		return err
	}
	binary.LittleEndian.PutUint32(t.mapped[0:4], math.Float32bits(float32(slot)))
	return nil
}

// Selector reads back the index currently baked into slot 0.
func (t *ColorTable) Selector() int {
	return int(math.Float32frombits(binary.LittleEndian.Uint32(t.mapped[0:4])))
}

// SlotColor reads slot i back from the mapped table.
func (t *ColorTable) SlotColor(i int) [4]float32 {
	var c [4]float32
	off := i * colorSlotBytes
	for j := 0; j < 4; j++ {
		c[j] = math.Float32frombits(binary.LittleEndian.Uint32(t.mapped[off+j*4 : off+j*4+4]))
	}
	return c
}

func (t *ColorTable) writeSlot(i int, c [4]float32) {
	off := i * colorSlotBytes
	for j, f := range c {
		binary.LittleEndian.PutUint32(t.mapped[off+j*4:off+j*4+4], math.Float32bits(f))
	}
}

// Buffer exposes the GPU buffer for binding at record time.
func (t *ColorTable) Buffer() hal.Buffer {
	return t.buffer
}

func (t *ColorTable) Destroy() {
	t.buffer.Unmap()
	t.buffer.Destroy()
}
