package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// CreateDevice turns the selected adapter into the logical device that owns
// all GPU-side object creation for the process lifetime.
func CreateDevice(backend hal.Backend, adapter hal.Adapter) (hal.Device, error) {
	device, err := backend.CreateDevice(adapter)
	if err != nil {
		err := fmt.Errorf("%w: adapter '%s': %v", core.ErrDeviceCreationFailed, adapter.Info().Name, err)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("logical device created [%s]", device.DebugID())
	return device, nil
}

// CreateQueue creates the single direct submission queue. Direct queues
// accept graphics, copy and compute work in one ordered stream; the queue is
// never recreated.
func CreateQueue(device hal.Device) (hal.Queue, error) {
	queue, err := device.CreateQueue()
	if err != nil {
		err := fmt.Errorf("%w: queue: %v", core.ErrDeviceCreationFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("direct command queue created")
	return queue, nil
}
