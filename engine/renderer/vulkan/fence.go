package vulkan

import (
	"fmt"
	"math"
	"sort"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
)

// VulkanFence presents a monotonically increasing counter on top of binary
// driver fences. Every queue signal borrows one binary fence from the pool
// and ties it to the counter value it represents; polling retires them in
// value order.
type VulkanFence struct {
	context *VulkanContext
	id      core.DebugID

	mu        sync.Mutex
	completed uint64
	pending   map[uint64]vk.Fence
	pool      []vk.Fence
}

func newFence(context *VulkanContext, initialValue uint64) (*VulkanFence, error) {
	return &VulkanFence{
		context:   context,
		id:        core.NewDebugID("fence"),
		completed: initialValue,
		pending:   make(map[uint64]vk.Fence),
	}, nil
}

func (vf *VulkanFence) DebugID() core.DebugID {
	return vf.id
}

func (vf *VulkanFence) Completed() uint64 {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	for _, value := range vf.pendingValues() {
		res := vk.GetFenceStatus(vf.context.LogicalDevice, vf.pending[value])
		if res != vk.Success {
			break
		}
		vf.retire(value)
	}
	return vf.completed
}

func (vf *VulkanFence) WaitFor(value uint64) error {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	if vf.completed >= value {
		return nil
	}

	var waitValues []uint64
	var waitFences []vk.Fence
	for _, pendingValue := range vf.pendingValues() {
		if pendingValue > value {
			break
		}
		waitValues = append(waitValues, pendingValue)
		waitFences = append(waitFences, vf.pending[pendingValue])
	}
	if len(waitFences) == 0 {
		err := fmt.Errorf("fence value %d was never scheduled for signal", value)
		core.LogError(err.Error())
		return err
	}

	// No timeout. A device that never signals is a fatal condition the
	// caller cannot recover from.
	if res := vk.WaitForFences(vf.context.LogicalDevice, uint32(len(waitFences)), waitFences, vk.True, math.MaxUint64); res != vk.Success {
		err := fmt.Errorf("fence wait failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	for _, waited := range waitValues {
		vf.retire(waited)
	}
	return nil
}

func (vf *VulkanFence) Destroy() {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	for value, fence := range vf.pending {
		vk.DestroyFence(vf.context.LogicalDevice, fence, vf.context.Allocator)
		delete(vf.pending, value)
	}
	for _, fence := range vf.pool {
		vk.DestroyFence(vf.context.LogicalDevice, fence, vf.context.Allocator)
	}
	vf.pool = nil
}

// acquireSlot hands out an unsignaled binary fence for the next queue signal.
func (vf *VulkanFence) acquireSlot() (vk.Fence, error) {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	if n := len(vf.pool); n > 0 {
		slot := vf.pool[n-1]
		vf.pool = vf.pool[:n-1]
		if res := vk.ResetFences(vf.context.LogicalDevice, 1, []vk.Fence{slot}); res != vk.Success {
			err := fmt.Errorf("failed to reset fence with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return vk.NullFence, err
		}
		return slot, nil
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var slot vk.Fence
	if res := vk.CreateFence(vf.context.LogicalDevice, &fenceCreateInfo, vf.context.Allocator, &slot); res != vk.Success {
		err := fmt.Errorf("failed to create fence with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullFence, err
	}
	return slot, nil
}

func (vf *VulkanFence) recycleSlot(slot vk.Fence) {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	vf.pool = append(vf.pool, slot)
}

func (vf *VulkanFence) track(value uint64, slot vk.Fence) {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	vf.pending[value] = slot
}

// pendingValues returns the outstanding counter values in ascending order.
// Callers hold vf.mu.
func (vf *VulkanFence) pendingValues() []uint64 {
	values := make([]uint64, 0, len(vf.pending))
	for value := range vf.pending {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}

// retire moves a signaled value out of the pending set. Callers hold vf.mu.
func (vf *VulkanFence) retire(value uint64) {
	slot, ok := vf.pending[value]
	if !ok {
		return
	}
	delete(vf.pending, value)
	vf.pool = append(vf.pool, slot)
	if value > vf.completed {
		vf.completed = value
	}
}
