package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// VulkanQueue is the single submission channel. The swapchain reference is
// set when the swapchain is created; submissions wait on image acquisition
// and mark render completion for the presentation engine.
type VulkanQueue struct {
	device        *VulkanDevice
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	swapchain *VulkanSwapchain
}

func (vq *VulkanQueue) Submit(list hal.CommandList) error {
	vl, ok := list.(*VulkanCommandList)
	if !ok {
		return fmt.Errorf("command list does not belong to this queue")
	}
	if vl.state != commandListStateClosed {
		return fmt.Errorf("command list submitted while still open")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{vl.handle},
	}

	if vq.swapchain != nil && vq.swapchain.imageReady {
		// The draw writes the acquired image; it must not start before the
		// presentation engine releases it.
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{vq.swapchain.imageAvailable}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
		vq.swapchain.imageReady = false

		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{vq.swapchain.renderComplete}
		vq.swapchain.renderPending = true
	}

	if res := vk.QueueSubmit(vq.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		err := fmt.Errorf("queue submission failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vl.state = commandListStateSubmitted
	return nil
}

func (vq *VulkanQueue) Signal(fence hal.Fence, value uint64) error {
	vf, ok := fence.(*VulkanFence)
	if !ok {
		return fmt.Errorf("fence does not belong to this queue")
	}

	slot, err := vf.acquireSlot()
	if err != nil {
		return err
	}

	// An empty submission's fence fires once every prior submission on the
	// queue has retired; that is exactly the "set fence to value behind
	// enqueued work" semantic.
	if res := vk.QueueSubmit(vq.graphicsQueue, 0, nil, slot); res != vk.Success {
		vf.recycleSlot(slot)
		err := fmt.Errorf("fence signal submission failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vf.track(value, slot)
	return nil
}
