package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

type commandListState int

const (
	commandListStateReady commandListState = iota
	commandListStateRecording
	commandListStateClosed
	commandListStateSubmitted
)

// VulkanCommandAllocator owns one command pool. Resetting the allocator
// resets the pool, which recycles the storage of every list recorded from it;
// the frame synchronizer guarantees the GPU is done with that storage first.
type VulkanCommandAllocator struct {
	context *VulkanContext
	pool    vk.CommandPool
}

func (va *VulkanCommandAllocator) Reset() error {
	if res := vk.ResetCommandPool(va.context.LogicalDevice, va.pool, 0); res != vk.Success {
		err := fmt.Errorf("failed to reset command pool with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (va *VulkanCommandAllocator) Destroy() {
	if va.pool != vk.NullCommandPool {
		vk.DestroyCommandPool(va.context.LogicalDevice, va.pool, va.context.Allocator)
		va.pool = vk.NullCommandPool
	}
}

// VulkanCommandList records one frame. Clear begins the render pass against
// the bound view's framebuffer; the transition back to the present state ends
// it before the layout barrier is recorded.
type VulkanCommandList struct {
	device *VulkanDevice
	alloc  *VulkanCommandAllocator
	handle vk.CommandBuffer
	state  commandListState

	pso          *VulkanPipelineState
	inRenderPass bool
}

func newCommandList(device *VulkanDevice, alloc *VulkanCommandAllocator) (*VulkanCommandList, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        alloc.pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.context.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		err := fmt.Errorf("failed to allocate command buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanCommandList{
		device: device,
		alloc:  alloc,
		handle: handles[0],
		state:  commandListStateReady,
	}, nil
}

func (vl *VulkanCommandList) Reset(alloc hal.CommandAllocator, initial hal.PipelineState) error {
	pso, ok := initial.(*VulkanPipelineState)
	if !ok {
		return fmt.Errorf("pipeline state does not belong to this device")
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(vl.handle, &beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vl.pso = pso
	vl.inRenderPass = false
	vl.state = commandListStateRecording
	return nil
}

func (vl *VulkanCommandList) SetViewport(width, height uint32) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(vl.handle, 0, 1, []vk.Viewport{viewport})
}

func (vl *VulkanCommandList) SetScissor(width, height uint32) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetScissor(vl.handle, 0, 1, []vk.Rect2D{scissor})
}

func (vl *VulkanCommandList) BindConstantTable(table hal.Buffer) {
	buffer, ok := table.(*VulkanBuffer)
	if !ok {
		core.LogError("constant table buffer does not belong to this device")
		return
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer.handle,
		Offset: 0,
		Range:  vk.DeviceSize(buffer.size),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          vl.pso.descriptorSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(vl.device.context.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	vk.CmdBindDescriptorSets(vl.handle, vk.PipelineBindPointGraphics, vl.pso.layout,
		0, 1, []vk.DescriptorSet{vl.pso.descriptorSet}, 0, nil)
}

func (vl *VulkanCommandList) Transition(target hal.RenderTarget, from, to hal.ResourceState) {
	image, ok := target.(*VulkanImage)
	if !ok {
		core.LogError("render target does not belong to this device")
		return
	}

	if vl.inRenderPass {
		vk.CmdEndRenderPass(vl.handle)
		vl.inRenderPass = false
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case from == hal.ResourceStatePresent && to == hal.ResourceStateRenderTarget:
		// Fresh swapchain images have never been presented and still sit in
		// the undefined layout.
		barrier.OldLayout = vk.ImageLayoutPresentSrc
		if !image.initialized {
			barrier.OldLayout = vk.ImageLayoutUndefined
			image.initialized = true
		}
		barrier.NewLayout = vk.ImageLayoutColorAttachmentOptimal
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case from == hal.ResourceStateRenderTarget && to == hal.ResourceStatePresent:
		barrier.OldLayout = vk.ImageLayoutColorAttachmentOptimal
		barrier.NewLayout = vk.ImageLayoutPresentSrc
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		barrier.DstAccessMask = 0
		srcStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	default:
		core.LogError("unsupported transition %s -> %s", from, to)
		return
	}

	vk.CmdPipelineBarrier(vl.handle, srcStage, dstStage, 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (vl *VulkanCommandList) SetRenderTarget(view hal.DescriptorHandle) {
	// The attachment is fixed at render pass begin; Clear carries the view
	// handle again and opens the pass against its framebuffer.
}

func (vl *VulkanCommandList) ClearRenderTarget(view hal.DescriptorHandle, color [4]float32) {
	target, ok := vl.device.views[view]
	if !ok {
		core.LogError("no render target view registered at handle %#x", uint64(view))
		return
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vl.device.renderpass.handle,
		Framebuffer: target.framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: target.image.width, Height: target.image.height},
		},
	}
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(color[:])
	beginInfo.ClearValueCount = 1
	beginInfo.PClearValues = clearValues

	vk.CmdBeginRenderPass(vl.handle, &beginInfo, vk.SubpassContentsInline)
	vl.inRenderPass = true

	vk.CmdBindPipeline(vl.handle, vk.PipelineBindPointGraphics, vl.pso.handle)
}

func (vl *VulkanCommandList) BindVertexBuffer(buf hal.Buffer, strideBytes uint32) {
	buffer, ok := buf.(*VulkanBuffer)
	if !ok {
		core.LogError("vertex buffer does not belong to this device")
		return
	}
	vk.CmdBindVertexBuffers(vl.handle, 0, 1, []vk.Buffer{buffer.handle}, []vk.DeviceSize{0})
}

func (vl *VulkanCommandList) DrawTriangleList(vertexCount, instanceCount uint32) {
	vk.CmdDraw(vl.handle, vertexCount, instanceCount, 0, 0)
}

func (vl *VulkanCommandList) Close() error {
	if vl.inRenderPass {
		vk.CmdEndRenderPass(vl.handle)
		vl.inRenderPass = false
	}
	if res := vk.EndCommandBuffer(vl.handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vl.state = commandListStateClosed
	return nil
}

func (vl *VulkanCommandList) Destroy() {
	if vl.handle != nil {
		vk.FreeCommandBuffers(vl.device.context.LogicalDevice, vl.alloc.pool, 1, []vk.CommandBuffer{vl.handle})
		vl.handle = nil
	}
}
