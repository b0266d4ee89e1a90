package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// Descriptor handles advance by this many bytes per render target view. The
// value is queried through hal.Device.DescriptorIncrement, never assumed.
const rtvDescriptorStride = 32

type renderTargetView struct {
	image       *VulkanImage
	view        vk.ImageView
	framebuffer vk.Framebuffer
}

// VulkanDevice owns the logical device and everything created from it.
type VulkanDevice struct {
	context *VulkanContext
	id      core.DebugID

	swapchain  *VulkanSwapchain
	renderpass *VulkanRenderPass

	views         map[hal.DescriptorHandle]*renderTargetView
	nextTableBase hal.DescriptorHandle
}

func newDevice(context *VulkanContext, adapter *VulkanAdapter) (*VulkanDevice, error) {
	graphicsIndex, presentIndex := adapter.queueFamilyIndices()
	if graphicsIndex < 0 || presentIndex < 0 {
		return nil, fmt.Errorf("adapter '%s' lacks required queue families", adapter.Info().Name)
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := graphicsIndex == presentIndex
	indices := []uint32{uint32(graphicsIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(presentIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i].SType = vk.StructureTypeDeviceQueueCreateInfo
		queueCreateInfos[i].QueueFamilyIndex = indices[i]
		queueCreateInfos[i].QueueCount = 1
		queueCreateInfos[i].PQueuePriorities = []float32{1.0}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if adapter.supportsExtension("VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(adapter.physicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Logical device created.")

	context.PhysicalDevice = adapter.physicalDevice
	context.LogicalDevice = logicalDevice
	context.GraphicsQueueIndex = graphicsIndex
	context.PresentQueueIndex = presentIndex

	return &VulkanDevice{
		context: context,
		id:      core.NewDebugID("device"),
		views:   make(map[hal.DescriptorHandle]*renderTargetView),
	}, nil
}

func (vd *VulkanDevice) DebugID() core.DebugID {
	return vd.id
}

func (vd *VulkanDevice) CreateQueue() (hal.Queue, error) {
	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(vd.context.LogicalDevice, uint32(vd.context.GraphicsQueueIndex), 0, &graphicsQueue)

	var presentQueue vk.Queue
	vk.GetDeviceQueue(vd.context.LogicalDevice, uint32(vd.context.PresentQueueIndex), 0, &presentQueue)

	core.LogInfo("Queues obtained.")
	return &VulkanQueue{
		device:        vd,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
	}, nil
}

func (vd *VulkanDevice) CreateFence(initialValue uint64) (hal.Fence, error) {
	return newFence(vd.context, initialValue)
}

func (vd *VulkanDevice) CreateCommandAllocator() (hal.CommandAllocator, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(vd.context.GraphicsQueueIndex),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vd.context.LogicalDevice, &poolCreateInfo, vd.context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanCommandAllocator{context: vd.context, pool: pool}, nil
}

func (vd *VulkanDevice) CreateCommandList(alloc hal.CommandAllocator) (hal.CommandList, error) {
	va, ok := alloc.(*VulkanCommandAllocator)
	if !ok {
		return nil, fmt.Errorf("allocator does not belong to this device")
	}
	return newCommandList(vd, va)
}

func (vd *VulkanDevice) CreateUploadBuffer(sizeBytes uint64) (hal.Buffer, error) {
	return newUploadBuffer(vd.context, sizeBytes)
}

func (vd *VulkanDevice) CreateSwapchain(queue hal.Queue, window hal.WindowHandle, width, height uint32, bufferCount int) (hal.Surface, error) {
	vq, ok := queue.(*VulkanQueue)
	if !ok {
		return nil, fmt.Errorf("queue does not belong to this device")
	}

	swapchain, err := newSwapchain(vd.context, vq, width, height, bufferCount)
	if err != nil {
		return nil, err
	}
	vd.swapchain = swapchain

	renderpass, err := newRenderPass(vd.context, swapchain.format.Format)
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}
	vd.renderpass = renderpass

	// The queue must wait on image acquisition and flag render completion
	// for the presentation engine.
	vq.swapchain = swapchain
	return swapchain, nil
}

func (vd *VulkanDevice) DescriptorIncrement(kind hal.DescriptorKind) uint64 {
	return rtvDescriptorStride
}

func (vd *VulkanDevice) CreateDescriptorTable(kind hal.DescriptorKind, capacity uint32) (hal.DescriptorTable, error) {
	if kind != hal.DescriptorKindRenderTarget {
		return nil, fmt.Errorf("unsupported descriptor kind %d", kind)
	}
	table := &VulkanDescriptorTable{
		device:   vd,
		base:     0x10000 + vd.nextTableBase,
		capacity: capacity,
	}
	vd.nextTableBase += hal.DescriptorHandle(uint64(capacity) * rtvDescriptorStride)
	return table, nil
}

func (vd *VulkanDevice) CreateRenderTargetView(target hal.RenderTarget, at hal.DescriptorHandle) error {
	image, ok := target.(*VulkanImage)
	if !ok {
		return fmt.Errorf("render target does not belong to this device")
	}
	if vd.renderpass == nil {
		return fmt.Errorf("no render pass; create the swapchain first")
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.handle,
		ViewType: vk.ImageViewType2d,
		Format:   image.format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(vd.context.LogicalDevice, &viewInfo, vd.context.Allocator, &view); res != vk.Success {
		err := fmt.Errorf("failed to create image view with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      vd.renderpass.handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           image.width,
		Height:          image.height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(vd.context.LogicalDevice, &framebufferCreateInfo, vd.context.Allocator, &framebuffer); res != vk.Success {
		vk.DestroyImageView(vd.context.LogicalDevice, view, vd.context.Allocator)
		err := fmt.Errorf("failed to create framebuffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	vd.views[at] = &renderTargetView{image: image, view: view, framebuffer: framebuffer}
	return nil
}

func (vd *VulkanDevice) CreatePipelineState(artifact *hal.ShaderArtifact) (hal.PipelineState, error) {
	if vd.renderpass == nil {
		return nil, fmt.Errorf("no render pass; create the swapchain first")
	}
	return newPipelineState(vd.context, vd.renderpass, artifact)
}

func (vd *VulkanDevice) Destroy() {
	vk.DeviceWaitIdle(vd.context.LogicalDevice)

	for at, view := range vd.views {
		vk.DestroyFramebuffer(vd.context.LogicalDevice, view.framebuffer, vd.context.Allocator)
		vk.DestroyImageView(vd.context.LogicalDevice, view.view, vd.context.Allocator)
		delete(vd.views, at)
	}
	if vd.renderpass != nil {
		vd.renderpass.Destroy()
		vd.renderpass = nil
	}

	core.LogInfo("Destroying logical device...")
	if vd.context.LogicalDevice != nil {
		vk.DestroyDevice(vd.context.LogicalDevice, vd.context.Allocator)
		vd.context.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	vd.context.PhysicalDevice = nil
}

// VulkanDescriptorTable hands out stable handles; the device resolves them
// back to image views and framebuffers at record time.
type VulkanDescriptorTable struct {
	device   *VulkanDevice
	base     hal.DescriptorHandle
	capacity uint32
}

func (vt *VulkanDescriptorTable) Capacity() uint32 {
	return vt.capacity
}

func (vt *VulkanDescriptorTable) BaseHandle() hal.DescriptorHandle {
	return vt.base
}

func (vt *VulkanDescriptorTable) Destroy() {
	for at := vt.base; at < vt.base+hal.DescriptorHandle(uint64(vt.capacity)*rtvDescriptorStride); at += rtvDescriptorStride {
		if view, ok := vt.device.views[at]; ok {
			vk.DestroyFramebuffer(vt.device.context.LogicalDevice, view.framebuffer, vt.device.context.Allocator)
			vk.DestroyImageView(vt.device.context.LogicalDevice, view.view, vt.device.context.Allocator)
			delete(vt.device.views, at)
		}
	}
}
