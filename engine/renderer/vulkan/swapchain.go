package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// VulkanSwapchain is the presentation surface. The index of the current back
// buffer belongs to the presentation engine; it is acquired lazily, cached
// until the next present, and never guessed.
type VulkanSwapchain struct {
	context *VulkanContext
	queue   *VulkanQueue
	handle  vk.Swapchain
	format  vk.SurfaceFormat
	images  []*VulkanImage

	imageAvailable vk.Semaphore
	renderComplete vk.Semaphore

	currentIndex uint32
	acquired     bool
	// imageReady flags a pending imageAvailable wait for the next submit;
	// renderPending flags a renderComplete wait for the next present.
	imageReady    bool
	renderPending bool
}

func newSwapchain(context *VulkanContext, queue *VulkanQueue, width, height uint32, bufferCount int) (*VulkanSwapchain, error) {
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(context.PhysicalDevice, context.Surface, &capabilities); res != vk.Success {
		err := fmt.Errorf("failed to get surface capabilities with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	capabilities.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(context.PhysicalDevice, context.Surface, &formatCount, nil); res != vk.Success || formatCount == 0 {
		err := fmt.Errorf("failed to get surface formats with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if res := vk.GetPhysicalDeviceSurfaceFormats(context.PhysicalDevice, context.Surface, &formatCount, formats); res != vk.Success {
		err := fmt.Errorf("failed to get surface formats with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	// Preferred format; fall back to whatever the surface offers first.
	surfaceFormat := formats[0]
	surfaceFormat.Deref()
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm && formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			surfaceFormat = formats[i]
			break
		}
	}

	swapchainExtent := vk.Extent2D{
		Width:  clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}

	imageCount := uint32(bufferCount)
	if imageCount < capabilities.MinImageCount {
		imageCount = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		// FIFO is the flip-with-vsync mode and is always available.
		PresentMode:  vk.PresentModeFifo,
		Clipped:      vk.True,
		OldSwapchain: vk.NullSwapchain,
	}

	if context.GraphicsQueueIndex != context.PresentQueueIndex {
		queueFamilyIndices := []uint32{
			uint32(context.GraphicsQueueIndex),
			uint32(context.PresentQueueIndex),
		}
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = queueFamilyIndices
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var actualCount uint32
	if res := vk.GetSwapchainImages(context.LogicalDevice, handle, &actualCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	rawImages := make([]vk.Image, actualCount)
	if res := vk.GetSwapchainImages(context.LogicalDevice, handle, &actualCount, rawImages); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	images := make([]*VulkanImage, actualCount)
	for i := range rawImages {
		images[i] = &VulkanImage{
			handle: rawImages[i],
			format: surfaceFormat.Format,
			width:  swapchainExtent.Width,
			height: swapchainExtent.Height,
		}
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var imageAvailable, renderComplete vk.Semaphore
	if res := vk.CreateSemaphore(context.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &imageAvailable); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.CreateSemaphore(context.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &renderComplete); res != vk.Success {
		vk.DestroySemaphore(context.LogicalDevice, imageAvailable, context.Allocator)
		err := fmt.Errorf("failed to create semaphore with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	core.LogInfo("Swapchain created with %d images at %dx%d.", actualCount, swapchainExtent.Width, swapchainExtent.Height)
	return &VulkanSwapchain{
		context:        context,
		queue:          queue,
		handle:         handle,
		format:         surfaceFormat,
		images:         images,
		imageAvailable: imageAvailable,
		renderComplete: renderComplete,
	}, nil
}

func (vs *VulkanSwapchain) BufferCount() int {
	return len(vs.images)
}

func (vs *VulkanSwapchain) Buffer(i int) hal.RenderTarget {
	return vs.images[i]
}

func (vs *VulkanSwapchain) CurrentBackBufferIndex() int {
	if !vs.acquired {
		var index uint32
		res := vk.AcquireNextImage(vs.context.LogicalDevice, vs.handle, math.MaxUint64,
			vs.imageAvailable, vk.NullFence, &index)
		if res != vk.Success && res != vk.Suboptimal {
			core.LogFatal("failed to acquire swapchain image with %s", VulkanResultString(res))
			return 0
		}
		vs.currentIndex = index
		vs.acquired = true
		vs.imageReady = true
	}
	return int(vs.currentIndex)
}

func (vs *VulkanSwapchain) Present() error {
	// Make sure an image was actually acquired this frame.
	index := uint32(vs.CurrentBackBufferIndex())

	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{vs.handle},
		PImageIndices:  []uint32{index},
		PResults:       nil,
	}
	if vs.renderPending {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{vs.renderComplete}
	}

	res := vk.QueuePresent(vs.queue.presentQueue, &presentInfo)
	vs.acquired = false
	vs.renderPending = false
	if res != vk.Success && res != vk.Suboptimal {
		err := fmt.Errorf("failed to present swapchain image with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vs *VulkanSwapchain) Destroy() {
	if vs.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(vs.context.LogicalDevice, vs.imageAvailable, vs.context.Allocator)
		vs.imageAvailable = vk.NullSemaphore
	}
	if vs.renderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(vs.context.LogicalDevice, vs.renderComplete, vs.context.Allocator)
		vs.renderComplete = vk.NullSemaphore
	}
	if vs.handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.context.LogicalDevice, vs.handle, vs.context.Allocator)
		vs.handle = vk.NullSwapchain
	}
	// Swapchain images are owned by the driver; only the wrappers go away.
	vs.images = nil
}
