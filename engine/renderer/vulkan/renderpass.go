package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
)

// VulkanRenderPass is the single clear-and-draw pass the recorder runs each
// frame. Layout transitions to and from the present state are recorded as
// explicit barriers, so the pass begins and ends in the attachment layout.
type VulkanRenderPass struct {
	context *VulkanContext
	handle  vk.RenderPass
}

func newRenderPass(context *VulkanContext, format vk.Format) (*VulkanRenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}

	colorReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorReference},
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.LogicalDevice, &renderPassCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create render pass with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanRenderPass{context: context, handle: handle}, nil
}

func (vr *VulkanRenderPass) Destroy() {
	if vr.handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.context.LogicalDevice, vr.handle, vr.context.Allocator)
		vr.handle = vk.NullRenderPass
	}
}
