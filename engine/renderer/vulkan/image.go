package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanImage is one presentable image owned by the swapchain. The
// initialized flag tracks whether the image has left the undefined layout;
// the first barrier on a fresh image must start from undefined rather than
// from the present layout.
type VulkanImage struct {
	handle      vk.Image
	format      vk.Format
	width       uint32
	height      uint32
	initialized bool
}

func (vi *VulkanImage) Width() uint32 {
	return vi.width
}

func (vi *VulkanImage) Height() uint32 {
	return vi.height
}
