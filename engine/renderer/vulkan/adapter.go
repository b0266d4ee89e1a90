package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// VulkanAdapter wraps a physical device. Capability probing never creates a
// logical device; it only reads properties and queue family tables.
type VulkanAdapter struct {
	context        *VulkanContext
	physicalDevice vk.PhysicalDevice
	properties     vk.PhysicalDeviceProperties
}

func newAdapter(context *VulkanContext, physicalDevice vk.PhysicalDevice) *VulkanAdapter {
	properties := vk.PhysicalDeviceProperties{}
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()

	return &VulkanAdapter{
		context:        context,
		physicalDevice: physicalDevice,
		properties:     properties,
	}
}

func (va *VulkanAdapter) Info() hal.AdapterInfo {
	// CPU and virtual devices are software rasterizers as far as selection
	// is concerned.
	software := va.properties.DeviceType == vk.PhysicalDeviceTypeCpu ||
		va.properties.DeviceType == vk.PhysicalDeviceTypeVirtualGpu
	return hal.AdapterInfo{
		Name:       vk.ToString(va.properties.DeviceName[:]),
		IsSoftware: software,
	}
}

func (va *VulkanAdapter) SupportsFeatureLevel(level hal.FeatureLevel) bool {
	switch level {
	case hal.FeatureLevelBaseline:
		graphics, present := va.queueFamilyIndices()
		if graphics < 0 || present < 0 {
			return false
		}
		return va.supportsExtension(vk.KhrSwapchainExtensionName)
	default:
		return false
	}
}

// queueFamilyIndices returns the graphics and present family indices, or -1
// where no family qualifies. A family serving both is preferred.
func (va *VulkanAdapter) queueFamilyIndices() (int32, int32) {
	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(va.physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(va.physicalDevice, &familyCount, families)

	graphics := int32(-1)
	present := int32(-1)
	for i := uint32(0); i < familyCount; i++ {
		families[i].Deref()

		isGraphics := vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(va.physicalDevice, i, va.context.Surface, &supported); res != vk.Success {
			core.LogWarn("surface support query failed for family %d: %s", i, VulkanResultString(res))
			continue
		}
		isPresent := supported == vk.Bool32(vk.True)

		if isGraphics && isPresent {
			return int32(i), int32(i)
		}
		if isGraphics && graphics < 0 {
			graphics = int32(i)
		}
		if isPresent && present < 0 {
			present = int32(i)
		}
	}
	return graphics, present
}

func (va *VulkanAdapter) supportsExtension(name string) bool {
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(va.physicalDevice, "", &availableExtensionCount, nil); res != vk.Success {
		return false
	}
	if availableExtensionCount == 0 {
		return false
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(va.physicalDevice, "", &availableExtensionCount, availableExtensions); res != vk.Success {
		return false
	}
	for i := 0; i < int(availableExtensionCount); i++ {
		availableExtensions[i].Deref()
		if vk.ToString(availableExtensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
