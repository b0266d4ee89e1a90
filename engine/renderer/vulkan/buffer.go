package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
)

// VulkanBuffer is host-visible, host-coherent memory the CPU writes directly.
// It doubles as vertex storage and as the shading-stage constant table.
type VulkanBuffer struct {
	context *VulkanContext
	id      core.DebugID
	handle  vk.Buffer
	memory  vk.DeviceMemory
	size    uint64
	mapped  unsafe.Pointer
}

func newUploadBuffer(context *VulkanContext, sizeBytes uint64) (*VulkanBuffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(sizeBytes),
		Usage: vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) |
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.LogicalDevice, handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits,
		uint32(vk.MemoryPropertyHostVisibleBit)|uint32(vk.MemoryPropertyHostCoherentBit))
	if memoryIndex < 0 {
		vk.DestroyBuffer(context.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("no host-visible memory type for upload buffer")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(context.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("failed to allocate buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if res := vk.BindBufferMemory(context.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(context.LogicalDevice, memory, context.Allocator)
		vk.DestroyBuffer(context.LogicalDevice, handle, context.Allocator)
		err := fmt.Errorf("failed to bind buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanBuffer{
		context: context,
		id:      core.NewDebugID("buffer"),
		handle:  handle,
		memory:  memory,
		size:    sizeBytes,
	}, nil
}

func (vb *VulkanBuffer) DebugID() core.DebugID {
	return vb.id
}

func (vb *VulkanBuffer) SizeBytes() uint64 {
	return vb.size
}

func (vb *VulkanBuffer) Map() ([]byte, error) {
	if vb.mapped == nil {
		var data unsafe.Pointer
		if res := vk.MapMemory(vb.context.LogicalDevice, vb.memory, 0, vk.DeviceSize(vb.size), 0, &data); res != vk.Success {
			err := fmt.Errorf("failed to map buffer memory with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		vb.mapped = data
	}
	return unsafe.Slice((*byte)(vb.mapped), vb.size), nil
}

func (vb *VulkanBuffer) Unmap() {
	if vb.mapped != nil {
		vk.UnmapMemory(vb.context.LogicalDevice, vb.memory)
		vb.mapped = nil
	}
}

func (vb *VulkanBuffer) Destroy() {
	vb.Unmap()
	if vb.handle != vk.NullBuffer {
		vk.DestroyBuffer(vb.context.LogicalDevice, vb.handle, vb.context.Allocator)
		vb.handle = vk.NullBuffer
	}
	if vb.memory != vk.NullDeviceMemory {
		vk.FreeMemory(vb.context.LogicalDevice, vb.memory, vb.context.Allocator)
		vb.memory = vk.NullDeviceMemory
	}
}
