package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// VulkanPipelineState is the compiled-program object bound at command list
// reset. It carries the descriptor set the constant table is written into.
type VulkanPipelineState struct {
	context *VulkanContext
	id      core.DebugID

	handle vk.Pipeline
	layout vk.PipelineLayout

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSet       vk.DescriptorSet

	vertexModule vk.ShaderModule
	pixelModule  vk.ShaderModule
}

func newPipelineState(context *VulkanContext, renderpass *VulkanRenderPass, artifact *hal.ShaderArtifact) (*VulkanPipelineState, error) {
	vertexModule, err := newShaderModule(context, artifact.VertexCode)
	if err != nil {
		return nil, fmt.Errorf("vertex stage of '%s': %w", artifact.Name, err)
	}
	pixelModule, err := newShaderModule(context, artifact.PixelCode)
	if err != nil {
		vk.DestroyShaderModule(context.LogicalDevice, vertexModule, context.Allocator)
		return nil, fmt.Errorf("pixel stage of '%s': %w", artifact.Name, err)
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertexModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: pixelModule,
			PName:  VulkanSafeString("main"),
		},
	}

	// Binding 0 is the color table, visible to both stages.
	layoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	setLayoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{layoutBinding},
	}
	var descriptorSetLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.LogicalDevice, &setLayoutCreateInfo, context.Allocator, &descriptorSetLayout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeStorageBuffer,
		DescriptorCount: 1,
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
	}
	var descriptorPool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.LogicalDevice, &poolCreateInfo, context.Allocator, &descriptorPool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{descriptorSetLayout},
	}
	descriptorSets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.LogicalDevice, &allocateInfo, &descriptorSets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	// Vertex input straight from the artifact's layout.
	var stride uint32
	attributes := make([]vk.VertexInputAttributeDescription, len(artifact.InputLayout))
	for i, attr := range artifact.InputLayout {
		format, err := attributeFormat(attr.Floats)
		if err != nil {
			return nil, fmt.Errorf("attribute '%s': %w", attr.Semantic, err)
		}
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   format,
			Offset:   attr.ByteOffset,
		}
		if end := attr.ByteOffset + attr.Floats*4; end > stride {
			stride = end
		}
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    stride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic; the counts still have to be set.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descriptorSetLayout},
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderpass.handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(context.LogicalDevice, layout, context.Allocator)
		err := fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	core.LogDebug("Graphics pipeline created for shader '%s'.", artifact.Name)
	return &VulkanPipelineState{
		context:             context,
		id:                  core.NewDebugID("pso"),
		handle:              pipelines[0],
		layout:              layout,
		descriptorSetLayout: descriptorSetLayout,
		descriptorPool:      descriptorPool,
		descriptorSet:       descriptorSets[0],
		vertexModule:        vertexModule,
		pixelModule:         pixelModule,
	}, nil
}

func (vp *VulkanPipelineState) DebugID() core.DebugID {
	return vp.id
}

func (vp *VulkanPipelineState) Destroy() {
	device := vp.context.LogicalDevice
	if vp.handle != vk.NullPipeline {
		vk.DestroyPipeline(device, vp.handle, vp.context.Allocator)
		vp.handle = vk.NullPipeline
	}
	if vp.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, vp.layout, vp.context.Allocator)
		vp.layout = vk.NullPipelineLayout
	}
	if vp.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, vp.descriptorPool, vp.context.Allocator)
		vp.descriptorPool = vk.NullDescriptorPool
	}
	if vp.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, vp.descriptorSetLayout, vp.context.Allocator)
		vp.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if vp.vertexModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, vp.vertexModule, vp.context.Allocator)
		vp.vertexModule = vk.NullShaderModule
	}
	if vp.pixelModule != vk.NullShaderModule {
		vk.DestroyShaderModule(device, vp.pixelModule, vp.context.Allocator)
		vp.pixelModule = vk.NullShaderModule
	}
}

func newShaderModule(context *VulkanContext, code []byte) (vk.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.NullShaderModule, fmt.Errorf("shader code length %d is not a SPIR-V word multiple", len(code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    repackUint32(code),
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err := fmt.Errorf("failed to create shader module with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	return module, nil
}

func attributeFormat(floats uint32) (vk.Format, error) {
	switch floats {
	case 2:
		return vk.FormatR32g32Sfloat, nil
	case 3:
		return vk.FormatR32g32b32Sfloat, nil
	case 4:
		return vk.FormatR32g32b32a32Sfloat, nil
	default:
		return vk.FormatUndefined, fmt.Errorf("unsupported component count %d", floats)
	}
}

func repackUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}
