package gpu

import (
	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

const shaderEntryPoint = "main\x00"

func createShaderModule(device vk.Device, code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var shaderModule vk.ShaderModule
	res := vk.CreateShaderModule(device, &createInfo, nil, &shaderModule)
	if err := check(res, ErrResource, "creating shader module"); err != nil {
		return vk.NullShaderModule, err
	}
	return shaderModule, nil
}

// createPipelineLayout creates a layout with the points descriptor set and a
// FrameParameters push constant range visible to stage.
func createPipelineLayout(
	device vk.Device,
	setLayout vk.DescriptorSetLayout,
	stage vk.ShaderStageFlagBits,
) (vk.PipelineLayout, error) {
	pushConstantRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(stage),
		Offset:     0,
		Size:       FrameParametersSize,
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}

	var pipelineLayout vk.PipelineLayout
	res := vk.CreatePipelineLayout(device, &pipelineLayoutInfo, nil, &pipelineLayout)
	if err := check(res, ErrResource, "creating pipeline layout"); err != nil {
		return vk.NullPipelineLayout, err
	}
	return pipelineLayout, nil
}

// createGraphicsPipeline creates a pipeline which draws a full screen
// triangle list without any vertex input into target.
func createGraphicsPipeline(
	device vk.Device,
	target *RenderTarget,
	layout vk.PipelineLayout,
	vertShaderCode []uint32,
	fragShaderCode []uint32,
) (vk.Pipeline, error) {
	vertexShaderModule, err := createShaderModule(device, vertShaderCode)
	if err != nil {
		return vk.NullPipeline, errors.Wrap(err, "vertex shader")
	}
	defer vk.DestroyShaderModule(device, vertexShaderModule, nil)

	fragmentShaderModule, err := createShaderModule(device, fragShaderCode)
	if err != nil {
		return vk.NullPipeline, errors.Wrap(err, "fragment shader")
	}
	defer vk.DestroyShaderModule(device, fragmentShaderModule, nil)

	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertexShaderModule,
			PName:  shaderEntryPoint,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragmentShaderModule,
			PName:  shaderEntryPoint,
		},
	}

	// The quad is generated from gl_VertexIndex.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(target.Extent.Width),
		Height:   float32(target.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: target.Extent,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
		PViewports:    []vk.Viewport{viewport},
		PScissors:     []vk.Rect2D{scissor},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  target.Samples,
		MinSampleShading:      1,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit |
				vk.ColorComponentGBit |
				vk.ColorComponentBBit |
				vk.ColorComponentABit,
		),
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{
			colorBlendAttachment,
		},
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          target.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(
		device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines,
	)
	if err := check(res, ErrResource, "creating graphics pipeline"); err != nil {
		return vk.NullPipeline, err
	}

	return pipelines[0], nil
}

func createComputePipeline(
	device vk.Device,
	layout vk.PipelineLayout,
	compShaderCode []uint32,
) (vk.Pipeline, error) {
	computeShaderModule, err := createShaderModule(device, compShaderCode)
	if err != nil {
		return vk.NullPipeline, errors.Wrap(err, "compute shader")
	}
	defer vk.DestroyShaderModule(device, computeShaderModule, nil)

	pipelineInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: computeShaderModule,
			PName:  shaderEntryPoint,
		},
		Layout:             layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateComputePipelines(
		device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.ComputePipelineCreateInfo{pipelineInfo},
		nil,
		pipelines,
	)
	if err := check(res, ErrResource, "creating compute pipeline"); err != nil {
		return vk.NullPipeline, err
	}

	return pipelines[0], nil
}
