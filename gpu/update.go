package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

// workGroupSize is the local size of the update compute shader.
const workGroupSize = 64

// groupCount returns the number of work groups needed to cover n points.
func groupCount(n uint32) uint32 {
	return (n + workGroupSize - 1) / workGroupSize
}

// UpdateStage advances the points on the device with a compute shader.
type UpdateStage struct {
	ctx     *Context
	binding *PointsBinding
	points  *Buffer

	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// NewUpdateStage creates the compute pipeline from the SPIR-V in code.
func NewUpdateStage(c *Context, binding *PointsBinding, points *Buffer, code []uint32) (*UpdateStage, error) {
	s := &UpdateStage{
		ctx:      c,
		binding:  binding,
		points:   points,
		layout:   vk.NullPipelineLayout,
		pipeline: vk.NullPipeline,
	}

	layout, err := createPipelineLayout(c.device, binding.Layout, vk.ShaderStageComputeBit)
	if err != nil {
		return nil, errors.Wrap(err, "update stage")
	}
	s.layout = layout

	pipeline, err := createComputePipeline(c.device, layout, code)
	if err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "update stage")
	}
	s.pipeline = pipeline

	return s, nil
}

// Update dispatches the compute shader once over all points and waits for it
// to finish.
func (s *UpdateStage) Update(params FrameParameters) error {
	return s.ctx.Submit(func(commandBuffer vk.CommandBuffer) error {
		s.record(commandBuffer, &params)
		return nil
	})
}

func (s *UpdateStage) record(commandBuffer vk.CommandBuffer, params *FrameParameters) {
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointCompute, s.pipeline)
	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointCompute,
		s.layout,
		0,
		1,
		[]vk.DescriptorSet{s.binding.Set},
		0,
		nil,
	)
	vk.CmdPushConstants(
		commandBuffer,
		s.layout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		0,
		FrameParametersSize,
		unsafe.Pointer(params),
	)
	vk.CmdDispatch(commandBuffer, groupCount(params.PointsNum), 1, 1)

	// Make the new positions visible to the next draw and update.
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              s.points.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}

	vk.CmdPipelineBarrier(
		commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)|
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil,
	)
}

// Destroy releases the pipeline and its layout.
func (s *UpdateStage) Destroy() {
	if s == nil {
		return
	}
	if s.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(s.ctx.device, s.pipeline, nil)
		s.pipeline = vk.NullPipeline
	}
	if s.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(s.ctx.device, s.layout, nil)
		s.layout = vk.NullPipelineLayout
	}
}
