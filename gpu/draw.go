package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

// quadVertices is the number of vertices the vertex shader turns into two
// triangles covering the screen.
const quadVertices = 6

// DrawStage renders the diagram into a RenderTarget and copies the resolved
// image into a Readback.
type DrawStage struct {
	ctx      *Context
	target   *RenderTarget
	binding  *PointsBinding
	readback *Readback

	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// NewDrawStage creates the graphics pipeline from the vertex and fragment
// SPIR-V code.
func NewDrawStage(
	c *Context,
	target *RenderTarget,
	binding *PointsBinding,
	readback *Readback,
	vertShaderCode []uint32,
	fragShaderCode []uint32,
) (*DrawStage, error) {
	if readback.Buffer.Size < vk.DeviceSize(target.PixelSize()) {
		return nil, markf(ErrResource, "readback buffer of %d bytes is too small for %dx%d",
			readback.Buffer.Size, target.Extent.Width, target.Extent.Height)
	}

	s := &DrawStage{
		ctx:      c,
		target:   target,
		binding:  binding,
		readback: readback,
		layout:   vk.NullPipelineLayout,
		pipeline: vk.NullPipeline,
	}

	layout, err := createPipelineLayout(c.device, binding.Layout, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, errors.Wrap(err, "draw stage")
	}
	s.layout = layout

	pipeline, err := createGraphicsPipeline(c.device, target, layout, vertShaderCode, fragShaderCode)
	if err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "draw stage")
	}
	s.pipeline = pipeline

	return s, nil
}

// Draw renders one frame and copies it into the readback buffer. It returns
// after the copy has finished.
func (s *DrawStage) Draw(params FrameParameters) error {
	return s.ctx.Submit(func(commandBuffer vk.CommandBuffer) error {
		s.record(commandBuffer, &params)
		return nil
	})
}

func (s *DrawStage) record(commandBuffer vk.CommandBuffer, params *FrameParameters) {
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  s.target.RenderPass,
		Framebuffer: s.target.Framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: s.target.Extent,
		},
	}

	vk.CmdBeginRenderPass(commandBuffer, &renderPassInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(s.target.Extent.Width),
		Height:   float32(s.target.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{viewport})

	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, s.pipeline)
	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointGraphics,
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
		vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0,
		FrameParametersSize,
		unsafe.Pointer(params),
	)
	vk.CmdDraw(commandBuffer, quadVertices, 1, 0, 0)

	vk.CmdEndRenderPass(commandBuffer)

	// The render pass leaves the resolved image in the transfer source layout.
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{
			Width:  s.target.Extent.Width,
			Height: s.target.Extent.Height,
			Depth:  1,
		},
	}

	vk.CmdCopyImageToBuffer(
		commandBuffer,
		s.target.Resolved.Handle,
		vk.ImageLayoutTransferSrcOptimal,
		s.readback.Buffer.Handle,
		1,
		[]vk.BufferImageCopy{region},
	)

	hostReadBarrier(commandBuffer, s.readback.Buffer)
}

// Destroy releases the pipeline and its layout.
func (s *DrawStage) Destroy() {
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
