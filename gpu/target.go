package gpu

import (
	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

// ColorFormat is the format of every image rendered into. The readback buffer
// receives its pixels unconverted.
const ColorFormat = vk.FormatR8g8b8a8Unorm

// RenderTarget is a multisampled color attachment resolved into a single
// sampled image, together with the render pass and the framebuffer which tie
// them together. The resolved image ends every render pass in the transfer
// source layout so it can be copied out right away.
type RenderTarget struct {
	device vk.Device

	Extent  vk.Extent2D
	Samples vk.SampleCountFlagBits

	Multisampled *Image
	Resolved     *Image

	RenderPass  vk.RenderPass
	Framebuffer vk.Framebuffer
}

// NewRenderTarget creates the images, the render pass and the framebuffer for
// the given extent using the sample count of the context.
func NewRenderTarget(c *Context, extent vk.Extent2D) (*RenderTarget, error) {
	t := &RenderTarget{
		device:      c.device,
		Extent:      extent,
		Samples:     c.Samples(),
		RenderPass:  vk.NullRenderPass,
		Framebuffer: vk.NullFramebuffer,
	}

	steps := []func(*Context) error{
		t.createImages,
		t.createRenderPass,
		t.createFramebuffer,
	}
	for _, step := range steps {
		if err := step(c); err != nil {
			t.Destroy()
			return nil, err
		}
	}

	return t, nil
}

func (t *RenderTarget) createImages(c *Context) error {
	multisampled, err := c.CreateImage(ImageSpec{
		Extent:  t.Extent,
		Format:  ColorFormat,
		Samples: t.Samples,
		Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit),
		Placement: Transient,
	})
	if err != nil {
		return errors.Wrap(err, "creating the multisampled image")
	}
	t.Multisampled = multisampled

	resolved, err := c.CreateImage(ImageSpec{
		Extent:  t.Extent,
		Format:  ColorFormat,
		Samples: vk.SampleCount1Bit,
		Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		Placement: DeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "creating the resolved image")
	}
	t.Resolved = resolved

	return nil
}

func (t *RenderTarget) createRenderPass(c *Context) error {
	multisampledAttachment := vk.AttachmentDescription{
		Format:         ColorFormat,
		Samples:        t.Samples,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}

	resolvedAttachment := vk.AttachmentDescription{
		Format:         ColorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutTransferSrcOptimal,
	}

	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	resolveAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentRef},
		PResolveAttachments:  []vk.AttachmentReference{resolveAttachmentRef},
	}

	dependencies := []vk.SubpassDependency{
		{
			// The copy of the previous frame must be done reading the resolved
			// image before it is written again.
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
		},
	}

	attachments := []vk.AttachmentDescription{
		multisampledAttachment,
		resolvedAttachment,
	}

	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(c.device, &renderPassInfo, nil, &renderPass)
	if err := check(res, ErrResource, "creating render pass"); err != nil {
		return err
	}
	t.RenderPass = renderPass

	return nil
}

func (t *RenderTarget) createFramebuffer(c *Context) error {
	attachments := []vk.ImageView{
		t.Multisampled.View,
		t.Resolved.View,
	}

	frameBufferInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      t.RenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           t.Extent.Width,
		Height:          t.Extent.Height,
		Layers:          1,
	}

	var frameBuffer vk.Framebuffer
	res := vk.CreateFramebuffer(c.device, &frameBufferInfo, nil, &frameBuffer)
	if err := check(res, ErrResource, "creating framebuffer"); err != nil {
		return err
	}
	t.Framebuffer = frameBuffer

	return nil
}

// PixelSize returns the number of bytes in one resolved frame.
func (t *RenderTarget) PixelSize() int {
	return int(t.Extent.Width) * int(t.Extent.Height) * 4
}

// Destroy releases the framebuffer, the render pass and both images.
func (t *RenderTarget) Destroy() {
	if t == nil {
		return
	}
	if t.Framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(t.device, t.Framebuffer, nil)
		t.Framebuffer = vk.NullFramebuffer
	}
	if t.RenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(t.device, t.RenderPass, nil)
		t.RenderPass = vk.NullRenderPass
	}
	t.Resolved.Destroy()
	t.Multisampled.Destroy()
}
