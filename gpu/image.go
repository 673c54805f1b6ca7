package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

// ImageSpec describes a 2D color image.
type ImageSpec struct {
	Extent    vk.Extent2D
	Format    vk.Format
	Samples   vk.SampleCountFlagBits
	Usage     vk.ImageUsageFlags
	Placement Placement
}

// Image is a 2D image, its memory and a view covering the whole image.
type Image struct {
	device vk.Device

	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	Spec ImageSpec
}

// CreateImage creates an optimally tiled image with one mip level and one
// layer, and a color view of it.
func (c *Context) CreateImage(spec ImageSpec) (*Image, error) {
	if spec.Samples == 0 {
		spec.Samples = vk.SampleCount1Bit
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  spec.Extent.Width,
			Height: spec.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         spec.Usage,
		SharingMode:   vk.SharingModeExclusive,
		Samples:       spec.Samples,
	}

	img := &Image{
		device: c.device,
		Handle: vk.NullImage,
		Memory: vk.NullDeviceMemory,
		View:   vk.NullImageView,
		Spec:   spec,
	}

	var image vk.Image
	res := vk.CreateImage(c.device, &imageInfo, nil, &image)
	if err := check(res, ErrResource, "creating image"); err != nil {
		return nil, err
	}
	img.Handle = image

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.device, image, &memRequirements)
	memRequirements.Deref()

	memory, err := c.allocate(memRequirements, spec.Placement)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.Memory = memory

	res = vk.BindImageMemory(c.device, image, memory, 0)
	if err := check(res, ErrResource, "binding image memory"); err != nil {
		img.Destroy()
		return nil, err
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   spec.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	res = vk.CreateImageView(c.device, &viewInfo, nil, &view)
	if err := check(res, ErrResource, "creating image view"); err != nil {
		img.Destroy()
		return nil, err
	}
	img.View = view

	return img, nil
}

// Destroy releases the view, the image and its memory.
func (i *Image) Destroy() {
	if i == nil {
		return
	}
	if i.View != vk.NullImageView {
		vk.DestroyImageView(i.device, i.View, nil)
		i.View = vk.NullImageView
	}
	if i.Handle != vk.NullImage {
		vk.DestroyImage(i.device, i.Handle, nil)
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(i.device, i.Memory, nil)
		i.Memory = vk.NullDeviceMemory
	}
}
