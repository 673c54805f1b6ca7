package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

// PointsBinding exposes the point storage buffer at set 0, binding 0 to both
// the fragment and the compute shaders. The update and the draw stages share
// the layout and the set.
type PointsBinding struct {
	device vk.Device

	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet
}

// NewPointsBinding creates a descriptor set which points to points.
func NewPointsBinding(c *Context, points *Buffer) (*PointsBinding, error) {
	b := &PointsBinding{
		device: c.device,
		Layout: vk.NullDescriptorSetLayout,
		Pool:   vk.NullDescriptorPool,
	}

	if err := b.createLayout(); err != nil {
		return nil, err
	}

	if err := b.createPool(); err != nil {
		b.Destroy()
		return nil, err
	}

	if err := b.createSet(points); err != nil {
		b.Destroy()
		return nil, err
	}

	return b, nil
}

func (b *PointsBinding) createLayout() error {
	pointsLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		DescriptorCount: 1,
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit) |
			vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		PImmutableSamplers: nil,
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{pointsLayoutBinding},
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(b.device, &layoutInfo, nil, &descriptorSetLayout)
	if err := check(res, ErrResource, "creating descriptor set layout"); err != nil {
		return err
	}
	b.Layout = descriptorSetLayout

	return nil
}

func (b *PointsBinding) createPool() error {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
		},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       1,
	}

	var descriptorPool vk.DescriptorPool
	res := vk.CreateDescriptorPool(b.device, &poolInfo, nil, &descriptorPool)
	if err := check(res, ErrResource, "creating descriptor pool"); err != nil {
		return err
	}
	b.Pool = descriptorPool

	return nil
}

func (b *PointsBinding) createSet(points *Buffer) error {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     b.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{b.Layout},
	}

	var set vk.DescriptorSet
	res := vk.AllocateDescriptorSets(b.device, &allocInfo, &set)
	if err := check(res, ErrResource, "allocating descriptor set"); err != nil {
		return err
	}
	b.Set = set

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: points.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(vk.WholeSize),
	}

	descriptorWrites := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          b.Set,
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		},
	}

	vk.UpdateDescriptorSets(
		b.device,
		uint32(len(descriptorWrites)),
		descriptorWrites,
		0,
		nil,
	)

	return nil
}

// Destroy releases the pool, which frees the set, and the layout.
func (b *PointsBinding) Destroy() {
	if b == nil {
		return
	}
	if b.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(b.device, b.Pool, nil)
		b.Pool = vk.NullDescriptorPool
	}
	if b.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(b.device, b.Layout, nil)
		b.Layout = vk.NullDescriptorSetLayout
	}
}
