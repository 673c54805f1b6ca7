package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

// Placement describes where the memory of a buffer or an image should live.
type Placement int

const (
	// DeviceLocal is memory only the device accesses.
	DeviceLocal Placement = iota

	// Transient is memory for attachments which never leave the render pass.
	// Lazily allocated memory is used when the device has it.
	Transient

	// HostUpload is memory written by the host and read by the device.
	HostUpload

	// HostReadback is memory written by the device and read by the host.
	HostReadback
)

func (p Placement) String() string {
	switch p {
	case DeviceLocal:
		return "device-local"
	case Transient:
		return "transient"
	case HostUpload:
		return "host-upload"
	case HostReadback:
		return "host-readback"
	default:
		return "unknown"
	}
}

const (
	deviceLocalBit = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisibleBit = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent   = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	hostCachedBit  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	lazyBit        = vk.MemoryPropertyFlags(vk.MemoryPropertyLazilyAllocatedBit)
)

// preferences returns property sets in order of preference. A memory type is
// acceptable when it has all the flags of one of the sets.
func (p Placement) preferences() []vk.MemoryPropertyFlags {
	switch p {
	case DeviceLocal:
		return []vk.MemoryPropertyFlags{deviceLocalBit, 0}
	case Transient:
		return []vk.MemoryPropertyFlags{deviceLocalBit | lazyBit, deviceLocalBit, 0}
	case HostUpload:
		return []vk.MemoryPropertyFlags{hostVisibleBit | hostCoherent}
	case HostReadback:
		return []vk.MemoryPropertyFlags{
			hostVisibleBit | hostCoherent | hostCachedBit,
			hostVisibleBit | hostCoherent,
		}
	default:
		return nil
	}
}

// pickMemoryType returns the index of the memory type in types which is
// allowed by typeBits and serves the placement best. Types with the same
// properties are taken in table order.
func pickMemoryType(
	types []vk.MemoryPropertyFlags,
	typeBits uint32,
	placement Placement,
) (uint32, error) {
	for _, wanted := range placement.preferences() {
		for i, flags := range types {
			if i >= 32 || typeBits&(1<<uint(i)) == 0 {
				continue
			}

			if flags&wanted != wanted {
				continue
			}

			// Uploads take host visible device local memory only when nothing
			// else fits.
			if placement == HostUpload && flags&deviceLocalBit != 0 &&
				hasHostOnlyType(types, typeBits, wanted) {
				continue
			}

			return uint32(i), nil
		}
	}

	return 0, markf(ErrResource, "failed to find %s memory type in mask %#b", placement, typeBits)
}

func hasHostOnlyType(types []vk.MemoryPropertyFlags, typeBits uint32, wanted vk.MemoryPropertyFlags) bool {
	for i, flags := range types {
		if i >= 32 || typeBits&(1<<uint(i)) == 0 {
			continue
		}
		if flags&wanted == wanted && flags&deviceLocalBit == 0 {
			return true
		}
	}
	return false
}

// memoryTypes returns the property flags of every memory type of device, in
// the order of the device's memory type table.
func memoryTypes(device vk.PhysicalDevice) []vk.MemoryPropertyFlags {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memProperties)
	memProperties.Deref()

	types := make([]vk.MemoryPropertyFlags, 0, memProperties.MemoryTypeCount)
	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]
		memType.Deref()

		types = append(types, memType.PropertyFlags)
	}

	return types
}

// allocate reserves and returns memory which satisfies requirements and
// placement.
func (c *Context) allocate(
	requirements vk.MemoryRequirements,
	placement Placement,
) (vk.DeviceMemory, error) {
	memTypeIndex, err := pickMemoryType(c.memoryTypes, requirements.MemoryTypeBits, placement)
	if err != nil {
		return vk.NullDeviceMemory, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var memory vk.DeviceMemory
	res := vk.AllocateMemory(c.device, &allocInfo, nil, &memory)
	if err := check(res, ErrResource, "allocating "+placement.String()+" memory"); err != nil {
		return vk.NullDeviceMemory, err
	}

	return memory, nil
}
