package gpu

import (
	"github.com/ironsmile/voronoi-frames/queues"

	vk "github.com/vulkan-go/vulkan"
)

// deviceCandidate describes what the program needs to know about a physical
// device in order to decide whether and how much it wants to use it.
type deviceCandidate struct {
	device     vk.PhysicalDevice
	name       string
	deviceType vk.PhysicalDeviceType

	queues              queues.FamilyIndices
	extensionsSupported bool
	extensions          []string
	sampleRateShading   bool
	samplesSupported    bool
}

// suitable returns true when the device can run the renderer at all.
func (c *deviceCandidate) suitable() bool {
	return c.queues.IsComplete() &&
		c.extensionsSupported &&
		c.sampleRateShading &&
		c.samplesSupported
}

// deviceTypeRank orders device types by preference. Lower is better.
func deviceTypeRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 1
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 3
	case vk.PhysicalDeviceTypeOther:
		return 4
	default:
		return 5
	}
}

// pickDevice returns the most preferred suitable candidate. When more than one
// candidate has the same type the first one wins.
func pickDevice(candidates []deviceCandidate) (deviceCandidate, error) {
	best := -1
	for i := range candidates {
		if !candidates[i].suitable() {
			continue
		}
		if best < 0 ||
			deviceTypeRank(candidates[i].deviceType) < deviceTypeRank(candidates[best].deviceType) {
			best = i
		}
	}

	if best < 0 {
		return deviceCandidate{}, markf(ErrDevice,
			"none of the %d physical devices is suitable", len(candidates))
	}
	return candidates[best], nil
}

// DeviceTypeName returns a human readable name of a physical device type.
func DeviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "DiscreteGpu"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "IntegratedGpu"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "VirtualGpu"
	case vk.PhysicalDeviceTypeCpu:
		return "Cpu"
	case vk.PhysicalDeviceTypeOther:
		return "Other"
	default:
		return "Unknown"
	}
}
