package queues

import (
	"github.com/ironsmile/voronoi-frames/optional"

	vk "github.com/vulkan-go/vulkan"
)

// FamilyIndices holds the indexes of Vulkan queue families needed by the program.
type FamilyIndices struct {

	// Graphics is the index of the queue family used for every submission. It
	// supports graphics work and, when the update stage is enabled, compute work
	// as well, since both stages go through a single queue.
	Graphics optional.Optional[uint32]
}

// IsComplete returns true if all families have been set.
func (f *FamilyIndices) IsComplete() bool {
	return f.Graphics.HasValue()
}

// Find returns the indices for the first family in families which supports
// all of the required flags.
func Find(families []vk.QueueFlags, required vk.QueueFlags) FamilyIndices {
	indices := FamilyIndices{}

	for i, flags := range families {
		if flags&required == required {
			indices.Graphics.Set(uint32(i))
			break
		}
	}

	return indices
}

// Required returns the queue flags a family must expose for the program. The
// compute bit is only needed when points are moved by the update stage.
func Required(withCompute bool) vk.QueueFlags {
	flags := vk.QueueFlags(vk.QueueGraphicsBit)
	if withCompute {
		flags |= vk.QueueFlags(vk.QueueComputeBit)
	}
	return flags
}
