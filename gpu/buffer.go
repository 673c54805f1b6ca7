package gpu

import (
	"unsafe"

	"github.com/ironsmile/voronoi-frames/unsafer"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a Vulkan buffer together with the memory bound to it.
type Buffer struct {
	device vk.Device

	Handle vk.Buffer
	Memory vk.DeviceMemory

	// Size is the size of the buffer in bytes.
	Size vk.DeviceSize

	// Len is the number of elements the buffer was created for.
	Len int

	Placement Placement
}

// CreateBuffer creates a buffer of size bytes with memory bound according to
// placement.
func (c *Context) CreateBuffer(
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	placement Placement,
) (*Buffer, error) {
	if size == 0 {
		return nil, markf(ErrResource, "creating an empty %s buffer", placement)
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	buf := &Buffer{
		device:    c.device,
		Handle:    vk.NullBuffer,
		Memory:    vk.NullDeviceMemory,
		Size:      size,
		Placement: placement,
	}

	var buffer vk.Buffer
	res := vk.CreateBuffer(c.device, &bufferInfo, nil, &buffer)
	if err := check(res, ErrResource, "creating buffer"); err != nil {
		return nil, err
	}
	buf.Handle = buffer

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.device, buffer, &memRequirements)
	memRequirements.Deref()

	memory, err := c.allocate(memRequirements, placement)
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	buf.Memory = memory

	res = vk.BindBufferMemory(c.device, buffer, memory, 0)
	if err := check(res, ErrResource, "binding buffer memory"); err != nil {
		buf.Destroy()
		return nil, err
	}

	return buf, nil
}

// Write copies data at the start of a host visible buffer.
func (b *Buffer) Write(data []byte) error {
	if vk.DeviceSize(len(data)) > b.Size {
		return markf(ErrResource, "writing %d bytes into a buffer of %d", len(data), b.Size)
	}

	var pData unsafe.Pointer
	res := vk.MapMemory(b.device, b.Memory, 0, b.Size, 0, &pData)
	if err := check(res, ErrResource, "mapping buffer memory"); err != nil {
		return err
	}

	vk.Memcopy(pData, data)
	vk.UnmapMemory(b.device, b.Memory)

	return nil
}

// Read fills dst with bytes from the start of a host visible buffer.
func (b *Buffer) Read(dst []byte) error {
	if vk.DeviceSize(len(dst)) > b.Size {
		return markf(ErrResource, "reading %d bytes from a buffer of %d", len(dst), b.Size)
	}

	var pData unsafe.Pointer
	res := vk.MapMemory(b.device, b.Memory, 0, b.Size, 0, &pData)
	if err := check(res, ErrResource, "mapping buffer memory"); err != nil {
		return err
	}

	copy(dst, unsafer.BytesFrom(pData, len(dst)))
	vk.UnmapMemory(b.device, b.Memory)

	return nil
}

// Destroy releases the buffer and its memory.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device, b.Handle, nil)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, b.Memory, nil)
		b.Memory = vk.NullDeviceMemory
	}
}
