package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/ironsmile/voronoi-frames/unsafer"

	vk "github.com/vulkan-go/vulkan"
)

// Upload creates a device local buffer with the contents of data. The data is
// first written into a staging buffer and then copied on the device. Upload
// returns after the copy has finished and the staging buffer is gone.
//
// The returned buffer may be used as a transfer destination in addition to
// usage.
func Upload[T any](c *Context, usage vk.BufferUsageFlags, data []T) (*Buffer, error) {
	if len(data) == 0 {
		return nil, markf(ErrResource, "uploading an empty slice")
	}

	var zero T
	bufferSize := vk.DeviceSize(uintptr(len(data)) * unsafe.Sizeof(zero))

	stagingBuffer, err := c.CreateBuffer(
		bufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		HostUpload,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the staging buffer")
	}
	defer stagingBuffer.Destroy()

	if err := stagingBuffer.Write(unsafer.SliceToBytes(data)); err != nil {
		return nil, errors.Wrap(err, "filling the staging buffer")
	}

	buffer, err := c.CreateBuffer(
		bufferSize,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		DeviceLocal,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the device buffer")
	}
	buffer.Len = len(data)

	if err := c.CopyBuffer(stagingBuffer, buffer); err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "copying the staging buffer")
	}

	return buffer, nil
}

// Download returns a copy of the contents of src. The buffer must have been
// created with the transfer source usage.
func Download(c *Context, src *Buffer) ([]byte, error) {
	readback, err := c.CreateBuffer(
		src.Size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		HostReadback,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the readback buffer")
	}
	defer readback.Destroy()

	if err := c.CopyBuffer(src, readback); err != nil {
		return nil, errors.Wrap(err, "copying into the readback buffer")
	}

	data := make([]byte, src.Size)
	if err := readback.Read(data); err != nil {
		return nil, err
	}
	return data, nil
}

// CopyBuffer copies the whole of src at the start of dst and waits for the
// copy to finish.
func (c *Context) CopyBuffer(src, dst *Buffer) error {
	if src.Size > dst.Size {
		return markf(ErrResource, "copying %d bytes into a buffer of %d", src.Size, dst.Size)
	}

	return c.Submit(func(commandBuffer vk.CommandBuffer) error {
		copyRegion := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      src.Size,
		}

		vk.CmdCopyBuffer(commandBuffer, src.Handle, dst.Handle, 1, []vk.BufferCopy{copyRegion})

		if dst.Placement == HostReadback {
			hostReadBarrier(commandBuffer, dst)
		}
		return nil
	})
}

// hostReadBarrier makes transfer writes into buf visible to the host.
func hostReadBarrier(commandBuffer vk.CommandBuffer, buf *Buffer) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessHostReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}

	vk.CmdPipelineBarrier(
		commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageHostBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil,
	)
}
