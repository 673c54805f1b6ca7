package gpu

import (
	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

// Readback is the host visible buffer into which every resolved frame is
// copied.
type Readback struct {
	Buffer *Buffer
	pixels []byte
}

// NewReadback creates a readback buffer for frames of size bytes.
func NewReadback(c *Context, size int) (*Readback, error) {
	buf, err := c.CreateBuffer(
		vk.DeviceSize(size),
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		HostReadback,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the readback buffer")
	}

	return &Readback{
		Buffer: buf,
		pixels: make([]byte, size),
	}, nil
}

// Pixels returns the last copied frame as tightly packed RGBA8 rows. The
// returned slice is reused and is only valid until the next call.
func (r *Readback) Pixels() ([]byte, error) {
	if err := r.Buffer.Read(r.pixels); err != nil {
		return nil, errors.Wrap(err, "reading back pixels")
	}
	return r.pixels, nil
}

// Destroy releases the buffer.
func (r *Readback) Destroy() {
	if r == nil {
		return
	}
	r.Buffer.Destroy()
}
