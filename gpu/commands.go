package gpu

import (
	"math"

	"github.com/cockroachdb/errors"

	vk "github.com/vulkan-go/vulkan"
)

// Submit records a one time command buffer with record, submits it to the
// queue and blocks until the fence signals that the work is complete.
func (c *Context) Submit(record func(commandBuffer vk.CommandBuffer) error) error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        c.commandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(c.device, &allocInfo, commandBuffers)
	if err := check(res, ErrSubmission, "allocating command buffer"); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(c.device, c.commandPool, 1, commandBuffers)
	commandBuffer := commandBuffers[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	res = vk.BeginCommandBuffer(commandBuffer, &beginInfo)
	if err := check(res, ErrSubmission, "beginning command buffer"); err != nil {
		return err
	}

	if err := record(commandBuffer); err != nil {
		return errors.Mark(errors.Wrap(err, "recording command buffer"), ErrSubmission)
	}

	res = vk.EndCommandBuffer(commandBuffer)
	if err := check(res, ErrSubmission, "ending command buffer"); err != nil {
		return err
	}

	return c.submitAndWait(commandBuffers)
}

func (c *Context) submitAndWait(commandBuffers []vk.CommandBuffer) error {
	fences := []vk.Fence{c.fence}

	res := vk.ResetFences(c.device, 1, fences)
	if err := check(res, ErrSubmission, "resetting fence"); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(commandBuffers)),
		PCommandBuffers:    commandBuffers,
	}

	res = vk.QueueSubmit(c.queue, 1, []vk.SubmitInfo{submitInfo}, c.fence)
	if err := check(res, ErrSubmission, "submitting to queue"); err != nil {
		return err
	}

	res = vk.WaitForFences(c.device, 1, fences, vk.True, math.MaxUint64)
	return check(res, ErrSubmission, "waiting for fence")
}
