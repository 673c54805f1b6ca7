package gpu

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Kinds of failures. Every error returned by this package is marked with one of
// them so callers can tell them apart with errors.Is.
var (
	// ErrDevice marks missing devices, features, extensions or layers.
	ErrDevice = errors.New("vulkan device error")

	// ErrResource marks failures to create buffers, images, shader modules,
	// pipelines and other objects.
	ErrResource = errors.New("vulkan resource error")

	// ErrSubmission marks failures while recording, submitting or waiting for
	// command buffers.
	ErrSubmission = errors.New("vulkan submission error")
)

// check returns nil for vk.Success. Any other result is converted to an error
// marked with kind and described by msg.
func check(res vk.Result, kind error, msg string) error {
	if res == vk.Success {
		return nil
	}
	return errors.Mark(errors.Wrap(vk.Error(res), msg), kind)
}

func markf(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}
