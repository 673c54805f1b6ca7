package gpu

import (
	"unsafe"

	"github.com/xlab/linmath"
)

// FrameParameters are pushed as push constants to both the update and the
// draw stages. The layout must match the push constant block of the shaders.
type FrameParameters struct {
	Resolution  linmath.Vec2
	Time        float32
	DeltaTime   float32
	PointsNum   uint32
	PointsSpeed float32
}

// FrameParametersSize is the size of the push constant range in bytes.
const FrameParametersSize = uint32(unsafe.Sizeof(FrameParameters{}))
