package render

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock gives the time in seconds used as the Time parameter of a frame.
type Clock interface {
	// Start is called once right before the first frame.
	Start()

	// Time returns the time for the frame with the given index.
	Time(frame int) float32
}

// WallClock reports the wall-clock time passed since Start.
type WallClock struct {
	start time.Duration
}

// NewWallClock returns a clock which is started now.
func NewWallClock() *WallClock {
	c := &WallClock{}
	c.Start()
	return c
}

func (c *WallClock) Start() {
	c.start = hrtime.Now()
}

func (c *WallClock) Time(int) float32 {
	return float32((hrtime.Now() - c.start).Seconds())
}

// FixedClock advances exactly Step seconds on every frame. The output of a
// run with a fixed clock and a fixed seed does not depend on how fast the
// device is.
type FixedClock struct {
	Step float32
}

func (FixedClock) Start() {}

func (c FixedClock) Time(frame int) float32 {
	return float32(frame) * c.Step
}
