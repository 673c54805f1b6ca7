// Package render drives the per frame work: build the frame parameters,
// update the points, draw, read the pixels back and write them out. Each step
// finishes before the next one starts and frames never overlap.
package render

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/ironsmile/voronoi-frames/gpu"
	"github.com/loov/hrtime"
	"github.com/xlab/linmath"
)

// Updater moves the points on the device. It must return only after the
// update is complete.
type Updater interface {
	Update(params gpu.FrameParameters) error
}

// Drawer renders a frame and copies it to host visible memory. It must return
// only after the copy is complete.
type Drawer interface {
	Draw(params gpu.FrameParameters) error
}

// PixelSource returns the pixels of the last drawn frame.
type PixelSource interface {
	Pixels() ([]byte, error)
}

// FrameWriter stores a frame and returns where it went.
type FrameWriter interface {
	WriteFrame(index int, pixels []byte) (string, error)
}

// Settings are the values which stay the same for every frame of a run.
type Settings struct {
	Frames      int
	Width       uint32
	Height      uint32
	DeltaTime   float32
	PointsNum   uint32
	PointsSpeed float32
}

// Stages are the collaborators called for every frame. Update is nil when the
// points do not move.
type Stages struct {
	Update   Updater
	Draw     Drawer
	Readback PixelSource
	Writer   FrameWriter
}

// Orchestrator renders all frames of a run.
type Orchestrator struct {
	settings Settings
	stages   Stages
	clock    Clock
	reporter Reporter
}

// Option changes an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for the Time frame parameter. The default is
// a WallClock.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithReporter sets what is told about written frames. The default logs a
// line for every frame with slog.Default().
func WithReporter(reporter Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// New returns an Orchestrator for the given settings.
func New(settings Settings, stages Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		stages:   stages,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.clock == nil {
		o.clock = NewWallClock()
	}
	if o.reporter == nil {
		o.reporter = LogReporter{Logger: slog.Default()}
	}

	return o
}

// Parameters returns the push constants for the frame with index frame.
func (o *Orchestrator) Parameters(frame int) gpu.FrameParameters {
	return gpu.FrameParameters{
		Resolution:  linmath.Vec2{float32(o.settings.Width), float32(o.settings.Height)},
		Time:        o.clock.Time(frame),
		DeltaTime:   o.settings.DeltaTime,
		PointsNum:   o.settings.PointsNum,
		PointsSpeed: o.settings.PointsSpeed,
	}
}

// Run renders every frame in order. It stops at the first error.
func (o *Orchestrator) Run() error {
	start := hrtime.Now()
	o.clock.Start()

	for frame := 0; frame < o.settings.Frames; frame++ {
		path, err := o.RenderFrame(frame)
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}

		o.reporter.Frame(frame, path, hrtime.Since(start))
	}

	o.reporter.Finish()
	return nil
}

// RenderFrame runs all stages for a single frame and returns the path of the
// written file.
func (o *Orchestrator) RenderFrame(frame int) (string, error) {
	params := o.Parameters(frame)

	if o.stages.Update != nil {
		if err := o.stages.Update.Update(params); err != nil {
			return "", errors.Wrap(err, "updating points")
		}
	}

	if err := o.stages.Draw.Draw(params); err != nil {
		return "", errors.Wrap(err, "drawing")
	}

	pixels, err := o.stages.Readback.Pixels()
	if err != nil {
		return "", errors.Wrap(err, "reading back")
	}

	path, err := o.stages.Writer.WriteFrame(frame, pixels)
	if err != nil {
		return "", errors.Wrap(err, "writing")
	}

	return path, nil
}
