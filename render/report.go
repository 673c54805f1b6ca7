package render

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter is told about every written frame.
type Reporter interface {
	Frame(index int, path string, elapsed time.Duration)
	Finish()
}

// LogReporter writes a log line for every frame.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Frame(index int, path string, elapsed time.Duration) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	r.Logger.Info("Saved frame",
		"frame", index,
		"path", path,
		"elapsed", elapsed,
	)
}

func (r LogReporter) Finish() {}

// ProgressReporter draws a progress bar instead of logging every frame.
type ProgressReporter struct {
	bar *progressbar.ProgressBar
}

// NewProgressReporter returns a progress bar for total frames written to w.
func NewProgressReporter(total int, w io.Writer) *ProgressReporter {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	)
	return &ProgressReporter{bar: bar}
}

func (r *ProgressReporter) Frame(index int, path string, _ time.Duration) {
	r.bar.Describe(filepath.Base(path))
	_ = r.bar.Add(1)
}

func (r *ProgressReporter) Finish() {
	_ = r.bar.Finish()
}
