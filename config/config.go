// Package config describes the parameters of a rendering run. The defaults
// reproduce a ten second 1080p animation at 60 frames per second.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Variants of the renderer.
const (
	// VariantAnimated moves the points with the compute update stage.
	VariantAnimated = "animated"

	// VariantStatic draws points which never move and uses the padded
	// StaticPoint layout.
	VariantStatic = "static"
)

// Clocks which drive the time frame parameter.
const (
	// ClockWall uses the wall-clock time elapsed since the first frame.
	ClockWall = "wall"

	// ClockFixed advances time by exactly one delta per frame.
	ClockFixed = "fixed"
)

// ErrInvalid is returned for configurations which cannot be rendered.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything which stays fixed for a run.
type Config struct {
	Width     uint32  `yaml:"width"`
	Height    uint32  `yaml:"height"`
	Frames    int     `yaml:"frames"`
	FrameRate float32 `yaml:"framerate"`
	Points    uint32  `yaml:"points"`
	Speed     float32 `yaml:"speed"`
	Samples   int     `yaml:"samples"`

	Variant string `yaml:"variant"`
	Clock   string `yaml:"clock"`
	Seed    uint64 `yaml:"seed"`

	OutputDir string `yaml:"output_dir"`
	ShaderDir string `yaml:"shader_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Width:     1920,
		Height:    1080,
		Frames:    60 * 10,
		FrameRate: 60,
		Points:    30,
		Speed:     0.5,
		Samples:   8,
		Variant:   VariantAnimated,
		Clock:     ClockWall,
		OutputDir: "output",
		ShaderDir: "shaders",
	}
}

// Load reads a YAML file on top of the defaults. Keys which are not present in
// the file keep their default values and unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML data on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decoding yaml")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a renderable run.
func (c Config) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return errors.Wrapf(ErrInvalid, "resolution %dx%d", c.Width, c.Height)
	case c.Frames < 0:
		return errors.Wrapf(ErrInvalid, "negative frame count %d", c.Frames)
	case c.FrameRate <= 0:
		return errors.Wrapf(ErrInvalid, "frame rate %v", c.FrameRate)
	case c.Points == 0:
		return errors.Wrap(ErrInvalid, "at least one point is needed")
	case c.Samples < 2 || c.Samples > 64 || c.Samples&(c.Samples-1) != 0:
		return errors.Wrapf(ErrInvalid, "sample count %d is not a power of two between 2 and 64", c.Samples)
	case c.Variant != VariantAnimated && c.Variant != VariantStatic:
		return errors.Wrapf(ErrInvalid, "unknown variant %q", c.Variant)
	case c.Clock != ClockWall && c.Clock != ClockFixed:
		return errors.Wrapf(ErrInvalid, "unknown clock %q", c.Clock)
	case c.OutputDir == "":
		return errors.Wrap(ErrInvalid, "empty output directory")
	}

	return nil
}

// Animated returns true when the update stage moves the points.
func (c Config) Animated() bool {
	return c.Variant == VariantAnimated
}

// DeltaTime is the simulated time between two frames in seconds.
func (c Config) DeltaTime() float32 {
	return 1 / c.FrameRate
}

// Aspect is the width to height ratio of the output.
func (c Config) Aspect() float32 {
	return float32(c.Width) / float32(c.Height)
}

// FrameSize is the number of bytes in one RGBA8 frame.
func (c Config) FrameSize() int {
	return int(c.Width) * int(c.Height) * 4
}
