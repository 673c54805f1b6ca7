package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/ironsmile/voronoi-frames/config"
	"github.com/ironsmile/voronoi-frames/gpu"
	"github.com/ironsmile/voronoi-frames/output"
	"github.com/ironsmile/voronoi-frames/points"
	"github.com/ironsmile/voronoi-frames/render"
	"github.com/ironsmile/voronoi-frames/shaders"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/closer"
)

func init() {
	// Vulkan objects are created and used from the main thread only.
	runtime.LockOSThread()

	flag.BoolVar(&args.debug, "debug", false, "Enable Vulkan validation layers and debug logs")
	flag.BoolVar(&args.progress, "progress", false, "Show a progress bar instead of a log line per frame")
	flag.StringVar(&args.config, "config", "", "Path to a YAML configuration file")
}

var args struct {
	debug    bool
	progress bool
	config   string
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if args.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(args.config)
	if err != nil {
		closer.Fatalln("ERROR:", err)
		return
	}

	app := &VoronoiApp{
		cfg:     cfg,
		logger:  logger,
		shaders: os.DirFS(cfg.ShaderDir),
	}
	if args.debug {
		app.validationLayers = []string{gpu.ValidationLayer}
	}

	closer.Bind(app.cleanupVulkan)
	defer closer.Close()

	if err := app.Run(); err != nil {
		closer.Fatalln("ERROR:", err)
		return
	}
}

// loadConfig reads the configuration at path. Without a path the defaults
// are used.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// VoronoiApp renders every frame of a Voronoi animation into PNG files.
type VoronoiApp struct {
	cfg     config.Config
	logger  *slog.Logger
	shaders fs.FS

	// validationLayers are enabled on the instance and the device when not
	// empty.
	validationLayers []string

	ctx      *gpu.Context
	points   *gpu.Buffer
	binding  *gpu.PointsBinding
	target   *gpu.RenderTarget
	readback *gpu.Readback
	draw     *gpu.DrawStage
	update   *gpu.UpdateStage
	writer   *output.Writer
}

// Run prepares the device and renders all frames.
func (a *VoronoiApp) Run() error {
	if err := a.initVulkan(); err != nil {
		return fmt.Errorf("initVulkan: %w", err)
	}

	if err := a.mainLoop(); err != nil {
		return fmt.Errorf("mainLoop: %w", err)
	}

	return nil
}

func (a *VoronoiApp) initVulkan() error {
	writer, err := output.NewWriter(a.cfg.OutputDir, int(a.cfg.Width), int(a.cfg.Height))
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	a.writer = writer

	if err := a.createContext(); err != nil {
		return fmt.Errorf("createContext: %w", err)
	}

	if err := a.createPointsBuffer(); err != nil {
		return fmt.Errorf("createPointsBuffer: %w", err)
	}

	if err := a.createRenderTarget(); err != nil {
		return fmt.Errorf("createRenderTarget: %w", err)
	}

	if err := a.createDrawStage(); err != nil {
		return fmt.Errorf("createDrawStage: %w", err)
	}

	if a.cfg.Animated() {
		if err := a.createUpdateStage(); err != nil {
			return fmt.Errorf("createUpdateStage: %w", err)
		}
	}

	return nil
}

func (a *VoronoiApp) cleanupVulkan() {
	if err := a.ctx.WaitIdle(); err != nil {
		a.logger.Warn("waiting for the device before cleanup", "error", err)
	}

	a.update.Destroy()
	a.draw.Destroy()
	a.readback.Destroy()
	a.target.Destroy()
	a.binding.Destroy()
	a.points.Destroy()
	a.ctx.Destroy()
}

func (a *VoronoiApp) createContext() error {
	ctx, err := gpu.NewContext(gpu.Options{
		ValidationLayers: a.validationLayers,
		Compute:          a.cfg.Animated(),
		Samples:          a.cfg.Samples,
		Logger:           a.logger,
	})
	if err != nil {
		return err
	}
	a.ctx = ctx

	return nil
}

func (a *VoronoiApp) createPointsBuffer() error {
	source := points.NewSource(a.cfg.Seed)
	usage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	n := int(a.cfg.Points)

	var err error
	if a.cfg.Animated() {
		a.points, err = gpu.Upload(a.ctx, usage, source.Generate(n, a.cfg.Aspect()))
	} else {
		a.points, err = gpu.Upload(a.ctx, usage, source.GenerateStatic(n, a.cfg.Aspect()))
	}
	if err != nil {
		return err
	}

	a.logger.Debug("Uploaded points", "count", a.points.Len, "bytes", a.points.Size)

	binding, err := gpu.NewPointsBinding(a.ctx, a.points)
	if err != nil {
		return err
	}
	a.binding = binding

	return nil
}

func (a *VoronoiApp) createRenderTarget() error {
	extent := vk.Extent2D{
		Width:  a.cfg.Width,
		Height: a.cfg.Height,
	}

	target, err := gpu.NewRenderTarget(a.ctx, extent)
	if err != nil {
		return err
	}
	a.target = target

	readback, err := gpu.NewReadback(a.ctx, a.cfg.FrameSize())
	if err != nil {
		return err
	}
	a.readback = readback

	return nil
}

func (a *VoronoiApp) createDrawStage() error {
	vertShaderCode, err := shaders.Load(a.shaders, shaders.Vertex)
	if err != nil {
		return err
	}

	fragment := shaders.Fragment
	if !a.cfg.Animated() {
		fragment = shaders.FragmentStatic
	}

	fragShaderCode, err := shaders.Load(a.shaders, fragment)
	if err != nil {
		return err
	}

	a.logger.Debug("Loaded shaders",
		"vertex_words", len(vertShaderCode),
		"fragment", fragment,
		"fragment_words", len(fragShaderCode),
	)

	draw, err := gpu.NewDrawStage(a.ctx, a.target, a.binding, a.readback,
		vertShaderCode, fragShaderCode)
	if err != nil {
		return err
	}
	a.draw = draw

	return nil
}

func (a *VoronoiApp) createUpdateStage() error {
	compShaderCode, err := shaders.Load(a.shaders, shaders.Update)
	if err != nil {
		return err
	}

	update, err := gpu.NewUpdateStage(a.ctx, a.binding, a.points, compShaderCode)
	if err != nil {
		return err
	}
	a.update = update

	return nil
}

func (a *VoronoiApp) mainLoop() error {
	stages := render.Stages{
		Draw:     a.draw,
		Readback: a.readback,
		Writer:   a.writer,
	}
	if a.update != nil {
		stages.Update = a.update
	}

	var clock render.Clock = render.NewWallClock()
	if a.cfg.Clock == config.ClockFixed {
		clock = render.FixedClock{Step: a.cfg.DeltaTime()}
	}

	var reporter render.Reporter = render.LogReporter{Logger: a.logger}
	if args.progress {
		reporter = render.NewProgressReporter(a.cfg.Frames, os.Stderr)
	}

	orchestrator := render.New(
		render.Settings{
			Frames:      a.cfg.Frames,
			Width:       a.cfg.Width,
			Height:      a.cfg.Height,
			DeltaTime:   a.cfg.DeltaTime(),
			PointsNum:   a.cfg.Points,
			PointsSpeed: a.cfg.Speed,
		},
		stages,
		render.WithClock(clock),
		render.WithReporter(reporter),
	)

	a.logger.Info("Rendering",
		"frames", a.cfg.Frames,
		"width", a.cfg.Width,
		"height", a.cfg.Height,
		"variant", a.cfg.Variant,
		"output", a.cfg.OutputDir,
		"device", a.ctx.DeviceName(),
		"type", gpu.DeviceTypeName(a.ctx.DeviceType()),
	)

	return orchestrator.Run()
}
