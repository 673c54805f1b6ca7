// Package gpu owns everything which talks to Vulkan: the device context,
// buffers and images, the render target and the two per-frame stages.
//
// Every submission in this package is followed by a blocking wait on the
// single fence owned by the Context. There is never more than one piece of
// work in flight.
package gpu

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ironsmile/voronoi-frames/queues"

	vk "github.com/vulkan-go/vulkan"
)

const applicationName = "voronoi-frames"

// ValidationLayer is the Khronos validation layer enabled in debug mode.
const ValidationLayer = "VK_LAYER_KHRONOS_validation\x00"

var (
	loaderOnce sync.Once
	loaderErr  error
)

// initLoader finds the Vulkan loader library. It is safe to call it many
// times.
func initLoader() error {
	loaderOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loaderErr = errors.Mark(errors.Wrap(err, "finding the Vulkan library"), ErrDevice)
			return
		}
		if err := vk.Init(); err != nil {
			loaderErr = errors.Mark(errors.Wrap(err, "loading Vulkan"), ErrDevice)
		}
	})
	return loaderErr
}

// Options control the creation of a Context.
type Options struct {
	// ValidationLayers are instance and device layers which will be enabled.
	// Every name must be NUL terminated. When one of them is not available
	// NewContext fails.
	ValidationLayers []string

	// DeviceExtensions must all be supported by the selected device. Every
	// name must be NUL terminated.
	DeviceExtensions []string

	// Compute requires the queue to support compute work as well.
	Compute bool

	// Samples is the number of color samples the device must support for
	// framebuffers. It must be a power of two between 2 and 64. Zero means
	// DefaultSamples.
	Samples int

	Logger *slog.Logger
}

// DefaultSamples is used when Options.Samples is zero.
const DefaultSamples = 8

// Context is the single owner of the Vulkan instance, the logical device, its
// only queue, a command pool and the fence which guards every submission.
type Context struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	commandPool    vk.CommandPool
	fence          vk.Fence

	memoryTypes []vk.MemoryPropertyFlags
	name        string
	deviceType  vk.PhysicalDeviceType
	samples     vk.SampleCountFlagBits
	extensions  []string

	opts   Options
	logger *slog.Logger
}

// NewContext selects a physical device and creates everything needed for
// submitting work to it. On error all partially created objects are
// destroyed.
func NewContext(opts Options) (*Context, error) {
	if opts.Samples == 0 {
		opts.Samples = DefaultSamples
	}
	if !validSamples(opts.Samples) {
		return nil, markf(ErrDevice,
			"%d samples: a multisampled target needs a power of two between 2 and 64",
			opts.Samples)
	}

	if err := initLoader(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Context{
		instance:       vk.Instance(vk.NullHandle),
		physicalDevice: vk.PhysicalDevice(vk.NullHandle),
		device:         vk.Device(vk.NullHandle),
		commandPool:    vk.NullCommandPool,
		fence:          vk.NullFence,
		samples:        vk.SampleCountFlagBits(opts.Samples),
		opts:           opts,
		logger:         opts.Logger,
	}

	steps := []func() error{
		c.createInstance,
		c.pickPhysicalDevice,
		c.createLogicalDevice,
		c.createCommandPool,
		c.createFence,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			c.Destroy()
			return nil, err
		}
	}

	return c, nil
}

// DeviceName returns the name of the selected physical device.
func (c *Context) DeviceName() string {
	return c.name
}

// DeviceType returns the type of the selected physical device.
func (c *Context) DeviceType() vk.PhysicalDeviceType {
	return c.deviceType
}

// Samples returns the sample count used for multisampled render targets.
func (c *Context) Samples() vk.SampleCountFlagBits {
	return c.samples
}

// WaitIdle blocks until the device has finished all of its work.
func (c *Context) WaitIdle() error {
	if c == nil || c.device == vk.Device(vk.NullHandle) {
		return nil
	}
	return check(vk.DeviceWaitIdle(c.device), ErrSubmission, "waiting for device idle")
}

// Destroy releases the fence, the command pool, the device and the instance.
// Objects created from this context must be destroyed before that.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	if c.device != vk.Device(vk.NullHandle) {
		if c.fence != vk.NullFence {
			vk.DestroyFence(c.device, c.fence, nil)
			c.fence = vk.NullFence
		}
		if c.commandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(c.device, c.commandPool, nil)
			c.commandPool = vk.NullCommandPool
		}
		vk.DestroyDevice(c.device, nil)
		c.device = vk.Device(vk.NullHandle)
	}

	if c.instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(c.instance, nil)
		c.instance = vk.Instance(vk.NullHandle)
	}
}

func (c *Context) createInstance() error {
	if len(c.opts.ValidationLayers) > 0 && !c.checkValidationSupport() {
		return markf(ErrDevice, "validation layers requested but not available")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   applicationName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	available, err := availableInstanceExtensions()
	if err != nil {
		return err
	}
	extensions, flags := instanceExtensions(available)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   flags,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	if len(c.opts.ValidationLayers) > 0 {
		createInfo.EnabledLayerCount = uint32(len(c.opts.ValidationLayers))
		createInfo.PpEnabledLayerNames = c.opts.ValidationLayers
	}

	var instance vk.Instance
	res := vk.CreateInstance(&createInfo, nil, &instance)
	if err := check(res, ErrDevice, "creating Vulkan instance"); err != nil {
		return err
	}
	c.instance = instance

	if err := vk.InitInstance(instance); err != nil {
		return errors.Mark(errors.Wrap(err, "loading instance functions"), ErrDevice)
	}

	return nil
}

func (c *Context) checkValidationSupport() bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, count)

	if vk.EnumerateInstanceLayerProperties(&count, availableLayers) != vk.Success {
		return false
	}

	available := make(map[string]struct{}, count)
	for _, layer := range availableLayers {
		layer.Deref()
		available[vk.ToString(layer.LayerName[:])+"\x00"] = struct{}{}
	}

	for _, validationLayer := range c.opts.ValidationLayers {
		if _, ok := available[validationLayer]; !ok {
			return false
		}
	}

	return true
}

func (c *Context) pickPhysicalDevice() error {
	var deviceCount uint32
	res := vk.EnumeratePhysicalDevices(c.instance, &deviceCount, nil)
	if err := check(res, ErrDevice, "getting the number of physical devices"); err != nil {
		return err
	}
	if deviceCount == 0 {
		return markf(ErrDevice, "failed to find GPUs with Vulkan support")
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	res = vk.EnumeratePhysicalDevices(c.instance, &deviceCount, devices)
	if err := check(res, ErrDevice, "enumerating the physical devices"); err != nil {
		return err
	}

	candidates := make([]deviceCandidate, 0, len(devices))
	for _, device := range devices {
		candidate := c.describeDevice(device)
		c.logger.Debug("Available device",
			"name", candidate.name,
			"type", DeviceTypeName(candidate.deviceType),
			"suitable", candidate.suitable(),
		)
		candidates = append(candidates, candidate)
	}

	selected, err := pickDevice(candidates)
	if err != nil {
		return err
	}

	c.physicalDevice = selected.device
	c.queueFamily = selected.queues.Graphics.Get()
	c.name = selected.name
	c.deviceType = selected.deviceType
	c.memoryTypes = memoryTypes(selected.device)
	c.extensions = selected.extensions

	c.logger.Info("Using device",
		"name", c.name,
		"type", DeviceTypeName(c.deviceType),
	)
	return nil
}

// describeDevice collects everything pickDevice needs to know about device.
func (c *Context) describeDevice(device vk.PhysicalDevice) deviceCandidate {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	sampleCounts := properties.Limits.FramebufferColorSampleCounts

	available, err := availableDeviceExtensions(device)
	if err != nil {
		c.logger.Warn("listing device extensions", "error", err)
		available = extensionSet{}
	}

	return deviceCandidate{
		device:              device,
		name:                vk.ToString(properties.DeviceName[:]),
		deviceType:          properties.DeviceType,
		queues:              queues.Find(queueFamilies(device), queues.Required(c.opts.Compute)),
		extensionsSupported: available.hasAll(c.opts.DeviceExtensions),
		extensions:          deviceExtensions(c.opts.DeviceExtensions, available),
		sampleRateShading:   features.SampleRateShading == vk.True,
		samplesSupported:    sampleCounts&vk.SampleCountFlags(c.samples) != 0,
	}
}

func queueFamilies(device vk.PhysicalDevice) []vk.QueueFlags {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)

	properties := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, properties)

	flags := make([]vk.QueueFlags, 0, queueFamilyCount)
	for _, family := range properties {
		family.Deref()
		flags = append(flags, family.QueueFlags)
	}
	return flags
}

func (c *Context) createLogicalDevice() error {
	queueCreateInfos := []vk.DeviceQueueCreateInfo{
		{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: c.queueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		},
	}

	deviceFeatures := []vk.PhysicalDeviceFeatures{{
		SampleRateShading: vk.True,
	}}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: deviceFeatures,

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(c.extensions)),
		PpEnabledExtensionNames: c.extensions,
	}

	if len(c.opts.ValidationLayers) > 0 {
		createInfo.PpEnabledLayerNames = c.opts.ValidationLayers
		createInfo.EnabledLayerCount = uint32(len(c.opts.ValidationLayers))
	}

	var device vk.Device
	res := vk.CreateDevice(c.physicalDevice, &createInfo, nil, &device)
	if err := check(res, ErrDevice, "creating logical device"); err != nil {
		return err
	}
	c.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(c.device, c.queueFamily, 0, &queue)
	c.queue = queue

	return nil
}

func (c *Context) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateTransientBit,
		),
		QueueFamilyIndex: c.queueFamily,
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(c.device, &poolInfo, nil, &commandPool)
	if err := check(res, ErrResource, "creating command pool"); err != nil {
		return err
	}
	c.commandPool = commandPool

	return nil
}

func (c *Context) createFence() error {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}

	var fence vk.Fence
	res := vk.CreateFence(c.device, &fenceInfo, nil, &fence)
	if err := check(res, ErrResource, "creating fence"); err != nil {
		return err
	}
	c.fence = fence

	return nil
}

// validSamples reports whether n samples can feed a resolve attachment.
func validSamples(n int) bool {
	return n >= 2 && n <= 64 && n&(n-1) == 0
}
