package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

const (
	portabilityEnumerationExtension    = "VK_KHR_portability_enumeration\x00"
	physicalDeviceProperties2Extension = "VK_KHR_get_physical_device_properties2\x00"
	portabilitySubsetExtension         = "VK_KHR_portability_subset\x00"

	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR is newer than the
	// bindings.
	instanceCreateEnumeratePortability = vk.InstanceCreateFlags(0x00000001)
)

// extensionSet holds NUL terminated extension names.
type extensionSet map[string]struct{}

func (s extensionSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s extensionSet) hasAll(names []string) bool {
	for _, name := range names {
		if !s.has(name) {
			return false
		}
	}
	return true
}

// instanceExtensions returns the instance extensions and flags which make the
// loader list portability drivers such as MoltenVK as well. Both are empty
// when the loader does not know about them.
func instanceExtensions(available extensionSet) ([]string, vk.InstanceCreateFlags) {
	if !available.has(portabilityEnumerationExtension) {
		return nil, 0
	}

	extensions := []string{portabilityEnumerationExtension}
	if available.has(physicalDeviceProperties2Extension) {
		extensions = append(extensions, physicalDeviceProperties2Extension)
	}
	return extensions, instanceCreateEnumeratePortability
}

// deviceExtensions returns required plus the portability subset extension,
// which must be enabled on every device which has it.
func deviceExtensions(required []string, available extensionSet) []string {
	extensions := append([]string(nil), required...)
	if available.has(portabilitySubsetExtension) {
		extensions = append(extensions, portabilitySubsetExtension)
	}
	return extensions
}

func availableInstanceExtensions() (extensionSet, error) {
	var count uint32
	res := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if err := check(res, ErrDevice, "counting instance extensions"); err != nil {
		return nil, err
	}

	properties := make([]vk.ExtensionProperties, count)
	res = vk.EnumerateInstanceExtensionProperties("", &count, properties)
	if err := check(res, ErrDevice, "enumerating instance extensions"); err != nil {
		return nil, err
	}

	return extensionNames(properties), nil
}

func availableDeviceExtensions(device vk.PhysicalDevice) (extensionSet, error) {
	var count uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)
	if err := check(res, ErrDevice, "counting device extensions"); err != nil {
		return nil, err
	}

	properties := make([]vk.ExtensionProperties, count)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &count, properties)
	if err := check(res, ErrDevice, "enumerating device extensions"); err != nil {
		return nil, err
	}

	return extensionNames(properties), nil
}

func extensionNames(properties []vk.ExtensionProperties) extensionSet {
	names := make(extensionSet, len(properties))
	for _, extension := range properties {
		extension.Deref()
		names[vk.ToString(extension.ExtensionName[:])+"\x00"] = struct{}{}
	}
	return names
}
