package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// VulkanBackend owns the instance, the window surface and the debug callback.
// It is the hal.Backend the renderer frontend selects adapters through.
type VulkanBackend struct {
	context *VulkanContext
	window  *glfw.Window
	debug   bool
}

// NewBackend initializes the loader, creates the instance and binds the
// window surface. The window must already exist; glfw hands out the surface
// extensions the instance has to carry.
func NewBackend(appName string, window *glfw.Window, debug bool) (*VulkanBackend, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogError("GetInstanceProcAddress is nil")
		return nil, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, err
	}

	backend := &VulkanBackend{
		context: &VulkanContext{
			// TODO: custom allocator.
			Allocator:          nil,
			GraphicsQueueIndex: -1,
			PresentQueueIndex:  -1,
		},
		window: window,
		debug:  debug,
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Aquila Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, window.GetRequiredInstanceExtensions()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredLayers := []string{}
	if debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return nil, fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return nil, fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res))
		}

		for i := range requiredLayers {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				if requiredLayers[i] == vk.ToString(availableLayers[j].LayerName[:]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", requiredLayers[i])
				core.LogError(err.Error())
				return nil, err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, backend.context.Allocator, &backend.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if err := vk.InitInstance(backend.context.Instance); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	if debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(backend.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return nil, err
		}
		backend.context.DebugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	surface, err := window.CreateWindowSurface(backend.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return nil, err
	}
	backend.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	return backend, nil
}

// EnumerateAdapters lists the physical devices in driver order.
func (vb *VulkanBackend) EnumerateAdapters() ([]hal.Adapter, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(vb.context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate physical devices with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		core.LogWarn("No devices which support Vulkan were found.")
		return nil, nil
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(vb.context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate physical devices with %s", VulkanResultString(res))
	}

	adapters := make([]hal.Adapter, 0, physicalDeviceCount)
	for i := 0; i < int(physicalDeviceCount); i++ {
		adapters = append(adapters, newAdapter(vb.context, physicalDevices[i]))
	}
	return adapters, nil
}

// CreateDevice turns the chosen adapter into the logical device the rest of
// the pipeline runs on.
func (vb *VulkanBackend) CreateDevice(adapter hal.Adapter) (hal.Device, error) {
	va, ok := adapter.(*VulkanAdapter)
	if !ok {
		return nil, fmt.Errorf("adapter does not belong to this backend")
	}
	return newDevice(vb.context, va)
}

func (vb *VulkanBackend) Shutdown() error {
	if vb.context.Surface != vk.NullSurface {
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}
	if vb.debug && vb.context.DebugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.DebugCallback, nil)
		vb.context.DebugCallback = vk.NullDebugReportCallback
	}
	if vb.context.Instance != nil {
		vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
		vb.context.Instance = nil
	}
	core.LogInfo("Vulkan backend shut down.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64,
	location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
