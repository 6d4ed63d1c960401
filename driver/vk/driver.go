// Copyright 2025 The skyrender authors. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API.
package vk

import (
	"errors"
	"log"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
	"skyrender/wsi"
)

const driverName = "vulkan"

// Debug enables the validation layer and a debug callback
// that forwards validation messages to the log.
// It must be set before the driver is opened.
var Debug = false

const validationLayer = "VK_LAYER_KHRONOS_validation\x00"

// Driver implements driver.Driver.
type Driver struct {
	inst vk.Instance
	dbg  vk.DebugReportCallback
	dev  *Device
}

func init() {
	driver.Register(&Driver{})
}

// Open initializes the driver and returns its device.
func (d *Driver) Open(win wsi.Window) (driver.Device, error) {
	if d.dev != nil {
		return d.dev, nil
	}
	if err := vk.Init(); err != nil {
		d.Close()
		return nil, driver.ErrNotInstalled
	}
	if err := d.initInstance(win); err != nil {
		d.Close()
		return nil, err
	}
	dev := &Device{drv: d}
	if err := dev.initSurface(win); err != nil {
		d.Close()
		return nil, err
	}
	if err := dev.initDevice(); err != nil {
		dev.Destroy()
		d.Close()
		return nil, err
	}
	if err := dev.initLayouts(); err != nil {
		dev.Destroy()
		d.Close()
		return nil, err
	}
	d.dev = dev
	return dev, nil
}

// initInstance initializes the Vulkan instance.
func (d *Driver) initInstance(win wsi.Window) error {
	appInfo := vk.ApplicationInfo{
		SType:            vk.StructureTypeApplicationInfo,
		PApplicationName: "skyrender\x00",
		PEngineName:      "skyrender\x00",
		ApiVersion:       vk.ApiVersion10,
	}
	exts := make([]string, 0, 4)
	for _, e := range win.RequiredExtensions() {
		exts = append(exts, nullTerm(e))
	}
	var layers []string
	if Debug && hasValidationLayer() {
		layers = append(layers, validationLayer)
		exts = append(exts, "VK_EXT_debug_report\x00")
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}
	var inst vk.Instance
	if err := checkResult(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return err
	}
	d.inst = inst
	if err := vk.InitInstance(inst); err != nil {
		return errInitFailed
	}
	if len(layers) > 0 {
		d.initDebug()
	}
	return nil
}

// initDebug installs the debug callback.
// Failure is not fatal; validation output is best effort.
func (d *Driver) initDebug() {
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit |
			vk.DebugReportErrorBit),
		PfnCallback: debugCallback,
	}
	var dbg vk.DebugReportCallback
	if vk.CreateDebugReportCallback(d.inst, &info, nil, &dbg) != vk.Success {
		log.Print("[!] vk: could not install debug callback")
		return
	}
	d.dbg = dbg
}

func debugCallback(flags vk.DebugReportFlags, objType vk.DebugReportObjectType,
	object uint64, location uint, code int32, layer string, msg string,
	user unsafe.Pointer) vk.Bool32 {

	log.Printf("vk: [%s] %s", layer, msg)
	return vk.False
}

// hasValidationLayer returns whether the validation layer
// can be enabled on the instance.
func hasValidationLayer() bool {
	var n uint32
	vk.EnumerateInstanceLayerProperties(&n, nil)
	props := make([]vk.LayerProperties, n)
	vk.EnumerateInstanceLayerProperties(&n, props)
	for i := range props {
		props[i].Deref()
		name := vk.ToString(props[i].LayerName[:])
		props[i].Free()
		if name == trimNull(validationLayer) {
			return true
		}
	}
	return false
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// SetDebug toggles validation for the next Open call.
func (d *Driver) SetDebug(enable bool) { Debug = enable }

// Close deinitializes the driver.
// The device must have been destroyed already.
func (d *Driver) Close() {
	if d == nil {
		return
	}
	if d.inst != nil {
		if d.dbg != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(d.inst, d.dbg, nil)
		}
		vk.DestroyInstance(d.inst, nil)
	}
	*d = Driver{}
}

// checkResult converts a VkResult into one of the driver
// errors, or nil if the result is not an error.
func checkResult(res vk.Result) error {
	if res >= 0 {
		// Not an error: VK_ERROR_* values are all negative.
		return nil
	}
	switch res {
	case vk.ErrorOutOfHostMemory:
		return errNoHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return errNoDeviceMemory
	case vk.ErrorInitializationFailed:
		return errInitFailed
	case vk.ErrorDeviceLost:
		return errDeviceLost
	case vk.ErrorMemoryMapFailed:
		return errMMapFailed
	case vk.ErrorLayerNotPresent:
		return errNoLayer
	case vk.ErrorExtensionNotPresent:
		return errNoExtension
	case vk.ErrorFeatureNotPresent:
		return errNoFeature
	case vk.ErrorIncompatibleDriver:
		return errDriverCompat
	case vk.ErrorTooManyObjects:
		return errTooManyObjects
	case vk.ErrorFormatNotSupported:
		return errUnsupportedFormat
	case vk.ErrorSurfaceLost:
		return errSurfaceLost
	case vk.ErrorNativeWindowInUse:
		return errWindowInUse
	case vk.ErrorOutOfDate:
		return errOutOfDate
	case vk.ErrorIncompatibleDisplay:
		return errDisplayCompat
	}
	return errUnknown
}

// Common Vulkan errors (VK_ERROR_*).
var (
	errNoHostMemory      = driver.ErrNoHostMemory
	errNoDeviceMemory    = driver.ErrNoDeviceMemory
	errInitFailed        = errors.New("vk: initialization failed")
	errDeviceLost        = driver.ErrFatal
	errMMapFailed        = errors.New("vk: memory map failed")
	errNoLayer           = errors.New("vk: layer not present")
	errNoExtension       = errors.New("vk: extension not present")
	errNoFeature         = errors.New("vk: feature not present")
	errDriverCompat      = errors.New("vk: incompatible driver")
	errTooManyObjects    = errors.New("vk: too many objects")
	errUnsupportedFormat = errors.New("vk: format not supported")
	errSurfaceLost       = driver.ErrWindow
	errWindowInUse       = driver.ErrWindow
	errOutOfDate         = driver.ErrOutOfDate
	errDisplayCompat     = errors.New("vk: incompatible display")
	errUnknown           = errors.New("vk: unknown error")
)

// nullTerm appends the terminator that the C side expects,
// unless s already has one.
func nullTerm(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s
	}
	return s + "\x00"
}

// trimNull undoes nullTerm for comparisons on the Go side.
func trimNull(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\x00' {
		s = s[:len(s)-1]
	}
	return s
}
