// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"log"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
	"skyrender/wsi"
)

const deviceExtension = "VK_KHR_swapchain\x00"

// Device implements driver.Device.
type Device struct {
	drv   *Driver
	surf  vk.Surface
	pdev  vk.PhysicalDevice
	dname string
	gfam  uint32
	pfam  uint32
	dev   vk.Device
	gque  vk.Queue
	pque  vk.Queue
	mprop vk.PhysicalDeviceMemoryProperties

	// Objects shared by every pipeline. The render pass is
	// created alongside the first swapchain, since it needs
	// the surface format chosen there.
	dlayout vk.DescriptorSetLayout
	playout vk.PipelineLayout
	dpool   vk.DescriptorPool
	cpool   vk.CommandPool
	rpass   vk.RenderPass
	scFmt   vk.Format
	scSpace vk.ColorSpace
	sc      *swapchain
}

// initSurface creates the presentation surface for win.
func (d *Device) initSurface(win wsi.Window) error {
	ptr, err := win.CreateSurface(d.drv.inst)
	if err != nil {
		return driver.ErrWindow
	}
	d.surf = vk.SurfaceFromPointer(ptr)
	return nil
}

// initDevice selects a physical device and creates the
// logical device and its queues.
func (d *Device) initDevice() error {
	var n uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(d.drv.inst, &n, nil)); err != nil {
		return err
	}
	if n == 0 {
		return driver.ErrNoDevice
	}
	pdevs := make([]vk.PhysicalDevice, n)
	if err := checkResult(vk.EnumeratePhysicalDevices(d.drv.inst, &n, pdevs)); err != nil {
		return err
	}

	// Select the first device exposing a graphics queue
	// family, a present-capable queue family for the
	// surface and the swapchain extension.
	for _, pdev := range pdevs {
		gfam, pfam, ok := d.findQueueFamilies(pdev)
		if !ok || !hasDeviceExtension(pdev, deviceExtension) {
			continue
		}
		d.pdev = pdev
		d.gfam = gfam
		d.pfam = pfam
		break
	}
	if d.pdev == nil {
		return driver.ErrNoDevice
	}

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.pdev, &props)
	props.Deref()
	d.dname = vk.ToString(props.DeviceName[:])
	props.Free()
	log.Printf("vk: using device %q", d.dname)

	vk.GetPhysicalDeviceMemoryProperties(d.pdev, &d.mprop)
	d.mprop.Deref()

	prio := []float32{1}
	qinfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.gfam,
		QueueCount:       1,
		PQueuePriorities: prio,
	}}
	if d.pfam != d.gfam {
		qinfos = append(qinfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.pfam,
			QueueCount:       1,
			PQueuePriorities: prio,
		})
	}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(qinfos)),
		PQueueCreateInfos:       qinfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   1,
		PpEnabledExtensionNames: []string{deviceExtension},
	}
	var dev vk.Device
	if err := checkResult(vk.CreateDevice(d.pdev, &info, nil, &dev)); err != nil {
		return err
	}
	d.dev = dev
	vk.GetDeviceQueue(d.dev, d.gfam, 0, &d.gque)
	vk.GetDeviceQueue(d.dev, d.pfam, 0, &d.pque)
	return nil
}

// findQueueFamilies locates a graphics family and a family
// that can present to the device's surface.
func (d *Device) findQueueFamilies(pdev vk.PhysicalDevice) (gfam, pfam uint32, ok bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &n, nil)
	props := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &n, props)

	var hasG, hasP bool
	for i := range props {
		props[i].Deref()
		flags := props[i].QueueFlags
		props[i].Free()
		if !hasG && flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			gfam = uint32(i)
			hasG = true
		}
		var sup vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pdev, uint32(i), d.surf, &sup)
		if !hasP && sup == vk.True {
			pfam = uint32(i)
			hasP = true
		}
		if hasG && hasP {
			break
		}
	}
	return gfam, pfam, hasG && hasP
}

// hasDeviceExtension returns whether pdev exposes ext.
func hasDeviceExtension(pdev vk.PhysicalDevice, ext string) bool {
	var n uint32
	vk.EnumerateDeviceExtensionProperties(pdev, "", &n, nil)
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateDeviceExtensionProperties(pdev, "", &n, props)
	for i := range props {
		props[i].Deref()
		name := vk.ToString(props[i].ExtensionName[:])
		props[i].Free()
		if name == trimNull(ext) {
			return true
		}
	}
	return false
}

// Maximum number of constant buffers that can exist at
// a time. Each driver.Buffer created with UShaderConst
// takes one set from the descriptor pool.
const maxConstBuffers = 16

// initLayouts creates the descriptor set layout, the
// pipeline layout, the descriptor pool and the command
// pool. These do not depend on the swapchain.
func (d *Device) initLayouts() error {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}
	dinfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	if err := checkResult(vk.CreateDescriptorSetLayout(d.dev, &dinfo, nil, &d.dlayout)); err != nil {
		return err
	}

	rng := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       64,
	}
	pinfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{d.dlayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{rng},
	}
	if err := checkResult(vk.CreatePipelineLayout(d.dev, &pinfo, nil, &d.playout)); err != nil {
		return err
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxConstBuffers,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: maxConstBuffers,
		}},
	}
	if err := checkResult(vk.CreateDescriptorPool(d.dev, &poolInfo, nil, &d.dpool)); err != nil {
		return err
	}

	cinfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.gfam,
	}
	return checkResult(vk.CreateCommandPool(d.dev, &cinfo, nil, &d.cpool))
}

// Driver returns the driver that owns the device.
func (d *Device) Driver() driver.Driver { return d.drv }

// Name returns the name of the physical device in use.
func (d *Device) Name() string { return d.dname }

// Submit commits cb to the graphics queue.
func (d *Device) Submit(cb driver.CmdBuffer, wait, signal driver.Semaphore, fen driver.Fence) error {
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.(*cmdBuffer).cb},
	}
	if wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{wait.(*semaphore).sem}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if signal != nil {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{signal.(*semaphore).sem}
	}
	f := vk.NullFence
	if fen != nil {
		f = fen.(*fence).fence
	}
	return checkResult(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{info}, f))
}

// WaitIdle blocks until the device is idle.
func (d *Device) WaitIdle() error {
	return checkResult(vk.DeviceWaitIdle(d.dev))
}

// selectMemory selects a suitable memory type from the
// device. It returns the index of the selected memory,
// or -1 if none suffices.
func (d *Device) selectMemory(typeBits uint32, prop vk.MemoryPropertyFlags) int {
	for i := uint32(0); i < d.mprop.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		d.mprop.MemoryTypes[i].Deref()
		flags := d.mprop.MemoryTypes[i].PropertyFlags
		if flags&prop == prop {
			return int(i)
		}
	}
	return -1
}

// Destroy releases the device.
// Objects created from the device must have been
// destroyed already, the swapchain included.
func (d *Device) Destroy() {
	if d == nil {
		return
	}
	if d.dev != nil {
		vk.DeviceWaitIdle(d.dev)
		if d.rpass != vk.NullRenderPass {
			vk.DestroyRenderPass(d.dev, d.rpass, nil)
		}
		if d.cpool != vk.NullCommandPool {
			vk.DestroyCommandPool(d.dev, d.cpool, nil)
		}
		if d.dpool != vk.NullDescriptorPool {
			vk.DestroyDescriptorPool(d.dev, d.dpool, nil)
		}
		if d.playout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(d.dev, d.playout, nil)
		}
		if d.dlayout != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(d.dev, d.dlayout, nil)
		}
		vk.DestroyDevice(d.dev, nil)
	}
	if d.surf != vk.NullSurface {
		vk.DestroySurface(d.drv.inst, d.surf, nil)
	}
	if d.drv != nil {
		d.drv.dev = nil
	}
	*d = Device{}
}
