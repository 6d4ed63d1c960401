// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"log"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
)

// swapchain implements driver.Swapchain.
type swapchain struct {
	d      *Device
	sc     vk.Swapchain
	views  []vk.ImageView
	fbs    []vk.Framebuffer
	width  int
	height int
}

// NewSwapchain creates the swapchain and its render targets.
// The surface format chosen here also fixes the render pass
// format for the rest of the session.
func (d *Device) NewSwapchain(width, height int) (driver.Swapchain, error) {
	if d.sc != nil {
		return nil, driver.ErrCannotPresent
	}
	format, space, err := d.chooseFormat()
	if err != nil {
		return nil, err
	}
	d.scFmt, d.scSpace = format, space
	if d.rpass == vk.NullRenderPass {
		if err := d.initRenderPass(); err != nil {
			return nil, err
		}
	}
	s := &swapchain{d: d}
	if err := s.create(format, space, width, height); err != nil {
		return nil, err
	}
	d.sc = s
	return s, nil
}

// chooseFormat selects the surface format.
// An 8-bit BGRA format with non-linear sRGB color space is
// preferred; otherwise the first reported format is used.
func (d *Device) chooseFormat() (vk.Format, vk.ColorSpace, error) {
	var n uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.surf, &n, nil)); err != nil {
		return 0, 0, err
	}
	if n == 0 {
		return 0, 0, driver.ErrCannotPresent
	}
	formats := make([]vk.SurfaceFormat, n)
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.surf, &n, formats)); err != nil {
		return 0, 0, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f.Format, f.ColorSpace, nil
		}
	}
	return formats[0].Format, formats[0].ColorSpace, nil
}

// choosePresentMode selects the presentation mode.
// Mailbox is preferred for its low latency; FIFO is the
// fallback since support for it is mandatory.
func (d *Device) choosePresentMode() vk.PresentMode {
	var n uint32
	vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.surf, &n, nil)
	modes := make([]vk.PresentMode, n)
	vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.surf, &n, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseAlpha selects the composite alpha mode from the
// supported set.
func chooseAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	prefs := [4]vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaInheritBit,
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaPreMultipliedBit,
	}
	for _, p := range prefs {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(p) != 0 {
			return p
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// create creates the swapchain, its image views and
// framebuffers against the current surface capabilities.
func (s *swapchain) create(format vk.Format, space vk.ColorSpace, width, height int) error {
	d := s.d
	var caps vk.SurfaceCapabilities
	if err := checkResult(vk.GetPhysicalDeviceSurfaceCapabilities(d.pdev, d.surf, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	extent := caps.CurrentExtent
	if extent.Width == ^uint32(0) {
		// The surface lets the swapchain decide.
		extent.Width = clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}
	if extent.Width == 0 || extent.Height == 0 {
		return driver.ErrWindow
	}

	imgCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imgCount > caps.MaxImageCount {
		imgCount = caps.MaxImageCount
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surf,
		MinImageCount:    imgCount,
		ImageFormat:      format,
		ImageColorSpace:  space,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   chooseAlpha(caps),
		PresentMode:      d.choosePresentMode(),
		Clipped:          vk.True,
	}
	if d.gfam != d.pfam {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.gfam, d.pfam}
	} else {
		info.ImageSharingMode = vk.SharingModeExclusive
	}
	var sc vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(d.dev, &info, nil, &sc)); err != nil {
		return err
	}
	s.sc = sc
	s.width = int(extent.Width)
	s.height = int(extent.Height)

	var n uint32
	vk.GetSwapchainImages(d.dev, s.sc, &n, nil)
	images := make([]vk.Image, n)
	vk.GetSwapchainImages(d.dev, s.sc, &n, images)

	s.views = make([]vk.ImageView, 0, n)
	s.fbs = make([]vk.Framebuffer, 0, n)
	for _, img := range images {
		vinfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := checkResult(vk.CreateImageView(d.dev, &vinfo, nil, &view)); err != nil {
			s.release()
			return err
		}
		s.views = append(s.views, view)

		finfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      d.rpass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}
		var fb vk.Framebuffer
		if err := checkResult(vk.CreateFramebuffer(d.dev, &finfo, nil, &fb)); err != nil {
			s.release()
			return err
		}
		s.fbs = append(s.fbs, fb)
	}
	log.Printf("vk: swapchain %dx%d, %d images", s.width, s.height, len(s.fbs))
	return nil
}

func clamp(x, min, max uint32) uint32 {
	switch {
	case x < min:
		return min
	case x > max:
		return max
	}
	return x
}

// Next acquires the next swapchain image.
func (s *swapchain) Next(signal driver.Semaphore) (int, error) {
	var index uint32
	res := vk.AcquireNextImage(s.d.dev, s.sc, vk.MaxUint64,
		signal.(*semaphore).sem, vk.NullFence, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
		// A suboptimal acquire still succeeds; the image
		// must be presented before the recreation.
		return int(index), nil
	}
	return 0, checkResult(res)
}

// Present presents the image identified by index.
func (s *swapchain) Present(index int, wait driver.Semaphore) error {
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{s.sc},
		PImageIndices:  []uint32{uint32(index)},
	}
	if wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{wait.(*semaphore).sem}
	}
	res := vk.QueuePresent(s.d.pque, &info)
	if res == vk.Suboptimal {
		return driver.ErrSuboptimal
	}
	return checkResult(res)
}

// Recreate recreates the swapchain against the current
// surface capabilities, keeping the original format. The
// color space is re-queried for that format, since the
// advertised list may have changed with the surface.
// The caller must ensure the device is idle beforehand.
func (s *swapchain) Recreate(width, height int) error {
	d := s.d
	s.release()
	space := d.scSpace
	var n uint32
	if checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.surf, &n, nil)) == nil && n > 0 {
		formats := make([]vk.SurfaceFormat, n)
		if checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.surf, &n, formats)) == nil {
			for i := range formats {
				formats[i].Deref()
			}
			space = pickColorSpace(formats, d.scFmt, d.scSpace)
		}
	}
	return s.create(d.scFmt, space, width, height)
}

// pickColorSpace returns the color space advertised for
// format, or fallback when format is no longer in the
// advertised list.
func pickColorSpace(formats []vk.SurfaceFormat, format vk.Format, fallback vk.ColorSpace) vk.ColorSpace {
	for _, f := range formats {
		if f.Format == format {
			return f.ColorSpace
		}
	}
	return fallback
}

// Extent returns the current image extent.
func (s *swapchain) Extent() (width, height int) { return s.width, s.height }

// ImageCount returns the number of swapchain images.
func (s *swapchain) ImageCount() int { return len(s.fbs) }

// release destroys the swapchain and its render targets,
// keeping s reusable by create.
func (s *swapchain) release() {
	d := s.d
	for _, fb := range s.fbs {
		vk.DestroyFramebuffer(d.dev, fb, nil)
	}
	for _, view := range s.views {
		vk.DestroyImageView(d.dev, view, nil)
	}
	s.fbs = nil
	s.views = nil
	if s.sc != vk.NullSwapchain {
		vk.DestroySwapchain(d.dev, s.sc, nil)
		s.sc = vk.NullSwapchain
	}
}

// Destroy releases the swapchain.
func (s *swapchain) Destroy() {
	if s == nil {
		return
	}
	s.release()
	if s.d != nil && s.d.sc == s {
		s.d.sc = nil
	}
	*s = swapchain{}
}
