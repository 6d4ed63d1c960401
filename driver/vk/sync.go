// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"time"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
)

// fence implements driver.Fence.
type fence struct {
	d     *Device
	fence vk.Fence
}

// NewFence creates a new fence.
func (d *Device) NewFence(signaled bool) (driver.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := checkResult(vk.CreateFence(d.dev, &info, nil, &f)); err != nil {
		return nil, err
	}
	return &fence{d: d, fence: f}, nil
}

// Wait blocks until the fence is signaled or timeout
// elapses.
func (f *fence) Wait(timeout time.Duration) error {
	res := vk.WaitForFences(f.d.dev, 1, []vk.Fence{f.fence},
		vk.True, uint64(timeout.Nanoseconds()))
	if res == vk.Timeout {
		return driver.ErrTimeout
	}
	return checkResult(res)
}

// Reset returns the fence to the unsignaled state.
func (f *fence) Reset() error {
	return checkResult(vk.ResetFences(f.d.dev, 1, []vk.Fence{f.fence}))
}

// Destroy releases the fence.
func (f *fence) Destroy() {
	if f == nil {
		return
	}
	if f.fence != vk.NullFence {
		vk.DestroyFence(f.d.dev, f.fence, nil)
	}
	*f = fence{}
}

// semaphore implements driver.Semaphore.
type semaphore struct {
	d   *Device
	sem vk.Semaphore
}

// NewSemaphore creates a new semaphore.
func (d *Device) NewSemaphore() (driver.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var s vk.Semaphore
	if err := checkResult(vk.CreateSemaphore(d.dev, &info, nil, &s)); err != nil {
		return nil, err
	}
	return &semaphore{d: d, sem: s}, nil
}

// Destroy releases the semaphore.
func (s *semaphore) Destroy() {
	if s == nil {
		return
	}
	if s.sem != vk.NullSemaphore {
		vk.DestroySemaphore(s.d.dev, s.sem, nil)
	}
	*s = semaphore{}
}
