// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
)

// buffer implements driver.Buffer.
// Its memory is host visible and coherent, mapped for the
// buffer's whole lifetime.
type buffer struct {
	d    *Device
	buf  vk.Buffer
	mem  vk.DeviceMemory
	p    []byte
	dset vk.DescriptorSet
}

// NewBuffer creates a new buffer.
func (d *Device) NewBuffer(size int64, usg driver.Usage) (driver.Buffer, error) {
	var usage vk.BufferUsageFlags
	if usg&driver.UVertexData != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usg&driver.UShaderConst != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := checkResult(vk.CreateBuffer(d.dev, &info, nil, &buf)); err != nil {
		return nil, err
	}
	b := &buffer{d: d, buf: buf}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &req)
	req.Deref()
	typ := d.selectMemory(req.MemoryTypeBits, vk.MemoryPropertyFlags(
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if typ < 0 {
		b.Destroy()
		return nil, driver.ErrNoDeviceMemory
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(typ),
	}
	if err := checkResult(vk.AllocateMemory(d.dev, &alloc, nil, &b.mem)); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := checkResult(vk.BindBufferMemory(d.dev, buf, b.mem, 0)); err != nil {
		b.Destroy()
		return nil, err
	}

	var p unsafe.Pointer
	if err := checkResult(vk.MapMemory(d.dev, b.mem, 0, vk.DeviceSize(size), 0, &p)); err != nil {
		b.Destroy()
		return nil, err
	}
	b.p = unsafe.Slice((*byte)(p), size)

	if usg&driver.UShaderConst != 0 {
		if err := b.initDescriptorSet(size); err != nil {
			b.Destroy()
			return nil, err
		}
	}
	return b, nil
}

// initDescriptorSet allocates and writes the descriptor
// set through which shaders read the buffer.
func (b *buffer) initDescriptorSet(size int64) error {
	d := b.d
	alloc := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.dpool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.dlayout},
	}
	if err := checkResult(vk.AllocateDescriptorSets(d.dev, &alloc, &b.dset)); err != nil {
		return err
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          b.dset,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.buf,
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// Bytes returns the mapped memory of the buffer.
func (b *buffer) Bytes() []byte { return b.p }

// Cap returns the capacity of the buffer.
func (b *buffer) Cap() int64 { return int64(len(b.p)) }

// Destroy releases the buffer.
func (b *buffer) Destroy() {
	if b == nil {
		return
	}
	d := b.d
	if b.dset != vk.NullDescriptorSet {
		vk.FreeDescriptorSets(d.dev, d.dpool, 1, &b.dset)
	}
	if b.mem != vk.NullDeviceMemory {
		if b.p != nil {
			vk.UnmapMemory(d.dev, b.mem)
		}
		vk.FreeMemory(d.dev, b.mem, nil)
	}
	if b.buf != vk.NullBuffer {
		vk.DestroyBuffer(d.dev, b.buf, nil)
	}
	*b = buffer{}
}
