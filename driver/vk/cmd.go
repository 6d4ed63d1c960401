// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
)

// cmdBuffer implements driver.CmdBuffer.
// It records into a primary command buffer allocated from
// the device's shared pool.
type cmdBuffer struct {
	d  *Device
	cb vk.CommandBuffer
}

// NewCmdBuffer creates a new command buffer.
func (d *Device) NewCmdBuffer() (driver.CmdBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.cpool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := checkResult(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return nil, err
	}
	return &cmdBuffer{d: d, cb: cbs[0]}, nil
}

// Begin prepares the command buffer for recording.
func (c *cmdBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return checkResult(vk.BeginCommandBuffer(c.cb, &info))
}

// BeginPass begins rendering to the swapchain image
// identified by index.
func (c *cmdBuffer) BeginPass(sc driver.Swapchain, index int, clear [4]float32) {
	s := sc.(*swapchain)
	var cv vk.ClearValue
	cv.SetColor(clear[:])
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  c.d.rpass,
		Framebuffer: s.fbs[index],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{
				Width:  uint32(s.width),
				Height: uint32(s.height),
			},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{cv},
	}
	vk.CmdBeginRenderPass(c.cb, &info, vk.SubpassContentsInline)
}

// SetViewport sets the dynamic viewport.
func (c *cmdBuffer) SetViewport(width, height int) {
	vp := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(c.cb, 0, 1, []vk.Viewport{vp})
}

// SetScissor sets the dynamic scissor rectangle.
func (c *cmdBuffer) SetScissor(width, height int) {
	sc := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{
			Width:  uint32(width),
			Height: uint32(height),
		},
	}
	vk.CmdSetScissor(c.cb, 0, 1, []vk.Rect2D{sc})
}

// SetPipeline sets the graphics pipeline.
func (c *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	vk.CmdBindPipeline(c.cb, vk.PipelineBindPointGraphics, pl.(*pipeline).pl)
}

// SetUniforms binds buf's descriptor set for reading in
// the vertex stage.
func (c *cmdBuffer) SetUniforms(buf driver.Buffer) {
	b := buf.(*buffer)
	vk.CmdBindDescriptorSets(c.cb, vk.PipelineBindPointGraphics,
		c.d.playout, 0, 1, []vk.DescriptorSet{b.dset}, 0, nil)
}

// SetVertexBuf sets the vertex buffer.
func (c *cmdBuffer) SetVertexBuf(buf driver.Buffer, off int64) {
	vk.CmdBindVertexBuffers(c.cb, 0, 1,
		[]vk.Buffer{buf.(*buffer).buf},
		[]vk.DeviceSize{vk.DeviceSize(off)})
}

// SetTransform sets the per-draw model matrix.
func (c *cmdBuffer) SetTransform(m [16]float32) {
	vk.CmdPushConstants(c.cb, c.d.playout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, 64, unsafe.Pointer(&m[0]))
}

// Draw draws vertCount vertices.
func (c *cmdBuffer) Draw(vertCount int) {
	vk.CmdDraw(c.cb, uint32(vertCount), 1, 0, 0)
}

// EndPass ends the current render pass.
func (c *cmdBuffer) EndPass() {
	vk.CmdEndRenderPass(c.cb)
}

// End ends command recording.
func (c *cmdBuffer) End() error {
	return checkResult(vk.EndCommandBuffer(c.cb))
}

// Reset discards all recorded commands.
func (c *cmdBuffer) Reset() error {
	return checkResult(vk.ResetCommandBuffer(c.cb, 0))
}

// Destroy releases the command buffer.
func (c *cmdBuffer) Destroy() {
	if c == nil {
		return
	}
	if c.cb != nil {
		vk.FreeCommandBuffers(c.d.dev, c.d.cpool, 1, []vk.CommandBuffer{c.cb})
	}
	*c = cmdBuffer{}
}
