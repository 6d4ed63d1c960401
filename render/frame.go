// Copyright 2025 The skyrender authors. All rights reserved.

package render

import (
	"errors"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"skyrender/driver"
)

// Topology of a draw batch.
type Topology = driver.Topology

// Draw batch topologies.
const (
	Points    = driver.TPoint
	Lines     = driver.TLine
	Triangles = driver.TTriangle
)

// BeginFrame starts a new frame. It blocks until the
// frame slot's previous work completes, acquires a
// swapchain image and begins command recording.
// It returns false when the frame must be skipped: the
// surface went stale (recovery already ran), the fence
// wait timed out or recording failed. The frame counter
// does not advance in that case.
func (c *Context) BeginFrame() bool {
	if c.dev == nil || c.begun {
		return false
	}
	s := &c.slots[c.slot]
	if s.pending {
		if err := s.fence.Wait(fenceTimeout); err != nil {
			log.Printf("render: frame fence: %v", err)
			return false
		}
		s.pending = false
	}
	img, err := c.sc.Next(s.imgSem)
	if err != nil {
		if errors.Is(err, driver.ErrOutOfDate) {
			c.recover(c.width, c.height)
		} else {
			log.Printf("render: image acquire: %v", err)
		}
		return false
	}
	if err := s.cb.Reset(); err != nil {
		log.Printf("render: command buffer reset: %v", err)
		return false
	}
	if err := s.cb.Begin(); err != nil {
		log.Printf("render: command recording: %v", err)
		return false
	}
	s.cb.BeginPass(c.sc, img, c.cfg.ClearColor)
	s.cb.SetUniforms(c.ub)
	w, h := c.sc.Extent()
	s.cb.SetViewport(w, h)
	s.cb.SetScissor(w, h)
	c.arena.reset()
	c.img = img
	c.begun = true
	return true
}

// Draw records one draw batch: verts holds count vertices
// of seven interleaved floats (position xyz, color rgba).
// transform is the model matrix; nil means identity.
// The vertex data is copied during the call; verts is not
// retained.
// Draw is a no-op outside a BeginFrame/EndFrame pair. A
// batch that does not fit in the geometry buffer's
// remaining space is dropped, leaving prior batches and
// the frame intact.
func (c *Context) Draw(topo Topology, verts []float32, count int, transform *mgl32.Mat4) {
	if !c.begun {
		return
	}
	if count <= 0 || len(verts) < count*(vertexStride/4) {
		return
	}
	if topo < driver.TPoint || topo > driver.TTriangle {
		return
	}
	size := int64(count) * vertexStride
	off, ok := c.arena.alloc(size)
	if !ok {
		log.Printf("render: geometry buffer full, dropping %d vertices (%d bytes free)",
			count, c.arena.rem())
		return
	}
	copy(c.gb.Bytes()[off:off+size], floatBytes(verts[:count*(vertexStride/4)]))

	s := &c.slots[c.slot]
	s.cb.SetPipeline(c.pls[topo])
	m := mgl32.Ident4()
	if transform != nil {
		m = *transform
	}
	s.cb.SetTransform(m)
	s.cb.SetVertexBuf(c.gb, off)
	s.cb.Draw(count)
}

// EndFrame finishes recording, submits the frame and
// presents it. Submission and presentation errors drop
// the frame but leave the context usable; a stale or
// suboptimal surface additionally triggers swapchain
// recovery. The frame counter always advances.
func (c *Context) EndFrame() {
	if !c.begun {
		return
	}
	c.begun = false
	s := &c.slots[c.slot]
	s.cb.EndPass()
	if err := s.cb.End(); err != nil {
		log.Printf("render: ending recording: %v", err)
		c.advance()
		return
	}
	// The fence is reset only once the frame is about to
	// reach the queue. A submission that never makes it
	// leaves pending unset, so the slot's next BeginFrame
	// skips the wait instead of blocking on a fence that
	// can never signal.
	if err := s.fence.Reset(); err != nil {
		log.Printf("render: fence reset: %v", err)
		c.advance()
		return
	}
	if err := c.dev.Submit(s.cb, s.imgSem, s.renSem, s.fence); err != nil {
		log.Printf("render: queue submission: %v", err)
		c.advance()
		return
	}
	s.pending = true
	if err := c.sc.Present(c.img, s.renSem); err != nil {
		if errors.Is(err, driver.ErrOutOfDate) || errors.Is(err, driver.ErrSuboptimal) {
			c.recover(c.width, c.height)
		} else {
			log.Printf("render: presentation: %v", err)
		}
	}
	c.advance()
}

// advance moves to the next frame slot.
func (c *Context) advance() {
	c.frame++
	c.slot = int(c.frame % maxFrames)
	if c.frame%logInterval == 0 {
		log.Printf("render: %d frames rendered", c.frame)
	}
}

// Frame returns the number of completed frames.
func (c *Context) Frame() uint64 { return c.frame }
