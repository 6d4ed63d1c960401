// Copyright 2025 The skyrender authors. All rights reserved.

// Package render implements a streaming renderer for
// point, line and triangle scenes.
// It owns every GPU object it creates and exposes a
// narrow, handle-based API to the orchestrating code:
// one Init/Destroy pair per output window, a per-frame
// BeginFrame/Draw/EndFrame sequence and camera matrix
// setters that may be called from another goroutine.
package render

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"skyrender/driver"
	"skyrender/wsi"
)

// Number of frames that may be in flight at a time.
const maxFrames = 2

// Uniform block layout: view matrix then projection
// matrix, 64 bytes each, column-major.
const (
	uniformViewOff = 0
	uniformProjOff = 64
	uniformSize    = 128
)

// Bound for the per-frame fence wait. A frame's GPU work
// taking longer than this means the device is wedged.
const fenceTimeout = 5 * time.Second

// Frame heartbeat interval, in frames.
const logInterval = 300

// ErrNoDriver means that no driver is registered or that
// the requested driver name is unknown.
var ErrNoDriver = errors.New("render: no such driver")

// frameSlot bundles the objects that one frame in flight
// needs. A slot is reused only after its fence signals.
// pending is set when a submission reached the queue and
// its fence has not been waited on yet; the fence is only
// meaningful while pending is set.
type frameSlot struct {
	cb      driver.CmdBuffer
	imgSem  driver.Semaphore
	renSem  driver.Semaphore
	fence   driver.Fence
	pending bool
}

// Context is the root owner of all rendering state for
// one window. All methods except SetViewMatrix and
// SetProjectionMatrix must be called from the single
// goroutine that drives the frame loop.
type Context struct {
	cfg Config
	win wsi.Window
	drv driver.Driver
	dev driver.Device
	sc  driver.Swapchain
	pls [3]driver.Pipeline
	ub  driver.Buffer
	gb  driver.Buffer

	slots [maxFrames]frameSlot

	// Resource release stack. Pushed in creation order
	// during newContext, popped in reverse by destroy.
	// Unwinding a failed initialization and tearing down
	// a live context are the same code path.
	unwind []func()

	// mu guards the uniform block's mapped memory, which
	// the matrix setters may write from another goroutine.
	mu sync.Mutex

	arena  geomArena
	frame  uint64
	slot   int
	img    int
	begun  bool
	width  int
	height int
}

// newContext creates a fully initialized context or
// nothing at all: if any step fails, everything created
// by the preceding steps is released before returning.
func newContext(win wsi.Window, width, height int, cfg Config) (c *Context, err error) {
	if cfg.MaxVertices <= 0 {
		cfg.MaxVertices = DefaultConfig().MaxVertices
	}
	c = &Context{
		cfg:    cfg,
		win:    win,
		width:  width,
		height: height,
	}
	// The error returns below nil out c, so the unwind must
	// hold its own reference.
	ctx := c
	defer func() {
		if err != nil {
			ctx.popAll()
		}
	}()

	c.drv, err = selectDriver(cfg.DriverName)
	if err != nil {
		return nil, err
	}
	if dbg, ok := c.drv.(interface{ SetDebug(bool) }); ok {
		dbg.SetDebug(cfg.Debug)
	}
	c.dev, err = c.drv.Open(win)
	if err != nil {
		return nil, fmt.Errorf("render: opening driver: %w", err)
	}
	c.push(c.drv.Close)
	c.push(c.dev.Destroy)

	c.sc, err = c.dev.NewSwapchain(width, height)
	if err != nil {
		return nil, fmt.Errorf("render: creating swapchain: %w", err)
	}
	c.push(c.sc.Destroy)

	for _, topo := range [3]driver.Topology{driver.TPoint, driver.TLine, driver.TTriangle} {
		pl, err := c.dev.NewPipeline(topo)
		if err != nil {
			return nil, fmt.Errorf("render: creating pipeline: %w", err)
		}
		c.pls[topo] = pl
		c.push(pl.Destroy)
	}

	c.ub, err = c.dev.NewBuffer(uniformSize, driver.UShaderConst)
	if err != nil {
		return nil, fmt.Errorf("render: creating uniform buffer: %w", err)
	}
	c.push(c.ub.Destroy)
	ident := mgl32.Ident4()
	putMat4(c.ub.Bytes()[uniformViewOff:], ident)
	putMat4(c.ub.Bytes()[uniformProjOff:], ident)

	c.arena.size = int64(cfg.MaxVertices) * vertexStride
	c.gb, err = c.dev.NewBuffer(c.arena.size, driver.UVertexData)
	if err != nil {
		return nil, fmt.Errorf("render: creating geometry buffer: %w", err)
	}
	c.push(c.gb.Destroy)

	for i := range c.slots {
		s := &c.slots[i]
		if s.cb, err = c.dev.NewCmdBuffer(); err != nil {
			return nil, fmt.Errorf("render: creating command buffer: %w", err)
		}
		c.push(s.cb.Destroy)
		if s.imgSem, err = c.dev.NewSemaphore(); err != nil {
			return nil, fmt.Errorf("render: creating semaphore: %w", err)
		}
		c.push(s.imgSem.Destroy)
		if s.renSem, err = c.dev.NewSemaphore(); err != nil {
			return nil, fmt.Errorf("render: creating semaphore: %w", err)
		}
		c.push(s.renSem.Destroy)
		// Created signaled: the slot starts idle and its
		// fence is only consulted while work is pending.
		if s.fence, err = c.dev.NewFence(true); err != nil {
			return nil, fmt.Errorf("render: creating fence: %w", err)
		}
		c.push(s.fence.Destroy)
	}

	log.Printf("render: context ready (%s, %d vertices max)", c.dev.Name(), cfg.MaxVertices)
	return c, nil
}

// selectDriver returns the registered driver matching
// name, or the first registered one when name is empty.
func selectDriver(name string) (driver.Driver, error) {
	drvs := driver.Drivers()
	if name == "" {
		if len(drvs) == 0 {
			return nil, ErrNoDriver
		}
		return drvs[0], nil
	}
	for _, d := range drvs {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, ErrNoDriver
}

// push records a release step. destroy executes recorded
// steps in reverse order.
func (c *Context) push(f func()) { c.unwind = append(c.unwind, f) }

// popAll runs every recorded release step, last first.
func (c *Context) popAll() {
	for i := len(c.unwind) - 1; i >= 0; i-- {
		c.unwind[i]()
	}
	c.unwind = nil
}

// destroy releases the context. It waits for the device
// to go idle first so that no in-flight frame references
// a resource being released.
// The uniform block is detached under mu before release
// so that a concurrent matrix setter never touches its
// unmapped memory. The mutex itself must survive: a
// setter may still be blocked on it.
func (c *Context) destroy() {
	if c.dev != nil {
		if err := c.dev.WaitIdle(); err != nil {
			log.Printf("render: wait idle: %v", err)
		}
	}
	c.mu.Lock()
	c.ub = nil
	c.mu.Unlock()
	c.popAll()
	c.drv = nil
	c.dev = nil
	c.sc = nil
	c.pls = [3]driver.Pipeline{}
	c.gb = nil
	c.slots = [maxFrames]frameSlot{}
	c.arena = geomArena{}
	c.begun = false
}

// recover rebuilds the swapchain and its render targets
// after the surface changed. Everything else survives.
func (c *Context) recover(width, height int) {
	if err := c.dev.WaitIdle(); err != nil {
		log.Printf("render: wait idle: %v", err)
		return
	}
	if err := c.sc.Recreate(width, height); err != nil {
		log.Printf("render: swapchain recreation: %v", err)
		return
	}
	c.width, c.height = c.sc.Extent()
	log.Printf("render: swapchain rebuilt (%dx%d)", c.width, c.height)
}

// resize reacts to a surface size notification.
// Dimensions of zero or less (a minimized surface, say)
// are ignored, as is a notification that matches the
// current extent.
func (c *Context) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if w, h := c.sc.Extent(); w == width && h == height {
		return
	}
	c.recover(width, height)
}

// SetViewMatrix stores the view matrix in the uniform
// block. The copy is immediate; frames begun after the
// call are guaranteed to observe it.
// It is safe to call from any goroutine.
func (c *Context) SetViewMatrix(m mgl32.Mat4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ub == nil {
		return
	}
	putMat4(c.ub.Bytes()[uniformViewOff:], m)
}

// SetProjectionMatrix stores the projection matrix in the
// uniform block. See SetViewMatrix for the visibility
// contract.
func (c *Context) SetProjectionMatrix(m mgl32.Mat4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ub == nil {
		return
	}
	putMat4(c.ub.Bytes()[uniformProjOff:], m)
}
