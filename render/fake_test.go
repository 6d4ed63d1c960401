// Copyright 2025 The skyrender authors. All rights reserved.

package render

import (
	"time"

	"skyrender/driver"
	"skyrender/wsi"
)

// The fake driver records every operation the renderer
// performs so tests can assert on command sequences and
// lifecycle ordering without a GPU.

type fakeWindow struct {
	width  int
	height int
}

func (w *fakeWindow) Width() int                   { return w.width }
func (w *fakeWindow) Height() int                  { return w.height }
func (w *fakeWindow) RequiredExtensions() []string { return nil }
func (w *fakeWindow) ShouldClose() bool            { return false }
func (w *fakeWindow) Close()                       {}

func (w *fakeWindow) CreateSurface(any) (uintptr, error) {
	return 1, nil
}

type fakeDriver struct {
	dev    *fakeDevice
	plErr  error
	closed int
}

func newFakeDriver() *fakeDriver { return &fakeDriver{} }

func (d *fakeDriver) Open(win wsi.Window) (driver.Device, error) {
	d.dev = &fakeDevice{
		drv:    d,
		width:  win.Width(),
		height: win.Height(),
		plErr:  d.plErr,
	}
	return d.dev, nil
}

func (d *fakeDriver) Name() string { return "fake" }
func (d *fakeDriver) Close()       { d.closed++ }

type fakeDevice struct {
	drv       *fakeDriver
	width     int
	height    int
	sc        *fakeSwapchain
	pipelines []*fakePipeline
	plErr     error
	submitErr error
	submits   int
	idles     int
	destroyed int
}

func (d *fakeDevice) Driver() driver.Driver { return d.drv }
func (d *fakeDevice) Name() string          { return "fake device" }

func (d *fakeDevice) NewSwapchain(width, height int) (driver.Swapchain, error) {
	d.sc = &fakeSwapchain{d: d, width: width, height: height, images: 3}
	return d.sc, nil
}

func (d *fakeDevice) NewPipeline(topo driver.Topology) (driver.Pipeline, error) {
	if d.plErr != nil {
		return nil, d.plErr
	}
	pl := &fakePipeline{topo: topo}
	d.pipelines = append(d.pipelines, pl)
	return pl, nil
}

func (d *fakeDevice) NewBuffer(size int64, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{p: make([]byte, size), usg: usg}, nil
}

func (d *fakeDevice) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &fakeCmdBuffer{}, nil
}

func (d *fakeDevice) NewFence(signaled bool) (driver.Fence, error) {
	return &fakeFence{signaled: signaled}, nil
}

func (d *fakeDevice) NewSemaphore() (driver.Semaphore, error) {
	return &fakeSemaphore{}, nil
}

func (d *fakeDevice) Submit(cb driver.CmdBuffer, wait, signal driver.Semaphore, fence driver.Fence) error {
	if err := d.submitErr; err != nil {
		d.submitErr = nil
		return err
	}
	d.submits++
	if fence != nil {
		fence.(*fakeFence).signaled = true
	}
	return nil
}

func (d *fakeDevice) WaitIdle() error { d.idles++; return nil }
func (d *fakeDevice) Destroy()       { d.destroyed++ }

type fakeSwapchain struct {
	d         *fakeDevice
	width     int
	height    int
	images    int
	next      int
	nextErr   error
	prstErr   error
	recreates int
	destroyed int
}

func (s *fakeSwapchain) Next(signal driver.Semaphore) (int, error) {
	if err := s.nextErr; err != nil {
		s.nextErr = nil
		return 0, err
	}
	i := s.next
	s.next = (s.next + 1) % s.images
	return i, nil
}

func (s *fakeSwapchain) Present(index int, wait driver.Semaphore) error {
	if err := s.prstErr; err != nil {
		s.prstErr = nil
		return err
	}
	return nil
}

func (s *fakeSwapchain) Recreate(width, height int) error {
	s.recreates++
	s.width = width
	s.height = height
	return nil
}

func (s *fakeSwapchain) Extent() (int, int) { return s.width, s.height }
func (s *fakeSwapchain) ImageCount() int    { return s.images }
func (s *fakeSwapchain) Destroy()           { s.destroyed++ }

type fakePipeline struct {
	topo      driver.Topology
	destroyed int
}

func (p *fakePipeline) Destroy() { p.destroyed++ }

type fakeBuffer struct {
	p         []byte
	usg       driver.Usage
	destroyed int
}

func (b *fakeBuffer) Bytes() []byte { return b.p }
func (b *fakeBuffer) Cap() int64    { return int64(len(b.p)) }
func (b *fakeBuffer) Destroy()      { b.destroyed++ }

type fakeFence struct {
	signaled  bool
	destroyed int
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	if !f.signaled {
		return driver.ErrTimeout
	}
	return nil
}

func (f *fakeFence) Reset() error { f.signaled = false; return nil }
func (f *fakeFence) Destroy()     { f.destroyed++ }

type fakeSemaphore struct {
	destroyed int
}

func (s *fakeSemaphore) Destroy() { s.destroyed++ }

// A recorded command. op names the method; args depend
// on it.
type cmdRec struct {
	op  string
	pl  driver.Pipeline
	off int64
	n   int
	mat [16]float32
}

type fakeCmdBuffer struct {
	recs      []cmdRec
	recording bool
	destroyed int
}

func (c *fakeCmdBuffer) rec(r cmdRec) { c.recs = append(c.recs, r) }

func (c *fakeCmdBuffer) Begin() error {
	c.recording = true
	c.rec(cmdRec{op: "begin"})
	return nil
}

func (c *fakeCmdBuffer) BeginPass(sc driver.Swapchain, index int, clear [4]float32) {
	c.rec(cmdRec{op: "beginPass", n: index})
}

func (c *fakeCmdBuffer) SetViewport(width, height int) { c.rec(cmdRec{op: "viewport", n: width}) }
func (c *fakeCmdBuffer) SetScissor(width, height int)  { c.rec(cmdRec{op: "scissor", n: width}) }

func (c *fakeCmdBuffer) SetPipeline(pl driver.Pipeline) {
	c.rec(cmdRec{op: "pipeline", pl: pl})
}

func (c *fakeCmdBuffer) SetUniforms(buf driver.Buffer) { c.rec(cmdRec{op: "uniforms"}) }

func (c *fakeCmdBuffer) SetVertexBuf(buf driver.Buffer, off int64) {
	c.rec(cmdRec{op: "vertexBuf", off: off})
}

func (c *fakeCmdBuffer) SetTransform(m [16]float32) {
	c.rec(cmdRec{op: "transform", mat: m})
}

func (c *fakeCmdBuffer) Draw(vertCount int) { c.rec(cmdRec{op: "draw", n: vertCount}) }
func (c *fakeCmdBuffer) EndPass()           { c.rec(cmdRec{op: "endPass"}) }

func (c *fakeCmdBuffer) End() error {
	c.recording = false
	c.rec(cmdRec{op: "end"})
	return nil
}

func (c *fakeCmdBuffer) Reset() error {
	c.recs = c.recs[:0]
	return nil
}

func (c *fakeCmdBuffer) Destroy() { c.destroyed++ }

// draws returns the recorded draw calls, each paired
// with the pipeline, vertex offset and transform that
// preceded it.
type drawRec struct {
	pl  driver.Pipeline
	off int64
	n   int
	mat [16]float32
}

func (c *fakeCmdBuffer) draws() []drawRec {
	var out []drawRec
	var cur drawRec
	for _, r := range c.recs {
		switch r.op {
		case "pipeline":
			cur.pl = r.pl
		case "vertexBuf":
			cur.off = r.off
		case "transform":
			cur.mat = r.mat
		case "draw":
			cur.n = r.n
			out = append(out, cur)
		}
	}
	return out
}
