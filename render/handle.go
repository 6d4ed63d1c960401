// Copyright 2025 The skyrender authors. All rights reserved.

package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"skyrender/wsi"
)

// Handle identifies a live Context across an API
// boundary. It is an index into a process-wide table
// plus a generation counter, so a handle kept past its
// context's destruction is detected and rejected rather
// than dereferenced.
// The zero Handle is never valid.
type Handle struct {
	index int32
	gen   uint32
}

// ctxEntry is one slot of the context table.
// gen increments on every Destroy, invalidating handles
// that still name the slot.
type ctxEntry struct {
	c   *Context
	gen uint32
}

var (
	ctxMu   sync.Mutex
	ctxTab  []ctxEntry
	ctxFree []int32
)

// Init creates a rendering context for win and returns
// a handle to it. width and height are the surface size
// to fall back on when the window system does not report
// one.
// Init either succeeds completely or releases everything
// it created before returning the error; no other
// operation may be used with a failed handle.
func Init(win wsi.Window, width, height int, cfg Config) (Handle, error) {
	c, err := newContext(win, width, height, cfg)
	if err != nil {
		return Handle{}, err
	}
	ctxMu.Lock()
	defer ctxMu.Unlock()
	var idx int32
	if n := len(ctxFree); n > 0 {
		idx = ctxFree[n-1]
		ctxFree = ctxFree[:n-1]
		ctxTab[idx].c = c
	} else {
		// Index 0 is reserved so that the zero Handle
		// stays invalid.
		if len(ctxTab) == 0 {
			ctxTab = append(ctxTab, ctxEntry{gen: 1})
		}
		idx = int32(len(ctxTab))
		ctxTab = append(ctxTab, ctxEntry{c: c, gen: 1})
	}
	return Handle{index: idx, gen: ctxTab[idx].gen}, nil
}

// lookup resolves h to its context, or nil when h is
// stale, destroyed or was never issued.
func lookup(h Handle) *Context {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	if h.index <= 0 || int(h.index) >= len(ctxTab) {
		return nil
	}
	e := &ctxTab[h.index]
	if e.gen != h.gen {
		return nil
	}
	return e.c
}

// Destroy releases the context named by h and
// invalidates the handle. It blocks until the device is
// idle. Destroying a stale or zero handle does nothing,
// so calling Destroy twice is safe.
func Destroy(h Handle) {
	ctxMu.Lock()
	if h.index <= 0 || int(h.index) >= len(ctxTab) {
		ctxMu.Unlock()
		return
	}
	e := &ctxTab[h.index]
	if e.gen != h.gen || e.c == nil {
		ctxMu.Unlock()
		return
	}
	c := e.c
	e.c = nil
	e.gen++
	ctxFree = append(ctxFree, h.index)
	ctxMu.Unlock()

	c.destroy()
}

// Resize notifies the context of a surface size change.
// Notifications with a dimension of zero or less are
// ignored.
func Resize(h Handle, width, height int) {
	if c := lookup(h); c != nil {
		c.resize(width, height)
	}
}

// BeginFrame starts a frame. A false return means the
// frame must be skipped; see Context.BeginFrame.
func BeginFrame(h Handle) bool {
	if c := lookup(h); c != nil {
		return c.BeginFrame()
	}
	return false
}

// Draw records one draw batch; see Context.Draw.
func Draw(h Handle, topo Topology, verts []float32, count int, transform *mgl32.Mat4) {
	if c := lookup(h); c != nil {
		c.Draw(topo, verts, count, transform)
	}
}

// EndFrame submits and presents the frame; see
// Context.EndFrame.
func EndFrame(h Handle) {
	if c := lookup(h); c != nil {
		c.EndFrame()
	}
}

// SetViewMatrix sets the camera view matrix.
// Safe to call from any goroutine.
func SetViewMatrix(h Handle, m mgl32.Mat4) {
	if c := lookup(h); c != nil {
		c.SetViewMatrix(m)
	}
}

// SetProjectionMatrix sets the camera projection matrix.
// Safe to call from any goroutine.
func SetProjectionMatrix(h Handle, m mgl32.Mat4) {
	if c := lookup(h); c != nil {
		c.SetProjectionMatrix(m)
	}
}
