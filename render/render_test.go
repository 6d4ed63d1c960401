// Copyright 2025 The skyrender authors. All rights reserved.

package render

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"skyrender/driver"
)

// newTestContext creates a context backed by the fake
// driver. The returned handle is destroyed during test
// cleanup; destroying it earlier is fine.
func newTestContext(t *testing.T, cfg Config) (Handle, *fakeDriver) {
	t.Helper()
	drv := newFakeDriver()
	driver.Register(drv)
	cfg.DriverName = "fake"
	h, err := Init(&fakeWindow{width: 640, height: 480}, 640, 480, cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Destroy(h) })
	return h, drv
}

// triangle is one triangle's worth of interleaved
// position/color data.
var triangle = []float32{
	0, -0.5, 0, 1, 0, 0, 1,
	0.5, 0.5, 0, 0, 1, 0, 1,
	-0.5, 0.5, 0, 0, 0, 1, 1,
}

func TestDrawBindsMatchingPipeline(t *testing.T) {
	for _, topo := range []Topology{Points, Lines, Triangles} {
		h, _ := newTestContext(t, DefaultConfig())
		c := lookup(h)
		if !BeginFrame(h) {
			t.Fatalf("topology %d: BeginFrame failed", topo)
		}
		Draw(h, topo, triangle, 3, nil)
		cb := c.slots[c.slot].cb.(*fakeCmdBuffer)
		draws := cb.draws()
		if len(draws) != 1 {
			t.Fatalf("topology %d: have %d draws, want 1", topo, len(draws))
		}
		if draws[0].pl != c.pls[topo] {
			t.Errorf("topology %d: draw bound the wrong pipeline", topo)
		}
		if draws[0].n != 3 {
			t.Errorf("topology %d: have %d vertices, want 3", topo, draws[0].n)
		}
		EndFrame(h)
		Destroy(h)
	}
}

func TestAllocatorResetsAtBeginFrame(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	Draw(h, Triangles, triangle, 3, nil)
	if c.arena.off == 0 {
		t.Fatal("draw did not consume the arena")
	}
	EndFrame(h)

	if !BeginFrame(h) {
		t.Fatal("second BeginFrame failed")
	}
	if c.arena.off != 0 {
		t.Errorf("have cursor %d after BeginFrame, want 0", c.arena.off)
	}
	EndFrame(h)
}

func TestGeometryOverflowDropsDraw(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVertices = 4
	h, _ := newTestContext(t, cfg)
	c := lookup(h)

	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	Draw(h, Triangles, triangle, 3, nil)
	gb := c.gb.(*fakeBuffer)
	first := make([]byte, 3*vertexStride)
	copy(first, gb.p)

	// 3 more vertices do not fit in the single remaining
	// slot; the draw must be dropped whole.
	Draw(h, Triangles, triangle, 3, nil)
	cb := c.slots[c.slot].cb.(*fakeCmdBuffer)
	if n := len(cb.draws()); n != 1 {
		t.Fatalf("have %d draws after overflow, want 1", n)
	}
	for i := range first {
		if gb.p[i] != first[i] {
			t.Fatal("overflowing draw corrupted prior vertex data")
		}
	}

	// One vertex still fits.
	Draw(h, Points, triangle, 1, nil)
	draws := cb.draws()
	if len(draws) != 2 {
		t.Fatalf("have %d draws, want 2", len(draws))
	}
	if draws[1].off != 3*vertexStride {
		t.Errorf("have offset %d, want %d", draws[1].off, 3*vertexStride)
	}
	EndFrame(h)
}

func TestResizeIgnoresBadDimensions(t *testing.T) {
	h, drv := newTestContext(t, DefaultConfig())

	Resize(h, 0, 0)
	Resize(h, -1, 100)
	Resize(h, 100, -1)
	if n := drv.dev.sc.recreates; n != 0 {
		t.Errorf("have %d swapchain rebuilds, want 0", n)
	}

	// Matching the current extent is also a no-op.
	Resize(h, 640, 480)
	if n := drv.dev.sc.recreates; n != 0 {
		t.Errorf("have %d swapchain rebuilds for unchanged extent, want 0", n)
	}

	Resize(h, 800, 600)
	if n := drv.dev.sc.recreates; n != 1 {
		t.Errorf("have %d swapchain rebuilds, want 1", n)
	}
	if w, hgt := drv.dev.sc.Extent(); w != 800 || hgt != 600 {
		t.Errorf("have extent %dx%d, want 800x600", w, hgt)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	h, drv := newTestContext(t, DefaultConfig())
	Destroy(h)
	if drv.dev.destroyed != 1 || drv.closed != 1 {
		t.Fatalf("have %d device destroys and %d driver closes, want 1 and 1",
			drv.dev.destroyed, drv.closed)
	}
	Destroy(h)
	if drv.dev.destroyed != 1 || drv.closed != 1 {
		t.Errorf("second Destroy repeated work: %d device destroys, %d driver closes",
			drv.dev.destroyed, drv.closed)
	}
	if drv.dev.sc.destroyed != 1 {
		t.Errorf("have %d swapchain destroys, want 1", drv.dev.sc.destroyed)
	}
}

func TestFrameSlotsCycle(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	wantSlots := []int{0, 1, 0}
	for i, want := range wantSlots {
		if c.slot != want {
			t.Errorf("frame %d: have slot %d, want %d", i, c.slot, want)
		}
		if !BeginFrame(h) {
			t.Fatalf("frame %d: BeginFrame failed", i)
		}
		Draw(h, Triangles, triangle, 3, nil)
		EndFrame(h)
	}
	if c.frame != 3 {
		t.Errorf("have frame counter %d, want 3", c.frame)
	}
}

func TestUniformCopyIsBitIdentical(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	var view mgl32.Mat4
	for i := range view {
		view[i] = float32(i) * 1.25
	}
	view[5] = float32(math.Inf(1)) // survives the copy untouched
	SetViewMatrix(h, view)

	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	EndFrame(h)

	ub := c.ub.(*fakeBuffer)
	for i := 0; i < 16; i++ {
		want := math.Float32bits(view[i])
		have := uint32(ub.p[i*4]) | uint32(ub.p[i*4+1])<<8 |
			uint32(ub.p[i*4+2])<<16 | uint32(ub.p[i*4+3])<<24
		if have != want {
			t.Fatalf("view[%d]: have bits %#x, want %#x", i, have, want)
		}
	}

	var proj mgl32.Mat4
	for i := range proj {
		proj[i] = -float32(i)
	}
	SetProjectionMatrix(h, proj)
	for i := 0; i < 16; i++ {
		want := math.Float32bits(proj[i])
		off := uniformProjOff + i*4
		have := uint32(ub.p[off]) | uint32(ub.p[off+1])<<8 |
			uint32(ub.p[off+2])<<16 | uint32(ub.p[off+3])<<24
		if have != want {
			t.Fatalf("proj[%d]: have bits %#x, want %#x", i, have, want)
		}
	}
}

func TestAcquireOutOfDateRecovers(t *testing.T) {
	h, drv := newTestContext(t, DefaultConfig())

	drv.dev.sc.nextErr = driver.ErrOutOfDate
	if BeginFrame(h) {
		t.Fatal("BeginFrame succeeded on a stale surface")
	}
	if n := drv.dev.sc.recreates; n != 1 {
		t.Fatalf("have %d swapchain rebuilds, want 1", n)
	}

	// The engine stays usable without a Destroy/Init
	// cycle.
	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed after recovery")
	}
	EndFrame(h)
}

func TestPresentSuboptimalRecovers(t *testing.T) {
	h, drv := newTestContext(t, DefaultConfig())

	drv.dev.sc.prstErr = driver.ErrSuboptimal
	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	EndFrame(h)
	if n := drv.dev.sc.recreates; n != 1 {
		t.Errorf("have %d swapchain rebuilds, want 1", n)
	}
	c := lookup(h)
	if c.frame != 1 {
		t.Errorf("have frame counter %d, want 1", c.frame)
	}
}

func TestDrawOutsideFrameIsNoop(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	Draw(h, Triangles, triangle, 3, nil)
	EndFrame(h)
	if c.frame != 0 {
		t.Errorf("have frame counter %d, want 0", c.frame)
	}

	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	// Undersized vertex slices and unknown topologies are
	// rejected.
	Draw(h, Triangles, triangle[:7], 3, nil)
	Draw(h, Topology(42), triangle, 3, nil)
	cb := c.slots[c.slot].cb.(*fakeCmdBuffer)
	if n := len(cb.draws()); n != 0 {
		t.Errorf("have %d draws, want 0", n)
	}
	EndFrame(h)
}

func TestTransformDefaultsToIdentity(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	Draw(h, Triangles, triangle, 3, nil)
	model := mgl32.Translate3D(1, 2, 3)
	Draw(h, Triangles, triangle, 3, &model)
	EndFrame(h)

	// EndFrame switched slots; inspect the one that
	// recorded the draws.
	cb := c.slots[0].cb.(*fakeCmdBuffer)
	draws := cb.draws()
	if len(draws) != 2 {
		t.Fatalf("have %d draws, want 2", len(draws))
	}
	if ident := mgl32.Ident4(); draws[0].mat != [16]float32(ident) {
		t.Errorf("have transform %v, want identity", draws[0].mat)
	}
	if draws[1].mat != [16]float32(model) {
		t.Errorf("have transform %v, want %v", draws[1].mat, model)
	}
}

func TestStaleHandleIsRejected(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	Destroy(h)

	// None of these must panic or touch freed state.
	if BeginFrame(h) {
		t.Error("BeginFrame succeeded on a destroyed handle")
	}
	Draw(h, Triangles, triangle, 3, nil)
	EndFrame(h)
	Resize(h, 800, 600)
	SetViewMatrix(h, mgl32.Ident4())
	SetProjectionMatrix(h, mgl32.Ident4())

	var zero Handle
	if BeginFrame(zero) {
		t.Error("BeginFrame succeeded on the zero handle")
	}

	// A slot reused by a later Init must not honor the
	// old generation.
	h2, _ := newTestContext(t, DefaultConfig())
	if lookup(h) != nil {
		t.Error("stale handle resolves after slot reuse")
	}
	if lookup(h2) == nil {
		t.Error("fresh handle does not resolve")
	}
}

func TestSubmitFailureDoesNotWedge(t *testing.T) {
	h, drv := newTestContext(t, DefaultConfig())

	drv.dev.submitErr = errors.New("queue rejected the batch")
	if !BeginFrame(h) {
		t.Fatal("BeginFrame failed")
	}
	Draw(h, Triangles, triangle, 3, nil)
	EndFrame(h)

	// The dropped frame's fence never signals; its slot
	// must still come back around without waiting on it.
	for i := 0; i < 3; i++ {
		if !BeginFrame(h) {
			t.Fatalf("frame %d after failed submission: BeginFrame failed", i)
		}
		Draw(h, Triangles, triangle, 3, nil)
		EndFrame(h)
	}
	c := lookup(h)
	if c.frame != 4 {
		t.Errorf("have frame counter %d, want 4", c.frame)
	}
	if drv.dev.submits != 3 {
		t.Errorf("have %d submissions, want 3", drv.dev.submits)
	}
}

func TestDestroyWithConcurrentSetters(t *testing.T) {
	h, _ := newTestContext(t, DefaultConfig())
	c := lookup(h)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m := mgl32.Ident4()
		for {
			select {
			case <-done:
				return
			default:
				c.SetViewMatrix(m)
				c.SetProjectionMatrix(m)
			}
		}
	}()
	Destroy(h)
	close(done)
	wg.Wait()

	// Setters remain harmless once the context is gone.
	c.SetViewMatrix(mgl32.Ident4())
	SetProjectionMatrix(h, mgl32.Ident4())
}

func TestInitUnknownDriverIsRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DriverName = "no such backend"

	_, err := Init(&fakeWindow{width: 640, height: 480}, 640, 480, cfg)
	if !errors.Is(err, ErrNoDriver) {
		t.Fatalf("have %v, want %v", err, ErrNoDriver)
	}
}

func TestInitUnwindsOnFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.plErr = errors.New("no pipelines today")
	driver.Register(drv)
	cfg := DefaultConfig()
	cfg.DriverName = "fake"

	_, err := Init(&fakeWindow{width: 640, height: 480}, 640, 480, cfg)
	if err == nil {
		t.Fatal("Init succeeded with a failing driver")
	}
	if drv.dev.sc.destroyed != 1 {
		t.Errorf("have %d swapchain destroys, want 1", drv.dev.sc.destroyed)
	}
	if drv.dev.destroyed != 1 {
		t.Errorf("have %d device destroys, want 1", drv.dev.destroyed)
	}
	if drv.closed != 1 {
		t.Errorf("have %d driver closes, want 1", drv.closed)
	}
}
