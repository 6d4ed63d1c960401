// Copyright 2025 The skyrender authors. All rights reserved.

package driver

import (
	"errors"
	"time"
)

// ErrTimeout means that a bounded wait elapsed before the
// awaited condition held.
var ErrTimeout = errors.New("driver: timed out")

// Device is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
// A Device is obtained from a call to Driver.Open.
type Device interface {
	// Driver returns the Driver that owns the Device.
	Driver() Driver

	// NewSwapchain creates a new swapchain for the window
	// given to Driver.Open, along with its render targets.
	// width and height are used as a fallback when the
	// surface does not report a current extent.
	// Only one swapchain may exist per device at a time.
	NewSwapchain(width, height int) (Swapchain, error)

	// NewPipeline creates a new graphics pipeline for the
	// given primitive topology.
	// The swapchain must have been created first, since the
	// pipeline targets the render pass derived from the
	// swapchain's format. That format is fixed for the
	// session, so pipelines survive swapchain recreation.
	NewPipeline(topo Topology) (Pipeline, error)

	// NewBuffer creates a new host-visible buffer.
	// The buffer's memory is coherent and stays mapped for
	// the buffer's lifetime; Buffer.Bytes accesses it.
	NewBuffer(size int64, usg Usage) (Buffer, error)

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewFence creates a new fence, optionally in the
	// signaled state.
	NewFence(signaled bool) (Fence, error)

	// NewSemaphore creates a new semaphore.
	NewSemaphore() (Semaphore, error)

	// Submit commits an executable command buffer to the
	// graphics queue. Execution waits on the wait semaphore
	// before any color output and signals the signal
	// semaphore and the fence on completion.
	// Either semaphore and the fence may be nil.
	Submit(cb CmdBuffer, wait, signal Semaphore, fence Fence) error

	// WaitIdle blocks until the device completes all
	// outstanding work. The wait is bounded by the
	// underlying implementation, not by this package.
	WaitIdle() error

	// Name returns the name of the selected physical
	// device, for diagnostics.
	Name() string

	// Destroy releases the device and its queues.
	// Everything created from the device must have been
	// destroyed already.
	Destroy()
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface hold resources that
// are not managed by GC, so Destroy must be called
// explicitly to release them.
type Destroyer interface {
	Destroy()
}

// Topology is the type of primitive topologies,
// which determines how vertex data is assembled.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TTriangle
)

// Usage is a mask indicating valid uses for a buffer.
type Usage int

// Usage flags for Buffer.
const (
	// The buffer can provide vertex data for draw calls.
	UVertexData Usage = 1 << iota
	// The buffer can provide constant data for shaders.
	// Buffers created with this usage can be bound with
	// CmdBuffer.SetUniforms.
	UShaderConst
)

// Pipeline is the interface that defines a GPU pipeline.
// Pipelines are immutable after creation.
type Pipeline interface {
	Destroyer
}

// Buffer is the interface that defines a host-visible
// GPU buffer. The size of the buffer is fixed.
type Buffer interface {
	Destroyer

	// Bytes returns a slice of length Cap referring to the
	// underlying mapped memory.
	// The slice is valid for the lifetime of the buffer.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	// This value is immutable.
	Cap() int64
}

// Fence is a host-waitable synchronization primitive that
// the device signals when submitted work completes.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled or the
	// timeout elapses, whichever comes first.
	Wait(timeout time.Duration) error

	// Reset returns the fence to the unsignaled state.
	Reset() error
}

// Semaphore is a device-side synchronization primitive
// ordering queue operations. It is not host visible.
type Semaphore interface {
	Destroyer
}

// CmdBuffer is the interface that defines a command buffer.
// The usage is as follows: call Begin to prepare the command
// buffer for recording, then BeginPass, then Set*/Draw as
// needed, then EndPass and finally End. An executable command
// buffer is given to Device.Submit; it must be Reset before
// it can record again.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	Begin() error

	// BeginPass begins rendering to the swapchain image
	// identified by index, clearing it to the given color.
	// index must have been obtained from Swapchain.Next.
	BeginPass(sc Swapchain, index int, clear [4]float32)

	// SetViewport sets the dynamic viewport bounds.
	SetViewport(width, height int)

	// SetScissor sets the dynamic scissor rectangle.
	SetScissor(width, height int)

	// SetPipeline sets the graphics pipeline.
	SetPipeline(pl Pipeline)

	// SetUniforms binds the given constant buffer for
	// reading in the vertex stage. buf must have been
	// created with the UShaderConst usage.
	SetUniforms(buf Buffer)

	// SetVertexBuf sets the vertex buffer.
	// off must be aligned to the vertex stride of the
	// bound pipeline.
	SetVertexBuf(buf Buffer, off int64)

	// SetTransform sets the per-draw model matrix.
	// The matrix is column-major.
	SetTransform(m [16]float32)

	// Draw draws vertCount vertices.
	// It must only be called during a render pass.
	Draw(vertCount int)

	// EndPass ends the current render pass.
	EndPass()

	// End ends command recording and prepares the
	// command buffer for execution.
	End() error

	// Reset discards all recorded commands from the
	// command buffer.
	Reset() error
}
