// Copyright 2025 The skyrender authors. All rights reserved.

package driver

import "errors"

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = errors.New("driver: presentation not supported")

// ErrWindow represents an error related to a specific window.
// This error usually indicates that a window misconfiguration
// is preventing correct operation, such as a zero-area surface.
var ErrWindow = errors.New("driver: window-related error")

// ErrOutOfDate means that the surface changed in a way that
// made the swapchain unusable. The swapchain must be
// recreated before the next acquire.
var ErrOutOfDate = errors.New("driver: swapchain out of date")

// ErrSuboptimal means that the swapchain still matches the
// surface well enough to present, but no longer matches it
// exactly. Recreating the swapchain is advised.
var ErrSuboptimal = errors.New("driver: swapchain suboptimal")

// Swapchain is the interface that defines an n-buffered
// swapchain for presentation, together with the render
// targets that depend on it (one per swapchain image).
// To present, one calls Next to obtain the index of an
// image to target, records a render pass against that
// index, submits the recording and then calls Present.
type Swapchain interface {
	Destroyer

	// Next acquires the next writable image and returns
	// its index. signal is signaled when the presentation
	// engine releases the image.
	// It returns ErrOutOfDate when the surface changed in
	// an incompatible way; a merely suboptimal surface is
	// still acquired successfully.
	Next(signal Semaphore) (int, error)

	// Present presents the image identified by index after
	// wait is signaled.
	// It returns ErrOutOfDate or ErrSuboptimal when the
	// surface changed; either way the image may or may not
	// have been presented.
	Present(index int, wait Semaphore) error

	// Recreate recreates the swapchain and its render
	// targets against the current surface capabilities,
	// which are re-queried on every call. The image format
	// chosen at creation time is kept.
	// It is meant to be called in response to ErrOutOfDate
	// or ErrSuboptimal, or to a resize notification, with
	// the new fallback dimensions.
	// The caller must ensure the device is idle first.
	Recreate(width, height int) error

	// Extent returns the current image extent.
	Extent() (width, height int)

	// ImageCount returns the number of swapchain images.
	ImageCount() int
}
