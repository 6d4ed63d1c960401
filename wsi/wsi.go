// Copyright 2025 The skyrender authors. All rights reserved.

// Package wsi provides window system integration (WSI)
// for GPU drivers.
// The renderer itself never creates windows; it receives
// one from the orchestrator and uses it solely as a source
// of presentation surfaces.
package wsi

// Window is the interface that defines a drawable window.
// The purpose of a window is to provide a surface into
// which a GPU can draw.
type Window interface {
	// Width returns the window's width in pixels.
	Width() int

	// Height returns the window's height in pixels.
	Height() int

	// RequiredExtensions returns the instance extensions
	// that the window system needs for surface creation.
	RequiredExtensions() []string

	// CreateSurface creates a presentation surface on the
	// given API instance and returns its handle.
	// The concrete instance type is driver-specific.
	CreateSurface(instance any) (uintptr, error)

	// ShouldClose returns whether the window was asked
	// to close.
	ShouldClose() bool

	// Close destroys the window. Surfaces created from
	// it must have been destroyed already.
	Close()
}
