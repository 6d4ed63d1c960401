// Copyright 2025 The skyrender authors. All rights reserved.

package render

// Config defines the renderer's startup parameters.
// The zero value is not usable; call DefaultConfig and
// adjust as needed.
type Config struct {
	// MaxVertices is the capacity of the geometry buffer,
	// in vertices. It is fixed at startup; draw calls that
	// would exceed it within a frame are dropped.
	MaxVertices int

	// ClearColor is the color that every frame starts
	// cleared to.
	ClearColor [4]float32

	// DriverName selects the driver by name. When empty,
	// the first registered driver is used.
	DriverName string

	// Debug requests driver-level validation, when the
	// selected driver supports it.
	Debug bool
}

// DefaultConfig returns the default configuration:
// room for 64Ki vertices and a dark blue clear color.
func DefaultConfig() Config {
	return Config{
		MaxVertices: 65536,
		ClearColor:  [4]float32{0, 0, 0.2, 1},
	}
}
