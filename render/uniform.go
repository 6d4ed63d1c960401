// Copyright 2025 The skyrender authors. All rights reserved.

package render

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// putMat4 copies m into dst, column-major.
// The copy is bit-exact; no conversion is applied.
func putMat4(dst []byte, m mgl32.Mat4) {
	copy(dst, floatBytes(m[:]))
}

// floatBytes reinterprets f as its underlying bytes.
// The result aliases f and follows the host byte order,
// which is what mapped GPU memory expects.
func floatBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}
