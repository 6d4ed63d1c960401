// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	_ "embed"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Pre-compiled SPIR-V for the scene shaders.
// The sources live alongside the binaries in the shader
// directory.
//
//go:generate glslangValidator -V shader/scene.vert -o shader/scene.vert.spv
//go:generate glslangValidator -V shader/scene.frag -o shader/scene.frag.spv
var (
	//go:embed shader/scene.vert.spv
	sceneVS []byte
	//go:embed shader/scene.frag.spv
	sceneFS []byte
)

// newShaderModule creates a shader module from SPIR-V code.
func (d *Device) newShaderModule(code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var mod vk.ShaderModule
	if err := checkResult(vk.CreateShaderModule(d.dev, &info, nil, &mod)); err != nil {
		return vk.NullShaderModule, err
	}
	return mod, nil
}

// sliceUint32 reinterprets SPIR-V bytes as the word slice
// that the API expects. len(data) must be a multiple of 4.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
