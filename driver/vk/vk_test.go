// Copyright 2025 The skyrender authors. All rights reserved.

package vk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"skyrender/driver"
)

func TestCheckResult(t *testing.T) {
	cases := []struct {
		res  vk.Result
		want error
	}{
		{vk.Success, nil},
		{vk.Suboptimal, nil},
		{vk.Timeout, nil},
		{vk.ErrorOutOfHostMemory, driver.ErrNoHostMemory},
		{vk.ErrorOutOfDeviceMemory, driver.ErrNoDeviceMemory},
		{vk.ErrorDeviceLost, driver.ErrFatal},
		{vk.ErrorSurfaceLost, driver.ErrWindow},
		{vk.ErrorNativeWindowInUse, driver.ErrWindow},
		{vk.ErrorOutOfDate, driver.ErrOutOfDate},
	}
	for _, c := range cases {
		assert.ErrorIs(t, checkResult(c.res), c.want, "result %d", c.res)
	}
	assert.Error(t, checkResult(vk.ErrorValidationFailed))
}

func TestConvTopology(t *testing.T) {
	cases := []struct {
		topo driver.Topology
		want vk.PrimitiveTopology
	}{
		{driver.TPoint, vk.PrimitiveTopologyPointList},
		{driver.TLine, vk.PrimitiveTopologyLineList},
		{driver.TTriangle, vk.PrimitiveTopologyTriangleList},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, convTopology(c.topo))
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), clamp(3, 5, 10))
	assert.Equal(t, uint32(10), clamp(12, 5, 10))
	assert.Equal(t, uint32(7), clamp(7, 5, 10))
}

func TestChooseAlpha(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(
			vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaPreMultipliedBit),
	}
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, chooseAlpha(caps))

	caps.SupportedCompositeAlpha = vk.CompositeAlphaFlags(
		vk.CompositeAlphaInheritBit | vk.CompositeAlphaOpaqueBit)
	assert.Equal(t, vk.CompositeAlphaInheritBit, chooseAlpha(caps))

	caps.SupportedCompositeAlpha = 0
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, chooseAlpha(caps))
}

func TestPickColorSpace(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpace(1)},
	}

	// The space advertised for the kept format wins, even
	// when it differs from the recorded one.
	assert.Equal(t, vk.ColorSpace(1),
		pickColorSpace(formats, vk.FormatB8g8r8a8Unorm, vk.ColorSpaceSrgbNonlinear))

	// A format that vanished from the list falls back to
	// the recorded space.
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear,
		pickColorSpace(formats, vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear))
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear,
		pickColorSpace(nil, vk.FormatB8g8r8a8Unorm, vk.ColorSpaceSrgbNonlinear))
}

func TestShaderBinaries(t *testing.T) {
	const magic = 0x07230203
	for name, code := range map[string][]byte{
		"scene.vert.spv": sceneVS,
		"scene.frag.spv": sceneFS,
	} {
		require.NotEmpty(t, code, name)
		require.Zero(t, len(code)%4, "%s: truncated SPIR-V", name)
		words := sliceUint32(code)
		assert.EqualValues(t, magic, words[0], "%s: bad magic", name)
	}
}

func TestNullTerm(t *testing.T) {
	assert.Equal(t, "a\x00", nullTerm("a"))
	assert.Equal(t, "a\x00", nullTerm("a\x00"))
	assert.Equal(t, "a", trimNull("a\x00"))
	assert.Equal(t, "a", trimNull("a"))
}
