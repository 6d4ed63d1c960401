// Copyright 2025 The skyrender authors. All rights reserved.

//go:build android

package wsi

// Android builds wrap the ANativeWindow handed to the app by
// the activity. There is no event loop here; lifecycle events
// are delivered by the activity glue.

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Init initializes the Vulkan loader.
func Init() error {
	if inited {
		return nil
	}
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return err
	}
	inited = true
	return nil
}

// Terminate is a no-op on Android.
func Terminate() { inited = false }

var inited bool

// window implements Window on top of an ANativeWindow pointer.
type window struct {
	winptr uintptr
	width  int
	height int
}

// WrapNativeWindow wraps an ANativeWindow pointer obtained from
// the activity. The caller reports the window's extent since it
// is not queryable from here.
func WrapNativeWindow(winptr uintptr, width, height int) (Window, error) {
	if winptr == 0 {
		return nil, errors.New("wsi: nil native window")
	}
	return &window{
		winptr: winptr,
		width:  width,
		height: height,
	}, nil
}

func (w *window) Width() int  { return w.width }
func (w *window) Height() int { return w.height }

func (w *window) RequiredExtensions() []string {
	return vk.GetRequiredInstanceExtensions()
}

func (w *window) CreateSurface(instance any) (uintptr, error) {
	inst, ok := instance.(vk.Instance)
	if !ok {
		return 0, errors.New("wsi: instance is not a vk.Instance")
	}
	var surface vk.Surface
	if err := vk.Error(vk.CreateWindowSurface(inst, w.winptr, nil, &surface)); err != nil {
		return 0, err
	}
	return *(*uintptr)(unsafe.Pointer(&surface)), nil
}

func (w *window) ShouldClose() bool { return w.winptr == 0 }

func (w *window) Close() { w.winptr = 0 }

// PollEvents is a no-op on Android.
func PollEvents() {}
