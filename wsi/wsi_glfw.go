// Copyright 2025 The skyrender authors. All rights reserved.

//go:build !android

package wsi

// This file contains the glfw dependencies, for desktop platform
// builds. Mobile platforms wrap their native window instead.

import (
	"errors"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Init initializes the window system.
// It must be called on the main thread, before NewWindow.
func Init() error {
	if inited {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("wsi: no Vulkan loader found")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	inited = true
	return nil
}

// Terminate shuts down the window system.
// It must be called on the main thread, after every window
// was closed.
func Terminate() {
	if inited {
		glfw.Terminate()
		inited = false
	}
}

var inited bool

// window implements Window on top of glfw.
type window struct {
	win    *glfw.Window
	width  int
	height int
	title  string
}

// NewWindow creates a new window.
// Init must have been called.
func NewWindow(width, height int, title string) (Window, error) {
	if !inited {
		return nil, errors.New("wsi: not initialized")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}
	return &window{
		win:    win,
		width:  width,
		height: height,
		title:  title,
	}, nil
}

// Width returns the window's framebuffer width.
func (w *window) Width() int {
	wd, _ := w.win.GetFramebufferSize()
	return wd
}

// Height returns the window's framebuffer height.
func (w *window) Height() int {
	_, ht := w.win.GetFramebufferSize()
	return ht
}

// RequiredExtensions returns the instance extensions that
// glfw needs for surface creation on this platform.
func (w *window) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates a presentation surface on the given
// vk.Instance.
func (w *window) CreateSurface(instance any) (uintptr, error) {
	inst, ok := instance.(vk.Instance)
	if !ok {
		return 0, errors.New("wsi: instance is not a vk.Instance")
	}
	return w.win.CreateWindowSurface(inst, nil)
}

// ShouldClose returns whether the user asked the window
// to close.
func (w *window) ShouldClose() bool { return w.win.ShouldClose() }

// Close destroys the window.
func (w *window) Close() { w.win.Destroy() }

// PollEvents processes pending window system events.
// It must be called on the main thread.
func PollEvents() { glfw.PollEvents() }
