// Copyright 2025 The skyrender authors. All rights reserved.

package driver

import (
	"testing"

	"skyrender/wsi"
)

type stubDriver struct {
	name   string
	closed int
}

func (d *stubDriver) Open(win wsi.Window) (Device, error) { return nil, ErrNotInstalled }
func (d *stubDriver) Name() string                        { return d.name }
func (d *stubDriver) Close()                              { d.closed++ }

func TestRegister(t *testing.T) {
	a := &stubDriver{name: "stub-a"}
	b := &stubDriver{name: "stub-b"}
	Register(a)
	Register(b)

	find := func(name string) Driver {
		for _, d := range Drivers() {
			if d.Name() == name {
				return d
			}
		}
		return nil
	}
	if find("stub-a") != Driver(a) {
		t.Error("registered driver not found")
	}
	if find("stub-b") != Driver(b) {
		t.Error("registered driver not found")
	}

	// Same name replaces rather than duplicates.
	a2 := &stubDriver{name: "stub-a"}
	Register(a2)
	var n int
	for _, d := range Drivers() {
		if d.Name() == "stub-a" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("have %d drivers named stub-a, want 1", n)
	}
	if find("stub-a") != Driver(a2) {
		t.Error("re-registration did not replace the driver")
	}
}

func TestDriversReturnsCopy(t *testing.T) {
	Register(&stubDriver{name: "stub-c"})
	drvs := Drivers()
	if len(drvs) == 0 {
		t.Fatal("no drivers registered")
	}
	drvs[0] = nil
	for _, d := range Drivers() {
		if d == nil {
			t.Fatal("mutating the returned slice changed the registry")
		}
	}
}
