// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"sync/atomic"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/nightview"
)

// Target is a Host that a Loop can drive: a color target that follows the
// window size and forwards redraw requests to the loop.
type Target interface {
	nightview.Host
	gpucontext.WindowProvider

	// Resize adapts the target to a new size in physical pixels. It is
	// called on the render goroutine.
	Resize(width, height int) error

	// OnRedraw sets the function RequestRedraw calls.
	OnRedraw(fn func())

	// Close releases the target. The device stays open.
	Close()
}

// window holds the size and redraw plumbing shared by the targets.
type window struct {
	size   atomic.Uint64
	scale  float64
	redraw atomic.Pointer[func()]
}

func (w *window) setSize(width, height int) {
	w.size.Store(uint64(uint32(width))<<32 | uint64(uint32(height)))
}

// Size returns the current size in pixels.
func (w *window) Size() (int, int) {
	v := w.size.Load()
	return int(v >> 32), int(uint32(v))
}

// ScaleFactor returns the DPI scale factor, 1 unless set.
func (w *window) ScaleFactor() float64 {
	if w.scale == 0 {
		return 1
	}
	return w.scale
}

// RequestRedraw forwards to the function set with OnRedraw.
func (w *window) RequestRedraw() {
	if fn := w.redraw.Load(); fn != nil {
		(*fn)()
	}
}

func (w *window) OnRedraw(fn func()) {
	if fn == nil {
		w.redraw.Store(nil)
		return
	}
	w.redraw.Store(&fn)
}
