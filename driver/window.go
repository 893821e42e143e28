// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview"
)

// WindowTarget presents into a native window through a hal.Surface.
//
// The surface is configured lazily: a resize or an outdated surface only
// marks it, and the next AcquireView reconfigures it.
type WindowTarget struct {
	*Device
	window

	surface hal.Surface
	config  hal.SurfaceConfiguration
	dirty   bool
	closed  bool

	current hal.SurfaceTexture
	view    hal.TextureView

	viewDesc hal.TextureViewDescriptor
}

// WindowOptions describe the native window a WindowTarget presents to.
type WindowOptions struct {
	DisplayHandle uintptr
	WindowHandle  uintptr

	// Width and Height are the initial size in physical pixels.
	Width, Height int

	// Scale is the DPI scale factor. Default: 1.
	Scale float64

	// PresentMode defaults to FIFO (vsync).
	PresentMode gputypes.PresentMode
}

var _ Target = (*WindowTarget)(nil)

// NewWindowTarget creates a surface for the window and picks a format the
// adapter can present. The device's preferred format wins when supported.
func NewWindowTarget(dev *Device, opts WindowOptions) (*WindowTarget, error) {
	surface, err := dev.instance.CreateSurface(opts.DisplayHandle, opts.WindowHandle)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	caps := dev.adapter.SurfaceCapabilities(surface)
	if caps == nil || len(caps.Formats) == 0 {
		surface.Destroy()
		return nil, ErrUnsupportedSurface
	}

	format := dev.format
	if !slices.Contains(caps.Formats, format) {
		format = caps.Formats[0]
	}
	mode := opts.PresentMode
	if mode == gputypes.PresentModeUndefined || !slices.Contains(caps.PresentModes, mode) {
		mode = hal.PresentModeFifo
	}

	t := &WindowTarget{
		Device:  dev,
		surface: surface,
		config: hal.SurfaceConfiguration{
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: mode,
			AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		},
		dirty: true,
		viewDesc: hal.TextureViewDescriptor{
			Label:         "nightview_frame",
			Format:        format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		},
	}
	t.scale = opts.Scale
	t.setSize(max(opts.Width, 0), max(opts.Height, 0))
	nightview.Logger().Info("driver: window target created",
		"format", format.String(), "width", opts.Width, "height", opts.Height)
	return t, nil
}

// SurfaceFormat returns the format the surface is configured with.
func (t *WindowTarget) SurfaceFormat() gputypes.TextureFormat { return t.config.Format }

// Resize records the new size. The surface is reconfigured on the next
// acquire.
func (t *WindowTarget) Resize(width, height int) error {
	if t.closed {
		return ErrClosed
	}
	t.setSize(max(width, 0), max(height, 0))
	t.dirty = true
	return nil
}

func (t *WindowTarget) configure() error {
	w, h := t.Size()
	if w == 0 || h == 0 {
		return hal.ErrZeroArea
	}
	t.config.Width, t.config.Height = uint32(w), uint32(h)
	if err := t.surface.Configure(t.device, &t.config); err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", w, h, err)
	}
	t.dirty = false
	nightview.Logger().Debug("driver: surface configured", "width", w, "height", h)
	return nil
}

// AcquireView acquires the next surface texture and returns a view of it.
// An outdated surface is reconfigured once and the acquire retried.
func (t *WindowTarget) AcquireView() (hal.TextureView, error) {
	if t.closed {
		return nil, ErrClosed
	}
	t.releaseFrame(true)
	if t.dirty {
		if err := t.configure(); err != nil {
			return nil, err
		}
	}

	acquired, err := t.surface.AcquireTexture(nil)
	if errors.Is(err, hal.ErrSurfaceOutdated) {
		nightview.Logger().Warn("driver: surface outdated, reconfiguring")
		if err := t.configure(); err != nil {
			return nil, err
		}
		acquired, err = t.surface.AcquireTexture(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	if acquired.Suboptimal {
		t.dirty = true
	}

	view, err := t.device.CreateTextureView(acquired.Texture, &t.viewDesc)
	if err != nil {
		t.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create frame view: %w", err)
	}
	t.current, t.view = acquired.Texture, view
	return view, nil
}

// Present shows the texture acquired by the last AcquireView. An outdated
// surface is not an error: it is reconfigured before the next frame.
func (t *WindowTarget) Present() error {
	if t.current == nil {
		return nil
	}
	err := t.queue.Present(t.surface, t.current, nil)
	t.releaseFrame(false)
	if errors.Is(err, hal.ErrSurfaceOutdated) {
		t.dirty = true
		nightview.Logger().Warn("driver: present on outdated surface")
		return nil
	}
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// releaseFrame drops the per-frame view. A texture that was acquired but
// never presented is discarded.
func (t *WindowTarget) releaseFrame(discard bool) {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.current != nil && discard {
		t.surface.DiscardTexture(t.current)
	}
	t.current = nil
}

// Close unconfigures and destroys the surface.
func (t *WindowTarget) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.releaseFrame(true)
	t.surface.Unconfigure(t.device)
	t.surface.Destroy()
	t.OnRedraw(nil)
}
