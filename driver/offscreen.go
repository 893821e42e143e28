// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// OffscreenTarget renders into a texture that is never shown. It serves
// headless runs and benchmarks.
type OffscreenTarget struct {
	*Device
	window

	texture hal.Texture
	view    hal.TextureView
	closed  bool

	presented atomic.Uint64
}

var _ Target = (*OffscreenTarget)(nil)

// NewOffscreenTarget creates a width x height color target in the device's
// preferred format.
func NewOffscreenTarget(dev *Device, width, height int) (*OffscreenTarget, error) {
	t := &OffscreenTarget{Device: dev}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize recreates the color texture. A zero-area size drops it until the
// next non-empty resize.
func (t *OffscreenTarget) Resize(width, height int) error {
	if t.closed {
		return ErrClosed
	}
	width, height = max(width, 0), max(height, 0)
	if w, h := t.Size(); w == width && h == height && t.view != nil {
		return nil
	}
	t.destroyTexture()
	t.setSize(width, height)
	if width == 0 || height == 0 {
		return nil
	}

	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "nightview_offscreen",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen texture: %w", err)
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "nightview_offscreen_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return fmt.Errorf("create offscreen view: %w", err)
	}
	t.texture, t.view = tex, view
	return nil
}

// AcquireView returns the view of the color texture.
func (t *OffscreenTarget) AcquireView() (hal.TextureView, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if t.view == nil {
		return nil, hal.ErrZeroArea
	}
	return t.view, nil
}

// Present counts the frame.
func (t *OffscreenTarget) Present() error {
	t.presented.Add(1)
	return nil
}

// Presented returns the number of frames presented.
func (t *OffscreenTarget) Presented() uint64 { return t.presented.Load() }

// Texture returns the color texture, nil while the size is zero.
func (t *OffscreenTarget) Texture() hal.Texture { return t.texture }

// Close destroys the color texture.
func (t *OffscreenTarget) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.destroyTexture()
	t.OnRedraw(nil)
}

func (t *OffscreenTarget) destroyTexture() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
