// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gogpu/nightview"
)

// DefaultFPS is the draw rate of a continuous loop.
const DefaultFPS = 30

// LoopConfig configures a Loop.
type LoopConfig struct {
	// FPS is the continuous draw rate. Default: DefaultFPS.
	FPS int

	// Mode must match the renderer's render mode. In RenderWhenDirty the
	// loop draws only when a redraw was requested.
	Mode nightview.RenderMode
}

// ResizeSource delivers window size changes. gpucontext.EventSource
// implements it.
type ResizeSource interface {
	OnResize(func(width, height int))
}

// Loop is the render goroutine. It owns the target and calls the consumer's
// lifecycle hooks from one locked OS thread.
type Loop struct {
	target   Target
	consumer nightview.SurfaceConsumer
	interval time.Duration
	mode     nightview.RenderMode

	resize chan [2]int
	redraw chan struct{}
}

// NewLoop returns a loop that drives consumer on target.
func NewLoop(target Target, consumer nightview.SurfaceConsumer, cfg LoopConfig) *Loop {
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	l := &Loop{
		target:   target,
		consumer: consumer,
		interval: time.Second / time.Duration(fps),
		mode:     cfg.Mode,
		resize:   make(chan [2]int, 1),
		redraw:   make(chan struct{}, 1),
	}
	target.OnRedraw(l.RequestRedraw)
	return l
}

// Resize queues a size change. It may be called from any goroutine; only
// the latest pending size is applied.
func (l *Loop) Resize(width, height int) {
	size := [2]int{width, height}
	for {
		select {
		case l.resize <- size:
			return
		default:
		}
		select {
		case <-l.resize:
		default:
		}
	}
}

// RequestRedraw asks for one draw. Requests made before the draw runs
// collapse into it.
func (l *Loop) RequestRedraw() {
	select {
	case l.redraw <- struct{}{}:
	default:
	}
}

// BindEvents routes the source's resize events to the loop.
func (l *Loop) BindEvents(src ResizeSource) {
	src.OnResize(l.Resize)
}

// Run creates the render context, draws until ctx is done or a draw fails,
// then destroys the context. It returns nil when ctx ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := l.consumer.OnSurfaceCreated(l.target); err != nil {
		return fmt.Errorf("create render context: %w", err)
	}
	defer l.consumer.OnDestroy()
	l.consumer.OnSurfaceChanged(l.target.Size())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case size := <-l.resize:
			l.applyResize(size[0], size[1])
		case <-l.redraw:
			if err := l.consumer.OnDrawFrame(); err != nil {
				return err
			}
		case <-ticker.C:
			if l.mode == nightview.RenderWhenDirty {
				continue
			}
			if err := l.consumer.OnDrawFrame(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) applyResize(width, height int) {
	if err := l.target.Resize(width, height); err != nil {
		nightview.Logger().Warn("driver: resize target", "width", width, "height", height, "err", err)
		return
	}
	l.consumer.OnSurfaceChanged(l.target.Size())
	if l.mode == nightview.RenderWhenDirty {
		l.RequestRedraw()
	}
}
