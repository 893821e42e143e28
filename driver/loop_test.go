// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/nightview"
)

// recordingConsumer records the hooks a Loop calls.
type recordingConsumer struct {
	mu        sync.Mutex
	created   int
	destroyed int
	sizes     [][2]int
	draws     int

	createErr error
	drawErr   error
	onDraw    func(n int)
	onChanged func(w, h int)
}

func (c *recordingConsumer) OnSurfaceCreated(nightview.Host) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
	return c.createErr
}

func (c *recordingConsumer) OnSurfaceChanged(w, h int) {
	c.mu.Lock()
	c.sizes = append(c.sizes, [2]int{w, h})
	fn := c.onChanged
	c.mu.Unlock()
	if fn != nil {
		fn(w, h)
	}
}

func (c *recordingConsumer) OnDrawFrame() error {
	c.mu.Lock()
	c.draws++
	n, fn, err := c.draws, c.onDraw, c.drawErr
	c.mu.Unlock()
	if fn != nil {
		fn(n)
	}
	return err
}

func (c *recordingConsumer) OnDestroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
}

func (c *recordingConsumer) snapshot() (draws int, sizes [][2]int, destroyed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draws, append([][2]int(nil), c.sizes...), c.destroyed
}

func TestLoopContinuous(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := &recordingConsumer{onDraw: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	loop := NewLoop(target, c, LoopConfig{FPS: 200})

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	draws, sizes, destroyed := c.snapshot()
	if draws < 3 {
		t.Errorf("draws = %d, want at least 3", draws)
	}
	if len(sizes) == 0 || sizes[0] != [2]int{16, 8} {
		t.Errorf("initial size = %v, want [16 8]", sizes)
	}
	if destroyed != 1 {
		t.Errorf("OnDestroy calls = %d, want 1", destroyed)
	}
}

func TestLoopWhenDirtyDrawsOnRequest(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	drawn := make(chan struct{}, 1)
	c := &recordingConsumer{onDraw: func(int) { drawn <- struct{}{} }}
	loop := NewLoop(target, c, LoopConfig{FPS: 500, Mode: nightview.RenderWhenDirty})

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if draws, _, _ := c.snapshot(); draws != 0 {
		t.Errorf("draws without a request = %d, want 0", draws)
	}

	// The target forwards RequestRedraw to the loop.
	target.RequestRedraw()
	<-drawn
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if draws, _, _ := c.snapshot(); draws != 1 {
		t.Errorf("draws = %d, want 1", draws)
	}
}

func TestLoopResizeLatestWins(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := &recordingConsumer{onChanged: func(w, h int) {
		if w != 4 {
			cancel()
		}
	}}
	loop := NewLoop(target, c, LoopConfig{FPS: 1, Mode: nightview.RenderWhenDirty})
	loop.Resize(100, 100)
	loop.Resize(200, 150)

	if err := loop.Run(ctx); err != nil {
		t.Fatal(err)
	}
	_, sizes, _ := c.snapshot()
	want := [][2]int{{4, 4}, {200, 150}}
	if len(sizes) != len(want) || sizes[0] != want[0] || sizes[1] != want[1] {
		t.Errorf("sizes = %v, want %v", sizes, want)
	}
	if w, h := target.Size(); w != 200 || h != 150 {
		t.Errorf("target size = %dx%d, want 200x150", w, h)
	}
}

func TestLoopWhenDirtyRedrawsAfterResize(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	drawn := make(chan struct{}, 1)
	c := &recordingConsumer{onDraw: func(int) {
		select {
		case drawn <- struct{}{}:
		default:
		}
	}}
	loop := NewLoop(target, c, LoopConfig{FPS: 1, Mode: nightview.RenderWhenDirty})

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	loop.Resize(32, 16)

	select {
	case <-drawn:
	case err := <-done:
		t.Fatalf("loop exited before drawing: %v", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	draws, sizes, _ := c.snapshot()
	if draws < 1 || sizes[len(sizes)-1] != [2]int{32, 16} {
		t.Errorf("draws = %d, sizes = %v", draws, sizes)
	}
}

func TestLoopBindEvents(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	loop := NewLoop(target, &recordingConsumer{}, LoopConfig{})
	var src fakeEvents
	loop.BindEvents(&src)
	src.resize(640, 480)

	select {
	case got := <-loop.resize:
		if got != [2]int{640, 480} {
			t.Errorf("queued resize = %v", got)
		}
	default:
		t.Fatal("resize event not queued")
	}
}

type fakeEvents struct{ resize func(w, h int) }

func (f *fakeEvents) OnResize(fn func(w, h int)) { f.resize = fn }

func TestLoopErrors(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	createErr := errors.New("boom")
	c := &recordingConsumer{createErr: createErr}
	if err := NewLoop(target, c, LoopConfig{}).Run(context.Background()); !errors.Is(err, createErr) {
		t.Errorf("Run = %v, want create error", err)
	}
	if _, _, destroyed := c.snapshot(); destroyed != 0 {
		t.Error("OnDestroy called after failed create")
	}

	drawErr := errors.New("lost")
	c = &recordingConsumer{drawErr: drawErr}
	if err := NewLoop(target, c, LoopConfig{FPS: 500}).Run(context.Background()); !errors.Is(err, drawErr) {
		t.Errorf("Run = %v, want draw error", err)
	}
	if _, _, destroyed := c.snapshot(); destroyed != 1 {
		t.Error("OnDestroy not called after draw failure")
	}
}

func TestLoopDrivesRenderer(t *testing.T) {
	dev := openNoop(t)
	target, err := NewOffscreenTarget(dev, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	r := nightview.NewRenderer(nightview.WithFrameSize(8, 8))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- NewLoop(target, r, LoopConfig{FPS: 200}).Run(ctx) }()

	for r.Stats().FramesDrawn < 2 {
		select {
		case err := <-done:
			t.Fatalf("loop exited early: %v (renderer err %v)", err, r.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if r.State() != nightview.StateDestroyed {
		t.Errorf("renderer state = %v, want destroyed", r.State())
	}
	if target.Presented() < 2 {
		t.Errorf("Presented = %d", target.Presented())
	}
}
