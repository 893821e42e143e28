// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestFrame(w, h int, fill byte) *Frame {
	pix := make([]byte, w*h*BytesPerPixel)
	for i := range pix {
		pix[i] = fill
	}
	return &Frame{Pix: pix}
}

func TestSurfaceLatestEmpty(t *testing.T) {
	s := NewSurface(4, 2)
	if f, ok := s.Latest(0); ok || f != nil {
		t.Fatalf("Latest on empty surface = (%v, %v), want (nil, false)", f, ok)
	}
}

func TestSurfaceDepositAssignsSequence(t *testing.T) {
	s := NewSurface(4, 2)
	for want := uint64(1); want <= 3; want++ {
		f := newTestFrame(4, 2, byte(want))
		if err := s.Deposit(f); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		if f.Seq != want {
			t.Errorf("Seq = %d, want %d", f.Seq, want)
		}
		if f.Width != 4 || f.Height != 2 || f.Stride != 16 {
			t.Errorf("frame geometry = %dx%d stride %d, want 4x2 stride 16", f.Width, f.Height, f.Stride)
		}
		if f.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	}
}

func TestSurfaceOverwriteKeepsLatest(t *testing.T) {
	s := NewSurface(2, 2)
	const n = 5
	for i := 1; i <= n; i++ {
		if err := s.Deposit(newTestFrame(2, 2, byte(i))); err != nil {
			t.Fatalf("Deposit %d: %v", i, err)
		}
	}

	f, ok := s.Latest(0)
	if !ok {
		t.Fatal("Latest returned false after deposits")
	}
	if f.Seq != n || f.Pix[0] != n {
		t.Errorf("Latest = seq %d fill %d, want seq %d fill %d", f.Seq, f.Pix[0], n, n)
	}

	st := s.Stats()
	if st.Deposited != n {
		t.Errorf("Deposited = %d, want %d", st.Deposited, n)
	}
	if st.Dropped != n-1 {
		t.Errorf("Dropped = %d, want %d", st.Dropped, n-1)
	}
	if st.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1", st.Consumed)
	}

	// Nothing newer: no frame, no extra consumption.
	if _, ok := s.Latest(f.Seq); ok {
		t.Error("Latest(after=current) returned true")
	}
	if got := s.Stats().Consumed; got != 1 {
		t.Errorf("Consumed after empty poll = %d, want 1", got)
	}
}

func TestSurfaceConsumedFrameIsNotDropped(t *testing.T) {
	s := NewSurface(2, 2)
	_ = s.Deposit(newTestFrame(2, 2, 1))
	f, _ := s.Latest(0)
	_ = s.Deposit(newTestFrame(2, 2, 2))
	if _, ok := s.Latest(f.Seq); !ok {
		t.Fatal("expected newer frame")
	}
	if got := s.Stats().Dropped; got != 0 {
		t.Errorf("Dropped = %d, want 0", got)
	}
}

func TestSurfaceDepositValidation(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
		want  error
	}{
		{"wrong size", &Frame{Pix: make([]byte, 64), Width: 4, Height: 4}, ErrFrameSize},
		{"short buffer", &Frame{Pix: make([]byte, 8)}, ErrShortBuffer},
		{"narrow stride", &Frame{Pix: make([]byte, 64), Stride: 4}, ErrShortBuffer},
		{"padded stride", &Frame{Pix: make([]byte, 40), Stride: 20}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSurface(4, 2)
			err := s.Deposit(tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("Deposit error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSurfaceListener(t *testing.T) {
	s := NewSurface(1, 1)
	var calls atomic.Int32
	s.SetFrameAvailableListener(func() { calls.Add(1) })

	for i := 0; i < 3; i++ {
		_ = s.Deposit(newTestFrame(1, 1, 0))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("listener calls = %d, want 3", got)
	}

	s.SetFrameAvailableListener(nil)
	_ = s.Deposit(newTestFrame(1, 1, 0))
	if got := calls.Load(); got != 3 {
		t.Errorf("listener calls after removal = %d, want 3", got)
	}
}

func TestSurfaceRelease(t *testing.T) {
	s := NewSurface(1, 1)
	var calls atomic.Int32
	s.SetFrameAvailableListener(func() { calls.Add(1) })
	_ = s.Deposit(newTestFrame(1, 1, 0))

	s.Release()
	s.Release()

	if !s.Released() {
		t.Fatal("Released() = false after Release")
	}
	if err := s.Deposit(newTestFrame(1, 1, 0)); !errors.Is(err, ErrReleased) {
		t.Errorf("Deposit after release = %v, want ErrReleased", err)
	}
	if _, ok := s.Latest(0); ok {
		t.Error("Latest after release returned a frame")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("listener calls = %d, want 1", got)
	}
}

func TestSurfaceDepositNil(t *testing.T) {
	s := NewSurface(1, 1)
	if err := s.Deposit(nil); !errors.Is(err, ErrNilFrame) {
		t.Errorf("Deposit(nil) = %v, want ErrNilFrame", err)
	}
	if st := s.Stats(); st.Deposited != 0 {
		t.Errorf("Deposited = %d, want 0", st.Deposited)
	}
}

func TestSurfaceReleaseDuringDeposits(t *testing.T) {
	for range 50 {
		s := NewSurface(2, 2)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for range 4 {
			wg.Go(func() {
				<-start
				for {
					if err := s.Deposit(newTestFrame(2, 2, 1)); errors.Is(err, ErrReleased) {
						return
					}
				}
			})
		}
		close(start)
		s.Release()
		wg.Wait()

		if _, ok := s.Latest(0); ok {
			t.Fatal("released surface still holds a frame")
		}
	}
}

func TestSurfaceConcurrentProducers(t *testing.T) {
	s := NewSurface(2, 2)
	const producers, perProducer = 4, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := s.Deposit(newTestFrame(2, 2, 0)); err != nil {
					t.Errorf("Deposit: %v", err)
					return
				}
			}
		}()
	}

	var last uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if f, ok := s.Latest(last); ok {
				if f.Seq <= last {
					t.Errorf("sequence went backwards: %d after %d", f.Seq, last)
					return
				}
				last = f.Seq
			}
		}
	}()

	wg.Wait()
	<-done

	st := s.Stats()
	if st.Deposited != producers*perProducer {
		t.Errorf("Deposited = %d, want %d", st.Deposited, producers*perProducer)
	}
	if st.Dropped >= st.Deposited {
		t.Errorf("Dropped = %d, want fewer than Deposited (%d)", st.Dropped, st.Deposited)
	}
}

func TestNewSurfaceInvalidSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewSurface(0, 1) did not panic")
		}
	}()
	NewSurface(0, 1)
}
