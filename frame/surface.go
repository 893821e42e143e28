// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a surface's counters.
type Stats struct {
	// Deposited counts frames accepted by Deposit.
	Deposited uint64

	// Dropped counts frames overwritten before the consumer saw them.
	Dropped uint64

	// Consumed counts frames handed out by Latest.
	Consumed uint64
}

// Surface is a single-slot, overwrite-on-write frame mailbox bound to one
// GPU texture.
//
// Deposit may be called from any goroutine; Latest is meant for the render
// goroutine. Neither blocks.
type Surface struct {
	width, height int

	slot     atomic.Pointer[Frame]
	seq      atomic.Uint64
	lastSeen atomic.Uint64
	released atomic.Bool
	listener atomic.Pointer[func()]

	deposited atomic.Uint64
	dropped   atomic.Uint64
	consumed  atomic.Uint64
}

// NewSurface returns a surface accepting width x height RGBA8 frames.
func NewSurface(width, height int) *Surface {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("frame: invalid surface size %dx%d", width, height))
	}
	return &Surface{width: width, height: height}
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

// SetFrameAvailableListener installs fn to be called after every successful
// Deposit, on the depositing goroutine. Pass nil to remove it.
func (s *Surface) SetFrameAvailableListener(fn func()) {
	if fn == nil {
		s.listener.Store(nil)
		return
	}
	s.listener.Store(&fn)
}

// Deposit publishes f as the newest frame. Ownership of f passes to the
// surface. An earlier frame that was never consumed is dropped.
func (s *Surface) Deposit(f *Frame) error {
	if s.released.Load() {
		return ErrReleased
	}
	if f == nil {
		return ErrNilFrame
	}
	if err := f.validate(s.width, s.height); err != nil {
		return fmt.Errorf("deposit %dx%d frame: %w", f.Width, f.Height, err)
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	f.Seq = s.seq.Add(1)

	old := s.slot.Swap(f)
	if s.released.Load() {
		// Release ran between the check above and the swap.
		s.slot.CompareAndSwap(f, nil)
		return ErrReleased
	}
	s.deposited.Add(1)
	if old != nil && old.Seq > s.lastSeen.Load() {
		s.dropped.Add(1)
	}

	if fn := s.listener.Load(); fn != nil {
		(*fn)()
	}
	return nil
}

// Latest returns the newest frame if its sequence number is greater than
// after. It reports false when nothing newer has been deposited.
func (s *Surface) Latest(after uint64) (*Frame, bool) {
	f := s.slot.Load()
	if f == nil || f.Seq <= after {
		return nil, false
	}
	for {
		seen := s.lastSeen.Load()
		if f.Seq <= seen {
			break
		}
		if s.lastSeen.CompareAndSwap(seen, f.Seq) {
			s.consumed.Add(1)
			break
		}
	}
	return f, true
}

// Release invalidates the surface. Later deposits fail with ErrReleased and
// the listener is removed. Release is idempotent.
func (s *Surface) Release() {
	if s.released.Swap(true) {
		return
	}
	s.listener.Store(nil)
	s.slot.Store(nil)
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	return s.released.Load()
}

// Stats returns the current counters.
func (s *Surface) Stats() Stats {
	return Stats{
		Deposited: s.deposited.Load(),
		Dropped:   s.dropped.Load(),
		Consumed:  s.consumed.Load(),
	}
}
