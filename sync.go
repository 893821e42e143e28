package nightview

import "sync/atomic"

// Synchronizer collapses frame-available signals from any number of
// producer goroutines into one pending flag the render goroutine consumes.
//
// OnFrameAvailable never touches the GPU. In RenderWhenDirty mode the first
// signal after a consume asks the host for a redraw; later signals in the
// same burst do not.
type Synchronizer struct {
	mode    RenderMode
	pending atomic.Bool
	signals atomic.Uint64
	redraw  atomic.Pointer[func()]
}

// NewSynchronizer returns a synchronizer for the given render mode.
func NewSynchronizer(mode RenderMode) *Synchronizer {
	return &Synchronizer{mode: mode}
}

// OnFrameAvailable marks a new frame as pending. Safe from any goroutine.
func (s *Synchronizer) OnFrameAvailable() {
	s.signals.Add(1)
	if s.pending.CompareAndSwap(false, true) {
		s.requestRedraw()
	}
}

// requestRedraw asks the host for a draw in RenderWhenDirty mode.
func (s *Synchronizer) requestRedraw() {
	if s.mode != RenderWhenDirty {
		return
	}
	if fn := s.redraw.Load(); fn != nil {
		(*fn)()
	}
}

// SetRedrawRequester installs the function called to request a redraw in
// RenderWhenDirty mode. Pass nil to remove it.
func (s *Synchronizer) SetRedrawRequester(fn func()) {
	if fn == nil {
		s.redraw.Store(nil)
		return
	}
	s.redraw.Store(&fn)
}

// Pending reports whether a signal arrived since the last consume.
func (s *Synchronizer) Pending() bool { return s.pending.Load() }

// Signals returns the total number of signals received.
func (s *Synchronizer) Signals() uint64 { return s.signals.Load() }

// Mode returns the render mode.
func (s *Synchronizer) Mode() RenderMode { return s.mode }

// reset drops a pending signal that belonged to a released context.
func (s *Synchronizer) reset() { s.pending.Store(false) }

// consume clears the pending flag and reports whether it was set.
func (s *Synchronizer) consume() bool { return s.pending.Swap(false) }
