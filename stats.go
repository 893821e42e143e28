package nightview

import "github.com/gogpu/nightview/frame"

// Stats is a snapshot of renderer counters.
type Stats struct {
	// Session identifies the current or last render context.
	Session string
	State   State

	FramesDrawn    uint64
	FramesSkipped  uint64
	TextureUploads uint64
	Signals        uint64

	// Surface holds the frame surface counters of the current context.
	Surface frame.Stats
}

// Stats returns the current counters. It does not wait for a draw.
func (r *Renderer) Stats() Stats {
	st := Stats{
		State:          r.State(),
		FramesDrawn:    r.drawn.Load(),
		FramesSkipped:  r.skipped.Load(),
		TextureUploads: r.uploads.Load(),
		Signals:        r.sync.Signals(),
	}
	if s := r.Surface(); s != nil {
		st.Surface = s.Stats()
	}
	if id := r.sessionID.Load(); id != nil {
		st.Session = *id
	}
	return st
}
