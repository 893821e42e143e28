//go:build !gst

package capture

import (
	"context"

	"github.com/gogpu/nightview/frame"
)

// GStreamer is unavailable in this build; Run returns
// ErrGStreamerUnavailable. Build with -tags gst to enable it.
type GStreamer struct {
	URI string
}

// NewGStreamer returns a source for uri.
func NewGStreamer(uri string) *GStreamer {
	return &GStreamer{URI: uri}
}

// Frames always returns 0.
func (g *GStreamer) Frames() uint64 { return 0 }

// Run implements Source.
func (g *GStreamer) Run(context.Context, *frame.Surface) error {
	return ErrGStreamerUnavailable
}
