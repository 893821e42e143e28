//go:build !gst

package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/nightview/frame"
)

func TestGStreamerUnavailable(t *testing.T) {
	g := NewGStreamer("file:///dev/null")
	err := g.Run(context.Background(), frame.NewSurface(1, 1))
	if !errors.Is(err, ErrGStreamerUnavailable) {
		t.Errorf("Run = %v, want ErrGStreamerUnavailable", err)
	}
}
