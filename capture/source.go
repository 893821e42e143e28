// Package capture provides frame producers for a frame.Surface.
//
// A Source runs on its own goroutine and deposits frames until its context
// is done or the surface is released, whichever comes first:
//
//	nightview.WithSurfaceReady(func(s *frame.Surface) {
//	    go capture.NewTestPattern(30).Run(ctx, s)
//	})
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/nightview"
	"github.com/gogpu/nightview/frame"
)

// Source produces frames into a surface.
type Source interface {
	// Run deposits frames into s until ctx is done or s is released. Both
	// end the run with a nil error.
	Run(ctx context.Context, s *frame.Surface) error
}

// DefaultFPS is the frame rate of the synthetic sources.
const DefaultFPS = 30

// ErrGStreamerUnavailable is returned by the GStreamer source in builds
// without the gst tag.
var ErrGStreamerUnavailable = errors.New("capture: built without GStreamer support (use -tags gst)")

// deposit hands f to s. It reports stop when the surface is gone.
func deposit(s *frame.Surface, f *frame.Frame) (stop bool, err error) {
	f.TraceID = uuid.NewString()
	err = s.Deposit(f)
	if errors.Is(err, frame.ErrReleased) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return false, nil
}

// pace calls produce at fps until ctx is done, produce stops, or it fails.
func pace(ctx context.Context, fps int, name string, produce func(n uint64) (stop bool, err error)) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	nightview.Logger().Info("capture: source started", "source", name, "fps", fps)
	var n uint64
	for {
		stop, err := produce(n)
		n++
		if err != nil {
			return err
		}
		if stop {
			nightview.Logger().Info("capture: surface released, source stopped", "source", name, "frames", n-1)
			return nil
		}
		select {
		case <-ctx.Done():
			nightview.Logger().Info("capture: source stopped", "source", name, "frames", n)
			return nil
		case <-ticker.C:
		}
	}
}
