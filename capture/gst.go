//go:build gst

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/gogpu/nightview"
	"github.com/gogpu/nightview/frame"
)

// GStreamer decodes any URI GStreamer can open (files, RTSP, v4l2 through
// "v4l2:///dev/video0" style sources) and deposits RGBA frames scaled to
// the surface size. The appsink keeps only the newest buffer.
type GStreamer struct {
	URI string

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// NewGStreamer returns a source for uri.
func NewGStreamer(uri string) *GStreamer {
	return &GStreamer{URI: uri}
}

// Frames returns the number of frames deposited.
func (g *GStreamer) Frames() uint64 { return g.frames.Load() }

// Run implements Source. It returns when ctx is done, the surface is
// released, the stream ends or the pipeline reports an error.
func (g *GStreamer) Run(ctx context.Context, s *frame.Surface) error {
	gst.Init(nil)
	w, h := s.Size()

	pipeline, sink, err := g.build(w, h)
	if err != nil {
		return err
	}
	defer pipeline.SetState(gst.StateNull)

	released := make(chan struct{})
	var once atomic.Bool
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			f := pull(sink, w, h)
			if f == nil {
				g.dropped.Add(1)
				return gst.FlowOK
			}
			stop, err := deposit(s, f)
			if err != nil {
				nightview.Logger().Warn("capture: gstreamer frame rejected", "err", err)
				return gst.FlowOK
			}
			if stop {
				if once.CompareAndSwap(false, true) {
					close(released)
				}
				return gst.FlowEOS
			}
			g.frames.Add(1)
			return gst.FlowOK
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("capture: start pipeline: %w", err)
	}
	nightview.Logger().Info("capture: gstreamer started", "uri", g.URI, "width", w, "height", h)

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-released:
			return nil
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			nightview.Logger().Info("capture: end of stream", "uri", g.URI, "frames", g.frames.Load())
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			nightview.Logger().Error("capture: pipeline error", "uri", g.URI, "err", gerr.Error(), "debug", gerr.DebugString())
			return fmt.Errorf("capture: %s: %w", g.URI, errors.New(gerr.Error()))
		}
	}
}

// build assembles
//
//	uridecodebin ! videoconvert ! videoscale ! capsfilter(RGBA, w x h) ! appsink
func (g *GStreamer) build(w, h int) (*gst.Pipeline, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create pipeline: %w", err)
	}
	src, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create uridecodebin: %w", err)
	}
	src.SetProperty("uri", g.URI)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create videoscale: %w", err)
	}
	filter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create capsfilter: %w", err)
	}
	filter.SetProperty("caps", gst.NewCapsFromString(
		fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", w, h)))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	if err := pipeline.AddMany(src, convert, scale, filter, sink.Element); err != nil {
		return nil, nil, fmt.Errorf("capture: add elements: %w", err)
	}
	if err := gst.ElementLinkMany(convert, scale, filter, sink.Element); err != nil {
		return nil, nil, fmt.Errorf("capture: link elements: %w", err)
	}

	// uridecodebin exposes its pads once the stream type is known. Audio
	// pads fail to link to videoconvert and are ignored.
	src.Connect("pad-added", func(self *gst.Element, pad *gst.Pad) {
		sinkPad := convert.GetStaticPad("sink")
		if sinkPad == nil || sinkPad.IsLinked() {
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			nightview.Logger().Debug("capture: pad not linked", "pad", pad.GetName(), "ret", ret)
		}
	})
	return pipeline, sink, nil
}

// pull copies the next sample out of the appsink. GStreamer reuses its
// buffers, so the pixels are copied into a frame the surface can own.
func pull(sink *app.Sink, w, h int) *frame.Frame {
	sample := sink.PullSample()
	if sample == nil {
		return nil
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil
	}
	mapped := buffer.Map(gst.MapRead)
	data := mapped.Bytes()
	defer buffer.Unmap()
	if len(data) < w*h*frame.BytesPerPixel {
		return nil
	}
	pix := make([]byte, w*h*frame.BytesPerPixel)
	copy(pix, data)
	return &frame.Frame{Pix: pix, Width: w, Height: h, Timestamp: time.Now()}
}
