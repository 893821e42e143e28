package nightview

import (
	"io/fs"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/nightview/frame"
	"github.com/gogpu/nightview/shader"
)

// RenderMode selects when the host is expected to draw.
type RenderMode int

const (
	// RenderContinuously draws at the host's cadence whether or not a new
	// frame arrived.
	RenderContinuously RenderMode = iota

	// RenderWhenDirty draws only when asked. A new frame requests a redraw
	// from the host if it implements gpucontext.WindowProvider.
	RenderWhenDirty
)

func (m RenderMode) String() string {
	if m == RenderWhenDirty {
		return "when-dirty"
	}
	return "continuously"
}

// Default camera frame size.
const (
	DefaultFrameWidth  = 1280
	DefaultFrameHeight = 720
)

// Option configures a Renderer.
//
// Example:
//
//	r := nightview.NewRenderer(
//	    nightview.WithSurfaceReady(func(s *frame.Surface) { go cam.Run(ctx, s) }),
//	    nightview.WithRenderMode(nightview.RenderWhenDirty),
//	)
type Option func(*options)

type options struct {
	onSurfaceReady func(*frame.Surface)

	shaderFS     fs.FS
	vertexName   string
	fragmentName string

	vertexSource   string
	fragmentSource string

	mode   RenderMode
	frameW int
	frameH int
	clear  gputypes.Color
	params *Params
}

func defaultOptions() options {
	return options{
		shaderFS:     shader.Assets,
		vertexName:   shader.DefaultVertex,
		fragmentName: shader.DefaultFragment,
		mode:         RenderContinuously,
		frameW:       DefaultFrameWidth,
		frameH:       DefaultFrameHeight,
		clear:        gputypes.Color{A: 1},
	}
}

// WithSurfaceReady sets the callback that receives the producer-facing
// frame surface each time a render context is created. It runs on the
// goroutine calling OnSurfaceCreated, after the renderer is ready.
func WithSurfaceReady(fn func(*frame.Surface)) Option {
	return func(o *options) {
		o.onSurfaceReady = fn
	}
}

// WithShaderFS loads the vertex and fragment sources by name from fsys.
func WithShaderFS(fsys fs.FS, vertexName, fragmentName string) Option {
	return func(o *options) {
		o.shaderFS = fsys
		o.vertexName = vertexName
		o.fragmentName = fragmentName
		o.vertexSource, o.fragmentSource = "", ""
	}
}

// WithShaderSource uses the given WGSL sources instead of loading them.
func WithShaderSource(vertex, fragment string) Option {
	return func(o *options) {
		o.vertexSource = vertex
		o.fragmentSource = fragment
		o.shaderFS = nil
	}
}

// WithRenderMode sets the render mode. Default: RenderContinuously.
func WithRenderMode(m RenderMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithFrameSize sets the camera frame size the texture and frame surface
// are created with. Non-positive values keep the default.
func WithFrameSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.frameW, o.frameH = width, height
		}
	}
}

// WithClearColor sets the color the target is cleared to before drawing.
// Default: opaque black.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithParams shares an existing parameter set instead of creating one.
func WithParams(p *Params) Option {
	return func(o *options) {
		o.params = p
	}
}
