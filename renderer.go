package nightview

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/google/uuid"

	"github.com/gogpu/nightview/frame"
	"github.com/gogpu/nightview/internal/gpu"
	"github.com/gogpu/nightview/shader"
)

// Renderer draws the newest camera frame through the enhancement program on
// every OnDrawFrame. The host drives it through the SurfaceConsumer hooks,
// all from one goroutine; OnFrameAvailable and Params may be used from any
// goroutine.
//
// The hooks are serialized by a mutex, so OnDestroy waits for a draw in
// progress to finish.
type Renderer struct {
	opts   options
	params *Params
	sync   *Synchronizer

	state     atomic.Int32
	lastErr   atomic.Pointer[error]
	surface   atomic.Pointer[frame.Surface]
	sessionID atomic.Pointer[string]

	mu            sync.Mutex
	host          Host
	ctx           *gpu.Context
	locs          uniformLocations
	width, height int
	session       uuid.UUID

	drawn   atomic.Uint64
	skipped atomic.Uint64
	uploads atomic.Uint64
}

// uniformLocations caches the program's uniform locations after link.
type uniformLocations struct {
	sigma, n, brightThresh, brightK, gamma, enabled shader.Location
}

// NewRenderer returns a renderer in StateUninitialized.
func NewRenderer(opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := o.params
	if p == nil {
		p = NewParams()
	}
	return &Renderer{
		opts:   o,
		params: p,
		sync:   NewSynchronizer(o.mode),
	}
}

// Params returns the live parameter set.
func (r *Renderer) Params() *Params { return r.params }

// Synchronizer returns the frame-availability synchronizer.
func (r *Renderer) Synchronizer() *Synchronizer { return r.sync }

// State returns the current lifecycle state.
func (r *Renderer) State() State { return State(r.state.Load()) }

// Err returns the error that moved the renderer to StateFailed, or nil.
func (r *Renderer) Err() error {
	if p := r.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Surface returns the producer-facing frame surface of the current context,
// or nil when no context exists.
func (r *Renderer) Surface() *frame.Surface { return r.surface.Load() }

// OnFrameAvailable records that the producer deposited a new frame. It is
// installed as the frame surface listener and may be called from any
// goroutine. It never touches the GPU.
func (r *Renderer) OnFrameAvailable() { r.sync.OnFrameAvailable() }

// OnSurfaceCreated compiles the program and builds the render context for
// host. A previous context is released first. On success the new frame
// surface is handed to the WithSurfaceReady callback; on failure the
// renderer enters StateFailed and the error is returned.
func (r *Renderer) OnSurfaceCreated(host Host) error {
	r.mu.Lock()
	if r.State().active() {
		r.releaseLocked()
		r.setState(StateDestroyed)
	}
	if err := r.createLocked(host); err != nil {
		r.failLocked(err)
		r.mu.Unlock()
		return err
	}
	r.lastErr.Store(nil)
	r.setState(StateSurfaceReady)
	surface := r.Surface()
	ready := r.opts.onSurfaceReady
	r.mu.Unlock()

	if ready != nil {
		ready(surface)
	}
	return nil
}

func (r *Renderer) createLocked(host Host) error {
	device, queue, err := halDevice(host)
	if err != nil {
		return err
	}
	vs, fs, err := r.loadSources()
	if err != nil {
		return err
	}
	prog, err := shader.Compile(vs, fs)
	if err != nil {
		return err
	}

	session := uuid.New()
	surface := frame.NewSurface(r.opts.frameW, r.opts.frameH)
	ctx, err := gpu.NewContext(device, queue, gpu.Config{
		Program:      prog,
		Surface:      surface,
		TargetFormat: host.SurfaceFormat(),
		Label:        "nightview-" + session.String()[:8],
	})
	if err != nil {
		surface.Release()
		return fmt.Errorf("create render context: %w", err)
	}

	r.host = host
	r.ctx = ctx
	r.session = session
	id := session.String()
	r.sessionID.Store(&id)
	r.locs = uniformLocations{
		sigma:        prog.Uniform(shader.UniformSigma),
		n:            prog.Uniform(shader.UniformN),
		brightThresh: prog.Uniform(shader.UniformBrightThresh),
		brightK:      prog.Uniform(shader.UniformBrightK),
		gamma:        prog.Uniform(shader.UniformGamma),
		enabled:      prog.Uniform(shader.UniformEnabled),
	}
	if wp, ok := host.(gpucontext.WindowProvider); ok {
		r.sync.SetRedrawRequester(wp.RequestRedraw)
	}
	r.surface.Store(surface)
	surface.SetFrameAvailableListener(r.OnFrameAvailable)

	Logger().Info("nightview: surface ready",
		"session", id,
		"frame", fmt.Sprintf("%dx%d", r.opts.frameW, r.opts.frameH),
		"mode", r.opts.mode.String(),
		"uniforms", prog.Uniforms(),
	)
	return nil
}

func (r *Renderer) loadSources() (vertex, fragment string, err error) {
	if r.opts.shaderFS == nil {
		return r.opts.vertexSource, r.opts.fragmentSource, nil
	}
	if vertex, err = shader.LoadSource(r.opts.shaderFS, r.opts.vertexName); err != nil {
		return "", "", err
	}
	if fragment, err = shader.LoadSource(r.opts.shaderFS, r.opts.fragmentName); err != nil {
		return "", "", err
	}
	return vertex, fragment, nil
}

// OnSurfaceChanged sets the viewport. Negative sizes are treated as 0, and a
// zero-area viewport makes OnDrawFrame skip drawing. Repeating the current
// size does nothing. In RenderWhenDirty mode a new non-empty size requests
// a redraw.
func (r *Renderer) OnSurfaceChanged(width, height int) {
	width, height = max(width, 0), max(height, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	Logger().Debug("nightview: viewport changed", "width", width, "height", height)
	if width > 0 && height > 0 && r.State().active() {
		r.sync.requestRedraw()
	}
}

// OnDrawFrame draws one frame: acquire the target, upload the newest camera
// frame if any, push the parameters, draw the quad, submit and present.
//
// Outside SurfaceReady and Rendering it does nothing. A GPU failure is
// returned wrapped with ErrContextLost and moves the renderer to
// StateFailed.
func (r *Renderer) OnDrawFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.State()
	if !st.active() {
		return nil
	}
	r.sync.consume()
	if r.width == 0 || r.height == 0 {
		r.skipped.Add(1)
		return nil
	}

	view, err := r.host.AcquireView()
	if err != nil {
		return r.loseLocked("acquire target", err)
	}
	r.pushParamsLocked()
	uploaded, err := r.ctx.Draw(view, r.width, r.height, r.opts.clear)
	if err != nil {
		return r.loseLocked("draw", err)
	}
	if uploaded {
		r.uploads.Add(1)
	}
	if err := r.host.Present(); err != nil {
		return r.loseLocked("present", err)
	}
	r.drawn.Add(1)

	if st == StateSurfaceReady {
		r.setState(StateRendering)
		Logger().Debug("nightview: first frame drawn", "session", r.session.String())
	}
	return nil
}

func (r *Renderer) pushParamsLocked() {
	u := r.ctx.Uniforms()
	u.SetFloat(r.locs.sigma, r.params.Sigma())
	u.SetFloat(r.locs.n, r.params.N())
	u.SetFloat(r.locs.brightThresh, r.params.BrightThresh())
	u.SetFloat(r.locs.brightK, r.params.BrightK())
	u.SetFloat(r.locs.gamma, r.params.Gamma())
	var enabled float32
	if r.params.Enabled() {
		enabled = 1
	}
	u.SetFloat(r.locs.enabled, enabled)
}

// OnDestroy waits for a draw in progress, releases the frame surface and
// then every GPU object of the context. It is idempotent.
func (r *Renderer) OnDestroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.State() {
	case StateDestroyed, StateFailed:
		return
	case StateSurfaceReady, StateRendering:
		r.releaseLocked()
	}
	r.setState(StateDestroyed)
}

// releaseLocked stops the producer first, then frees the GPU objects.
func (r *Renderer) releaseLocked() {
	if s := r.surface.Swap(nil); s != nil {
		s.Release()
	}
	if r.ctx != nil {
		r.ctx.Destroy()
		r.ctx = nil
	}
	r.host = nil
	r.sync.SetRedrawRequester(nil)
	r.sync.reset()
	Logger().Info("nightview: context destroyed",
		"session", r.session.String(),
		"drawn", r.drawn.Load(),
		"skipped", r.skipped.Load(),
	)
}

func (r *Renderer) loseLocked(op string, err error) error {
	err = fmt.Errorf("%w: %s: %w", ErrContextLost, op, err)
	r.failLocked(err)
	return err
}

func (r *Renderer) failLocked(err error) {
	if r.State().active() {
		r.releaseLocked()
	}
	r.lastErr.Store(&err)
	r.setState(StateFailed)
	Logger().Error("nightview: renderer failed", "err", err)
}

func (r *Renderer) setState(s State) { r.state.Store(int32(s)) }
