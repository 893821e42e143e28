package nightview

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/nightview/frame"
	"github.com/gogpu/nightview/internal/gputest"
	"github.com/gogpu/nightview/shader"
)

// fakeHost is a Host backed by the recording noop device.
type fakeHost struct {
	device hal.Device
	queue  hal.Queue
	rec    *gputest.Recorder

	acquireErr error
	presentErr error

	// When set, AcquireView signals entered and then waits on release.
	entered chan struct{}
	release chan struct{}

	presents atomic.Int32
	redraws  atomic.Int32
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	device, queue, rec := gputest.Open(t)
	return &fakeHost{device: device, queue: queue, rec: rec}
}

func (h *fakeHost) Device() gpucontext.Device             { return h.device }
func (h *fakeHost) Queue() gpucontext.Queue               { return h.queue }
func (h *fakeHost) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (h *fakeHost) Adapter() gpucontext.Adapter           { return nil }
func (h *fakeHost) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware}
}
func (h *fakeHost) HalDevice() any { return h.device }
func (h *fakeHost) HalQueue() any  { return h.queue }

func (h *fakeHost) AcquireView() (hal.TextureView, error) {
	if h.entered != nil {
		h.entered <- struct{}{}
		<-h.release
	}
	if h.acquireErr != nil {
		return nil, h.acquireErr
	}
	return &noop.Resource{}, nil
}

func (h *fakeHost) Present() error {
	h.presents.Add(1)
	return h.presentErr
}

func (h *fakeHost) Size() (int, int)     { return 640, 480 }
func (h *fakeHost) ScaleFactor() float64 { return 1 }
func (h *fakeHost) RequestRedraw()       { h.redraws.Add(1) }

// bareHost exposes no HAL types.
type bareHost struct{ *fakeHost }

func (bareHost) HalDevice() any { return nil }

const testW, testH = 8, 4

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *fakeHost, *frame.Surface) {
	t.Helper()
	var surface *frame.Surface
	opts = append([]Option{
		WithFrameSize(testW, testH),
		WithSurfaceReady(func(s *frame.Surface) { surface = s }),
	}, opts...)
	r := NewRenderer(opts...)
	host := newFakeHost(t)
	if err := r.OnSurfaceCreated(host); err != nil {
		t.Fatalf("OnSurfaceCreated: %v", err)
	}
	t.Cleanup(r.OnDestroy)
	if surface == nil {
		t.Fatal("surface-ready callback not invoked")
	}
	return r, host, surface
}

func deposit(t *testing.T, s *frame.Surface) {
	t.Helper()
	if err := s.Deposit(&frame.Frame{Pix: make([]byte, testW*testH*frame.BytesPerPixel)}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
}

func uniformAt(b []byte, loc shader.Location) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[loc:]))
}

func TestRendererOneFrameOneDraw(t *testing.T) {
	r, host, surface := newTestRenderer(t)
	if r.State() != StateSurfaceReady {
		t.Fatalf("State = %v, want surface-ready", r.State())
	}
	r.OnSurfaceChanged(640, 480)
	deposit(t, surface)

	if err := r.OnDrawFrame(); err != nil {
		t.Fatalf("OnDrawFrame: %v", err)
	}
	if r.State() != StateRendering {
		t.Errorf("State = %v, want rendering", r.State())
	}

	draws := host.rec.Draws()
	if len(draws) != 1 {
		t.Fatalf("draw calls = %d, want 1", len(draws))
	}
	if d := draws[0]; d.VertexCount != 4 || d.Topology != gputypes.PrimitiveTopologyTriangleStrip {
		t.Errorf("draw = %+v, want 4-vertex triangle strip", d)
	}
	if host.rec.TextureWrites() != 1 || host.presents.Load() != 1 {
		t.Errorf("texture writes=%d presents=%d, want 1 and 1", host.rec.TextureWrites(), host.presents.Load())
	}

	writes := host.rec.BufferWrites("nightview_uniforms")
	if len(writes) != 1 {
		t.Fatalf("uniform uploads = %d, want 1", len(writes))
	}
	data := writes[0]
	want := map[shader.Location]float32{
		0: DefaultSigma, 4: DefaultN, 8: DefaultBrightThresh, 12: DefaultBrightK, 16: DefaultGamma, 20: 1,
	}
	for loc, v := range want {
		if got := uniformAt(data, loc); got != v {
			t.Errorf("uniform at %d = %v, want %v", loc, got, v)
		}
	}

	st := r.Stats()
	if st.FramesDrawn != 1 || st.TextureUploads != 1 || st.Signals != 1 || st.Session == "" {
		t.Errorf("Stats = %+v", st)
	}
}

func TestRendererBurstOfSignalsUploadsOnce(t *testing.T) {
	r, host, surface := newTestRenderer(t)
	r.OnSurfaceChanged(100, 100)

	for i := 0; i < 7; i++ {
		deposit(t, surface)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}

	if got := host.rec.TextureWrites(); got != 1 {
		t.Errorf("texture writes = %d, want 1", got)
	}
	if got := len(host.rec.Draws()); got != 2 {
		t.Errorf("draws = %d, want 2 in continuous mode", got)
	}
	if r.Synchronizer().Pending() {
		t.Error("signal still pending after draw")
	}
	if got := r.Stats().Surface.Dropped; got != 6 {
		t.Errorf("dropped = %d, want 6", got)
	}
}

func TestRendererParamsChangeReachUniforms(t *testing.T) {
	r, host, _ := newTestRenderer(t)
	r.OnSurfaceChanged(10, 10)
	r.Params().SetGamma(1.5)
	r.Params().SetEnabled(false)

	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	data := host.rec.BufferWrites("nightview_uniforms")[0]
	if got := uniformAt(data, 16); got != 1.5 {
		t.Errorf("gamma = %v, want 1.5", got)
	}
	if got := uniformAt(data, 20); got != 0 {
		t.Errorf("enabled = %v, want 0", got)
	}
}

func TestRendererResize(t *testing.T) {
	r, host, _ := newTestRenderer(t)

	r.OnSurfaceChanged(0, 0)
	if err := r.OnDrawFrame(); err != nil {
		t.Fatalf("draw with zero viewport: %v", err)
	}
	if len(host.rec.Draws()) != 0 || host.presents.Load() != 0 {
		t.Error("zero viewport touched the GPU")
	}
	if r.Stats().FramesSkipped != 1 {
		t.Errorf("skipped = %d, want 1", r.Stats().FramesSkipped)
	}

	r.OnSurfaceChanged(-5, 20)
	if err := r.OnDrawFrame(); err != nil || len(host.rec.Draws()) != 0 {
		t.Errorf("negative width not clamped to 0: err=%v draws=%d", err, len(host.rec.Draws()))
	}

	for i := 0; i < 3; i++ {
		r.OnSurfaceChanged(320, 240)
	}
	if r.State() != StateSurfaceReady {
		t.Errorf("resize changed state to %v", r.State())
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	if d := host.rec.Draws(); len(d) != 1 || d[0].Viewport != [2]float32{320, 240} {
		t.Errorf("draws = %+v", d)
	}
}

func TestRendererCompileErrorFails(t *testing.T) {
	vs, _, err := shader.LoadDefaults()
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(WithShaderSource(vs, "@fragment fn fs_main( -> {"))
	host := newFakeHost(t)

	err = r.OnSurfaceCreated(host)
	var ce *shader.CompileError
	if !errors.As(err, &ce) || ce.Stage != shader.StageFragment || ce.Diagnostic == "" {
		t.Fatalf("OnSurfaceCreated error = %v, want fragment *CompileError", err)
	}
	if r.State() != StateFailed || !errors.Is(r.Err(), shader.ErrCompile) {
		t.Errorf("State=%v Err=%v", r.State(), r.Err())
	}

	r.OnSurfaceChanged(10, 10)
	if err := r.OnDrawFrame(); err != nil {
		t.Errorf("draw in failed state = %v, want nil", err)
	}
	if len(host.rec.Draws()) != 0 {
		t.Error("draw in failed state reached the GPU")
	}
	if r.Surface() != nil {
		t.Error("failed renderer exposes a frame surface")
	}
}

func TestRendererMissingShaderResource(t *testing.T) {
	r := NewRenderer(WithShaderFS(shader.Assets, "shaders/missing.wgsl", shader.DefaultFragment))
	err := r.OnSurfaceCreated(newFakeHost(t))
	if !errors.Is(err, shader.ErrResourceLoad) {
		t.Errorf("err = %v, want ErrResourceLoad", err)
	}
}

func TestRendererHostWithoutHAL(t *testing.T) {
	r := NewRenderer()
	host := bareHost{newFakeHost(t)}
	if err := r.OnSurfaceCreated(host); !errors.Is(err, ErrNoHALDevice) {
		t.Errorf("err = %v, want ErrNoHALDevice", err)
	}
}

func TestRendererDrawFailureLosesContext(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeHost)
	}{
		{"acquire", func(h *fakeHost) { h.acquireErr = hal.ErrSurfaceLost }},
		{"submit", func(h *fakeHost) { h.rec.FailSubmit = hal.ErrSurfaceLost }},
		{"present", func(h *fakeHost) { h.presentErr = hal.ErrSurfaceLost }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, host, surface := newTestRenderer(t)
			r.OnSurfaceChanged(10, 10)
			tt.setup(host)

			err := r.OnDrawFrame()
			if !errors.Is(err, ErrContextLost) || !errors.Is(err, hal.ErrSurfaceLost) {
				t.Fatalf("err = %v, want ErrContextLost wrapping ErrSurfaceLost", err)
			}
			if r.State() != StateFailed {
				t.Errorf("State = %v, want failed", r.State())
			}
			if !surface.Released() {
				t.Error("frame surface not released after context loss")
			}
			if err := r.OnDrawFrame(); err != nil {
				t.Errorf("draw after failure = %v, want no-op", err)
			}
		})
	}
}

func TestRendererRecreateAfterFailure(t *testing.T) {
	r, host, first := newTestRenderer(t)
	r.OnSurfaceChanged(10, 10)
	host.presentErr = hal.ErrDeviceLost
	_ = r.OnDrawFrame()

	host.presentErr = nil
	if err := r.OnSurfaceCreated(host); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if r.State() != StateSurfaceReady || r.Err() != nil {
		t.Errorf("State=%v Err=%v after recreate", r.State(), r.Err())
	}
	second := r.Surface()
	if second == nil || second == first {
		t.Fatal("recreate did not hand out a new frame surface")
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Errorf("draw after recreate: %v", err)
	}
}

func TestRendererRecreateWhileActiveReleasesOld(t *testing.T) {
	r, host, first := newTestRenderer(t)
	if err := r.OnSurfaceCreated(host); err != nil {
		t.Fatal(err)
	}
	if !first.Released() {
		t.Error("old frame surface still live after recreate")
	}
	if r.Surface() == first {
		t.Error("Surface() returned the old surface")
	}
}

func TestRendererDestroyReleases(t *testing.T) {
	r, host, surface := newTestRenderer(t)
	r.OnDestroy()
	r.OnDestroy()

	if r.State() != StateDestroyed {
		t.Errorf("State = %v, want destroyed", r.State())
	}
	if err := surface.Deposit(&frame.Frame{Pix: make([]byte, testW*testH*4)}); !errors.Is(err, frame.ErrReleased) {
		t.Errorf("deposit after destroy = %v, want ErrReleased", err)
	}
	destroyed := host.rec.Destroyed()
	if len(destroyed) == 0 || destroyed[len(destroyed)-1] != "buffer:nightview_quad" {
		t.Errorf("destroy order = %v", destroyed)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Errorf("draw after destroy = %v", err)
	}
}

func TestRendererTeardownWaitsForDraw(t *testing.T) {
	r, host, surface := newTestRenderer(t)
	r.OnSurfaceChanged(10, 10)
	host.entered = make(chan struct{})
	host.release = make(chan struct{})

	drawDone := make(chan error, 1)
	go func() { drawDone <- r.OnDrawFrame() }()
	<-host.entered

	destroyDone := make(chan struct{})
	go func() {
		r.OnDestroy()
		close(destroyDone)
	}()

	select {
	case <-destroyDone:
		t.Fatal("OnDestroy returned while a draw was in progress")
	case <-time.After(50 * time.Millisecond):
	}
	if surface.Released() {
		t.Fatal("surface released during the draw")
	}

	close(host.release)
	if err := <-drawDone; err != nil {
		t.Errorf("draw: %v", err)
	}
	<-destroyDone
	if r.State() != StateDestroyed || !surface.Released() {
		t.Errorf("State=%v released=%v", r.State(), surface.Released())
	}
	if host.presents.Load() != 1 {
		t.Errorf("presents = %d, want the in-flight draw to complete", host.presents.Load())
	}
}

func TestRendererWhenDirtyRequestsRedraw(t *testing.T) {
	r, host, surface := newTestRenderer(t, WithRenderMode(RenderWhenDirty))
	r.OnSurfaceChanged(10, 10)
	if got := host.redraws.Load(); got != 1 {
		t.Errorf("redraw requests after resize = %d, want 1", got)
	}

	deposit(t, surface)
	deposit(t, surface)
	if got := host.redraws.Load(); got != 2 {
		t.Errorf("redraw requests = %d, want 2", got)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	deposit(t, surface)
	if got := host.redraws.Load(); got != 3 {
		t.Errorf("redraw requests = %d, want 3", got)
	}
}

func TestRendererWhenDirtySignalWhileViewportEmpty(t *testing.T) {
	r, host, surface := newTestRenderer(t, WithRenderMode(RenderWhenDirty))

	deposit(t, surface)
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	if st := r.Stats(); st.FramesSkipped != 1 || st.FramesDrawn != 0 {
		t.Fatalf("skipped, drawn = %d, %d; want 1, 0", st.FramesSkipped, st.FramesDrawn)
	}

	r.OnSurfaceChanged(64, 64)
	if got := host.redraws.Load(); got != 2 {
		t.Errorf("redraw requests after the viewport appeared = %d, want 2", got)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	if st := r.Stats(); st.FramesDrawn != 1 || st.TextureUploads != 1 {
		t.Errorf("drawn, uploads = %d, %d; want 1, 1", st.FramesDrawn, st.TextureUploads)
	}

	for range 5 {
		deposit(t, surface)
	}
	if got := host.redraws.Load(); got != 3 {
		t.Errorf("redraw requests after new frames = %d, want 3", got)
	}
}

func TestRendererWhenDirtyRecreateDropsPendingSignal(t *testing.T) {
	r, _, surface := newTestRenderer(t, WithRenderMode(RenderWhenDirty))
	r.OnSurfaceChanged(8, 8)
	deposit(t, surface)
	r.OnDestroy()
	if r.Synchronizer().Pending() {
		t.Error("signal still pending after destroy")
	}

	host2 := newFakeHost(t)
	if err := r.OnSurfaceCreated(host2); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		deposit(t, r.Surface())
	}
	if got := host2.redraws.Load(); got != 1 {
		t.Errorf("redraw requests on the new host = %d, want 1", got)
	}
	if err := r.OnDrawFrame(); err != nil {
		t.Fatal(err)
	}
	deposit(t, r.Surface())
	if got := host2.redraws.Load(); got != 2 {
		t.Errorf("redraw requests after a draw = %d, want 2", got)
	}
}

func TestRendererDrawBeforeCreate(t *testing.T) {
	r := NewRenderer()
	r.OnSurfaceChanged(10, 10)
	if err := r.OnDrawFrame(); err != nil {
		t.Errorf("draw before create = %v", err)
	}
	if r.State() != StateUninitialized {
		t.Errorf("State = %v", r.State())
	}
	r.OnDestroy()
	if r.State() != StateDestroyed {
		t.Errorf("State after destroy = %v", r.State())
	}
}

func TestWithParamsShared(t *testing.T) {
	p := NewParams()
	r := NewRenderer(WithParams(p))
	if r.Params() != p {
		t.Error("WithParams not honored")
	}
}
