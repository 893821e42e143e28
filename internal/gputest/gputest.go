// Package gputest provides a noop HAL device wrapped in recorders for tests
// that need to observe what was sent to the GPU.
package gputest

import (
	"image"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// DrawCall is one recorded Draw on a render pass.
type DrawCall struct {
	VertexCount   uint32
	InstanceCount uint32
	Topology      gputypes.PrimitiveTopology
	PipelineSet   bool
	BindGroupSet  bool
	VertexBufSet  bool
	Viewport      [2]float32
	Clear         gputypes.Color
}

// Recorder collects GPU calls made through a wrapped device and queue.
// Set the Fail* fields to make the corresponding call return an error.
type Recorder struct {
	mu sync.Mutex

	draws         []DrawCall
	submits       int
	presents      int
	textureWrites int
	bufferWrites  map[string][][]byte
	bufferLabels  map[hal.Buffer]string
	destroyed     []string
	topology      gputypes.PrimitiveTopology
	vertexLayouts []gputypes.VertexBufferLayout

	FailSubmit       error
	FailWriteTexture error
	FailPipeline     error
}

// Open returns a noop device and queue wrapped by a new Recorder. Both are
// destroyed when the test ends.
func Open(t testing.TB) (hal.Device, hal.Queue, *Recorder) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})

	rec := &Recorder{
		bufferWrites: make(map[string][][]byte),
		bufferLabels: make(map[hal.Buffer]string),
	}
	return &Device{Device: openDev.Device, rec: rec}, &Queue{Queue: openDev.Queue, rec: rec}, rec
}

// Draws returns a copy of the recorded draw calls.
func (r *Recorder) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DrawCall(nil), r.draws...)
}

// Submits returns the number of successful Submit calls.
func (r *Recorder) Submits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submits
}

// Presents returns the number of Present calls.
func (r *Recorder) Presents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}

// TextureWrites returns the number of successful WriteTexture calls.
func (r *Recorder) TextureWrites() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textureWrites
}

// BufferWrites returns copies of the data written to the buffer created
// with label, in order.
func (r *Recorder) BufferWrites(label string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.bufferWrites[label]...)
}

// Destroyed returns the kinds of destroyed objects in call order, for
// example "buffer:nightview_quad", "texture", "pipeline".
func (r *Recorder) Destroyed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.destroyed...)
}

// VertexLayouts returns the vertex buffer layouts of the last created
// render pipeline.
func (r *Recorder) VertexLayouts() []gputypes.VertexBufferLayout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vertexLayouts
}

func (r *Recorder) destroy(kind string) {
	r.mu.Lock()
	r.destroyed = append(r.destroyed, kind)
	r.mu.Unlock()
}

// Device records pipeline creation, encoders and destruction.
type Device struct {
	hal.Device
	rec *Recorder
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.rec.mu.Lock()
		d.rec.bufferLabels[buf] = desc.Label
		d.rec.mu.Unlock()
	}
	return buf, err
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.rec.mu.Lock()
	fail := d.rec.FailPipeline
	d.rec.topology = desc.Primitive.Topology
	d.rec.vertexLayouts = desc.Vertex.Buffers
	d.rec.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return d.Device.CreateRenderPipeline(desc)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &commandEncoder{CommandEncoder: enc, rec: d.rec}, nil
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	d.rec.mu.Lock()
	label := d.rec.bufferLabels[b]
	d.rec.mu.Unlock()
	d.rec.destroy("buffer:" + label)
	d.Device.DestroyBuffer(b)
}

func (d *Device) DestroyTexture(t hal.Texture) {
	d.rec.destroy("texture")
	d.Device.DestroyTexture(t)
}

func (d *Device) DestroyTextureView(v hal.TextureView) {
	d.rec.destroy("view")
	d.Device.DestroyTextureView(v)
}

func (d *Device) DestroySampler(s hal.Sampler) {
	d.rec.destroy("sampler")
	d.Device.DestroySampler(s)
}

func (d *Device) DestroyBindGroup(g hal.BindGroup) {
	d.rec.destroy("bindgroup")
	d.Device.DestroyBindGroup(g)
}

func (d *Device) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.rec.destroy("bindgrouplayout")
	d.Device.DestroyBindGroupLayout(l)
}

func (d *Device) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.rec.destroy("pipelinelayout")
	d.Device.DestroyPipelineLayout(l)
}

func (d *Device) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.rec.destroy("pipeline")
	d.Device.DestroyRenderPipeline(p)
}

func (d *Device) DestroyShaderModule(m hal.ShaderModule) {
	d.rec.destroy("shader")
	d.Device.DestroyShaderModule(m)
}

// Queue records uploads, submissions and presentation.
type Queue struct {
	hal.Queue
	rec *Recorder
}

func (q *Queue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	if err := q.Queue.WriteBuffer(buffer, offset, data); err != nil {
		return err
	}
	q.rec.mu.Lock()
	label := q.rec.bufferLabels[buffer]
	q.rec.bufferWrites[label] = append(q.rec.bufferWrites[label], append([]byte(nil), data...))
	q.rec.mu.Unlock()
	return nil
}

func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.rec.mu.Lock()
	defer q.rec.mu.Unlock()
	if q.rec.FailWriteTexture != nil {
		return q.rec.FailWriteTexture
	}
	q.rec.textureWrites++
	return q.Queue.WriteTexture(dst, data, layout, size)
}

func (q *Queue) Submit(cmdBufs []hal.CommandBuffer) (uint64, error) {
	q.rec.mu.Lock()
	defer q.rec.mu.Unlock()
	if q.rec.FailSubmit != nil {
		return 0, q.rec.FailSubmit
	}
	q.rec.submits++
	return q.Queue.Submit(cmdBufs)
}

func (q *Queue) Present(surface hal.Surface, texture hal.SurfaceTexture, damage []image.Rectangle) error {
	q.rec.mu.Lock()
	q.rec.presents++
	q.rec.mu.Unlock()
	return q.Queue.Present(surface, texture, damage)
}

type commandEncoder struct {
	hal.CommandEncoder
	rec *Recorder
}

func (e *commandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	rp := &renderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), rec: e.rec}
	if len(desc.ColorAttachments) > 0 {
		rp.clear = desc.ColorAttachments[0].ClearValue
	}
	return rp
}

type renderPass struct {
	hal.RenderPassEncoder
	rec *Recorder

	pipeline, bindGroup, vertexBuf bool
	viewport                       [2]float32
	clear                          gputypes.Color
}

func (p *renderPass) SetPipeline(pl hal.RenderPipeline) {
	p.pipeline = true
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *renderPass) SetBindGroup(index uint32, g hal.BindGroup, offsets []uint32) {
	p.bindGroup = true
	p.RenderPassEncoder.SetBindGroup(index, g, offsets)
}

func (p *renderPass) SetVertexBuffer(slot uint32, b hal.Buffer, offset uint64) {
	p.vertexBuf = true
	p.RenderPassEncoder.SetVertexBuffer(slot, b, offset)
}

func (p *renderPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.viewport = [2]float32{w, h}
	p.RenderPassEncoder.SetViewport(x, y, w, h, minDepth, maxDepth)
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.rec.mu.Lock()
	p.rec.draws = append(p.rec.draws, DrawCall{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		Topology:      p.rec.topology,
		PipelineSet:   p.pipeline,
		BindGroupSet:  p.bindGroup,
		VertexBufSet:  p.vertexBuf,
		Viewport:      p.viewport,
		Clear:         p.clear,
	})
	p.rec.mu.Unlock()
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}
