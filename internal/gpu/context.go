// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview/frame"
	"github.com/gogpu/nightview/shader"
)

// Config describes the resources of a render context.
type Config struct {
	// Program is the linked enhancement program.
	Program *shader.Program

	// Surface is the producer-facing frame surface the camera texture
	// mirrors. Its size fixes the texture size.
	Surface *frame.Surface

	// TargetFormat is the color format of the views passed to Draw.
	// Default: BGRA8Unorm.
	TargetFormat gputypes.TextureFormat

	// Label names the context in command encoders and log records.
	Label string
}

// Context owns every GPU object needed to draw one enhanced camera frame:
// the pipeline, the quad, the uniform block and the camera texture. The
// device and queue are borrowed.
//
// A Context is not safe for concurrent use.
type Context struct {
	device hal.Device
	queue  hal.Queue
	label  string

	quad     *Quad
	uniforms *UniformBlock
	camera   *ExternalTexture
	pipeline *enhancePipeline

	// Per-draw descriptors, reused so that Draw does not allocate.
	attachments [1]hal.RenderPassColorAttachment
	passDesc    hal.RenderPassDescriptor
	encDesc     hal.CommandEncoderDescriptor
	cmdBufs     [1]hal.CommandBuffer

	draws uint64
}

// NewContext builds a render context. On error nothing is left allocated.
func NewContext(device hal.Device, queue hal.Queue, cfg Config) (*Context, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if cfg.Program == nil {
		return nil, ErrNilProgram
	}
	if !cfg.Program.SamplesTexture() {
		return nil, ErrNoCameraBinding
	}
	if cfg.Surface == nil {
		return nil, ErrNilSurface
	}
	if cfg.TargetFormat == gputypes.TextureFormatUndefined {
		cfg.TargetFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if cfg.Label == "" {
		cfg.Label = "nightview"
	}

	c := &Context{device: device, queue: queue, label: cfg.Label}
	if err := c.init(cfg); err != nil {
		c.Destroy()
		return nil, err
	}

	c.attachments[0] = hal.RenderPassColorAttachment{
		LoadOp:  gputypes.LoadOpClear,
		StoreOp: gputypes.StoreOpStore,
	}
	c.passDesc = hal.RenderPassDescriptor{
		Label:            cfg.Label + "_pass",
		ColorAttachments: c.attachments[:],
	}
	c.encDesc = hal.CommandEncoderDescriptor{Label: cfg.Label + "_encoder"}

	w, h := cfg.Surface.Size()
	c.uniforms.SetVec2(cfg.Program.Uniform(shader.UniformTexelSize), 1/float32(w), 1/float32(h))

	slogger().Info("gpu: render context created",
		"label", cfg.Label,
		"texture", fmt.Sprintf("%dx%d", w, h),
		"format", cfg.TargetFormat.String(),
		"uniform_bytes", c.uniforms.Size(),
	)
	return c, nil
}

func (c *Context) init(cfg Config) error {
	var err error
	if c.quad, err = NewQuad(c.device, c.queue, cfg.Program); err != nil {
		return err
	}
	if c.uniforms, err = NewUniformBlock(c.device, cfg.Program); err != nil {
		return err
	}
	if c.camera, err = NewExternalTexture(c.device, c.queue, cfg.Surface); err != nil {
		return err
	}
	c.pipeline, err = newEnhancePipeline(c.device, cfg.Program, c.quad.Layout(), cfg.TargetFormat, c.uniforms, c.camera)
	return err
}

// Uniforms returns the uniform block. Values staged on it are uploaded by
// the next Draw.
func (c *Context) Uniforms() *UniformBlock { return c.uniforms }

// Texture returns the camera texture.
func (c *Context) Texture() *ExternalTexture { return c.camera }

// Draws returns the number of submitted draws.
func (c *Context) Draws() uint64 { return c.draws }

// Draw refreshes the camera texture, uploads the staged uniforms and
// records one render pass into target: clear, then a 4-vertex triangle
// strip covering a width x height viewport. It reports whether a new camera
// frame was uploaded.
func (c *Context) Draw(target hal.TextureView, width, height int, clear gputypes.Color) (bool, error) {
	if c.pipeline == nil {
		return false, ErrDestroyed
	}
	if target == nil {
		return false, ErrNoTarget
	}

	uploaded, err := c.camera.UpdateCurrentImage()
	if err != nil {
		return false, err
	}
	if err := c.uniforms.Upload(c.queue); err != nil {
		return uploaded, err
	}

	encoder, err := c.device.CreateCommandEncoder(&c.encDesc)
	if err != nil {
		return uploaded, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(c.label); err != nil {
		return uploaded, fmt.Errorf("begin encoding: %w", err)
	}

	c.attachments[0].View = target
	c.attachments[0].ClearValue = clear
	rp := encoder.BeginRenderPass(&c.passDesc)
	rp.SetViewport(0, 0, float32(width), float32(height), 0, 1)
	rp.SetPipeline(c.pipeline.pipeline)
	rp.SetBindGroup(0, c.pipeline.bindGroup, nil)
	rp.SetVertexBuffer(0, c.quad.Buffer(), 0)
	rp.Draw(QuadVertexCount, 1, 0, 0)
	rp.End()
	c.attachments[0].View = nil

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return uploaded, fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	c.cmdBufs[0] = cmdBuf
	_, err = c.queue.Submit(c.cmdBufs[:])
	c.cmdBufs[0] = nil
	if err != nil {
		return uploaded, fmt.Errorf("submit: %w", err)
	}
	c.draws++
	return uploaded, nil
}

// Destroy releases all GPU objects in reverse creation order. The frame
// surface is not released; that belongs to the owner of the context.
// Destroy is idempotent.
func (c *Context) Destroy() {
	if c.pipeline != nil {
		c.pipeline.destroy()
		c.pipeline = nil
	}
	if c.camera != nil {
		c.camera.Destroy()
	}
	if c.uniforms != nil {
		c.uniforms.Destroy()
	}
	if c.quad != nil {
		c.quad.Destroy()
	}
}
