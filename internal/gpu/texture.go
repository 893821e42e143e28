package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview/frame"
)

// ExternalTexture is the GPU side of a frame.Surface: one RGBA8 texture the
// fragment stage samples, refreshed from the most recent deposited frame.
//
// UpdateCurrentImage must only be called from the goroutine that records
// draws.
type ExternalTexture struct {
	device  hal.Device
	queue   hal.Queue
	surface *frame.Surface

	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	width, height uint32
	lastSeq       uint64
	uploads       uint64

	// Reused by every upload.
	dst    hal.ImageCopyTexture
	layout hal.ImageDataLayout
	extent hal.Extent3D
}

// NewExternalTexture creates a texture sized to surface, its view and a
// linear clamp-to-edge sampler.
func NewExternalTexture(device hal.Device, queue hal.Queue, surface *frame.Surface) (*ExternalTexture, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if surface == nil {
		return nil, ErrNilSurface
	}
	w, h := surface.Size()
	t := &ExternalTexture{
		device:  device,
		queue:   queue,
		surface: surface,
		width:   uint32(w),
		height:  uint32(h),
	}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "nightview_camera",
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create camera texture: %w", err)
	}
	t.texture = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "nightview_camera_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.Destroy()
		return nil, fmt.Errorf("create camera texture view: %w", err)
	}
	t.view = view

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "nightview_camera_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		t.Destroy()
		return nil, fmt.Errorf("create camera sampler: %w", err)
	}
	t.sampler = sampler

	t.dst = hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll}
	t.extent = hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1}
	t.layout.RowsPerImage = t.height
	return t, nil
}

// UpdateCurrentImage uploads the newest deposited frame if it has not been
// uploaded yet. It reports whether an upload happened. With no new frame it
// does nothing and returns false, nil.
func (t *ExternalTexture) UpdateCurrentImage() (bool, error) {
	if t.texture == nil {
		return false, ErrDestroyed
	}
	f, ok := t.surface.Latest(t.lastSeq)
	if !ok {
		return false, nil
	}
	t.layout.BytesPerRow = uint32(f.Stride)
	if err := t.queue.WriteTexture(&t.dst, f.Pix, &t.layout, &t.extent); err != nil {
		return false, fmt.Errorf("upload frame %d: %w", f.Seq, err)
	}
	t.lastSeq = f.Seq
	t.uploads++
	slogger().Debug("gpu: frame uploaded", "seq", f.Seq, "trace", f.TraceID)
	return true, nil
}

// Surface returns the producer-facing surface bound to this texture.
func (t *ExternalTexture) Surface() *frame.Surface { return t.surface }

// View returns the sampled texture view.
func (t *ExternalTexture) View() hal.TextureView { return t.view }

// Sampler returns the camera sampler.
func (t *ExternalTexture) Sampler() hal.Sampler { return t.sampler }

// Size returns the texture dimensions.
func (t *ExternalTexture) Size() (width, height uint32) { return t.width, t.height }

// LastSeq returns the sequence number of the frame currently in the texture,
// or 0 if nothing has been uploaded.
func (t *ExternalTexture) LastSeq() uint64 { return t.lastSeq }

// Uploads returns the number of frames written to the texture.
func (t *ExternalTexture) Uploads() uint64 { return t.uploads }

// Destroy releases the GPU objects in reverse creation order. It does not
// release the frame surface.
func (t *ExternalTexture) Destroy() {
	if t.sampler != nil {
		t.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
