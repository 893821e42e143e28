package nightview

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// Host is the display side the renderer draws into. It provides the device
// and, per frame, a color target to render to and present.
//
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. If it implements
// gpucontext.WindowProvider, RequestRedraw is used in RenderWhenDirty mode.
type Host interface {
	gpucontext.DeviceProvider

	// AcquireView returns the view to draw the next frame into.
	AcquireView() (hal.TextureView, error)

	// Present shows the frame drawn into the last acquired view.
	Present() error
}

// SurfaceConsumer is the lifecycle a host drives. *Renderer implements it.
type SurfaceConsumer interface {
	OnSurfaceCreated(host Host) error
	OnSurfaceChanged(width, height int)
	OnDrawFrame() error
	OnDestroy()
}

var _ SurfaceConsumer = (*Renderer)(nil)

// halDevice extracts the HAL device and queue from a host.
func halDevice(h Host) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := h.(halProvider)
	if !ok {
		return nil, nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, ErrNoHALDevice
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, ErrNoHALDevice
	}
	return device, queue, nil
}
