// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview"
)

// Config selects the backend and the preferred surface format.
type Config struct {
	// Backend is one of "auto" (or empty), "vulkan", "metal", "dx12", "gl",
	// "noop" or "software". The last two name the same BackendEmpty slot.
	// Backends must be registered, typically by importing
	// github.com/gogpu/wgpu/hal/allbackends.
	Backend string

	// Format is the preferred color target format.
	// Default: gputypes.TextureFormatBGRA8Unorm.
	Format gputypes.TextureFormat
}

var backendNames = map[string]gputypes.Backend{
	"vulkan":   gputypes.BackendVulkan,
	"metal":    gputypes.BackendMetal,
	"dx12":     gputypes.BackendDX12,
	"gl":       gputypes.BackendGL,
	"noop":     gputypes.BackendEmpty,
	"software": gputypes.BackendEmpty,
}

// ParseBackend maps a backend name to its variant. "auto" and the empty
// string report ok with auto set.
func ParseBackend(name string) (variant gputypes.Backend, auto bool, err error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return gputypes.BackendEmpty, true, nil
	}
	v, ok := backendNames[name]
	if !ok {
		return gputypes.BackendEmpty, false, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return v, false, nil
}

// Device is an opened HAL device with its instance and adapter.
//
// It implements gpucontext.DeviceProvider and exposes the HAL device and
// queue through HalDevice and HalQueue. Targets embed it to become a
// nightview.Host.
type Device struct {
	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat
}

// OpenDevice creates an instance of the configured backend, picks an
// adapter and opens a device on it. Discrete GPUs are preferred over
// integrated ones, and both over anything else.
func OpenDevice(cfg Config) (*Device, error) {
	backend, err := selectBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := pickAdapter(adapters)
	if selected == nil {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		selected.Adapter.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := &Device{
		instance: instance,
		adapter:  selected.Adapter,
		info:     selected.Info,
		device:   open.Device,
		queue:    open.Queue,
		format:   cfg.Format,
	}
	if d.format == gputypes.TextureFormatUndefined {
		d.format = gputypes.TextureFormatBGRA8Unorm
	}
	nightview.Logger().Info("driver: device opened",
		"adapter", d.info.Name,
		"type", d.info.DeviceType.String(),
		"backend", d.info.Backend.String(),
		"driver", d.info.Driver,
	)
	return d, nil
}

func selectBackend(name string) (hal.Backend, error) {
	variant, auto, err := ParseBackend(name)
	if err != nil {
		return nil, err
	}
	if auto {
		b, err := hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("select backend: %w", err)
		}
		return b, nil
	}
	if b, ok := hal.GetBackend(variant); ok {
		return b, nil
	}
	b, err := hal.CreateBackend(variant)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", variant, err)
	}
	return b, nil
}

func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// Device returns the HAL device.
func (d *Device) Device() gpucontext.Device { return d.device }

// Queue returns the HAL queue.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// SurfaceFormat returns the preferred color target format.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.format }

// Adapter returns the HAL adapter.
func (d *Device) Adapter() gpucontext.Adapter { return d.adapter }

// AdapterInfo returns the adapter name and class.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: adapterType(d.info.DeviceType)}
}

// Info returns the full HAL adapter description.
func (d *Device) Info() gputypes.AdapterInfo { return d.info }

func (d *Device) HalDevice() any { return d.device }
func (d *Device) HalQueue() any  { return d.queue }

// Close waits for the GPU to go idle and destroys the device, the adapter
// and the instance. Every target must be closed first.
func (d *Device) Close() {
	if d.device == nil {
		return
	}
	if err := d.device.WaitIdle(); err != nil {
		nightview.Logger().Warn("driver: wait idle before close", "err", err)
	}
	d.device.Destroy()
	d.adapter.Destroy()
	d.instance.Destroy()
	d.device, d.queue, d.adapter, d.instance = nil, nil, nil, nil
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
