package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview/shader"
)

// UniformBlock stages the uniform struct bound at @binding(0) in CPU memory
// and writes it to its buffer in one call. Writes to Absent locations, or
// past the end of the block, are ignored.
type UniformBlock struct {
	device hal.Device
	buffer hal.Buffer
	data   []byte
	pushes uint64
}

// NewUniformBlock allocates a uniform buffer of the program's block size.
func NewUniformBlock(device hal.Device, prog *shader.Program) (*UniformBlock, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if prog == nil {
		return nil, ErrNilProgram
	}
	size := prog.UniformBlockSize()
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "nightview_uniforms",
		Size:  uint64(size),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	return &UniformBlock{
		device: device,
		buffer: buf,
		data:   make([]byte, size),
	}, nil
}

// SetFloat stages v at loc.
func (u *UniformBlock) SetFloat(loc shader.Location, v float32) {
	if !u.fits(loc, 4) {
		return
	}
	binary.LittleEndian.PutUint32(u.data[loc:], math.Float32bits(v))
}

// SetVec2 stages (x, y) at loc.
func (u *UniformBlock) SetVec2(loc shader.Location, x, y float32) {
	if !u.fits(loc, 8) {
		return
	}
	binary.LittleEndian.PutUint32(u.data[loc:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(u.data[loc+4:], math.Float32bits(y))
}

// Float returns the staged value at loc, or 0 for an Absent location.
func (u *UniformBlock) Float(loc shader.Location) float32 {
	if !u.fits(loc, 4) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(u.data[loc:]))
}

func (u *UniformBlock) fits(loc shader.Location, n int) bool {
	return loc.Valid() && int(loc)+n <= len(u.data)
}

// Upload writes the staged bytes to the uniform buffer.
func (u *UniformBlock) Upload(queue hal.Queue) error {
	if u.buffer == nil {
		return ErrDestroyed
	}
	if err := queue.WriteBuffer(u.buffer, 0, u.data); err != nil {
		return fmt.Errorf("upload uniforms: %w", err)
	}
	u.pushes++
	return nil
}

// Buffer returns the uniform buffer.
func (u *UniformBlock) Buffer() hal.Buffer { return u.buffer }

// Size returns the block size in bytes.
func (u *UniformBlock) Size() uint64 { return uint64(len(u.data)) }

// Pushes returns how many times the block was uploaded.
func (u *UniformBlock) Pushes() uint64 { return u.pushes }

// Destroy releases the buffer.
func (u *UniformBlock) Destroy() {
	if u.buffer != nil {
		u.device.DestroyBuffer(u.buffer)
		u.buffer = nil
	}
}
