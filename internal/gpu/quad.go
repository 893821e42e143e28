package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview/shader"
)

// quadVertexStride is the byte stride of one quad vertex:
//
//	position (vec3<f32>) = 12 bytes
//	texCoord (vec2<f32>) =  8 bytes
const quadVertexStride = 20

// QuadVertexCount is the number of vertices drawn as a triangle strip.
const QuadVertexCount = 4

// quadVertices covers clip space, drawn as a triangle strip.
var quadVertices = [QuadVertexCount][5]float32{
	{-1, -1, 0, 0, 0},
	{1, -1, 0, 1, 0},
	{-1, 1, 0, 0, 1},
	{1, 1, 0, 1, 1},
}

// Quad is the static full-screen quad. Its vertex buffer is written once at
// creation and never again.
type Quad struct {
	device hal.Device
	buffer hal.Buffer
	layout []gputypes.VertexBufferLayout
}

// NewQuad uploads the quad vertices and builds a vertex layout that binds
// them to the program's position and texCoord attributes.
func NewQuad(device hal.Device, queue hal.Queue, prog *shader.Program) (*Quad, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if prog == nil {
		return nil, ErrNilProgram
	}
	data := quadBytes()
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "nightview_quad",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create quad buffer: %w", err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload quad: %w", err)
	}
	return &Quad{
		device: device,
		buffer: buf,
		layout: quadVertexLayout(prog),
	}, nil
}

// Buffer returns the vertex buffer.
func (q *Quad) Buffer() hal.Buffer { return q.buffer }

// Layout returns the vertex buffer layout for pipeline creation.
func (q *Quad) Layout() []gputypes.VertexBufferLayout { return q.layout }

// Destroy releases the vertex buffer. Safe to call more than once.
func (q *Quad) Destroy() {
	if q.buffer != nil {
		q.device.DestroyBuffer(q.buffer)
		q.buffer = nil
	}
}

func quadBytes() []byte {
	data := make([]byte, 0, QuadVertexCount*quadVertexStride)
	for _, v := range quadVertices {
		for _, f := range v {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
		}
	}
	return data
}

// quadVertexLayout maps the interleaved vertex to the program's attribute
// locations. Attributes the program does not declare are left out.
func quadVertexLayout(prog *shader.Program) []gputypes.VertexBufferLayout {
	var attrs []gputypes.VertexAttribute
	if loc := prog.Attribute(shader.AttribPosition); loc.Valid() {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: uint32(loc),
		})
	}
	if loc := prog.Attribute(shader.AttribTexCoord); loc.Valid() {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: uint32(loc),
		})
	}
	return []gputypes.VertexBufferLayout{{
		ArrayStride: quadVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}}
}
