package capture

import (
	"context"

	"github.com/gogpu/nightview/frame"
)

// bars are the color bars of the test pattern, RGB.
var bars = [...][3]byte{
	{192, 192, 192},
	{192, 192, 0},
	{0, 192, 192},
	{0, 192, 0},
	{192, 0, 192},
	{192, 0, 0},
	{0, 0, 192},
	{16, 16, 16},
}

// TestPattern produces scrolling color bars dimmed to look like a dark
// scene, with a bright band near the bottom to exercise highlight
// compression.
type TestPattern struct {
	// FPS is the frame rate. Default: DefaultFPS.
	FPS int

	// Level scales the bars, 0..1. Default: 0.2.
	Level float64

	// Speed is the scroll speed in pixels per frame. Default: 2.
	Speed int
}

// NewTestPattern returns a pattern at fps with the default level and speed.
func NewTestPattern(fps int) *TestPattern {
	return &TestPattern{FPS: fps}
}

// Run implements Source.
func (p *TestPattern) Run(ctx context.Context, s *frame.Surface) error {
	w, h := s.Size()
	return pace(ctx, p.FPS, "test-pattern", func(n uint64) (bool, error) {
		return deposit(s, p.Render(w, h, n))
	})
}

// Render draws frame n of the pattern at w x h.
func (p *TestPattern) Render(w, h int, n uint64) *frame.Frame {
	level := p.Level
	if level <= 0 || level > 1 {
		level = 0.2
	}
	speed := p.Speed
	if speed <= 0 {
		speed = 2
	}

	var lut [len(bars)][3]byte
	for i, c := range bars {
		for j := range c {
			lut[i][j] = byte(float64(c[j]) * level)
		}
	}

	stride := w * frame.BytesPerPixel
	pix := make([]byte, stride*h)
	band := h - max(h/8, 1)
	offset := int(n%uint64(max(w, 1))) * speed

	for y := 0; y < h; y++ {
		row := pix[y*stride : (y+1)*stride]
		for x := 0; x < w; x++ {
			i := x * frame.BytesPerPixel
			if y >= band {
				row[i], row[i+1], row[i+2], row[i+3] = 255, 255, 240, 255
				continue
			}
			c := lut[((x+offset)%w)*len(bars)/w]
			row[i], row[i+1], row[i+2], row[i+3] = c[0], c[1], c[2], 255
		}
	}
	return &frame.Frame{Pix: pix, Stride: stride, Width: w, Height: h}
}
