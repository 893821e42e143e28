package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"github.com/gogpu/nightview/frame"
)

func TestPatternRender(t *testing.T) {
	p := &TestPattern{Level: 0.5}
	f := p.Render(16, 8, 0)
	if f.Width != 16 || f.Height != 8 || f.Stride != 64 || len(f.Pix) != 16*8*4 {
		t.Fatalf("frame geometry = %dx%d stride %d len %d", f.Width, f.Height, f.Stride, len(f.Pix))
	}
	// Top-left pixel is the first bar at half level, opaque.
	if got := f.Pix[:4]; got[0] != 96 || got[1] != 96 || got[2] != 96 || got[3] != 255 {
		t.Errorf("pixel (0,0) = %v, want [96 96 96 255]", got)
	}
	// The bottom band is bright.
	last := f.Pix[len(f.Pix)-4:]
	if last[0] != 255 {
		t.Errorf("bottom band = %v, want bright", last)
	}
	// Scrolling moves the bars.
	g := p.Render(16, 8, 1)
	if string(f.Pix[:f.Stride]) == string(g.Pix[:g.Stride]) {
		t.Error("consecutive frames are identical")
	}
}

func TestPatternRunStopsOnRelease(t *testing.T) {
	s := frame.NewSurface(8, 4)
	done := make(chan error, 1)
	go func() { done <- NewTestPattern(500).Run(context.Background(), s) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Stats().Deposited < 3 {
		if time.Now().After(deadline) {
			t.Fatal("pattern deposited no frames")
		}
		time.Sleep(2 * time.Millisecond)
	}
	f, ok := s.Latest(0)
	if !ok || f.TraceID == "" {
		t.Errorf("latest frame = %v, %v; want a traced frame", f, ok)
	}

	s.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil after release", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after release")
	}
}

func TestPatternRunStopsOnCancel(t *testing.T) {
	s := frame.NewSurface(4, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewTestPattern(100).Run(ctx, s) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}

func writeImage(t *testing.T, name string, encode func(*os.File, image.Image) error) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStill(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*os.File, image.Image) error
	}{
		{"still.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) }},
		{"still.bmp", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeImage(t, tt.name, tt.encode)
			s := frame.NewSurface(8, 8)
			ctx, cancel := context.WithCancel(context.Background())
			s.SetFrameAvailableListener(cancel)

			if err := NewStill(path, 100).Run(ctx, s); err != nil {
				t.Fatalf("Run: %v", err)
			}
			f, ok := s.Latest(0)
			if !ok {
				t.Fatal("no frame deposited")
			}
			if f.Width != 8 || f.Height != 8 {
				t.Errorf("frame = %dx%d, want 8x8", f.Width, f.Height)
			}
			// A uniform image stays uniform when scaled.
			if c := f.Pix[4*(3*8+5):][:4]; c[0] != 200 || c[1] != 100 || c[2] != 50 || c[3] != 255 {
				t.Errorf("pixel = %v, want [200 100 50 255]", c)
			}
		})
	}
}

func TestStillErrors(t *testing.T) {
	s := frame.NewSurface(2, 2)
	if err := NewStill(filepath.Join(t.TempDir(), "none.png"), 1).Run(context.Background(), s); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewStill(path, 1).Run(context.Background(), s); !errors.Is(err, image.ErrFormat) {
		t.Errorf("junk file: %v, want image.ErrFormat", err)
	}
}

func TestFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{A: 255})
	src.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	dst := Fit(src, 10, 5)
	if dst.Bounds() != image.Rect(0, 0, 10, 5) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	left, right := dst.RGBAAt(0, 2), dst.RGBAAt(9, 2)
	if left.R >= right.R {
		t.Errorf("gradient lost: left %v right %v", left, right)
	}
}
