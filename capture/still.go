package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/nightview/frame"
)

// Still repeats one image file as a camera feed. PNG, JPEG, BMP, TIFF and
// WebP files are supported. The image is scaled to the surface size.
type Still struct {
	Path string

	// FPS is the repeat rate. Default: DefaultFPS.
	FPS int
}

// NewStill returns a source showing the image at path.
func NewStill(path string, fps int) *Still {
	return &Still{Path: path, FPS: fps}
}

// Run implements Source. The file is decoded once; every frame shares the
// same read-only pixels.
func (st *Still) Run(ctx context.Context, s *frame.Surface) error {
	img, err := decodeFile(st.Path)
	if err != nil {
		return err
	}
	w, h := s.Size()
	rgba := Fit(img, w, h)
	return pace(ctx, st.FPS, "still", func(uint64) (bool, error) {
		return deposit(s, &frame.Frame{Pix: rgba.Pix, Stride: rgba.Stride, Width: w, Height: h})
	})
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("capture: decode %s: %w", path, err)
	}
	return img, nil
}

// Fit scales img to exactly w x h with bilinear filtering.
func Fit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
