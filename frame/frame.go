// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"errors"
	"time"
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

var (
	// ErrReleased is returned by Deposit once the surface has been released.
	ErrReleased = errors.New("frame: surface released")

	// ErrFrameSize is returned when a frame does not match the surface size.
	ErrFrameSize = errors.New("frame: frame size does not match surface")

	// ErrShortBuffer is returned when a frame's pixel buffer is smaller than
	// Stride*Height bytes or its stride is narrower than a row.
	ErrShortBuffer = errors.New("frame: pixel buffer too small")

	// ErrNilFrame is returned by Deposit for a nil frame.
	ErrNilFrame = errors.New("frame: nil frame")
)

// Frame is one decoded camera image in RGBA8 layout.
//
// A Frame is immutable once deposited: the producer hands over ownership
// of Pix and must not write to it again. The renderer reads it from the
// render goroutine while the producer may already be filling the next one.
type Frame struct {
	// Pix holds Height rows of Stride bytes each.
	Pix []byte

	// Stride is the distance in bytes between the starts of two rows.
	// Zero means tightly packed (Width*4).
	Stride int

	// Width and Height are filled in by Deposit from the surface size when
	// left zero.
	Width  int
	Height int

	// Timestamp is the capture time. Deposit sets it to now when zero.
	Timestamp time.Time

	// Seq is assigned by the surface on deposit, starting at 1.
	Seq uint64

	// TraceID optionally correlates a frame with producer logs.
	TraceID string
}

// RowBytes returns the number of meaningful bytes per row.
func (f *Frame) RowBytes() int {
	return f.Width * BytesPerPixel
}

func (f *Frame) validate(width, height int) error {
	if f.Width == 0 && f.Height == 0 {
		f.Width, f.Height = width, height
	}
	if f.Width != width || f.Height != height {
		return ErrFrameSize
	}
	if f.Stride == 0 {
		f.Stride = f.RowBytes()
	}
	if f.Stride < f.RowBytes() || len(f.Pix) < f.Stride*f.Height {
		return ErrShortBuffer
	}
	return nil
}
