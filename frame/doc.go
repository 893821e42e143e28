// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame provides the producer-facing side of the camera texture:
// an immutable Frame and a single-slot Surface that always holds the most
// recently deposited one.
//
// A Surface is a mailbox, not a queue. Producers overwrite; the renderer
// samples whatever is newest when it draws. Frames produced faster than the
// display cadence are dropped and counted, and a producer is never blocked.
//
//	s := frame.NewSurface(1280, 720)
//	s.SetFrameAvailableListener(renderer.OnFrameAvailable)
//
//	// producer goroutine
//	err := s.Deposit(&frame.Frame{Pix: pix, Stride: 1280 * 4})
//
// Surfaces are created by the renderer together with the GPU texture they
// feed, and released when that texture is destroyed. After Release every
// Deposit fails with ErrReleased and the producer must stop writing.
package frame
