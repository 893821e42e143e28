// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

var (
	// ErrNilDevice is returned when a constructor receives a nil device or queue.
	ErrNilDevice = errors.New("gpu: device or queue is nil")

	// ErrNilProgram is returned when NewContext has no linked program.
	ErrNilProgram = errors.New("gpu: program is nil")

	// ErrNoCameraBinding is returned when the fragment stage does not
	// declare the camera texture at @binding(1) and its sampler at
	// @binding(2).
	ErrNoCameraBinding = errors.New("gpu: program does not sample the camera texture")

	// ErrNilSurface is returned when the external texture has no frame surface.
	ErrNilSurface = errors.New("gpu: frame surface is nil")

	// ErrDestroyed is returned when drawing with a destroyed context.
	ErrDestroyed = errors.New("gpu: context destroyed")

	// ErrNoTarget is returned when Draw receives a nil color target.
	ErrNoTarget = errors.New("gpu: no render target")
)
