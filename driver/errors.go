// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "errors"

var (
	// ErrUnknownBackend is returned for a backend name OpenDevice does not know.
	ErrUnknownBackend = errors.New("driver: unknown backend")

	// ErrNoAdapter is returned when the selected backend exposes no adapter.
	ErrNoAdapter = errors.New("driver: no GPU adapter found")

	// ErrUnsupportedSurface is returned when the adapter cannot present to
	// the window surface.
	ErrUnsupportedSurface = errors.New("driver: adapter cannot present to surface")

	// ErrClosed is returned by a target used after Close.
	ErrClosed = errors.New("driver: target closed")
)
