// Package nightview renders a live camera feed through a low-light
// enhancement shader.
//
// # Overview
//
// A camera producer deposits RGBA frames into a frame.Surface from any
// goroutine. On every draw the Renderer uploads the newest frame, if one
// arrived, into a sampled GPU texture and draws a full-screen quad with the
// enhancement program, whose tunable parameters live in a lock-free Params
// set.
//
// # Quick Start
//
//	r := nightview.NewRenderer(
//	    nightview.WithSurfaceReady(func(s *frame.Surface) {
//	        go cam.Run(ctx, s)
//	    }),
//	)
//	if err := r.OnSurfaceCreated(host); err != nil {
//	    log.Fatal(err)
//	}
//	r.OnSurfaceChanged(w, h)
//	for running {
//	    if err := r.OnDrawFrame(); err != nil {
//	        break
//	    }
//	}
//	r.OnDestroy()
//
// The driver package provides a Host for a window or an offscreen target
// and a loop that drives the hooks.
//
// # Lifecycle
//
// A Renderer moves through Uninitialized, SurfaceReady, Rendering and
// Destroyed. A compile error or a lost GPU context moves it to Failed; a
// later OnSurfaceCreated recreates everything from scratch.
//
// # Architecture
//
//   - Public API: Renderer, Params, Synchronizer, Host
//   - shader: WGSL sources, compile and link, uniform reflection
//   - frame: the single-slot producer/consumer frame surface
//   - internal/gpu: quad geometry, camera texture, uniforms, pipeline
//   - driver: device selection, surface targets, render loop
//   - preset: TOML parameter presets with hot reload
//   - capture: frame sources (test pattern, still images, GStreamer)
//
// # Logging
//
// The package is silent by default. Use SetLogger to route its slog output.
package nightview

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
