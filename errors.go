package nightview

import "errors"

var (
	// ErrContextLost reports a draw that failed on the GPU side: target
	// acquisition, upload, submission or presentation. The renderer moves to
	// StateFailed and does not retry; the host recreates the context with
	// OnSurfaceCreated. The underlying error is wrapped alongside it.
	ErrContextLost = errors.New("nightview: gpu context lost")

	// ErrNoHALDevice is returned when the host does not expose HAL device
	// and queue handles.
	ErrNoHALDevice = errors.New("nightview: host does not expose HAL types")
)
