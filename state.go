package nightview

import "fmt"

// State is the lifecycle state of a Renderer.
//
//	Uninitialized --OnSurfaceCreated--> SurfaceReady --OnDrawFrame--> Rendering
//	      any active state --OnDestroy--> Destroyed
//	      any failure --> Failed
//
// OnSurfaceCreated may be called again from Failed or Destroyed to build a
// new context.
type State int32

const (
	StateUninitialized State = iota
	StateSurfaceReady
	StateRendering
	StateDestroyed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSurfaceReady:
		return "surface-ready"
	case StateRendering:
		return "rendering"
	case StateDestroyed:
		return "destroyed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// active reports whether a render context exists in this state.
func (s State) active() bool {
	return s == StateSurfaceReady || s == StateRendering
}
