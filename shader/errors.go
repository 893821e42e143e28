package shader

import "errors"

// Sentinel errors for the shader package. The typed errors below match
// them with errors.Is.
var (
	// ErrCompile reports a stage that failed to parse, lower or validate.
	ErrCompile = errors.New("shader: compile failed")

	// ErrLink reports two stages that compiled but do not fit together.
	ErrLink = errors.New("shader: link failed")

	// ErrResourceLoad reports a shader asset that is missing or unreadable.
	ErrResourceLoad = errors.New("shader: resource load failed")
)

// Stage identifies a pipeline stage in diagnostics.
type Stage string

// Pipeline stages.
const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
)

// CompileError carries the compiler diagnostic of a failed stage.
type CompileError struct {
	Stage      Stage
	Diagnostic string
}

func (e *CompileError) Error() string {
	return "shader: " + string(e.Stage) + " compile failed: " + e.Diagnostic
}

// Is matches ErrCompile.
func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// LinkError carries the reason two stages could not be linked.
type LinkError struct {
	Diagnostic string
}

func (e *LinkError) Error() string {
	return "shader: link failed: " + e.Diagnostic
}

// Is matches ErrLink.
func (e *LinkError) Is(target error) bool { return target == ErrLink }

// ResourceLoadError is returned when a named shader asset cannot be read.
type ResourceLoadError struct {
	Name string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return "shader: load " + e.Name + ": " + e.Err.Error()
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// Is matches ErrResourceLoad.
func (e *ResourceLoadError) Is(target error) bool { return target == ErrResourceLoad }
