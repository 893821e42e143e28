package shader

import (
	"embed"
	"errors"
	"io/fs"
	"unicode/utf8"
)

//go:embed shaders/*.wgsl
var assets embed.FS

// Assets holds the bundled WGSL sources.
var Assets fs.FS = assets

// Names of the bundled sources inside Assets.
const (
	DefaultVertex   = "shaders/quad.wgsl"
	DefaultFragment = "shaders/retinex.wgsl"
)

// LoadSource reads the shader source called name from fsys.
func LoadSource(fsys fs.FS, name string) (string, error) {
	if fsys == nil {
		return "", &ResourceLoadError{Name: name, Err: fs.ErrInvalid}
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", &ResourceLoadError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return "", &ResourceLoadError{Name: name, Err: errEmptySource}
	}
	if !utf8.Valid(data) {
		return "", &ResourceLoadError{Name: name, Err: errNotText}
	}
	return string(data), nil
}

// LoadDefaults returns the bundled vertex and fragment sources.
func LoadDefaults() (vertex, fragment string, err error) {
	if vertex, err = LoadSource(Assets, DefaultVertex); err != nil {
		return "", "", err
	}
	if fragment, err = LoadSource(Assets, DefaultFragment); err != nil {
		return "", "", err
	}
	return vertex, fragment, nil
}

var (
	errEmptySource = errors.New("empty source")
	errNotText     = errors.New("source is not valid UTF-8")
)
