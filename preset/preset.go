// Package preset stores enhancement parameters as TOML files and reloads
// them when the file changes.
//
// A preset file looks like:
//
//	name = "street"
//
//	[enhance]
//	enabled = true
//	sigma = 0.5
//	n = 15.0
//	bright_thresh = 0.8
//	bright_k = 0.08
//	gamma = 0.8
//
// Every key under [enhance] is optional; Apply leaves parameters whose key
// is missing untouched.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/nightview"
)

// ErrInvalid is returned for a preset whose values are out of range.
var ErrInvalid = errors.New("preset: invalid value")

// Preset is a named set of enhancement parameters.
type Preset struct {
	Name    string  `toml:"name,omitempty"`
	Enhance Enhance `toml:"enhance"`
}

// Enhance holds the parameters. Nil fields are not set by Apply.
type Enhance struct {
	Enabled      *bool    `toml:"enabled,omitempty"`
	Sigma        *float32 `toml:"sigma,omitempty" comment:"surround blur radius, > 0"`
	N            *float32 `toml:"n,omitempty" comment:"retinex iterations, >= 1"`
	BrightThresh *float32 `toml:"bright_thresh,omitempty" comment:"highlight threshold, 0..1"`
	BrightK      *float32 `toml:"bright_k,omitempty" comment:"highlight compression, >= 0"`
	Gamma        *float32 `toml:"gamma,omitempty" comment:"output gamma, > 0"`
}

// FromParams captures the current values of p.
func FromParams(name string, p *nightview.Params) Preset {
	v := p.Snapshot()
	return Preset{
		Name: name,
		Enhance: Enhance{
			Enabled:      &v.Enabled,
			Sigma:        &v.Sigma,
			N:            &v.N,
			BrightThresh: &v.BrightThresh,
			BrightK:      &v.BrightK,
			Gamma:        &v.Gamma,
		},
	}
}

// Validate checks the set values.
func (ps Preset) Validate() error {
	e := ps.Enhance
	check := func(name string, v *float32, ok func(float32) bool, want string) error {
		if v != nil && !ok(*v) {
			return fmt.Errorf("%w: %s = %v, want %s", ErrInvalid, name, *v, want)
		}
		return nil
	}
	positive := func(v float32) bool { return v > 0 }
	return errors.Join(
		check("sigma", e.Sigma, positive, "> 0"),
		check("n", e.N, func(v float32) bool { return v >= 1 }, ">= 1"),
		check("bright_thresh", e.BrightThresh, func(v float32) bool { return v >= 0 && v <= 1 }, "0..1"),
		check("bright_k", e.BrightK, func(v float32) bool { return v >= 0 }, ">= 0"),
		check("gamma", e.Gamma, positive, "> 0"),
	)
}

// Apply writes the set values into p. Each field is stored on its own, so
// a concurrent draw may see a mix of old and new values for one frame.
func (ps Preset) Apply(p *nightview.Params) {
	e := ps.Enhance
	if e.Sigma != nil {
		p.SetSigma(*e.Sigma)
	}
	if e.N != nil {
		p.SetN(*e.N)
	}
	if e.BrightThresh != nil {
		p.SetBrightThresh(*e.BrightThresh)
	}
	if e.BrightK != nil {
		p.SetBrightK(*e.BrightK)
	}
	if e.Gamma != nil {
		p.SetGamma(*e.Gamma)
	}
	if e.Enabled != nil {
		p.SetEnabled(*e.Enabled)
	}
}

// Decode reads and validates a preset. Unknown keys are rejected.
func Decode(r io.Reader) (Preset, error) {
	var ps Preset
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&ps); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Preset{}, fmt.Errorf("preset: line %d column %d: %w", row, col, err)
		}
		return Preset{}, fmt.Errorf("preset: %w", err)
	}
	if err := ps.Validate(); err != nil {
		return Preset{}, err
	}
	return ps, nil
}

// Encode writes ps as TOML.
func Encode(w io.Writer, ps Preset) error {
	if err := toml.NewEncoder(w).Encode(ps); err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}
	return nil
}

// Load reads the preset file at path.
func Load(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("preset: %w", err)
	}
	ps, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Preset{}, fmt.Errorf("%s: %w", path, err)
	}
	if ps.Name == "" {
		ps.Name = nameFromPath(path)
	}
	return ps, nil
}

// Save writes ps to path through a temporary file in the same directory,
// so a watcher never sees a half-written preset.
func Save(path string, ps Preset) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ps); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preset-*.toml")
	if err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("preset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	return nil
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
