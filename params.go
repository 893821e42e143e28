package nightview

import (
	"math"
	"sync/atomic"
)

// Default enhancement parameters.
const (
	DefaultSigma        float32 = 0.5
	DefaultN            float32 = 15.0
	DefaultBrightThresh float32 = 0.8
	DefaultBrightK      float32 = 0.08
	DefaultGamma        float32 = 0.8
)

// ParamValues is a plain copy of the enhancement parameters.
type ParamValues struct {
	Sigma        float32
	N            float32
	BrightThresh float32
	BrightK      float32
	Gamma        float32
	Enabled      bool
}

// DefaultParams returns the default parameter values with enhancement on.
func DefaultParams() ParamValues {
	return ParamValues{
		Sigma:        DefaultSigma,
		N:            DefaultN,
		BrightThresh: DefaultBrightThresh,
		BrightK:      DefaultBrightK,
		Gamma:        DefaultGamma,
		Enabled:      true,
	}
}

// Params holds the live enhancement parameters read by the renderer on
// every draw.
//
// Each field is an independent atomic cell: any goroutine may read or write
// any field at any time, a single field is never torn, and no ordering holds
// across fields. Values are not clamped; the shader does that.
type Params struct {
	sigma        atomicFloat32
	n            atomicFloat32
	brightThresh atomicFloat32
	brightK      atomicFloat32
	gamma        atomicFloat32
	enabled      atomic.Bool
}

// NewParams returns parameters set to DefaultParams.
func NewParams() *Params {
	p := &Params{}
	p.Store(DefaultParams())
	return p
}

// Sigma returns the blur spread.
func (p *Params) Sigma() float32 { return p.sigma.Load() }

// SetSigma sets the blur spread.
func (p *Params) SetSigma(v float32) { p.sigma.Store(v) }

// N returns the blur tap count.
func (p *Params) N() float32 { return p.n.Load() }

// SetN sets the blur tap count.
func (p *Params) SetN(v float32) { p.n.Store(v) }

// BrightThresh returns the luminance below which pixels are lifted.
func (p *Params) BrightThresh() float32 { return p.brightThresh.Load() }

// SetBrightThresh sets the luminance below which pixels are lifted.
func (p *Params) SetBrightThresh(v float32) { p.brightThresh.Store(v) }

// BrightK returns the brightness lift gain.
func (p *Params) BrightK() float32 { return p.brightK.Load() }

// SetBrightK sets the brightness lift gain.
func (p *Params) SetBrightK(v float32) { p.brightK.Store(v) }

// Gamma returns the output gamma exponent.
func (p *Params) Gamma() float32 { return p.gamma.Load() }

// SetGamma sets the output gamma exponent.
func (p *Params) SetGamma(v float32) { p.gamma.Store(v) }

// Enabled reports whether enhancement is applied. When false the camera
// image is passed through.
func (p *Params) Enabled() bool { return p.enabled.Load() }

// SetEnabled turns enhancement on or off.
func (p *Params) SetEnabled(v bool) { p.enabled.Store(v) }

// Snapshot reads every field. Fields are read one by one, so a concurrent
// writer may be observed on some fields and not others.
func (p *Params) Snapshot() ParamValues {
	return ParamValues{
		Sigma:        p.Sigma(),
		N:            p.N(),
		BrightThresh: p.BrightThresh(),
		BrightK:      p.BrightK(),
		Gamma:        p.Gamma(),
		Enabled:      p.Enabled(),
	}
}

// Store writes every field, one by one.
func (p *Params) Store(v ParamValues) {
	p.SetSigma(v.Sigma)
	p.SetN(v.N)
	p.SetBrightThresh(v.BrightThresh)
	p.SetBrightK(v.BrightK)
	p.SetGamma(v.Gamma)
	p.SetEnabled(v.Enabled)
}

// Reset restores the defaults.
func (p *Params) Reset() { p.Store(DefaultParams()) }

// atomicFloat32 stores IEEE-754 bits in an atomic.Uint32.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (f *atomicFloat32) Load() float32   { return math.Float32frombits(f.bits.Load()) }
func (f *atomicFloat32) Store(v float32) { f.bits.Store(math.Float32bits(v)) }
