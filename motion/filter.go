// Package motion smooths raw motion sensor samples before they reach the
// engine.
//
// The accelerometer goes through an adaptive low-pass filter that tracks the
// gravity direction: samples whose magnitude barely differs from the tracked
// one are smoothed with the base coefficient, large magnitude jumps get an
// attenuated coefficient so single noise spikes don't swing the estimate.
// The magnetometer is smoothed with a plain running average.
package motion

import "math"

// Vec3 is a three axis sample or estimate.
type Vec3 [3]float64

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Mode selects what the accelerometer channel emits.
type Mode int

const (
	// ModeRaw emits the smoothed vector as is.
	ModeRaw Mode = iota
	// ModeUnit emits the smoothed vector scaled to unit length with every
	// axis clamped to [-1, 1].
	ModeUnit
)

func (m Mode) String() string {
	if m == ModeUnit {
		return "unit"
	}
	return "raw"
}

// Config tunes the filters. The zero value is not usable, start from
// DefaultConfig.
type Config struct {
	// CutoffHz is the low-pass cutoff frequency.
	CutoffHz float64
	// UpdateHz is the expected sample rate, also used as the sensor delay.
	UpdateHz float64
	// MinStep is the smallest magnitude change treated as real motion.
	MinStep float64
	// NoiseAttenuation divides the coefficient for large magnitude jumps.
	NoiseAttenuation float64
	Mode             Mode
	// ForwardCompass emits Compass events. The channel is always computed.
	ForwardCompass bool
}

// DefaultConfig returns the reference tuning: 50Hz cutoff at 30 updates a
// second, raw output, compass not forwarded.
func DefaultConfig() Config {
	return Config{
		CutoffHz:         50,
		UpdateHz:         30,
		MinStep:          0.033,
		NoiseAttenuation: 3,
		Mode:             ModeRaw,
	}
}

// baseAlpha is the plain RC low-pass coefficient.
func (c Config) baseAlpha() float64 {
	rc := 1 / c.CutoffHz
	dt := 1 / c.UpdateHz
	return rc / (dt + rc)
}

// LowPass is the accelerometer filter state. Not safe for concurrent use,
// samples come from a single sensor callback goroutine.
type LowPass struct {
	cfg      Config
	base     float64
	smoothed Vec3
	previous Vec3
}

// NewLowPass returns a filter with zeroed state.
func NewLowPass(cfg Config) *LowPass {
	return &LowPass{cfg: cfg, base: cfg.baseAlpha()}
}

// alpha returns the coefficient applied to raw, blending the base and the
// attenuated coefficient by how far the magnitude jumped.
func (f *LowPass) alpha(raw Vec3) float64 {
	d := math.Abs(f.smoothed.Norm()-raw.Norm())/f.cfg.MinStep - 1
	d = clamp(d, 0, 1)
	return d*f.base/f.cfg.NoiseAttenuation + (1-d)*f.base
}

// Update feeds one raw sample and returns the new smoothed estimate.
func (f *LowPass) Update(raw Vec3) Vec3 {
	a := f.alpha(raw)
	for i := range f.smoothed {
		f.smoothed[i] = a * (f.smoothed[i] + raw[i] - f.previous[i])
	}
	f.previous = f.smoothed
	return f.smoothed
}

// Smoothed returns the current estimate without feeding a sample.
func (f *LowPass) Smoothed() Vec3 {
	return f.smoothed
}

// Output returns the estimate shaped by the configured mode.
func (f *LowPass) Output() Vec3 {
	if f.cfg.Mode != ModeUnit {
		return f.smoothed
	}
	return unit(f.smoothed)
}

// Reset zeroes the filter state.
func (f *LowPass) Reset() {
	f.smoothed = Vec3{}
	f.previous = Vec3{}
}

// Compass is the magnetometer running average.
type Compass struct {
	smoothed Vec3
}

// Update averages raw into the estimate and returns it.
func (c *Compass) Update(raw Vec3) Vec3 {
	for i := range c.smoothed {
		c.smoothed[i] = (c.smoothed[i] + raw[i]) * 0.5
	}
	return c.smoothed
}

// Smoothed returns the current estimate.
func (c *Compass) Smoothed() Vec3 {
	return c.smoothed
}

func unit(v Vec3) Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	for i := range v {
		v[i] = clamp(v[i]/n, -1, 1)
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v <= lo {
		return lo
	}
	if v >= hi {
		return hi
	}
	return v
}
