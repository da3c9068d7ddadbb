// Package window generates analysis window functions for FFT framing.
package window

import "math"

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of the
// symmetric form used for filter design.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns n window coefficients of the given type. For n <= 0 it
// returns nil; unknown types fall back to rectangular.
func Generate(typ Type, n int, opts ...Option) []float64 {
	if n <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}

	denom := float64(n - 1)
	if cfg.periodic {
		denom = float64(n)
	}

	for i := range out {
		phase := 2 * math.Pi * float64(i) / denom

		switch typ {
		case TypeHann:
			out[i] = 0.5 - 0.5*math.Cos(phase)
		case TypeHamming:
			out[i] = 0.54 - 0.46*math.Cos(phase)
		case TypeBlackman:
			out[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		default:
			out[i] = 1
		}
	}

	return out
}

// CoherentGain returns the mean of the window coefficients. Dividing FFT
// magnitudes by it compensates the amplitude loss introduced by windowing.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	sum := 0.0
	for _, w := range coeffs {
		sum += w
	}

	return sum / float64(len(coeffs))
}
