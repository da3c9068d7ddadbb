// Package analyser implements a streaming spectrum analyser: audio samples
// are pushed into a ring, and each pull computes a windowed FFT over the
// most recent frame, smooths the linear magnitudes, and scales them into
// byte-sized bins (0..255) over a fixed decibel range.
package analyser

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-player/dsp/core"
	"github.com/cwbudde/algo-player/dsp/spectrum"
	"github.com/cwbudde/algo-player/dsp/window"
)

const (
	// DefaultFFTSize yields 1024 frequency bins per frame.
	DefaultFFTSize = 2048

	defaultSmoothing = 0.8
	defaultMinDB     = -100.0
	defaultMaxDB     = -30.0

	minFFTSize = 32
	maxFFTSize = 32768

	epsMag = 1e-12
)

// Option configures an Analyser.
type Option func(*config)

type config struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
}

// WithFFTSize sets the FFT frame length. Must be a power of two in
// [32, 32768].
func WithFFTSize(n int) Option {
	return func(c *config) {
		c.fftSize = n
	}
}

// WithSmoothing sets the exponential smoothing factor applied to linear
// magnitudes between frames. Clamped to [0, 0.98]; 0 disables smoothing.
func WithSmoothing(tau float64) Option {
	return func(c *config) {
		c.smoothing = core.Clamp(tau, 0, 0.98)
	}
}

// WithDecibelRange sets the dB range mapped onto the 0..255 byte scale.
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(c *config) {
		c.minDB = minDB
		c.maxDB = maxDB
	}
}

// Analyser converts a pushed sample stream into per-bin byte magnitudes.
// It is not safe for concurrent use; the owning graph serializes access.
type Analyser struct {
	sampleRate float64
	fftSize    int
	smoothing  float64
	minDB      float64
	maxDB      float64

	plan    *algofft.Plan[complex128]
	win     []float64
	winGain float64

	ring   []float64
	write  int
	filled int

	input    []complex128
	output   []complex128
	mag      []float64
	smoothed []float64
	primed   bool
}

// New creates an Analyser for the given sample rate.
func New(sampleRate float64, opts ...Option) (*Analyser, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyser sample rate must be positive and finite: %f", sampleRate)
	}

	cfg := config{
		fftSize:   DefaultFFTSize,
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.fftSize < minFFTSize || cfg.fftSize > maxFFTSize || cfg.fftSize&(cfg.fftSize-1) != 0 {
		return nil, fmt.Errorf("analyser fft size must be a power of two in [%d, %d]: %d",
			minFFTSize, maxFFTSize, cfg.fftSize)
	}

	if !(cfg.minDB < cfg.maxDB) {
		return nil, fmt.Errorf("analyser decibel range is empty: [%f, %f]", cfg.minDB, cfg.maxDB)
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyser: init fft plan: %w", err)
	}

	win := window.Generate(window.TypeHann, cfg.fftSize, window.WithPeriodic())

	bins := cfg.fftSize / 2

	return &Analyser{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		smoothing:  cfg.smoothing,
		minDB:      cfg.minDB,
		maxDB:      cfg.maxDB,
		plan:       plan,
		win:        win,
		winGain:    window.CoherentGain(win),
		ring:       make([]float64, cfg.fftSize),
		input:      make([]complex128, cfg.fftSize),
		output:     make([]complex128, cfg.fftSize),
		mag:        make([]float64, cfg.fftSize),
		smoothed:   make([]float64, bins),
	}, nil
}

// BinCount returns the number of frequency bins per frame (fftSize/2).
func (a *Analyser) BinCount() int {
	return a.fftSize / 2
}

// FFTSize returns the FFT frame length.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// BinFrequency returns the center frequency of bin i in Hz.
func (a *Analyser) BinFrequency(i int) float64 {
	return float64(i) * a.sampleRate / float64(a.fftSize)
}

// Push appends samples to the analysis ring. Older samples beyond one FFT
// frame are overwritten.
func (a *Analyser) Push(block []float64) {
	for _, x := range block {
		a.ring[a.write] = x

		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}

		if a.filled < a.fftSize {
			a.filled++
		}
	}
}

// Frame computes a fresh spectrum frame over the latest samples and writes
// one byte per bin into dst. If dst is nil or has the wrong length, a new
// slice is allocated. The returned slice is always BinCount() long.
//
// Each call runs a full windowed FFT; nothing is cached between calls
// beyond the smoothing state.
func (a *Analyser) Frame(dst []byte) []byte {
	bins := a.BinCount()
	if len(dst) != bins {
		dst = make([]byte, bins)
	}

	// Unroll the ring, oldest sample first, applying the window.
	read := a.write
	for i := 0; i < a.fftSize; i++ {
		a.input[i] = complex(a.ring[read]*a.win[i], 0)

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		// The plan was validated at construction; a failing transform
		// leaves the previous smoothing state and yields a silent frame.
		for i := range dst {
			dst[i] = 0
		}

		return dst
	}

	spectrum.MagnitudeTo(a.mag, a.output)

	norm := float64(a.fftSize) * math.Max(a.winGain, epsMag)
	scale := 255 / (a.maxDB - a.minDB)

	for k := 0; k < bins; k++ {
		mag := a.mag[k] / norm
		if k > 0 {
			mag *= 2 // single-sided spectrum: fold the negative frequencies
		}

		if a.primed {
			mag = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		}

		a.smoothed[k] = mag

		db := 20 * math.Log10(math.Max(epsMag, mag))
		dst[k] = byte(core.Clamp((db-a.minDB)*scale, 0, 255))
	}

	a.primed = true

	return dst
}

// Reset clears the ring and the smoothing state.
func (a *Analyser) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}

	for i := range a.smoothed {
		a.smoothed[i] = 0
	}

	a.write = 0
	a.filled = 0
	a.primed = false
}
