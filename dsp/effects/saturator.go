// Package effects provides nonlinear processing stages. The saturator is a
// soft-clip waveshaper used as the drive stage of the processing graph.
package effects

import (
	"fmt"
	"math"
)

const (
	defaultSaturatorDrive = 1.0
	defaultSaturatorMix   = 0.0

	minSaturatorDrive = 0.01
	maxSaturatorDrive = 100.0
)

// Saturator is a tanh soft-clip waveshaper with a dry/wet mix.
//
// The transfer function is normalized so that full-scale input maps to
// full-scale output regardless of drive: y = tanh(drive*x) / tanh(drive).
// With mix 0 the stage is an exact pass-through, which lets a chain keep the
// stage in place and defeat it purely by parameter changes.
type Saturator struct {
	drive float64
	mix   float64

	norm float64 // 1 / tanh(drive), cached
}

// NewSaturator returns a pass-through saturator (drive 1, mix 0).
func NewSaturator() *Saturator {
	s := &Saturator{
		drive: defaultSaturatorDrive,
		mix:   defaultSaturatorMix,
	}
	s.updateNorm()

	return s
}

// SetDrive sets the shaper drive. Range: 0.01 to 100.
func (s *Saturator) SetDrive(drive float64) error {
	if drive < minSaturatorDrive || drive > maxSaturatorDrive ||
		math.IsNaN(drive) || math.IsInf(drive, 0) {
		return fmt.Errorf("saturator drive must be in [%g, %g]: %f",
			minSaturatorDrive, maxSaturatorDrive, drive)
	}

	s.drive = drive
	s.updateNorm()

	return nil
}

// SetMix sets the dry/wet mix in [0, 1]. 0 is fully dry (pass-through),
// 1 is fully shaped.
func (s *Saturator) SetMix(mix float64) error {
	if mix < 0 || mix > 1 || math.IsNaN(mix) {
		return fmt.Errorf("saturator mix must be in [0, 1]: %f", mix)
	}

	s.mix = mix

	return nil
}

// Drive returns the current drive.
func (s *Saturator) Drive() float64 { return s.drive }

// Mix returns the current dry/wet mix.
func (s *Saturator) Mix() float64 { return s.mix }

// ProcessSample shapes one sample.
func (s *Saturator) ProcessSample(x float64) float64 {
	if s.mix == 0 {
		return x
	}

	wet := math.Tanh(s.drive*x) * s.norm

	return x + s.mix*(wet-x)
}

// ProcessInPlace shapes buf in place.
func (s *Saturator) ProcessInPlace(buf []float64) {
	if s.mix == 0 {
		return
	}

	for i, x := range buf {
		wet := math.Tanh(s.drive*x) * s.norm
		buf[i] = x + s.mix*(wet-x)
	}
}

func (s *Saturator) updateNorm() {
	s.norm = 1 / math.Tanh(s.drive)
}
