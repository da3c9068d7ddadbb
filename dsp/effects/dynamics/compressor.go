// Package dynamics implements the level-dependent gain stages of the
// processing graph. The compressor uses a log2-domain soft knee for smooth
// gain transition around the threshold.
package dynamics

import (
	"fmt"
	"math"
)

const (
	defaultThresholdDB = -24.0
	defaultRatio       = 4.0
	defaultKneeDB      = 30.0
	defaultAttackMs    = 3.0
	defaultReleaseMs   = 250.0

	minRatio     = 1.0
	maxRatio     = 100.0
	minAttackMs  = 0.1
	maxAttackMs  = 1000.0
	minReleaseMs = 1.0
	maxReleaseMs = 5000.0
	minKneeDB    = 0.0
	maxKneeDB    = 40.0

	// log2(10)/20: converts dB to the log2 domain used by the gain computer.
	log2Of10Div20 = 0.166096404744
)

// Compressor is a mono soft-knee compressor with a peak envelope follower
// and automatic makeup gain.
//
// Makeup gain compensates the reduction a signal at threshold level would
// receive, so engaging compression does not drop perceived loudness. The
// type is not safe for concurrent use; callers serialize parameter changes
// against processing.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64

	sampleRate float64

	// Envelope follower state.
	peakLevel float64

	// Cached coefficients.
	attackCoeff   float64
	releaseCoeff  float64
	thresholdLog2 float64
	kneeLog2      float64
	invKneeLog2   float64
	makeupLin     float64
}

// NewCompressor creates a compressor with the graph defaults: threshold
// -24 dB, ratio 4:1, knee 30 dB, attack 3 ms, release 250 ms.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{
		thresholdDB: defaultThresholdDB,
		ratio:       defaultRatio,
		kneeDB:      defaultKneeDB,
		attackMs:    defaultAttackMs,
		releaseMs:   defaultReleaseMs,
		sampleRate:  sampleRate,
	}
	c.updateCoefficients()

	return c, nil
}

// SetThreshold sets the compression threshold in dB.
func (c *Compressor) SetThreshold(dB float64) error {
	if math.IsNaN(dB) || math.IsInf(dB, 0) {
		return fmt.Errorf("compressor threshold must be finite: %f", dB)
	}

	c.thresholdDB = dB
	c.updateCoefficients()

	return nil
}

// SetRatio sets the compression ratio. Range: 1 (no compression) to 100
// (limiting).
func (c *Compressor) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("compressor ratio must be in [%g, %g]: %f", minRatio, maxRatio, ratio)
	}

	c.ratio = ratio
	c.updateCoefficients()

	return nil
}

// SetKnee sets the soft-knee width in dB. Range: 0 (hard knee) to 40.
func (c *Compressor) SetKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || math.IsNaN(kneeDB) || math.IsInf(kneeDB, 0) {
		return fmt.Errorf("compressor knee must be in [%g, %g]: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	c.kneeDB = kneeDB
	c.updateCoefficients()

	return nil
}

// SetAttack sets the attack time in milliseconds. Range: 0.1 to 1000.
func (c *Compressor) SetAttack(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("compressor attack must be in [%g, %g]: %f", minAttackMs, maxAttackMs, ms)
	}

	c.attackMs = ms
	c.updateTimeConstants()

	return nil
}

// SetRelease sets the release time in milliseconds. Range: 1 to 5000.
func (c *Compressor) SetRelease(ms float64) error {
	if ms < minReleaseMs || ms > maxReleaseMs || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("compressor release must be in [%g, %g]: %f", minReleaseMs, maxReleaseMs, ms)
	}

	c.releaseMs = ms
	c.updateTimeConstants()

	return nil
}

// Threshold returns the current threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB }

// Ratio returns the current compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Knee returns the current knee width in dB.
func (c *Compressor) Knee() float64 { return c.kneeDB }

// Attack returns the current attack time in milliseconds.
func (c *Compressor) Attack() float64 { return c.attackMs }

// Release returns the current release time in milliseconds.
func (c *Compressor) Release() float64 { return c.releaseMs }

// SampleRate returns the current sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// ProcessSample compresses one sample.
func (c *Compressor) ProcessSample(input float64) float64 {
	level := math.Abs(input)

	if level > c.peakLevel {
		c.peakLevel += (level - c.peakLevel) * c.attackCoeff
	} else {
		c.peakLevel = level + (c.peakLevel-level)*c.releaseCoeff
	}

	return input * c.calculateGain(c.peakLevel) * c.makeupLin
}

// ProcessInPlace compresses buf in place.
func (c *Compressor) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// GainAt computes the steady-state gain multiplier (including makeup) for a
// given input magnitude. This exposes the static compression curve without
// touching the envelope follower.
func (c *Compressor) GainAt(inputMagnitude float64) float64 {
	return c.calculateGain(math.Abs(inputMagnitude)) * c.makeupLin
}

// Reset clears the envelope follower.
func (c *Compressor) Reset() {
	c.peakLevel = 0
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20
	c.kneeLog2 = c.kneeDB * log2Of10Div20

	if c.kneeDB > 0 {
		c.invKneeLog2 = 1 / c.kneeLog2
	} else {
		c.invKneeLog2 = 0
	}

	// Automatic makeup: compensate the reduction at threshold level.
	makeupDB := -c.thresholdDB * (1 - 1/c.ratio)
	c.makeupLin = math.Pow(10, makeupDB/20)

	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	c.attackCoeff = 1 - math.Exp(-math.Ln2/(c.attackMs*0.001*c.sampleRate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.releaseMs * 0.001 * c.sampleRate))
}

func (c *Compressor) calculateGain(peakLevel float64) float64 {
	if peakLevel <= 0 {
		return 1
	}

	overshoot := math.Log2(peakLevel) - c.thresholdLog2

	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}

		return math.Exp2(-overshoot * (1 - 1/c.ratio))
	}

	halfWidth := c.kneeLog2 * 0.5

	var effective float64

	switch {
	case overshoot < -halfWidth:
		return 1
	case overshoot > halfWidth:
		effective = overshoot
	default:
		// Quadratic smoothing inside the knee: (overshoot + w/2)^2 / (2w).
		x := overshoot + halfWidth
		effective = x * x * 0.5 * c.invKneeLog2
	}

	return math.Exp2(-effective * (1 - 1/c.ratio))
}
