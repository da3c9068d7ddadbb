package player

import "github.com/cwbudde/algo-player/dsp/core"

// Settings holds the normalized user parameters. All numeric fields are on
// a 0..100 scale; values outside that range are clamped before mapping,
// never rejected.
type Settings struct {
	BassBoost   float64
	LowFreq     float64
	MidFreq     float64
	HighFreq    float64
	Saturation  float64
	Compression float64
	Gain        float64
	Enabled     bool
}

// DefaultSettings returns a neutral configuration: flat EQ, no saturation,
// no compression, full output gain.
func DefaultSettings() Settings {
	return Settings{
		BassBoost:   50,
		LowFreq:     50,
		MidFreq:     50,
		HighFreq:    50,
		Saturation:  0,
		Compression: 0,
		Gain:        100,
		Enabled:     true,
	}
}

// Fixed stage frequencies and compressor constants. These are not
// user-controlled.
const (
	bassShelfFreqHz = 100.0
	lowPeakFreqHz   = 100.0
	midPeakFreqHz   = 1000.0
	highPeakFreqHz  = 3000.0

	peakQ = 1.0

	compressorThresholdDB = -24.0
	compressorKneeDB      = 30.0
	compressorAttackMs    = 3.0
	compressorReleaseMs   = 250.0
)

// stageParams are the native parameters of the graph stages, derived from
// Settings by a pure mapping.
type stageParams struct {
	bassShelfGainDB float64
	lowPeakGainDB   float64
	midPeakGainDB   float64
	highPeakGainDB  float64

	saturatorMix   float64
	saturatorDrive float64

	compressorRatio float64

	outputGain float64

	bypass bool
}

// clamped returns a copy of s with every numeric field limited to [0, 100].
func (s Settings) clamped() Settings {
	s.BassBoost = core.Clamp(s.BassBoost, 0, 100)
	s.LowFreq = core.Clamp(s.LowFreq, 0, 100)
	s.MidFreq = core.Clamp(s.MidFreq, 0, 100)
	s.HighFreq = core.Clamp(s.HighFreq, 0, 100)
	s.Saturation = core.Clamp(s.Saturation, 0, 100)
	s.Compression = core.Clamp(s.Compression, 0, 100)
	s.Gain = core.Clamp(s.Gain, 0, 100)

	return s
}

// mapSettings converts Settings to stage parameters. The mapping is pure:
// the same Settings value always yields the same parameters regardless of
// call history. Inputs are clamped first, so the formulas never see values
// outside [0, 100].
func mapSettings(s Settings) stageParams {
	s = s.clamped()

	sat := s.Saturation / 100

	return stageParams{
		bassShelfGainDB: (s.BassBoost - 50) * 0.5,
		lowPeakGainDB:   (s.LowFreq - 50) * 0.48,
		midPeakGainDB:   (s.MidFreq - 50) * 0.48,
		highPeakGainDB:  (s.HighFreq - 50) * 0.48,
		saturatorMix:    sat,
		saturatorDrive:  1 + 9*sat,
		compressorRatio: 1 + (s.Compression/100)*19,
		outputGain:      s.Gain / 100,
		bypass:          !s.Enabled,
	}
}
