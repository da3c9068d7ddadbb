package player

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-player/dsp/analyser"
	"github.com/cwbudde/algo-player/dsp/effects"
	"github.com/cwbudde/algo-player/dsp/effects/dynamics"
	"github.com/cwbudde/algo-player/dsp/filter/biquad"
	"github.com/cwbudde/algo-player/dsp/filter/design"
)

// graph is the fixed-topology processing chain:
//
//	bass shelf -> low peak -> mid peak -> high peak -> saturator ->
//	compressor -> output gain -> analyser -> output
//
// It is built once per processor lifetime and only ever reparameterized.
// The graph is not safe for concurrent use; the owning Processor serializes
// access with its mutex.
type graph struct {
	sampleRate float64

	bassShelf *biquad.Section
	lowPeak   *biquad.Section
	midPeak   *biquad.Section
	highPeak  *biquad.Section
	sat       *effects.Saturator
	comp      *dynamics.Compressor
	an        *analyser.Analyser

	params stageParams
}

func newGraph(sampleRate float64) (*graph, error) {
	comp, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("build compressor: %w", err)
	}

	if err := comp.SetThreshold(compressorThresholdDB); err != nil {
		return nil, fmt.Errorf("configure compressor: %w", err)
	}

	if err := comp.SetKnee(compressorKneeDB); err != nil {
		return nil, fmt.Errorf("configure compressor: %w", err)
	}

	if err := comp.SetAttack(compressorAttackMs); err != nil {
		return nil, fmt.Errorf("configure compressor: %w", err)
	}

	if err := comp.SetRelease(compressorReleaseMs); err != nil {
		return nil, fmt.Errorf("configure compressor: %w", err)
	}

	an, err := analyser.New(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("build analyser: %w", err)
	}

	g := &graph{
		sampleRate: sampleRate,
		bassShelf:  biquad.NewSection(biquad.Identity()),
		lowPeak:    biquad.NewSection(biquad.Identity()),
		midPeak:    biquad.NewSection(biquad.Identity()),
		highPeak:   biquad.NewSection(biquad.Identity()),
		sat:        effects.NewSaturator(),
		comp:       comp,
		an:         an,
	}

	if err := g.apply(mapSettings(DefaultSettings())); err != nil {
		return nil, err
	}

	return g, nil
}

// apply reparameterizes every stage from p. Filter delay lines are kept so
// live updates do not click.
func (g *graph) apply(p stageParams) error {
	g.bassShelf.SetCoefficients(design.LowShelf(bassShelfFreqHz, p.bassShelfGainDB, 0, g.sampleRate))
	g.lowPeak.SetCoefficients(design.Peak(lowPeakFreqHz, p.lowPeakGainDB, peakQ, g.sampleRate))
	g.midPeak.SetCoefficients(design.Peak(midPeakFreqHz, p.midPeakGainDB, peakQ, g.sampleRate))
	g.highPeak.SetCoefficients(design.Peak(highPeakFreqHz, p.highPeakGainDB, peakQ, g.sampleRate))

	if err := g.sat.SetDrive(p.saturatorDrive); err != nil {
		return fmt.Errorf("player: configure saturator: %w", err)
	}

	if err := g.sat.SetMix(p.saturatorMix); err != nil {
		return fmt.Errorf("player: configure saturator: %w", err)
	}

	if err := g.comp.SetRatio(p.compressorRatio); err != nil {
		return fmt.Errorf("player: configure compressor: %w", err)
	}

	g.params = p

	return nil
}

// process runs block through the chain in place and feeds the analyser.
// With bypass set, the tone stages are skipped; output gain and the
// analyser stay active.
func (g *graph) process(block []float64) {
	if !g.params.bypass {
		g.bassShelf.ProcessBlock(block)
		g.lowPeak.ProcessBlock(block)
		g.midPeak.ProcessBlock(block)
		g.highPeak.ProcessBlock(block)
		g.sat.ProcessInPlace(block)
		g.comp.ProcessInPlace(block)
	}

	if g.params.outputGain != 1 {
		for i := range block {
			block[i] *= g.params.outputGain
		}
	}

	g.an.Push(block)
}

// reset clears all stage state: filter delay lines, compressor envelope,
// and the analyser ring.
func (g *graph) reset() {
	g.bassShelf.Reset()
	g.lowPeak.Reset()
	g.midPeak.Reset()
	g.highPeak.Reset()
	g.comp.Reset()
	g.an.Reset()
}

// responseCurveDB returns the combined EQ magnitude response in dB at the
// given frequencies, including the output gain. The saturator, compressor,
// and analyser do not contribute (they are not LTI stages).
func (g *graph) responseCurveDB(freqs []float64) []float64 {
	out := make([]float64, len(freqs))

	for i, f := range freqs {
		h := g.bassShelf.Response(f, g.sampleRate)
		h *= g.lowPeak.Response(f, g.sampleRate)
		h *= g.midPeak.Response(f, g.sampleRate)
		h *= g.highPeak.Response(f, g.sampleRate)

		out[i] = magDB(h, g.params.outputGain)
	}

	return out
}

func magDB(h complex128, gain float64) float64 {
	mag := cmplx.Abs(h) * gain

	return 20 * math.Log10(math.Max(1e-12, mag))
}
