package player

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-player/internal/testutil"
)

func mustBuffer(t *testing.T, sampleRate float64, channels ...[]float64) *Buffer {
	t.Helper()

	b, err := NewBuffer(sampleRate, channels)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}

	return b
}

func TestEnvelopeLengthAlways800(t *testing.T) {
	tests := []struct {
		name   string
		frames int
	}{
		{"empty", 0},
		{"one frame", 1},
		{"shorter than envelope", 300},
		{"exactly envelope length", 800},
		{"typical", 8000},
		{"non-multiple", 1650},
		{"large", 44100 * 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBuffer(t, 44100, make([]float64, tt.frames))

			if got := len(ExtractEnvelope(b)); got != EnvelopeLength {
				t.Errorf("len(ExtractEnvelope) = %d, want %d", got, EnvelopeLength)
			}
		})
	}

	if got := len(ExtractEnvelope(nil)); got != EnvelopeLength {
		t.Errorf("len(ExtractEnvelope(nil)) = %d, want %d", got, EnvelopeLength)
	}
}

func TestEnvelopeConstantAmplitude(t *testing.T) {
	b := mustBuffer(t, 8000, testutil.DC(0.5, 8000))

	env := ExtractEnvelope(b)
	testutil.RequireSliceNearlyEqual(t, env, testutil.DC(0.5, EnvelopeLength), 1e-12)
}

func TestEnvelopeUsesAbsoluteValue(t *testing.T) {
	b := mustBuffer(t, 8000, testutil.DC(-0.5, 8000))

	for i, v := range ExtractEnvelope(b) {
		if math.Abs(v-0.5) > 1e-12 {
			t.Fatalf("entry %d = %v, want 0.5 for negative constant input", i, v)
		}
	}
}

func TestEnvelopeShortBufferZeroPads(t *testing.T) {
	samples := []float64{0.1, -0.2, 0.3}
	b := mustBuffer(t, 8000, samples)

	env := ExtractEnvelope(b)

	want := []float64{0.1, 0.2, 0.3}
	testutil.RequireSliceNearlyEqual(t, env[:3], want, 1e-12)

	for i := 3; i < EnvelopeLength; i++ {
		if env[i] != 0 {
			t.Fatalf("entry %d = %v, want 0 padding", i, env[i])
		}
	}
}

func TestEnvelopeIgnoresRemainderFrames(t *testing.T) {
	// 1650 frames: block size 2, the last 50 frames must not contribute.
	samples := make([]float64, 1650)
	for i := 1600; i < 1650; i++ {
		samples[i] = 1 // would spike the last entry if counted
	}

	env := ExtractEnvelope(mustBuffer(t, 44100, samples))

	if env[EnvelopeLength-1] != 0 {
		t.Errorf("last entry = %v, want 0 (remainder ignored)", env[EnvelopeLength-1])
	}
}

func TestEnvelopeFirstChannelOnly(t *testing.T) {
	first := testutil.DC(0.25, 1600)
	second := testutil.DC(1.0, 1600)

	env := ExtractEnvelope(mustBuffer(t, 44100, first, second))
	testutil.RequireSliceNearlyEqual(t, env, testutil.DC(0.25, EnvelopeLength), 1e-12)
}

func TestEnvelopeDeterministic(t *testing.T) {
	b := mustBuffer(t, 44100, testutil.DeterministicNoise(42, 0.8, 12000))

	a := ExtractEnvelope(b)
	c := ExtractEnvelope(b)

	testutil.RequireSliceNearlyEqual(t, a, c, 0)
	testutil.RequireFinite(t, a)
}
