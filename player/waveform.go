package player

import "math"

// EnvelopeLength is the fixed number of entries in a waveform envelope.
const EnvelopeLength = 800

// ExtractEnvelope downsamples the first channel of b into a fixed-length
// amplitude envelope for static visualization. The channel is partitioned
// into EnvelopeLength contiguous blocks of floor(frames/EnvelopeLength)
// frames; entry i is the mean absolute sample over block i. Remainder
// frames past the last full block are ignored.
//
// Buffers shorter than EnvelopeLength frames map one sample per entry and
// zero-pad the tail. The result always has exactly EnvelopeLength entries.
func ExtractEnvelope(b *Buffer) []float64 {
	out := make([]float64, EnvelopeLength)
	if b == nil {
		return out
	}

	ch := b.Channel(0)
	frames := len(ch)

	blockSize := frames / EnvelopeLength
	if blockSize == 0 {
		for i := 0; i < frames; i++ {
			out[i] = math.Abs(ch[i])
		}

		return out
	}

	inv := 1 / float64(blockSize)
	for i := range out {
		sum := 0.0
		for _, s := range ch[i*blockSize : (i+1)*blockSize] {
			sum += math.Abs(s)
		}

		out[i] = sum * inv
	}

	return out
}
