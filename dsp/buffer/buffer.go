// Package buffer provides a reuse-friendly sample block wrapper and a pool
// of blocks for the playback pump.
package buffer

// Block wraps a float64 slice with reuse-friendly semantics.
// DSP functions accept raw []float64; use Samples() to bridge.
type Block struct {
	samples []float64
}

// New returns a zero-filled Block of the given length.
func New(length int) *Block {
	if length < 0 {
		length = 0
	}

	return &Block{samples: make([]float64, length)}
}

// FromSlice wraps an existing slice without copying. Mutations to the slice
// are visible through the Block and vice versa.
func FromSlice(s []float64) *Block {
	return &Block{samples: s}
}

// Samples returns the underlying slice.
func (b *Block) Samples() []float64 {
	return b.samples
}

// Len returns the current number of samples.
func (b *Block) Len() int {
	return len(b.samples)
}

// Resize sets the length to n, reusing existing capacity when possible.
// New elements beyond the previous length are zeroed.
func (b *Block) Resize(n int) {
	if n < 0 {
		n = 0
	}

	oldLen := len(b.samples)
	if n <= cap(b.samples) {
		b.samples = b.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, b.samples)
		b.samples = s
	}

	// Zero newly exposed elements that may hold stale data from previous
	// use of the backing array.
	for i := oldLen; i < n; i++ {
		b.samples[i] = 0
	}
}

// Zero sets all samples to 0.
func (b *Block) Zero() {
	for i := range b.samples {
		b.samples[i] = 0
	}
}

// CopyFrom resizes the block to len(src) and copies src into it.
func (b *Block) CopyFrom(src []float64) {
	b.Resize(len(src))
	copy(b.samples, src)
}
