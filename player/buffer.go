package player

import (
	"errors"
	"fmt"
	"math"
)

// Buffer holds decoded audio: a sample rate and per-channel float64 samples
// normalized to [-1, 1]. A Buffer is immutable once constructed; the player
// only ever reads it.
type Buffer struct {
	sampleRate float64
	channels   [][]float64
}

// NewBuffer constructs a Buffer from per-channel sample slices. All channels
// must have the same length and the sample rate must be positive and finite.
// The slices are used directly, not copied; callers must not mutate them
// afterwards.
func NewBuffer(sampleRate float64, channels [][]float64) (*Buffer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("buffer sample rate must be positive and finite: %f", sampleRate)
	}

	if len(channels) == 0 {
		return nil, errors.New("buffer requires at least one channel")
	}

	frames := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d frames, channel 0 has %d", i+1, len(ch), frames)
		}
	}

	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

// BufferFromInterleaved constructs a Buffer from interleaved float32 samples
// as produced by the decode collaborators.
func BufferFromInterleaved(sampleRate float64, numChannels int, samples []float32) (*Buffer, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("buffer requires a positive channel count: %d", numChannels)
	}

	frames := len(samples) / numChannels
	channels := make([][]float64, numChannels)

	for c := range channels {
		ch := make([]float64, frames)
		for i := range ch {
			ch[i] = float64(samples[i*numChannels+c])
		}

		channels[c] = ch
	}

	return NewBuffer(sampleRate, channels)
}

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() float64 { return b.sampleRate }

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.channels) }

// Frames returns the per-channel frame count.
func (b *Buffer) Frames() int { return len(b.channels[0]) }

// Channel returns the samples of channel i.
func (b *Buffer) Channel(i int) []float64 { return b.channels[i] }

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / b.sampleRate
}

// monoMix returns an equal-weight downmix of all channels.
func (b *Buffer) monoMix() []float64 {
	frames := b.Frames()
	out := make([]float64, frames)

	if len(b.channels) == 1 {
		copy(out, b.channels[0])
		return out
	}

	scale := 1 / float64(len(b.channels))
	for _, ch := range b.channels {
		for i, s := range ch {
			out[i] += s * scale
		}
	}

	return out
}
