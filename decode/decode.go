package decode

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Source is a stream of decoded PCM audio. Samples are interleaved float32
// in [-1, 1].
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (1 = mono, 2 = stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples and returns the number
	// of values written, not frames. n == 0 with io.EOF ends the stream.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases decoder resources.
	Close() error
}

// Decoder constructs a Source from an encoded input stream.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys ("wav", "mp3", "vorbis", "aiff") to decoders.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register adds or replaces the decoder for a format key.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[format] = d
}

// Get returns the decoder registered for a format key.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.codecs[format]

	return d, ok
}

// Formats returns the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Decode looks up the decoder for format and runs it on rd.
func (r *Registry) Decode(format string, rd io.Reader) (Source, error) {
	d, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("decode: format %q: %w", format, ErrUnknownFormat)
	}

	return d.Decode(rd)
}

// FormatForPath derives a registry format key from a file name extension.
// Returns "" for unknown extensions.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".ogg", ".oga":
		return "vorbis"
	case ".aif", ".aiff", ".aifc":
		return "aiff"
	default:
		return ""
	}
}

const readChunk = 8192

// ReadAll drains src and returns the complete interleaved sample stream.
func ReadAll(src Source) ([]float32, error) {
	var out []float32

	buf := make([]float32, readChunk)

	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)

		switch {
		case errors.Is(err, io.EOF):
			return out, nil
		case err != nil:
			return nil, fmt.Errorf("decode: read samples: %w", err)
		case n == 0:
			return out, nil
		}
	}
}

// PCMScale returns the normalization divisor for integer PCM of the given
// bit depth. ok is false for depths no decoder produces.
func PCMScale(bitDepth int) (scale float32, ok bool) {
	switch bitDepth {
	case 8:
		return 128, true
	case 16:
		return 32768, true
	case 24:
		return 8388608, true
	case 32:
		return 2147483648, true
	default:
		return 0, false
	}
}
