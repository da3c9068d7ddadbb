// Command trackinfo decodes an audio file and prints its properties along
// with the frequency response of the processing chain for a given set of
// tone controls.
//
// Usage:
//
//	trackinfo [flags] file.wav
//
// Examples:
//
//	trackinfo track.mp3
//	trackinfo -bass 80 -compression 60 track.ogg
//	trackinfo -envelope track.wav
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-player/decode"
	"github.com/cwbudde/algo-player/decode/aiff"
	"github.com/cwbudde/algo-player/decode/mp3"
	"github.com/cwbudde/algo-player/decode/vorbis"
	"github.com/cwbudde/algo-player/decode/wav"
	"github.com/cwbudde/algo-player/player"
)

var responseFreqs = []float64{20, 50, 100, 200, 500, 1000, 2000, 3000, 5000, 10000}

func main() {
	bass := flag.Float64("bass", 50, "bass boost control, 0..100")
	low := flag.Float64("low", 50, "low band control, 0..100")
	mid := flag.Float64("mid", 50, "mid band control, 0..100")
	high := flag.Float64("high", 50, "high band control, 0..100")
	saturation := flag.Float64("saturation", 0, "saturation control, 0..100")
	compression := flag.Float64("compression", 0, "compression control, 0..100")
	gain := flag.Float64("gain", 100, "output gain control, 0..100")
	envelope := flag.Bool("envelope", false, "print waveform envelope statistics")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: trackinfo [flags] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Decodes an audio file and prints track and processing-chain info.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  trackinfo track.mp3\n")
		fmt.Fprintf(os.Stderr, "  trackinfo -bass 80 -compression 60 track.ogg\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)

	settings := player.Settings{
		BassBoost:   *bass,
		LowFreq:     *low,
		MidFreq:     *mid,
		HighFreq:    *high,
		Saturation:  *saturation,
		Compression: *compression,
		Gain:        *gain,
		Enabled:     true,
	}

	if err := run(path, settings, *envelope); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRegistry() *decode.Registry {
	reg := decode.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("vorbis", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})

	return reg
}

func run(path string, settings player.Settings, printEnvelope bool) error {
	format := decode.FormatForPath(path)
	if format == "" {
		return fmt.Errorf("cannot derive format from %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src, err := newRegistry().Decode(format, f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer src.Close()

	samples, err := decode.ReadAll(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	buf, err := player.BufferFromInterleaved(float64(src.SampleRate()), src.Channels(), samples)
	if err != nil {
		return fmt.Errorf("build buffer: %w", err)
	}

	proc := player.New(buf.SampleRate())
	if err := proc.Initialize(); err != nil {
		return err
	}
	defer func() { _ = proc.Destroy() }()

	if err := proc.LoadBuffer(buf); err != nil {
		return err
	}

	if err := proc.UpdateSettings(settings); err != nil {
		return err
	}

	printTrackInfo(path, format, buf)
	printResponse(proc)

	if printEnvelope {
		printEnvelopeStats(proc.Envelope())
	}

	return nil
}

func printTrackInfo(path, format string, buf *player.Buffer) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\t%s\n", path)
	fmt.Fprintf(tw, "Format\t%s\n", format)
	fmt.Fprintf(tw, "Sample rate\t%.0f Hz\n", buf.SampleRate())
	fmt.Fprintf(tw, "Channels\t%d\n", buf.Channels())
	fmt.Fprintf(tw, "Frames\t%d\n", buf.Frames())
	fmt.Fprintf(tw, "Duration\t%.3f s\n", buf.Duration())

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func printResponse(proc *player.Processor) {
	resp := proc.ResponseCurveDB(responseFreqs)

	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Frequency [Hz]\tResponse [dB]\n")
	fmt.Fprintf(tw, "--------------\t-------------\n")

	for i, f := range responseFreqs {
		fmt.Fprintf(tw, "%.0f\t%+.2f\n", f, resp[i])
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func printEnvelopeStats(env []float64) {
	peak, mean := 0.0, 0.0
	for _, v := range env {
		mean += v
		peak = math.Max(peak, v)
	}

	if len(env) > 0 {
		mean /= float64(len(env))
	}

	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Envelope points\t%d\n", len(env))
	fmt.Fprintf(tw, "Envelope peak\t%.4f\n", peak)
	fmt.Fprintf(tw, "Envelope mean\t%.4f\n", mean)

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
