// Package player turns a decoded sample buffer and a set of normalized
// user parameters into processed audio, a playback position clock, a level
// meter, per-call spectrum snapshots, and an offline waveform envelope.
//
// The Processor owns a fixed-topology processing graph (bass shelf, three
// peaking filters, saturator, compressor, output gain, spectrum analyser)
// that is built once by Initialize and only ever reparameterized through
// UpdateSettings. Playback runs on a single non-reusable unit managed by
// the transport methods Play, Pause, and Stop.
//
// Format decoding is a collaborator concern: the processor consumes a
// Buffer of raw normalized samples and has no file-format or network
// responsibilities.
package player
