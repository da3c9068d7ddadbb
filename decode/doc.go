// Package decode defines the decoder interfaces shared by the format
// packages and a registry for looking decoders up by format key.
//
// Every decoder produces interleaved float32 PCM in [-1, 1] regardless of
// the container's native sample layout, so downstream consumers never deal
// with per-format integer widths or endianness.
package decode
