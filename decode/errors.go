package decode

import "errors"

// ErrUnknownFormat is returned by Registry.Decode for format keys with no
// registered decoder.
var ErrUnknownFormat = errors.New("unknown format")
