package common

import "errors"

// ErrFatalInput is the only error class surfaced to callers as a hard
// failure: an empty problem statement, or a statement that fuses to zero
// nodes. Every other failure degrades into findings on the result.
var ErrFatalInput = errors.New("fatal input")
