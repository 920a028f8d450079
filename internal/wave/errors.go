package wave

import "errors"

// ErrInvalidInput reports a parameter outside its domain, a length mismatch
// or an unusable filter configuration. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")
