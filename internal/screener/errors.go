package screener

import "errors"

// ErrInvalidInput is returned before any fetch when the ticker list or the
// benchmark cannot be screened.
var ErrInvalidInput = errors.New("invalid input")
