package jobs

import "errors"

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobNotReady = errors.New("job not finished")
)
