package tasks

import "errors"

var (
	errMissingJobID = errors.New("missing job id")
	errJobNotFound  = errors.New("job not found")
)
