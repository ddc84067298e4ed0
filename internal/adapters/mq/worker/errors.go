package worker

import "errors"

// Sentinel errors for worker operations.
var (
	ErrShutdownTimeout = errors.New("worker shutdown timed out")
	ErrJobPanicked     = errors.New("job panicked")
)
