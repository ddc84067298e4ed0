package baseline

import "errors"

// Sentinel kinds for baseline errors.
var (
	// ErrInsufficientData means the baseline window is below its minimum size.
	ErrInsufficientData = errors.New("insufficient baseline data")
)
