package severity

import "errors"

// Sentinel kinds for severity errors.
var (
	ErrInvalidThresholds = errors.New("invalid severity thresholds")
)
