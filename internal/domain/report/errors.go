package report

import "errors"

// Sentinel errors for report encoding.
var (
	ErrUnknownFormat = errors.New("unknown report format")
	ErrEncode        = errors.New("encode report")
)
