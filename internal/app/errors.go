package service

import "errors"

var (
	// ErrRunAborted indicates a run was cancelled before every job finished.
	ErrRunAborted = errors.New("evaluation run aborted")
	// ErrJobsFailed indicates one or more evaluation jobs panicked.
	ErrJobsFailed = errors.New("evaluation jobs failed")
)
