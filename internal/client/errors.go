package client

import "errors"

var (
	// ErrRequest indicates the server could not be reached.
	ErrRequest = errors.New("request failed")
	// ErrDecode indicates a malformed response body.
	ErrDecode = errors.New("failed to decode response")
	// ErrNoReport indicates the server has not finished a run yet.
	ErrNoReport = errors.New("no report available")
	// ErrNotFound indicates an unknown category.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedStatus indicates any other non-200 answer.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)
