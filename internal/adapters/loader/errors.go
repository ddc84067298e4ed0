package loader

import "errors"

// Sentinel errors for dataset loading. Row-level problems are not errors;
// they are counted as rejected rows.
var (
	ErrMissingColumn = errors.New("required column missing")
	ErrRead          = errors.New("read dataset")
)
