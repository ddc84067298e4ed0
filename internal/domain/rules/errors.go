package rules

import (
	"errors"
	"fmt"
)

// Sentinel kinds for rule table errors.
var (
	ErrInvalidRule = errors.New("invalid rule configuration")
	ErrLoadRules   = errors.New("load rules failed")
)

func invalid(id int, format string, args ...any) error {
	return fmt.Errorf("%w: rule %d: %s", ErrInvalidRule, id, fmt.Sprintf(format, args...))
}
