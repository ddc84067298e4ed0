package model

import (
	"fmt"
	"strings"
)

// Severity is an ordered tier; larger values are more severe.
type Severity int

// Severity tiers.
const (
	SeverityNormal Severity = iota
	SeverityCaution
	SeverityWarning
	SeverityCritical
)

var severityNames = [...]string{"normal", "caution", "warning", "critical"}

func (s Severity) String() string {
	if s < SeverityNormal || s > SeverityCritical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Flagged reports whether s is any tier above normal.
func (s Severity) Flagged() bool { return s > SeverityNormal }

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityNormal || s > SeverityCritical {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity accepts tier names case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "normal":
		return SeverityNormal, nil
	case "caution":
		return SeverityCaution, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityNormal, fmt.Errorf("unknown severity %q", name)
}

// Worse returns the more severe of a and b.
func Worse(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}
