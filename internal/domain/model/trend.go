package model

import (
	"fmt"
	"strings"
)

// Trend says which direction of change is bad for a rule.
type Trend string

// Known trends.
const (
	TrendDecrease Trend = "decrease" // a drop in value is bad
	TrendIncrease Trend = "increase" // a rise in value is bad
	TrendAbsolute Trend = "absolute" // compare against a literal threshold
)

// ParseTrend accepts trend names case-insensitively.
func ParseTrend(name string) (Trend, error) {
	switch t := Trend(strings.ToLower(strings.TrimSpace(name))); t {
	case TrendDecrease, TrendIncrease, TrendAbsolute:
		return t, nil
	}
	return "", fmt.Errorf("unknown trend %q", name)
}
