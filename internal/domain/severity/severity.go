// Package severity maps a deviation from baseline to a discrete tier.
package severity

import (
	"fmt"
	"math"

	"github.com/okian/platewatch/internal/domain/model"
)

// Default SWC multiples for each tier.
const (
	DefaultCritical = 2.0
	DefaultWarning  = 1.5
	DefaultCaution  = 1.0
)

// Thresholds holds the SWC multiples a deviation must exceed for each tier.
type Thresholds struct {
	Critical float64
	Warning  float64
	Caution  float64
}

// DefaultThresholds returns 2.0, 1.5 and 1.0 times SWC.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: DefaultCritical, Warning: DefaultWarning, Caution: DefaultCaution}
}

// Validate requires positive, strictly decreasing multiples.
func (t Thresholds) Validate() error {
	if t.Caution <= 0 || t.Warning <= t.Caution || t.Critical <= t.Warning {
		return fmt.Errorf("%w: critical=%g warning=%g caution=%g", ErrInvalidThresholds, t.Critical, t.Warning, t.Caution)
	}
	return nil
}

// Deviation returns the signed change from baseline, positive when the
// metric moved in the bad direction for trend.
func Deviation(current, baselineMean float64, trend model.Trend) float64 {
	if trend == model.TrendIncrease {
		return current - baselineMean
	}
	return baselineMean - current
}

// Classify computes the signed deviation for a comparative trend and maps
// its magnitude to a tier. The most severe matching tier wins. With a
// non-positive swc any nonzero deviation is critical and zero is normal.
func (t Thresholds) Classify(current, baselineMean, swc float64, trend model.Trend) (model.Severity, float64) {
	dev := Deviation(current, baselineMean, trend)
	abs := math.Abs(dev)
	switch {
	case swc <= 0:
		if abs > 0 {
			return model.SeverityCritical, dev
		}
		return model.SeverityNormal, dev
	case abs > t.Critical*swc:
		return model.SeverityCritical, dev
	case abs > t.Warning*swc:
		return model.SeverityWarning, dev
	case abs > t.Caution*swc:
		return model.SeverityCaution, dev
	}
	return model.SeverityNormal, dev
}

// Classify applies DefaultThresholds.
func Classify(current, baselineMean, swc float64, trend model.Trend) (model.Severity, float64) {
	return DefaultThresholds().Classify(current, baselineMean, swc, trend)
}

// ClassifyAbsolute compares current against a literal threshold. There are
// no intermediate tiers: above the threshold is critical, otherwise normal.
func ClassifyAbsolute(current, threshold float64) model.Severity {
	if current > threshold {
		return model.SeverityCritical
	}
	return model.SeverityNormal
}
