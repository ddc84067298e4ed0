// Package baseline selects a reference window from an athlete's metric
// history and derives its mean and smallest worthwhile change (SWC).
package baseline

import (
	"fmt"
	"math"

	"github.com/okian/platewatch/internal/domain/model"
)

// Default estimator configuration constants.
const (
	DefaultFraction  = 0.6
	DefaultDays      = 180
	DefaultSWCFactor = 0.2

	// MeanFractionFactor is the conventional factor for the 5%-of-mean SWC.
	MeanFractionFactor = 0.05

	minSeriesLen     = 3 // proportional split: non-missing values in the full series
	minSplitWindow   = 2 // proportional split: values in the baseline window
	minRollingWindow = 3 // rolling window: values in the baseline window

	// splitEpsilon absorbs float error in len*fraction so that 60% of 10 is 6.
	splitEpsilon = 1e-9
)

// Estimate is the baseline summary for one athlete and one metric.
type Estimate struct {
	Mean    float64   // arithmetic mean of Window
	SWC     float64   // smallest worthwhile change derived from Window
	Current float64   // chronologically last value of the full series
	Window  []float64 // baseline window values, oldest first
}

// Policy chooses which part of a series forms the baseline window.
type Policy interface {
	// Window returns the baseline values and the current value, or
	// ErrInsufficientData when the series is too short.
	Window(series model.Series) (window []float64, current float64, err error)
	// Name identifies the policy in reports and logs.
	Name() string
}

// ProportionalSplit takes the first Fraction of the values (by count,
// rounded down) as the baseline.
type ProportionalSplit struct {
	Fraction float64
}

// Name implements Policy.
func (p ProportionalSplit) Name() string {
	return fmt.Sprintf("proportional(%g)", p.Fraction)
}

// Window implements Policy.
func (p ProportionalSplit) Window(series model.Series) ([]float64, float64, error) {
	if len(series) < minSeriesLen {
		return nil, 0, fmt.Errorf("%w: %d values, need %d", ErrInsufficientData, len(series), minSeriesLen)
	}
	split := int(math.Floor(float64(len(series))*p.Fraction + splitEpsilon))
	if split < minSplitWindow {
		return nil, 0, fmt.Errorf("%w: baseline window of %d, need %d", ErrInsufficientData, split, minSplitWindow)
	}
	if split > len(series) {
		split = len(series)
	}
	window := series[:split].Values()
	last, _ := series.Last()
	return window, last.Value, nil
}

// RollingWindow takes every value dated within Days of the most recent
// reading as the baseline.
type RollingWindow struct {
	Days int
}

// Name implements Policy.
func (r RollingWindow) Name() string {
	return fmt.Sprintf("rolling(%dd)", r.Days)
}

// Window implements Policy.
func (r RollingWindow) Window(series model.Series) ([]float64, float64, error) {
	last, ok := series.Last()
	if !ok {
		return nil, 0, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	cutoff := last.Date.AddDate(0, 0, -r.Days)
	window := make([]float64, 0, len(series))
	for _, pt := range series {
		if !pt.Date.Before(cutoff) {
			window = append(window, pt.Value)
		}
	}
	if len(window) < minRollingWindow {
		return nil, 0, fmt.Errorf("%w: baseline window of %d, need %d", ErrInsufficientData, len(window), minRollingWindow)
	}
	return window, last.Value, nil
}

// SWCMethod derives the smallest worthwhile change from a baseline window.
type SWCMethod interface {
	SWC(window []float64) float64
	Name() string
}

// SDFraction is Factor times the population standard deviation.
type SDFraction struct {
	Factor float64
}

// SWC implements SWCMethod.
func (s SDFraction) SWC(window []float64) float64 { return s.Factor * PopulationStdDev(window) }

// Name implements SWCMethod.
func (s SDFraction) Name() string { return fmt.Sprintf("%g*sd", s.Factor) }

// MeanFraction is Factor times the window mean (0.05 gives 5% of mean).
type MeanFraction struct {
	Factor float64
}

// SWC implements SWCMethod.
func (m MeanFraction) SWC(window []float64) float64 { return math.Abs(m.Factor * Mean(window)) }

// Name implements SWCMethod.
func (m MeanFraction) Name() string { return fmt.Sprintf("%g*mean", m.Factor) }

// Estimator combines a window policy with an SWC method.
type Estimator struct {
	policy Policy
	swc    SWCMethod
}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithPolicy sets the baseline window policy.
func WithPolicy(p Policy) Option {
	return func(e *Estimator) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithSWCMethod sets how the SWC is derived.
func WithSWCMethod(m SWCMethod) Option {
	return func(e *Estimator) {
		if m != nil {
			e.swc = m
		}
	}
}

// NewEstimator returns an estimator using the proportional split and
// 0.2*SD unless overridden.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		policy: ProportionalSplit{Fraction: DefaultFraction},
		swc:    SDFraction{Factor: DefaultSWCFactor},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate computes the baseline for a date-ordered series.
func (e *Estimator) Estimate(series model.Series) (Estimate, error) {
	window, current, err := e.policy.Window(series)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Mean:    Mean(window),
		SWC:     e.swc.SWC(window),
		Current: current,
		Window:  window,
	}, nil
}

// Name describes the estimator configuration, e.g. "proportional(0.6)/0.2*sd".
func (e *Estimator) Name() string {
	return e.policy.Name() + "/" + e.swc.Name()
}

// Mean returns the arithmetic mean, or NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the standard deviation with divisor n.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
