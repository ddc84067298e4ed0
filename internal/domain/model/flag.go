package model

// MetricResult is the evidence one metric contributed to a verdict.
type MetricResult struct {
	Metric       string   `json:"metric" yaml:"metric"`
	Current      float64  `json:"current" yaml:"current"`
	BaselineMean float64  `json:"baseline_mean" yaml:"baseline_mean"`
	SWC          float64  `json:"swc" yaml:"swc"`
	Deviation    float64  `json:"deviation" yaml:"deviation"`
	Threshold    *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"` // absolute rules only
	Severity     Severity `json:"severity" yaml:"severity"`
}

// Flag records that one athlete qualifies for one rule.
type Flag struct {
	AthleteID string         `json:"athlete_id" yaml:"athlete_id"`
	RuleID    int            `json:"rule_id" yaml:"rule_id"`
	Severity  Severity       `json:"severity" yaml:"severity"`
	Metrics   []MetricResult `json:"metrics" yaml:"metrics"`
}
