// Package rules defines the decision-category rule table.
//
// A rule is one of two variants: a ComparativeRule, which compares every
// listed metric against its own baseline in a bad direction, or an
// AbsoluteRule, which compares a single metric against a literal threshold.
// Rules are static configuration and are never mutated after loading.
package rules

import (
	"github.com/okian/platewatch/internal/domain/baseline"
	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/severity"
)

// Recommendations is canned training advice attached to a category.
type Recommendations struct {
	WeightRoom     []string `json:"weight_room,omitempty" yaml:"weight_room,omitempty"`
	Field          []string `json:"field,omitempty" yaml:"field,omitempty"`
	Interpretation string   `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
	ExecutionNote  string   `json:"execution_note,omitempty" yaml:"execution_note,omitempty"`
}

// Meta is the descriptive part shared by every rule variant.
type Meta struct {
	ID               int
	Name             string
	TrendDescription string
	Recommendations  Recommendations
}

// Rule is a decision category. The unexported method closes the union.
type Rule interface {
	Meta() Meta
	Trend() model.Trend
	// Metrics lists the metrics that must all qualify, in evaluation order.
	Metrics() []string
	// Assess judges one metric of the rule against its baseline estimate.
	Assess(metric string, est baseline.Estimate, th severity.Thresholds) model.MetricResult

	isRule()
}

// ComparativeRule flags athletes whose every metric moved past the SWC
// thresholds in Direction.
type ComparativeRule struct {
	Info      Meta
	Direction model.Trend // TrendDecrease or TrendIncrease
	Names     []string
}

// Meta implements Rule.
func (r ComparativeRule) Meta() Meta { return r.Info }

// Trend implements Rule.
func (r ComparativeRule) Trend() model.Trend { return r.Direction }

// Metrics implements Rule.
func (r ComparativeRule) Metrics() []string { return r.Names }

// Assess implements Rule.
func (r ComparativeRule) Assess(metric string, est baseline.Estimate, th severity.Thresholds) model.MetricResult {
	tier, dev := th.Classify(est.Current, est.Mean, est.SWC, r.Direction)
	return model.MetricResult{
		Metric:       metric,
		Current:      est.Current,
		BaselineMean: est.Mean,
		SWC:          est.SWC,
		Deviation:    dev,
		Severity:     tier,
	}
}

func (ComparativeRule) isRule() {}

// AbsoluteRule flags athletes whose current value exceeds Threshold.
type AbsoluteRule struct {
	Info      Meta
	Metric    string
	Threshold float64
}

// Meta implements Rule.
func (r AbsoluteRule) Meta() Meta { return r.Info }

// Trend implements Rule.
func (AbsoluteRule) Trend() model.Trend { return model.TrendAbsolute }

// Metrics implements Rule.
func (r AbsoluteRule) Metrics() []string { return []string{r.Metric} }

// Assess implements Rule. Thresholds are ignored: absolute rules are binary.
func (r AbsoluteRule) Assess(metric string, est baseline.Estimate, _ severity.Thresholds) model.MetricResult {
	threshold := r.Threshold
	return model.MetricResult{
		Metric:       metric,
		Current:      est.Current,
		BaselineMean: est.Mean,
		SWC:          est.SWC,
		Deviation:    est.Current - r.Threshold,
		Threshold:    &threshold,
		Severity:     severity.ClassifyAbsolute(est.Current, r.Threshold),
	}
}

func (AbsoluteRule) isRule() {}

// Table is an ordered, read-only set of rules.
type Table struct {
	rules []Rule
	byID  map[int]Rule
}

// NewTable validates rules and builds a table preserving their order.
func NewTable(rs ...Rule) (*Table, error) {
	t := &Table{
		rules: make([]Rule, 0, len(rs)),
		byID:  make(map[int]Rule, len(rs)),
	}
	for _, r := range rs {
		if err := Validate(r); err != nil {
			return nil, err
		}
		id := r.Meta().ID
		if _, dup := t.byID[id]; dup {
			return nil, invalid(id, "duplicate rule id")
		}
		t.byID[id] = r
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Rules returns the rules in configured order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Get returns the rule with id.
func (t *Table) Get(id int) (Rule, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// IDs returns rule ids in configured order.
func (t *Table) IDs() []int {
	ids := make([]int, len(t.rules))
	for i, r := range t.rules {
		ids[i] = r.Meta().ID
	}
	return ids
}

// Metrics returns the distinct metrics referenced by any rule, in first use order.
func (t *Table) Metrics() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rules {
		for _, m := range r.Metrics() {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Validate checks a single rule for structural problems.
func Validate(r Rule) error {
	meta := r.Meta()
	if meta.Name == "" {
		return invalid(meta.ID, "empty name")
	}
	switch v := r.(type) {
	case ComparativeRule:
		if v.Direction != model.TrendDecrease && v.Direction != model.TrendIncrease {
			return invalid(meta.ID, "comparative rule needs trend decrease or increase, got %q", v.Direction)
		}
		if len(v.Names) == 0 {
			return invalid(meta.ID, "empty metric list")
		}
		for _, m := range v.Names {
			if m == "" {
				return invalid(meta.ID, "empty metric name")
			}
		}
	case AbsoluteRule:
		if v.Metric == "" {
			return invalid(meta.ID, "empty metric list")
		}
	default:
		return invalid(meta.ID, "unknown rule variant %T", r)
	}
	return nil
}
