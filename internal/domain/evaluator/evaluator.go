// Package evaluator decides, per athlete and rule, whether the athlete is
// flagged and at which severity.
//
// Every metric of a rule must independently reach a non-normal tier for
// the athlete to be flagged. The flag carries the worst tier seen. Any
// data gap (too few records, absent column, short baseline) silently
// excludes the athlete from that rule.
package evaluator

import (
	"context"
	"sort"

	"github.com/okian/platewatch/internal/domain/baseline"
	"github.com/okian/platewatch/internal/domain/dataset"
	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/rules"
	"github.com/okian/platewatch/internal/domain/severity"
	"github.com/okian/platewatch/pkg/logger"
)

// DefaultMinRecords is the minimum number of test records an athlete
// needs before any rule is evaluated. Same-day trials count separately.
const DefaultMinRecords = 5

// Reason explains why an athlete was not flagged for a rule.
type Reason string

// Disqualification reasons.
const (
	ReasonNone                 Reason = ""
	ReasonInsufficientRecords  Reason = "insufficient_records"
	ReasonMissingMetricColumn  Reason = "missing_metric_column"
	ReasonInsufficientBaseline Reason = "insufficient_baseline_data"
	ReasonNormalMetric         Reason = "normal_metric"
)

// OutcomeFlagged is the metrics label for a flagged verdict.
const OutcomeFlagged = "flagged"

// Verdict is the result of evaluating one athlete against one rule.
// Either Flagged is true and Severity/Metrics are set, or Reason says why not.
type Verdict struct {
	AthleteID string
	RuleID    int
	Flagged   bool
	Severity  model.Severity
	Reason    Reason
	Metric    string               // metric that disqualified, if any
	Metrics   []model.MetricResult // evidence gathered before the verdict
}

// Outcome returns the verdict's metrics label.
func (v Verdict) Outcome() string {
	if v.Flagged {
		return OutcomeFlagged
	}
	return string(v.Reason)
}

// Flag converts a flagged verdict to a Flag. ok is false when not flagged.
func (v Verdict) Flag() (model.Flag, bool) {
	if !v.Flagged {
		return model.Flag{}, false
	}
	return model.Flag{
		AthleteID: v.AthleteID,
		RuleID:    v.RuleID,
		Severity:  v.Severity,
		Metrics:   v.Metrics,
	}, true
}

// MissingColumn names a rule metric absent from the dataset schema.
type MissingColumn struct {
	RuleID int
	Metric string
}

// Evaluator is safe for concurrent use; it holds no mutable state.
type Evaluator struct {
	estimator  *baseline.Estimator
	thresholds severity.Thresholds
	minRecords int
	log        logger.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithEstimator sets the baseline estimator.
func WithEstimator(e *baseline.Estimator) Option {
	return func(ev *Evaluator) {
		if e != nil {
			ev.estimator = e
		}
	}
}

// WithThresholds sets the SWC multipliers of the severity tiers.
func WithThresholds(t severity.Thresholds) Option {
	return func(ev *Evaluator) { ev.thresholds = t }
}

// WithMinRecords sets the record-count gate. Values below 1 are ignored.
func WithMinRecords(n int) Option {
	return func(ev *Evaluator) {
		if n > 0 {
			ev.minRecords = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ev *Evaluator) {
		if l != nil {
			ev.log = l
		}
	}
}

// New creates an Evaluator with the proportional-split baseline, default
// thresholds and a five-record gate unless overridden.
func New(opts ...Option) *Evaluator {
	ev := &Evaluator{
		estimator:  baseline.NewEstimator(),
		thresholds: severity.DefaultThresholds(),
		minRecords: DefaultMinRecords,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// MinRecords returns the record-count gate.
func (ev *Evaluator) MinRecords() int { return ev.minRecords }

// Thresholds returns the severity thresholds.
func (ev *Evaluator) Thresholds() severity.Thresholds { return ev.thresholds }

// Estimator returns the baseline estimator.
func (ev *Evaluator) Estimator() *baseline.Estimator { return ev.estimator }

// fold is the per-(athlete, rule) state: still qualifying with the worst
// tier so far, or disqualified with a reason.
type fold struct {
	worst   model.Severity
	reason  Reason
	metric  string
	results []model.MetricResult
}

func (f fold) disqualified() bool { return f.reason != ReasonNone }

func (f fold) disqualify(reason Reason, metric string) fold {
	f.reason, f.metric = reason, metric
	return f
}

func (f fold) accept(r model.MetricResult) fold {
	f.results = append(f.results, r)
	f.worst = model.Worse(f.worst, r.Severity)
	return f
}

// step folds one metric into the state.
func (ev *Evaluator) step(ds *dataset.Dataset, athlete string, rule rules.Rule, f fold, metric string) fold {
	if f.disqualified() {
		return f
	}
	if !ds.HasMetric(metric) {
		return f.disqualify(ReasonMissingMetricColumn, metric)
	}
	est, err := ev.estimator.Estimate(ds.Series(athlete, metric))
	if err != nil {
		// baseline.ErrInsufficientData is the only estimator failure
		return f.disqualify(ReasonInsufficientBaseline, metric)
	}
	result := rule.Assess(metric, est, ev.thresholds)
	if !result.Severity.Flagged() {
		return f.accept(result).disqualify(ReasonNormalMetric, metric)
	}
	return f.accept(result)
}

// EvaluateAthlete evaluates one athlete against one rule.
func (ev *Evaluator) EvaluateAthlete(ctx context.Context, ds *dataset.Dataset, athlete string, rule rules.Rule) Verdict {
	id := rule.Meta().ID
	v := Verdict{AthleteID: athlete, RuleID: id}

	if n := ds.RecordCount(athlete); n < ev.minRecords {
		v.Reason = ReasonInsufficientRecords
		ev.log.Debug(ctx, "athlete excluded",
			logger.String("athlete", athlete), logger.Int("rule_id", id),
			logger.String("reason", string(v.Reason)), logger.Int("records", n))
		return v
	}

	f := fold{worst: model.SeverityNormal}
	for _, metric := range rule.Metrics() {
		if f = ev.step(ds, athlete, rule, f, metric); f.disqualified() {
			break
		}
	}

	v.Metrics = f.results
	if f.disqualified() {
		v.Reason, v.Metric = f.reason, f.metric
		ev.log.Debug(ctx, "athlete excluded",
			logger.String("athlete", athlete), logger.Int("rule_id", id),
			logger.String("reason", string(v.Reason)), logger.String("metric", v.Metric))
		return v
	}
	v.Flagged, v.Severity = true, f.worst
	return v
}

// CheckSchema lists rule metrics missing from the dataset and logs each
// missing column once.
func (ev *Evaluator) CheckSchema(ctx context.Context, ds *dataset.Dataset, table *rules.Table) []MissingColumn {
	var missing []MissingColumn
	logged := make(map[string]struct{})
	for _, r := range table.Rules() {
		for _, m := range r.Metrics() {
			if ds.HasMetric(m) {
				continue
			}
			missing = append(missing, MissingColumn{RuleID: r.Meta().ID, Metric: m})
			if _, ok := logged[m]; ok {
				continue
			}
			logged[m] = struct{}{}
			ev.log.Warn(ctx, "metric column missing from dataset; dependent rules flag nobody",
				logger.String("metric", m), logger.Int("rule_id", r.Meta().ID))
		}
	}
	return missing
}

// Evaluate runs every rule against every athlete sequentially and returns
// the flags, grouped by rule in table order and sorted within each rule.
func (ev *Evaluator) Evaluate(ctx context.Context, ds *dataset.Dataset, table *rules.Table) []model.Flag {
	ev.CheckSchema(ctx, ds, table)
	var out []model.Flag
	for _, r := range table.Rules() {
		var group []model.Flag
		for _, a := range ds.Athletes() {
			if flag, ok := ev.EvaluateAthlete(ctx, ds, a, r).Flag(); ok {
				group = append(group, flag)
			}
		}
		SortFlags(group)
		out = append(out, group...)
	}
	return out
}

// SortFlags orders flags critical first, keeping input order among equals.
func SortFlags(flags []model.Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Severity > flags[j].Severity
	})
}
