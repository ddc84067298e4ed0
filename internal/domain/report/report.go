// Package report groups flags into per-category results for the external
// renderers (HTML, text, dashboards).
package report

import (
	"time"

	"github.com/okian/platewatch/internal/domain/dataset"
	"github.com/okian/platewatch/internal/domain/evaluator"
	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/rules"
)

// Report is the engine's structured output for one run.
type Report struct {
	RunID       string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Baseline    string           `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Summary     Summary          `json:"summary" yaml:"summary"`
	Order       []int            `json:"order" yaml:"order"` // rule ids in table order
	Categories  map[int]Category `json:"categories" yaml:"categories"`
	Unflagged   []RuleRef        `json:"unflagged" yaml:"unflagged"`
}

// Summary holds the run-wide scalars.
type Summary struct {
	TotalAthletes     int       `json:"total_athletes" yaml:"total_athletes"`
	FlaggedAthletes   int       `json:"flagged_athletes" yaml:"flagged_athletes"` // distinct, across all categories
	CategoriesFlagged int       `json:"categories_flagged" yaml:"categories_flagged"`
	TotalCategories   int       `json:"total_categories" yaml:"total_categories"`
	DuplicateReadings int       `json:"duplicate_readings" yaml:"duplicate_readings"`
	DataFrom          time.Time `json:"data_from" yaml:"data_from"`
	DataTo            time.Time `json:"data_to" yaml:"data_to"`
}

// RuleRef names a rule.
type RuleRef struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Counts tallies flagged athletes per tier.
type Counts struct {
	Critical int `json:"critical" yaml:"critical"`
	Warning  int `json:"warning" yaml:"warning"`
	Caution  int `json:"caution" yaml:"caution"`
	Total    int `json:"total" yaml:"total"`
}

func (c *Counts) add(s model.Severity) {
	switch s {
	case model.SeverityCritical:
		c.Critical++
	case model.SeverityWarning:
		c.Warning++
	case model.SeverityCaution:
		c.Caution++
	default:
		return
	}
	c.Total++
}

// FlaggedAthlete is one row of a category's athlete list.
type FlaggedAthlete struct {
	model.Athlete `yaml:",inline"`
	Severity      model.Severity       `json:"severity" yaml:"severity"`
	Metrics       []model.MetricResult `json:"metrics" yaml:"metrics"`
}

// Category is the result for one rule.
type Category struct {
	RuleID           int                   `json:"rule_id" yaml:"rule_id"`
	Name             string                `json:"name" yaml:"name"`
	Trend            model.Trend           `json:"trend" yaml:"trend"`
	TrendDescription string                `json:"trend_description,omitempty" yaml:"trend_description,omitempty"`
	Metrics          []string              `json:"metrics" yaml:"metrics"`
	Recommendations  rules.Recommendations `json:"recommendations" yaml:"recommendations"`
	Athletes         []FlaggedAthlete      `json:"athletes" yaml:"athletes"`
	Counts           Counts                `json:"counts" yaml:"counts"`
}

// AthleteCategory is one category an athlete was flagged in.
type AthleteCategory struct {
	RuleID   int                  `json:"rule_id" yaml:"rule_id"`
	Name     string               `json:"name" yaml:"name"`
	Severity model.Severity       `json:"severity" yaml:"severity"`
	Metrics  []model.MetricResult `json:"metrics" yaml:"metrics"`
}

// Build groups flags by rule. Flags for rules outside table are ignored.
// Within a category athletes are ordered critical first, keeping the
// order of flags among equal tiers. Build reads no clock; run id and time
// are left for Stamp.
func Build(flags []model.Flag, table *rules.Table, ds *dataset.Dataset) *Report {
	grouped := make(map[int][]model.Flag, table.Len())
	for _, f := range flags {
		if _, ok := table.Get(f.RuleID); !ok {
			continue
		}
		grouped[f.RuleID] = append(grouped[f.RuleID], f)
	}

	from, to := ds.DateRange()
	r := &Report{
		Order:      table.IDs(),
		Categories: make(map[int]Category, table.Len()),
		Unflagged:  []RuleRef{},
		Summary: Summary{
			TotalAthletes:     ds.Len(),
			TotalCategories:   table.Len(),
			DuplicateReadings: ds.Duplicates(),
			DataFrom:          from,
			DataTo:            to,
		},
	}

	flaggedAthletes := make(map[string]struct{})
	for _, rule := range table.Rules() {
		meta := rule.Meta()
		group := grouped[meta.ID]
		evaluator.SortFlags(group)

		c := Category{
			RuleID:           meta.ID,
			Name:             meta.Name,
			Trend:            rule.Trend(),
			TrendDescription: meta.TrendDescription,
			Metrics:          rule.Metrics(),
			Recommendations:  meta.Recommendations,
			Athletes:         make([]FlaggedAthlete, 0, len(group)),
		}
		for _, f := range group {
			info, ok := ds.Athlete(f.AthleteID)
			if !ok {
				info = model.Athlete{ID: f.AthleteID}
			}
			c.Athletes = append(c.Athletes, FlaggedAthlete{Athlete: info, Severity: f.Severity, Metrics: f.Metrics})
			c.Counts.add(f.Severity)
			flaggedAthletes[f.AthleteID] = struct{}{}
		}
		r.Categories[meta.ID] = c

		if len(group) == 0 {
			r.Unflagged = append(r.Unflagged, RuleRef{ID: meta.ID, Name: meta.Name})
		} else {
			r.Summary.CategoriesFlagged++
		}
	}
	r.Summary.FlaggedAthletes = len(flaggedAthletes)
	return r
}

// Stamp sets the run identity.
func (r *Report) Stamp(runID string, at time.Time, baseline string) {
	r.RunID = runID
	r.GeneratedAt = at.UTC()
	r.Baseline = baseline
}

// Category returns the category for rule id.
func (r *Report) Category(id int) (Category, bool) {
	c, ok := r.Categories[id]
	return c, ok
}

// Ordered returns categories in rule table order.
func (r *Report) Ordered() []Category {
	out := make([]Category, 0, len(r.Order))
	for _, id := range r.Order {
		out = append(out, r.Categories[id])
	}
	return out
}

// Athlete returns every category the athlete was flagged in, in table order.
func (r *Report) Athlete(id string) []AthleteCategory {
	var out []AthleteCategory
	for _, c := range r.Ordered() {
		for _, a := range c.Athletes {
			if a.ID != id {
				continue
			}
			out = append(out, AthleteCategory{RuleID: c.RuleID, Name: c.Name, Severity: a.Severity, Metrics: a.Metrics})
		}
	}
	return out
}
