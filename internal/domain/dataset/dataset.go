// Package dataset indexes force-plate readings for evaluation.
//
// A Dataset is built once and then only read, so it can be shared by
// concurrent evaluations without locking.
package dataset

import (
	"context"
	"sort"
	"time"

	"github.com/okian/platewatch/internal/domain/dedupe"
	"github.com/okian/platewatch/internal/domain/model"
)

// session identifies one test record: a date and the trial on that date.
type session struct {
	day   time.Time
	trial int
}

// Dataset is an immutable, per-athlete index of metric series.
type Dataset struct {
	athletes   []string                           // first-appearance order
	info       map[string]model.Athlete           // display passthrough
	schema     map[string]struct{}                // metric columns present in the input
	sessions   map[string]map[session]struct{}    // athlete -> test records
	series     map[string]map[string]model.Series // athlete -> metric -> series
	duplicates int
	first      time.Time
	last       time.Time
}

// Option configures dataset construction.
type Option func(*builder)

type builder struct {
	schema   []string
	athletes []model.Athlete
	deduper  dedupe.Deduper
}

// WithSchema declares metric columns that exist even if every value is missing.
func WithSchema(metrics ...string) Option {
	return func(b *builder) {
		b.schema = append(b.schema, metrics...)
	}
}

// WithAthletes attaches roster display data.
func WithAthletes(athletes ...model.Athlete) Option {
	return func(b *builder) {
		b.athletes = append(b.athletes, athletes...)
	}
}

// WithDeduper replaces the default unbounded deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(b *builder) {
		if d != nil {
			b.deduper = d
		}
	}
}

// New builds a dataset from readings. Input readings are not modified.
func New(ctx context.Context, readings []model.Reading, opts ...Option) *Dataset {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.deduper == nil {
		b.deduper = dedupe.NewInMemoryDeduper()
	}

	ds := &Dataset{
		info:     make(map[string]model.Athlete),
		schema:   make(map[string]struct{}),
		sessions: make(map[string]map[session]struct{}),
		series:   make(map[string]map[string]model.Series),
	}
	for _, m := range b.schema {
		ds.schema[m] = struct{}{}
	}
	for _, a := range b.athletes {
		ds.info[a.ID] = a
	}

	for _, r := range readings {
		if r.AthleteID == "" {
			continue
		}
		if b.deduper.SeenAndRecord(ctx, dedupe.Key(r)) {
			ds.duplicates++
			continue
		}
		day := model.Day(r.Date)
		ds.addAthlete(r.AthleteID)
		ds.sessions[r.AthleteID][session{day: day, trial: r.Trial}] = struct{}{}
		ds.schema[r.Metric] = struct{}{}
		ds.extendRange(day)
		if !r.Present {
			continue
		}
		bySeries := ds.series[r.AthleteID]
		bySeries[r.Metric] = append(bySeries[r.Metric], model.Point{Date: day, Value: r.Value})
	}

	for _, byMetric := range ds.series {
		for _, s := range byMetric {
			sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		}
	}
	return ds
}

func (ds *Dataset) addAthlete(id string) {
	if _, ok := ds.sessions[id]; ok {
		return
	}
	ds.athletes = append(ds.athletes, id)
	ds.sessions[id] = make(map[session]struct{})
	ds.series[id] = make(map[string]model.Series)
	if _, ok := ds.info[id]; !ok {
		ds.info[id] = model.Athlete{ID: id}
	}
}

func (ds *Dataset) extendRange(day time.Time) {
	if ds.first.IsZero() || day.Before(ds.first) {
		ds.first = day
	}
	if day.After(ds.last) {
		ds.last = day
	}
}

// Athletes returns athlete ids in first-appearance order.
func (ds *Dataset) Athletes() []string {
	out := make([]string, len(ds.athletes))
	copy(out, ds.athletes)
	return out
}

// Athlete returns display data for id.
func (ds *Dataset) Athlete(id string) (model.Athlete, bool) {
	a, ok := ds.info[id]
	return a, ok
}

// HasMetric reports whether metric is a column of the dataset.
func (ds *Dataset) HasMetric(metric string) bool {
	_, ok := ds.schema[metric]
	return ok
}

// Metrics returns the schema's metric columns sorted by name.
func (ds *Dataset) Metrics() []string {
	out := make([]string, 0, len(ds.schema))
	for m := range ds.schema {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// RecordCount returns the number of test records of athlete: distinct
// dates, with each extra same-day trial counted as a record of its own.
func (ds *Dataset) RecordCount(athlete string) int {
	return len(ds.sessions[athlete])
}

// Series returns the date-ordered non-missing values of metric for athlete.
// The returned slice must not be modified.
func (ds *Dataset) Series(athlete, metric string) model.Series {
	return ds.series[athlete][metric]
}

// DateRange returns the first and last test dates in the dataset.
func (ds *Dataset) DateRange() (first, last time.Time) {
	return ds.first, ds.last
}

// Duplicates returns the number of readings dropped as exact duplicates.
func (ds *Dataset) Duplicates() int { return ds.duplicates }

// Len returns the number of athletes.
func (ds *Dataset) Len() int { return len(ds.athletes) }
