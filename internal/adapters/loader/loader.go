// Package loader reads wide-format force-plate exports into readings.
//
// Each row is one test event: an athlete column, a date column, optional
// roster columns and one column per metric. Cells that are empty, NaN or
// non-numeric are missing values. Rows with no athlete or an unparsable
// date are rejected and counted.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/pkg/logger"
	"github.com/okian/platewatch/pkg/metrics"
)

// Loader parses CSV exports. It is stateless and safe for concurrent use.
type Loader struct {
	athleteCol  string
	dateCol     string
	positionCol string
	numberCol   string
	layouts     []string
	log         logger.Logger
}

// Result is the outcome of loading one or more files.
type Result struct {
	Readings []model.Reading
	Athletes []model.Athlete // roster data, last non-empty value per athlete
	Metrics  []string        // metric columns, in header order across files
	Rows     int             // data rows read
	Rejected int             // rows dropped for a bad date or missing athlete
}

// New creates a Loader with the default column names and date layouts.
func New(opts ...Option) *Loader {
	l := &Loader{
		athleteCol:  DefaultAthleteColumn,
		dateCol:     DefaultDateColumn,
		positionCol: DefaultPositionColumn,
		numberCol:   DefaultNumberColumn,
		layouts:     DefaultDateLayouts,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFiles loads and merges several exports, e.g. the CMJ and IMTP files
// of the same roster. Readings of the same athlete and date from
// different files join into one test session.
func (l *Loader) LoadFiles(ctx context.Context, paths ...string) (*Result, error) {
	merged := &Result{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		res, err := l.Load(ctx, f, path)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, closeErr)
		}
		merged.merge(res)
	}
	return merged, nil
}

// Load reads one CSV document; source names it in logs and errors.
func (l *Loader) Load(ctx context.Context, r io.Reader, source string) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: empty file", ErrRead, source)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, source, err)
	}
	cols, err := l.columns(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	res := &Result{Metrics: make([]string, 0, len(cols.metrics))}
	for _, m := range cols.metrics {
		res.Metrics = append(res.Metrics, m.name)
	}
	roster := newRoster()
	trials := make(map[trialKey]int)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, source, err)
		}
		res.Rows++

		athlete := cell(rec, cols.athlete)
		if athlete == "" {
			res.Rejected++
			l.log.Warn(ctx, "row rejected: empty athlete id", logger.String("source", source), logger.Int("line", line))
			continue
		}
		raw := cell(rec, cols.date)
		date, ok := l.parseDate(raw)
		if !ok {
			res.Rejected++
			l.log.Warn(ctx, "row rejected: unparsable date",
				logger.String("source", source), logger.Int("line", line), logger.String("date", raw))
			continue
		}

		roster.observe(athlete, cell(rec, cols.position), cell(rec, cols.number))
		tk := trialKey{athlete: athlete, date: date}
		trial := trials[tk]
		trials[tk]++
		for _, m := range cols.metrics {
			v, present := parseValue(cell(rec, m.index))
			res.Readings = append(res.Readings, model.Reading{
				AthleteID: athlete,
				Date:      date,
				Metric:    m.name,
				Value:     v,
				Present:   present,
				Trial:     trial,
			})
		}
	}

	res.Athletes = roster.list()
	metrics.RecordReadingsLoaded(len(res.Readings))
	metrics.RecordRowsRejected(res.Rejected)
	l.log.Info(ctx, "dataset loaded",
		logger.String("source", source), logger.Int("rows", res.Rows),
		logger.Int("rejected", res.Rejected), logger.Int("metrics", len(res.Metrics)))
	return res, nil
}

type trialKey struct {
	athlete string
	date    time.Time
}

type column struct {
	name  string
	index int
}

type columnSet struct {
	athlete  int
	date     int
	position int // -1 when absent
	number   int // -1 when absent
	metrics  []column
}

func (l *Loader) columns(header []string) (columnSet, error) {
	out := columnSet{athlete: -1, date: -1, position: -1, number: -1}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case name == "":
			continue
		case name == l.athleteCol:
			out.athlete = i
		case name == l.dateCol:
			out.date = i
		case l.positionCol != "" && name == l.positionCol:
			out.position = i
		case l.numberCol != "" && name == l.numberCol:
			out.number = i
		default:
			out.metrics = append(out.metrics, column{name: name, index: i})
		}
	}
	if out.athlete < 0 {
		return out, fmt.Errorf("%w: %q", ErrMissingColumn, l.athleteCol)
	}
	if out.date < 0 {
		return out, fmt.Errorf("%w: %q", ErrMissingColumn, l.dateCol)
	}
	return out, nil
}

func (l *Loader) parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range l.layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.Day(t), true
		}
	}
	return time.Time{}, false
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseValue reads a numeric cell. A trailing side marker ("6.6 L") is
// dropped. Empty, NaN and non-numeric cells are missing.
func parseValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return 0, false
		}
		if v, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (r *Result) merge(o *Result) {
	r.Readings = append(r.Readings, o.Readings...)
	r.Rows += o.Rows
	r.Rejected += o.Rejected

	seen := make(map[string]struct{}, len(r.Metrics))
	for _, m := range r.Metrics {
		seen[m] = struct{}{}
	}
	for _, m := range o.Metrics {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			r.Metrics = append(r.Metrics, m)
		}
	}

	roster := newRoster()
	for _, a := range r.Athletes {
		roster.observe(a.ID, a.Position, a.Number)
	}
	for _, a := range o.Athletes {
		roster.observe(a.ID, a.Position, a.Number)
	}
	r.Athletes = roster.list()
}

type roster struct {
	order []string
	byID  map[string]model.Athlete
}

func newRoster() *roster {
	return &roster{byID: make(map[string]model.Athlete)}
}

func (r *roster) observe(id, position, number string) {
	a, ok := r.byID[id]
	if !ok {
		a.ID = id
		r.order = append(r.order, id)
	}
	if position != "" {
		a.Position = position
	}
	if number != "" {
		a.Number = number
	}
	r.byID[id] = a
}

func (r *roster) list() []model.Athlete {
	out := make([]model.Athlete, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}
