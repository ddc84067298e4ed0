// Package model contains domain models passed between layers.
package model

import "time"

// Reading is one metric value recorded during one test event.
// Readings are immutable once ingested.
type Reading struct {
	AthleteID string    // athlete identifier
	Date      time.Time // test date, truncated to midnight UTC
	Metric    string    // metric column name, e.g. "IMTP_Peak_Force"
	Value     float64   // metric value; meaningful only when Present
	Present   bool      // false when the export left the cell empty
	// Trial numbers the athlete's rows with the same date in one export,
	// from 0. Same-date rows of different exports share trial numbers.
	Trial int
}

// Athlete carries display-only roster data. None of it affects evaluation.
type Athlete struct {
	ID       string `json:"id" yaml:"id"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
	Number   string `json:"number,omitempty" yaml:"number,omitempty"`
}

// Point is a single non-missing observation in a Series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is the date-ordered sequence of non-missing values for one
// athlete and one metric.
type Series []Point

// Values returns the series values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Last returns the chronologically last point. ok is false for an empty series.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// Day truncates t to a calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
