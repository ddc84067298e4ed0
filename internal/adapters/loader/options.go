package loader

import "github.com/okian/platewatch/pkg/logger"

// Default column names of the merged force-plate export.
const (
	DefaultAthleteColumn  = "Athlete_Name"
	DefaultDateColumn     = "Date"
	DefaultPositionColumn = "Position"
	DefaultNumberColumn   = "Number"
)

// DefaultDateLayouts are tried in order for the date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// Option configures a Loader.
type Option func(*Loader)

// WithAthleteColumn sets the athlete id column.
func WithAthleteColumn(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.athleteCol = name
		}
	}
}

// WithDateColumn sets the test date column.
func WithDateColumn(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.dateCol = name
		}
	}
}

// WithPositionColumn sets the optional position column.
func WithPositionColumn(name string) Option {
	return func(l *Loader) { l.positionCol = name }
}

// WithNumberColumn sets the optional jersey number column.
func WithNumberColumn(name string) Option {
	return func(l *Loader) { l.numberCol = name }
}

// WithDateLayouts replaces the accepted date layouts.
func WithDateLayouts(layouts ...string) Option {
	return func(l *Loader) {
		if len(layouts) > 0 {
			l.layouts = layouts
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}
