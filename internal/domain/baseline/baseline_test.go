package baseline_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/platewatch/internal/domain/baseline"
	"github.com/okian/platewatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var start = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// weekly builds a series with one value per week starting at start.
func weekly(values ...float64) model.Series {
	s := make(model.Series, len(values))
	for i, v := range values {
		s[i] = model.Point{Date: start.AddDate(0, 0, 7*i), Value: v}
	}
	return s
}

// linear returns n values from first to last inclusive.
func linear(first, last float64, n int) []float64 {
	out := make([]float64, n)
	step := (last - first) / float64(n-1)
	for i := range out {
		out[i] = first + step*float64(i)
	}
	return out
}

func TestProportionalSplit(t *testing.T) {
	Convey("Given the default proportional split estimator", t, func() {
		est := baseline.NewEstimator()

		Convey("When the series has 10 values", func() {
			values := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
			e, err := est.Estimate(weekly(values...))

			Convey("Then the window is the first 6 values and current is the last", func() {
				So(err, ShouldBeNil)
				So(e.Window, ShouldResemble, values[:6])
				So(e.Current, ShouldEqual, 19)
				So(e.Mean, ShouldAlmostEqual, 12.5, 1e-9)
			})

			Convey("And the SWC is 0.2 times the population SD of the window", func() {
				So(e.SWC, ShouldAlmostEqual, 0.2*math.Sqrt(17.5/6), 1e-9)
			})
		})

		Convey("When the series declines linearly from 100 to 70", func() {
			e, err := est.Estimate(weekly(linear(100, 70, 10)...))

			Convey("Then the deviation dwarfs the SWC", func() {
				So(err, ShouldBeNil)
				So(e.Mean, ShouldAlmostEqual, 550.0/6, 1e-9)
				So(e.Current, ShouldAlmostEqual, 70, 1e-9)
				So(e.Mean-e.Current, ShouldBeGreaterThan, 2*e.SWC)
			})
		})

		Convey("When the series has fewer than 3 values", func() {
			_, err := est.Estimate(weekly(1, 2))
			So(errors.Is(err, baseline.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When the window would hold fewer than 2 values", func() {
			// floor(3*0.6) = 1
			_, err := est.Estimate(weekly(1, 2, 3))
			So(errors.Is(err, baseline.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When the series has exactly 4 values", func() {
			e, err := est.Estimate(weekly(4, 6, 8, 1))
			So(err, ShouldBeNil)
			So(e.Window, ShouldResemble, []float64{4, 6})
			So(e.Current, ShouldEqual, 1)
		})

		Convey("When the series is empty", func() {
			_, err := est.Estimate(nil)
			So(errors.Is(err, baseline.ErrInsufficientData), ShouldBeTrue)
		})
	})
}

func TestRollingWindow(t *testing.T) {
	Convey("Given a rolling 180 day estimator", t, func() {
		est := baseline.NewEstimator(baseline.WithPolicy(baseline.RollingWindow{Days: 180}))

		Convey("When old readings fall outside the window", func() {
			series := model.Series{
				{Date: start.AddDate(-1, 0, 0), Value: 500}, // a year before, excluded
				{Date: start, Value: 100},
				{Date: start.AddDate(0, 1, 0), Value: 102},
				{Date: start.AddDate(0, 2, 0), Value: 98},
				{Date: start.AddDate(0, 3, 0), Value: 90},
			}
			e, err := est.Estimate(series)

			Convey("Then only readings on or after the cutoff form the baseline", func() {
				So(err, ShouldBeNil)
				So(e.Window, ShouldResemble, []float64{100, 102, 98, 90})
				So(e.Mean, ShouldAlmostEqual, 97.5, 1e-9)
				So(e.Current, ShouldEqual, 90)
			})
		})

		Convey("When the reading exactly at the cutoff is included", func() {
			last := start.AddDate(0, 0, 180)
			series := model.Series{
				{Date: start, Value: 1},
				{Date: start.AddDate(0, 0, 90), Value: 2},
				{Date: last, Value: 3},
			}
			e, err := est.Estimate(series)
			So(err, ShouldBeNil)
			So(len(e.Window), ShouldEqual, 3)
		})

		Convey("When fewer than 3 readings are inside the window", func() {
			series := model.Series{
				{Date: start.AddDate(-2, 0, 0), Value: 1},
				{Date: start.AddDate(-1, 0, 0), Value: 2},
				{Date: start, Value: 3},
				{Date: start.AddDate(0, 0, 7), Value: 4},
			}
			_, err := est.Estimate(series)
			So(errors.Is(err, baseline.ErrInsufficientData), ShouldBeTrue)
		})
	})
}

func TestSWCMethods(t *testing.T) {
	Convey("Given a constant window", t, func() {
		est := baseline.NewEstimator()
		e, err := est.Estimate(weekly(50, 50, 50, 50, 50))
		So(err, ShouldBeNil)

		Convey("Then the SD based SWC is zero", func() {
			So(e.SWC, ShouldEqual, 0)
		})
	})

	Convey("Given the mean fraction method", t, func() {
		est := baseline.NewEstimator(baseline.WithSWCMethod(baseline.MeanFraction{Factor: baseline.MeanFractionFactor}))
		e, err := est.Estimate(weekly(100, 100, 100, 100, 100))
		So(err, ShouldBeNil)
		So(e.SWC, ShouldAlmostEqual, 5, 1e-9)
		So(est.Name(), ShouldEqual, "proportional(0.6)/0.05*mean")
	})

	Convey("Given the statistics helpers", t, func() {
		So(baseline.Mean([]float64{1, 2, 3, 4}), ShouldEqual, 2.5)
		So(baseline.PopulationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), ShouldEqual, 2)
		So(math.IsNaN(baseline.Mean(nil)), ShouldBeTrue)
		So(math.IsNaN(baseline.PopulationStdDev(nil)), ShouldBeTrue)
	})
}
