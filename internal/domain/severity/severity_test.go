package severity_test

import (
	"errors"
	"testing"

	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/severity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given a baseline mean of 100 and an SWC of 2", t, func() {
		const mean, swc = 100.0, 2.0

		cases := []struct {
			current float64
			trend   model.Trend
			want    model.Severity
			dev     float64
		}{
			{95, model.TrendDecrease, model.SeverityCritical, 5},    // 5 > 4
			{96.5, model.TrendDecrease, model.SeverityWarning, 3.5}, // 3 < 3.5 <= 4
			{97.5, model.TrendDecrease, model.SeverityCaution, 2.5}, // 2 < 2.5 <= 3
			{98.5, model.TrendDecrease, model.SeverityNormal, 1.5},
			{98, model.TrendDecrease, model.SeverityNormal, 2},     // boundary is strict
			{96, model.TrendDecrease, model.SeverityWarning, 4}, // 4 is not > 4 but is > 3
			{105, model.TrendIncrease, model.SeverityCritical, 5},
			{102.5, model.TrendIncrease, model.SeverityCaution, 2.5},
		}

		for _, c := range cases {
			got, dev := severity.Classify(c.current, mean, swc, c.trend)
			So(dev, ShouldAlmostEqual, c.dev, 1e-9)
			So(got, ShouldEqual, c.want)
		}

		Convey("Then positive deviation always means the metric got worse", func() {
			_, dev := severity.Classify(110, mean, swc, model.TrendDecrease)
			So(dev, ShouldEqual, -10)
			_, dev = severity.Classify(110, mean, swc, model.TrendIncrease)
			So(dev, ShouldEqual, 10)
		})

		Convey("Then tiers use the magnitude of the deviation", func() {
			got, _ := severity.Classify(110, mean, swc, model.TrendDecrease)
			So(got, ShouldEqual, model.SeverityCritical)
		})
	})

	Convey("Given an SWC of zero", t, func() {
		Convey("When the deviation is nonzero", func() {
			got, dev := severity.Classify(99.99, 100, 0, model.TrendDecrease)
			So(got, ShouldEqual, model.SeverityCritical)
			So(dev, ShouldAlmostEqual, 0.01, 1e-9)
		})

		Convey("When the deviation is zero", func() {
			got, dev := severity.Classify(100, 100, 0, model.TrendIncrease)
			So(got, ShouldEqual, model.SeverityNormal)
			So(dev, ShouldEqual, 0)
		})
	})
}

func TestClassifyMonotonic(t *testing.T) {
	Convey("Given growing deviations with a fixed SWC", t, func() {
		for _, trend := range []model.Trend{model.TrendDecrease, model.TrendIncrease} {
			for _, swc := range []float64{0, 0.5, 3} {
				prev := model.SeverityNormal
				for step := 0; step <= 200; step++ {
					mag := float64(step) * 0.05
					current := 50 - mag
					if trend == model.TrendIncrease {
						current = 50 + mag
					}
					got, _ := severity.Classify(current, 50, swc, trend)
					So(got, ShouldBeGreaterThanOrEqualTo, prev)
					prev = got
				}
			}
		}
	})
}

func TestClassifyAbsolute(t *testing.T) {
	Convey("Given an absolute threshold of 10", t, func() {
		So(severity.ClassifyAbsolute(12, 10), ShouldEqual, model.SeverityCritical)
		So(severity.ClassifyAbsolute(8, 10), ShouldEqual, model.SeverityNormal)
		So(severity.ClassifyAbsolute(10, 10), ShouldEqual, model.SeverityNormal)
	})
}

func TestThresholds(t *testing.T) {
	Convey("Given custom thresholds", t, func() {
		th := severity.Thresholds{Critical: 3, Warning: 2, Caution: 0.5}
		So(th.Validate(), ShouldBeNil)

		got, _ := th.Classify(98.5, 100, 1, model.TrendDecrease)
		So(got, ShouldEqual, model.SeverityCaution)

		Convey("When they are not strictly decreasing", func() {
			err := severity.Thresholds{Critical: 1, Warning: 1.5, Caution: 1}.Validate()
			So(errors.Is(err, severity.ErrInvalidThresholds), ShouldBeTrue)
		})

		Convey("When the defaults are used", func() {
			So(severity.DefaultThresholds().Validate(), ShouldBeNil)
		})
	})
}
