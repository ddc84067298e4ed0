package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/platewatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeverity(t *testing.T) {
	Convey("Given the severity tiers", t, func() {
		Convey("Then they are ordered normal < caution < warning < critical", func() {
			So(model.SeverityNormal, ShouldBeLessThan, model.SeverityCaution)
			So(model.SeverityCaution, ShouldBeLessThan, model.SeverityWarning)
			So(model.SeverityWarning, ShouldBeLessThan, model.SeverityCritical)
		})

		Convey("Then Worse picks the most severe", func() {
			So(model.Worse(model.SeverityWarning, model.SeverityCaution), ShouldEqual, model.SeverityWarning)
			So(model.Worse(model.SeverityCaution, model.SeverityCritical), ShouldEqual, model.SeverityCritical)
			So(model.Worse(model.SeverityNormal, model.SeverityNormal), ShouldEqual, model.SeverityNormal)
		})

		Convey("Then only non-normal tiers are flagged", func() {
			So(model.SeverityNormal.Flagged(), ShouldBeFalse)
			So(model.SeverityCaution.Flagged(), ShouldBeTrue)
		})

		Convey("When parsing names", func() {
			s, err := model.ParseSeverity(" Critical ")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.SeverityCritical)

			_, err = model.ParseSeverity("red")
			So(err, ShouldNotBeNil)
		})

		Convey("When encoding to JSON", func() {
			b, err := json.Marshal(map[string]model.Severity{"s": model.SeverityWarning})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"s":"warning"}`)

			var back map[string]model.Severity
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back["s"], ShouldEqual, model.SeverityWarning)
		})

		Convey("When the value is out of range", func() {
			_, err := model.Severity(9).MarshalText()
			So(err, ShouldNotBeNil)
			So(model.Severity(9).String(), ShouldEqual, "severity(9)")
		})
	})
}

func TestTrend(t *testing.T) {
	Convey("Given trend names", t, func() {
		for _, name := range []string{"decrease", "INCREASE", " absolute"} {
			_, err := model.ParseTrend(name)
			So(err, ShouldBeNil)
		}
		_, err := model.ParseTrend("sideways")
		So(err, ShouldNotBeNil)
	})
}

func TestSeries(t *testing.T) {
	Convey("Given a series", t, func() {
		d := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
		s := model.Series{{Date: d, Value: 1}, {Date: d.AddDate(0, 0, 7), Value: 2}}

		So(s.Values(), ShouldResemble, []float64{1, 2})
		last, ok := s.Last()
		So(ok, ShouldBeTrue)
		So(last.Value, ShouldEqual, 2)

		_, ok = model.Series(nil).Last()
		So(ok, ShouldBeFalse)
	})

	Convey("Day drops the time of day", t, func() {
		loc := time.FixedZone("CST", -6*3600)
		d := model.Day(time.Date(2025, 11, 27, 21, 30, 0, 0, loc))
		So(d, ShouldEqual, time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC))
	})
}
