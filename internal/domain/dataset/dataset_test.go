package dataset_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/platewatch/internal/domain/dataset"
	"github.com/okian/platewatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)

func reading(athlete string, week int, metric string, v float64) model.Reading {
	return model.Reading{AthleteID: athlete, Date: day0.AddDate(0, 0, 7*week), Metric: metric, Value: v, Present: true}
}

func missing(athlete string, week int, metric string) model.Reading {
	return model.Reading{AthleteID: athlete, Date: day0.AddDate(0, 0, 7*week), Metric: metric}
}

func TestDataset(t *testing.T) {
	ctx := context.Background()

	Convey("Given readings out of date order with gaps", t, func() {
		readings := []model.Reading{
			reading("B", 2, "CMJ_Peak_Power", 4100),
			reading("A", 1, "CMJ_Peak_Power", 5000),
			reading("A", 0, "CMJ_Peak_Power", 5100),
			missing("A", 2, "CMJ_Peak_Power"),
			reading("A", 2, "IMTP_Peak_Force", 3000),
			reading("B", 0, "CMJ_Peak_Power", 4000),
		}
		in := append([]model.Reading(nil), readings...)
		ds := dataset.New(ctx, readings, dataset.WithSchema("IMTP_Asymmetry"),
			dataset.WithAthletes(model.Athlete{ID: "A", Position: "WR", Number: "11"}))

		Convey("Then athletes keep first-appearance order", func() {
			So(ds.Athletes(), ShouldResemble, []string{"B", "A"})
			So(ds.Len(), ShouldEqual, 2)
		})

		Convey("Then series are sorted by date with missing values removed", func() {
			s := ds.Series("A", "CMJ_Peak_Power")
			So(s.Values(), ShouldResemble, []float64{5100, 5000})
		})

		Convey("Then record counts are test dates when each day has one trial", func() {
			So(ds.RecordCount("A"), ShouldEqual, 3)
			So(ds.RecordCount("B"), ShouldEqual, 2)
			So(ds.RecordCount("nobody"), ShouldEqual, 0)
		})

		Convey("Then the schema holds seen and declared columns", func() {
			So(ds.HasMetric("CMJ_Peak_Power"), ShouldBeTrue)
			So(ds.HasMetric("IMTP_Asymmetry"), ShouldBeTrue)
			So(ds.HasMetric("CMJ_Jump_Height"), ShouldBeFalse)
			So(ds.Metrics(), ShouldResemble, []string{"CMJ_Peak_Power", "IMTP_Asymmetry", "IMTP_Peak_Force"})
		})

		Convey("Then roster data passes through", func() {
			a, ok := ds.Athlete("A")
			So(ok, ShouldBeTrue)
			So(a.Position, ShouldEqual, "WR")
			b, ok := ds.Athlete("B")
			So(ok, ShouldBeTrue)
			So(b.Position, ShouldEqual, "")
		})

		Convey("Then the date range spans all readings", func() {
			first, last := ds.DateRange()
			So(first, ShouldEqual, day0)
			So(last, ShouldEqual, day0.AddDate(0, 0, 14))
		})

		Convey("Then the input slice is untouched", func() {
			So(readings, ShouldResemble, in)
		})
	})

	Convey("Given two trials on the same day", t, func() {
		second := reading("A", 1, "CMJ_Peak_Power", 5050)
		second.Trial = 1
		ds := dataset.New(ctx, []model.Reading{
			reading("A", 0, "CMJ_Peak_Power", 5100),
			reading("A", 1, "CMJ_Peak_Power", 5000),
			second,
			reading("A", 1, "IMTP_Peak_Force", 3000), // other export, same day
		})

		Convey("Then each trial is a record and other exports join the first", func() {
			So(ds.RecordCount("A"), ShouldEqual, 3)
			So(ds.Series("A", "CMJ_Peak_Power").Values(), ShouldResemble, []float64{5100, 5000, 5050})
		})
	})

	Convey("Given exact duplicate readings", t, func() {
		r := reading("A", 0, "CMJ_Peak_Power", 5000)
		other := reading("A", 0, "CMJ_Peak_Power", 5050)
		ds := dataset.New(ctx, []model.Reading{r, r, other})

		Convey("Then only the repeat is dropped", func() {
			So(ds.Duplicates(), ShouldEqual, 1)
			So(ds.Series("A", "CMJ_Peak_Power"), ShouldHaveLength, 2)
			So(ds.RecordCount("A"), ShouldEqual, 1)
		})
	})

	Convey("Given readings without an athlete id", t, func() {
		ds := dataset.New(ctx, []model.Reading{{Metric: "X", Value: 1, Present: true, Date: day0}})
		So(ds.Len(), ShouldEqual, 0)
	})
}
