package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/platewatch/internal/adapters/loader"
	service "github.com/okian/platewatch/internal/app"
	"github.com/okian/platewatch/internal/domain/dataset"
	"github.com/okian/platewatch/internal/domain/evaluator"
	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/report"
	"github.com/okian/platewatch/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

var monday = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func weekly(athlete, metric string, values ...float64) []model.Reading {
	out := make([]model.Reading, len(values))
	for i, v := range values {
		out[i] = model.Reading{AthleteID: athlete, Date: monday.AddDate(0, 0, 7*i), Metric: metric, Value: v, Present: true}
	}
	return out
}

// history has baseline mean 10 and SWC 0.2 under the default estimator.
func history(current float64) []float64 {
	return []float64{9, 11, 9, 11, 9, 11, 10, 10, 10, current}
}

func squad() *dataset.Dataset {
	var readings []model.Reading
	currents := []float64{9, 9.65, 9.75, 10, 9, 9.68, 10.1, 9.1}
	for i, c := range currents {
		id := string(rune('A' + i))
		readings = append(readings, weekly(id, "CMJ_Peak_Power", history(c)...)...)
		readings = append(readings, weekly(id, "IMTP_Asymmetry", 4, 5, 6, 5, 4, 5, 6, 5, 4, 8+float64(i))...)
	}
	readings = append(readings, weekly("Rookie", "CMJ_Peak_Power", 9, 11, 5)...)
	return dataset.New(context.Background(), readings)
}

func table() *rules.Table {
	t, err := rules.NewTable(
		rules.ComparativeRule{Info: rules.Meta{ID: 1, Name: "Power decline"}, Direction: model.TrendDecrease, Names: []string{"CMJ_Peak_Power"}},
		rules.AbsoluteRule{Info: rules.Meta{ID: 2, Name: "Asymmetry"}, Metric: "IMTP_Asymmetry", Threshold: 10},
		rules.ComparativeRule{Info: rules.Meta{ID: 3, Name: "Force decline"}, Direction: model.TrendDecrease, Names: []string{"IMTP_Peak_Force"}},
	)
	if err != nil {
		panic(err)
	}
	return t
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it has sensible defaults and no report yet", func() {
			st := svc.Stats()
			So(st.WorkerCount, ShouldBeGreaterThan, 0)
			So(st.QueueSize, ShouldEqual, 1024)
			So(st.DedupeSize, ShouldEqual, 0)
			So(st.Runs, ShouldEqual, 0)
			_, ok := svc.Latest()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(2),
			service.WithDedupeSize(100),
			service.WithWorkerCount(-1),
		)

		Convey("Then valid options apply and invalid ones are ignored", func() {
			st := svc.Stats()
			So(st.WorkerCount, ShouldEqual, 8)
			So(st.QueueSize, ShouldEqual, 2)
			So(st.DedupeSize, ShouldEqual, 100)
		})
	})
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()

	Convey("Given a squad and a small queue shared by many workers", t, func() {
		ds, tbl := squad(), table()
		svc := service.New(service.WithWorkerCount(8), service.WithQueueSize(2))

		r, err := svc.Run(ctx, ds, tbl)
		So(err, ShouldBeNil)

		Convey("Then the report matches a sequential evaluation", func() {
			want := report.Build(evaluator.New().Evaluate(ctx, ds, tbl), tbl, ds)
			So(r.Categories, ShouldResemble, want.Categories)
			So(r.Summary, ShouldResemble, want.Summary)
		})

		Convey("Then power decline is ordered critical first", func() {
			c, ok := r.Category(1)
			So(ok, ShouldBeTrue)
			var ids []string
			for _, a := range c.Athletes {
				ids = append(ids, a.ID)
			}
			So(ids, ShouldResemble, []string{"A", "E", "H", "B", "F", "C"})
			So(c.Counts, ShouldResemble, report.Counts{Critical: 3, Warning: 2, Caution: 1, Total: 6})
		})

		Convey("Then the asymmetry rule flags values above the threshold", func() {
			c, _ := r.Category(2)
			So(c.Counts.Critical, ShouldEqual, 5)
		})

		Convey("Then the athlete with too few records is never flagged", func() {
			So(r.Athlete("Rookie"), ShouldBeEmpty)
			So(r.Summary.TotalAthletes, ShouldEqual, 9)
		})

		Convey("Then the rule with a missing column is listed unflagged", func() {
			So(r.Unflagged, ShouldResemble, []report.RuleRef{{ID: 3, Name: "Force decline"}})
		})

		Convey("Then the report is stamped and kept as the latest", func() {
			So(r.RunID, ShouldNotBeEmpty)
			So(r.GeneratedAt.Location(), ShouldEqual, time.UTC)
			So(r.Baseline, ShouldEqual, evaluator.New().Estimator().Name())

			latest, ok := svc.Latest()
			So(ok, ShouldBeTrue)
			So(latest, ShouldEqual, r)

			st := svc.Stats()
			So(st.Runs, ShouldEqual, 1)
			So(st.Failures, ShouldEqual, 0)
			So(st.LastRunID, ShouldEqual, r.RunID)
		})

		Convey("Then every athlete and rule pair was one job", func() {
			So(svc.Stats().LastJobs, ShouldEqual, int64(ds.Len()*tbl.Len()))
		})

		Convey("When run again", func() {
			again, err := svc.Run(ctx, ds, tbl)

			Convey("Then the categories are identical under a new run id", func() {
				So(err, ShouldBeNil)
				So(again.Categories, ShouldResemble, r.Categories)
				So(again.RunID, ShouldNotEqual, r.RunID)
			})
		})
	})

	Convey("Given an empty dataset", t, func() {
		svc := service.New()
		r, err := svc.Run(ctx, dataset.New(ctx, nil), table())

		Convey("Then the run succeeds with nothing flagged", func() {
			So(err, ShouldBeNil)
			So(r.Summary.FlaggedAthletes, ShouldEqual, 0)
			So(r.Unflagged, ShouldHaveLength, 3)
		})
	})

	Convey("Given a cancelled context", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Run(cctx, squad(), table())

		Convey("Then the run is aborted and no report is kept", func() {
			So(errors.Is(err, service.ErrRunAborted), ShouldBeTrue)
			_, ok := svc.Latest()
			So(ok, ShouldBeFalse)
			So(svc.Stats().Failures, ShouldEqual, 1)
			So(svc.Stats().LastJobs, ShouldBeLessThanOrEqualTo, int64(squad().Len()*table().Len()))
		})
	})
}

func TestService_Dataset(t *testing.T) {
	ctx := context.Background()

	Convey("Given loaded readings with an overlapping export", t, func() {
		readings := weekly("A", "CMJ_Peak_Power", 1, 2, 3)
		res := &loader.Result{
			Readings: append(readings, readings[1:]...),
			Athletes: []model.Athlete{{ID: "A", Position: "WR"}},
			Metrics:  []string{"CMJ_Peak_Power", "IMTP_Peak_Force"},
		}

		ds := service.New().Dataset(ctx, res)

		Convey("Then exact duplicates are dropped", func() {
			So(ds.Duplicates(), ShouldEqual, 2)
			So(ds.Series("A", "CMJ_Peak_Power"), ShouldHaveLength, 3)
		})

		Convey("Then declared columns and roster data are kept", func() {
			So(ds.HasMetric("IMTP_Peak_Force"), ShouldBeTrue)
			a, ok := ds.Athlete("A")
			So(ok, ShouldBeTrue)
			So(a.Position, ShouldEqual, "WR")
		})
	})
}
