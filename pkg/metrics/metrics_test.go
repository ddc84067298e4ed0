package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))
			manager.evaluations.WithLabelValues("flagged").Inc()

			Convey("Then metrics are registered under the platewatch namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(f.GetName(), ShouldStartWith, "platewatch_engine_")
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("team"),
				WithSubsystem("plates"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"season": "2025"}),
				WithPrometheusRegistry(registry),
			)
			manager.readingsLoaded.Add(3)

			Convey("Then names and labels follow the options", func() {
				So(testutil.ToFloat64(manager.readingsLoaded), ShouldEqual, 3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "team_plates_readings_loaded_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "2025")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording evaluation outcomes", func() {
			before := testutil.ToFloat64(globalManager.evaluations.WithLabelValues("normal_metric"))
			RecordEvaluation("normal_metric")
			RecordEvaluation("normal_metric")

			Convey("Then the outcome counter increases", func() {
				So(testutil.ToFloat64(globalManager.evaluations.WithLabelValues("normal_metric")), ShouldEqual, before+2)
			})
		})

		Convey("When recording flags", func() {
			before := testutil.ToFloat64(globalManager.flags.WithLabelValues("7", "critical"))
			RecordFlag(7, "critical")

			Convey("Then the rule and severity labels are set", func() {
				So(testutil.ToFloat64(globalManager.flags.WithLabelValues("7", "critical")), ShouldEqual, before+1)
			})
		})

		Convey("When updating the run summary", func() {
			UpdateRunSummary(40, 9, 3)

			Convey("Then the gauges hold the values", func() {
				So(testutil.ToFloat64(globalManager.athletesTotal), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.athletesFlagged), ShouldEqual, 9)
				So(testutil.ToFloat64(globalManager.categoriesFlagged), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordMissingColumn("IMTP_Asymmetry")
					RecordRun("ok")
					RecordRunDuration(12.5)
					UpdateLastRun(1760000000)
					RecordReadingsLoaded(10)
					RecordRowsRejected(1)
					RecordReadingsDuplicate(2)
					UpdateQueueSize(3)
					UpdateQueueCapacity(64)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					UpdateWorkerActiveCount(2)
					RecordWorkerProcessingLatency(0.3)
					RecordWorkerError()
					RecordHTTPRequest("/report", "GET", "200")
					RecordHTTPRequestDuration("/report", "GET", "200", 1.5)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a recorded metric", t, func() {
		RecordRun("ok")

		Convey("When writing the textfile", func() {
			path := filepath.Join(t.TempDir(), "platewatch.prom")
			err := WriteTextfile(path)

			Convey("Then the exposition contains the run counter", func() {
				So(err, ShouldBeNil)
				body, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(body), "platewatch_engine_runs_total"), ShouldBeTrue)
			})
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))

			Convey("Then a wrapped sentinel is returned", func() {
				So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
			})
		})
	})
}
