package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/platewatch/internal/config"
	"github.com/okian/platewatch/internal/domain/severity"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the engine defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.BaselinePolicy, convey.ShouldEqual, config.PolicyProportional)
			convey.So(cfg.BaselineFraction, convey.ShouldEqual, 0.6)
			convey.So(cfg.BaselineDays, convey.ShouldEqual, 180)
			convey.So(cfg.SWCMethod, convey.ShouldEqual, config.SWCMethodSD)
			convey.So(cfg.SWCFactor, convey.ShouldEqual, 0.2)
			convey.So(cfg.MinRecords, convey.ShouldEqual, 5)
			convey.So(cfg.SeverityCritical, convey.ShouldEqual, 2.0)
			convey.So(cfg.SeverityWarning, convey.ShouldEqual, 1.5)
			convey.So(cfg.SeverityCaution, convey.ShouldEqual, 1.0)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then DataFiles is empty", func() {
			convey.So(cfg.DataFiles(), convey.ShouldBeEmpty)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"unknown policy", func(c *config.Config) { c.BaselinePolicy = "ewma" }},
			{"fraction of one", func(c *config.Config) { c.BaselineFraction = 1 }},
			{"zero days", func(c *config.Config) { c.BaselineDays = 0 }},
			{"unknown swc method", func(c *config.Config) { c.SWCMethod = "cv" }},
			{"zero swc factor", func(c *config.Config) { c.SWCFactor = 0 }},
			{"zero min records", func(c *config.Config) { c.MinRecords = 0 }},
			{"unordered thresholds", func(c *config.Config) { c.SeverityWarning = 2.5 }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"negative dedupe size", func(c *config.Config) { c.DedupeSize = -1 }},
			{"unknown output format", func(c *config.Config) { c.OutputFormat = "xml" }},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "logfmt" }},
			{"empty athlete column", func(c *config.Config) { c.AthleteColumn = "" }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given unordered severity tiers", t, func() {
		cfg := config.New()
		cfg.SeverityCaution = 0

		convey.Convey("Then the severity package's own check rejects them", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, severity.ErrInvalidThresholds), convey.ShouldBeTrue)
		})

		convey.Convey("Then Thresholds carries the configured multiples", func() {
			convey.So(cfg.Thresholds(), convey.ShouldResemble, severity.Thresholds{Critical: 2, Warning: 1.5, Caution: 0})
		})
	})
}
