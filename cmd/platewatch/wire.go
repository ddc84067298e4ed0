package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/platewatch/internal/adapters/loader"
	service "github.com/okian/platewatch/internal/app"
	"github.com/okian/platewatch/internal/config"
	"github.com/okian/platewatch/internal/domain/baseline"
	"github.com/okian/platewatch/internal/domain/evaluator"
	"github.com/okian/platewatch/internal/domain/report"
	"github.com/okian/platewatch/internal/domain/rules"
	"github.com/okian/platewatch/pkg/logger"
)

// errNoData is returned when a command needs a dataset and none is configured.
var errNoData = errors.New("no data file configured; use --data or data_file")

func newEstimator(cfg *config.Config) *baseline.Estimator {
	var policy baseline.Policy = baseline.ProportionalSplit{Fraction: cfg.BaselineFraction}
	if cfg.BaselinePolicy == config.PolicyRolling {
		policy = baseline.RollingWindow{Days: cfg.BaselineDays}
	}
	var swc baseline.SWCMethod = baseline.SDFraction{Factor: cfg.SWCFactor}
	if cfg.SWCMethod == config.SWCMethodMean {
		swc = baseline.MeanFraction{Factor: cfg.SWCFactor}
	}
	return baseline.NewEstimator(baseline.WithPolicy(policy), baseline.WithSWCMethod(swc))
}

func newEvaluator(cfg *config.Config, log logger.Logger) *evaluator.Evaluator {
	return evaluator.New(
		evaluator.WithEstimator(newEstimator(cfg)),
		evaluator.WithThresholds(cfg.Thresholds()),
		evaluator.WithMinRecords(cfg.MinRecords),
		evaluator.WithLogger(log.Named("evaluator")),
	)
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	return service.New(
		service.WithLogger(log.Named("service")),
		service.WithEvaluator(newEvaluator(cfg, log)),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	)
}

func newLoader(cfg *config.Config, log logger.Logger) *loader.Loader {
	return loader.New(
		loader.WithAthleteColumn(cfg.AthleteColumn),
		loader.WithDateColumn(cfg.DateColumn),
		loader.WithPositionColumn(cfg.PositionColumn),
		loader.WithNumberColumn(cfg.NumberColumn),
		loader.WithLogger(log.Named("loader")),
	)
}

// loadTable reads the configured rule table, or the built-in one.
func loadTable(ctx context.Context, cfg *config.Config) (*rules.Table, error) {
	if cfg.RulesFile == "" {
		return rules.Default(ctx)
	}
	return rules.Load(ctx, cfg.RulesFile)
}

// evaluate runs the whole pipeline: rule table, CSV exports, dataset, run.
func evaluate(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) (*report.Report, error) {
	table, err := loadTable(ctx, cfg)
	if err != nil {
		return nil, err
	}
	paths := cfg.DataFiles()
	if len(paths) == 0 {
		return nil, errNoData
	}
	res, err := newLoader(cfg, log).LoadFiles(ctx, paths...)
	if err != nil {
		return nil, err
	}
	r, err := svc.Run(ctx, svc.Dataset(ctx, res), table)
	if err != nil {
		return nil, fmt.Errorf("evaluate %v: %w", paths, err)
	}
	return r, nil
}
