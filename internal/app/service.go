// Package service wires the loader output, evaluator, job queue and worker
// pool into evaluation runs and keeps the latest report for the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/platewatch/internal/adapters/loader"
	"github.com/okian/platewatch/internal/adapters/mq/queue"
	"github.com/okian/platewatch/internal/adapters/mq/worker"
	"github.com/okian/platewatch/internal/domain/dataset"
	"github.com/okian/platewatch/internal/domain/dedupe"
	"github.com/okian/platewatch/internal/domain/evaluator"
	"github.com/okian/platewatch/internal/domain/model"
	"github.com/okian/platewatch/internal/domain/report"
	"github.com/okian/platewatch/internal/domain/rules"
	"github.com/okian/platewatch/pkg/logger"
	"github.com/okian/platewatch/pkg/metrics"
)

// Run status labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const defaultQueueSize = 1024

// Service runs evaluations. Run may be called concurrently; each run owns
// its queue and pool.
type Service struct {
	mu sync.RWMutex

	evaluator *evaluator.Evaluator

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	latest       *report.Report
	runs         int64
	failures     int64
	lastJobs     int64
	lastDuration time.Duration

	logger logger.Logger
}

// Stats is a monitoring snapshot of the service.
type Stats struct {
	WorkerCount  int           `json:"worker_count"`
	QueueSize    int           `json:"queue_size"`
	DedupeSize   int           `json:"dedupe_size"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRunID    string        `json:"last_run_id,omitempty"`
	LastJobs     int64         `json:"last_jobs"`
	LastDuration time.Duration `json:"last_duration_ns"`
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the reading deduper; 0 keeps it unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvaluator replaces the default evaluator.
func WithEvaluator(ev *evaluator.Evaluator) Option {
	return func(s *Service) {
		if ev != nil {
			s.evaluator = ev
		}
	}
}

// New creates a service with one worker per CPU and the default evaluator.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = evaluator.New(evaluator.WithLogger(s.logger))
	}
	return s
}

// Dataset indexes loaded readings, dropping exact duplicates.
func (s *Service) Dataset(ctx context.Context, res *loader.Result) *dataset.Dataset {
	var dopts []dedupe.Option
	if s.dedupeSize > 0 {
		dopts = append(dopts, dedupe.WithMaxSize(s.dedupeSize))
	}
	seen := dedupe.NewInMemoryDeduper(dopts...)
	ds := dataset.New(ctx, res.Readings,
		dataset.WithSchema(res.Metrics...),
		dataset.WithAthletes(res.Athletes...),
		dataset.WithDeduper(seen),
	)
	if n := ds.Duplicates(); n > 0 {
		metrics.RecordReadingsDuplicate(n)
		s.logger.Info(ctx, "duplicate readings dropped", logger.Int("count", n),
			logger.Int("tracked_keys", int(seen.Size())))
	}
	return ds
}

// Run evaluates every athlete against every rule on the worker pool and
// returns the grouped, sorted and stamped report. Only cancellation or a
// failed job aborts a run; data gaps just leave athletes unflagged.
func (s *Service) Run(ctx context.Context, ds *dataset.Dataset, table *rules.Table) (*report.Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))
	log.Info(ctx, "evaluation started",
		logger.Int("athletes", ds.Len()), logger.Int("rules", table.Len()),
		logger.Int("workers", s.workerCount))

	for _, m := range s.evaluator.CheckSchema(ctx, ds, table) {
		metrics.RecordMissingColumn(m.Metric)
	}

	verdicts, jobs, err := s.evaluate(ctx, ds, table)
	if err != nil {
		s.finish(ctx, nil, jobs, time.Since(start), err)
		return nil, err
	}

	var flags []model.Flag
	for _, v := range verdicts {
		metrics.RecordEvaluation(v.Outcome())
		if f, ok := v.Flag(); ok {
			metrics.RecordFlag(f.RuleID, f.Severity.String())
			flags = append(flags, f)
		}
	}

	r := report.Build(flags, table, ds)
	r.Stamp(runID, start, s.evaluator.Estimator().Name())
	s.finish(ctx, r, jobs, time.Since(start), nil)

	log.Info(ctx, "evaluation finished",
		logger.Int("jobs", int(jobs)),
		logger.Int("flags", len(flags)),
		logger.Int("flagged_athletes", r.Summary.FlaggedAthletes),
		logger.Int("categories_flagged", r.Summary.CategoriesFlagged),
		logger.Duration("duration", time.Since(start)))
	return r, nil
}

// evaluate fans the (athlete, rule) pairs out to the pool and returns the
// verdicts with the number of jobs the pool handled. Verdicts land in
// rule-major slots, so the result order matches a sequential run.
// An aborted run stops the pool before returning.
func (s *Service) evaluate(ctx context.Context, ds *dataset.Dataset, table *rules.Table) ([]evaluator.Verdict, int64, error) {
	athletes := ds.Athletes()
	rs := table.Rules()
	verdicts := make([]evaluator.Verdict, len(rs)*len(athletes))
	if len(verdicts) == 0 {
		return verdicts, 0, nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q,
		worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
			verdicts[job.Seq] = s.evaluator.EvaluateAthlete(ctx, ds, job.AthleteID, job.Rule)
			return nil
		}),
		worker.WithPoolLogger(s.logger),
	)
	pool.Start(ctx)

	var produceErr error
produce:
	for ri, r := range rs {
		for ai, a := range athletes {
			job := queue.Job{Seq: ri*len(athletes) + ai, AthleteID: a, Rule: r}
			if produceErr = q.Enqueue(ctx, job); produceErr != nil {
				break produce
			}
		}
	}
	_ = q.Close()

	err := pool.Wait(ctx)
	if err == nil {
		err = produceErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if serr := pool.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			s.logger.Warn(ctx, "worker pool did not stop", logger.Error(serr))
		}
		return nil, pool.Processed(), fmt.Errorf("%w: %w", ErrRunAborted, err)
	}
	if n := pool.Failed(); n > 0 {
		return nil, pool.Processed(), fmt.Errorf("%w: %d of %d jobs", ErrJobsFailed, n, len(verdicts))
	}
	return verdicts, pool.Processed(), nil
}

func (s *Service) finish(ctx context.Context, r *report.Report, jobs int64, d time.Duration, err error) {
	metrics.RecordRunDuration(float64(d.Microseconds()) / 1000)

	s.mu.Lock()
	s.runs++
	s.lastJobs = jobs
	s.lastDuration = d
	if err != nil {
		s.failures++
	} else {
		s.latest = r
	}
	s.mu.Unlock()

	if err != nil {
		metrics.RecordRun(StatusFailed)
		s.logger.Error(ctx, "evaluation failed", logger.Error(err))
		return
	}
	metrics.RecordRun(StatusOK)
	metrics.UpdateLastRun(r.GeneratedAt.Unix())
	metrics.UpdateRunSummary(r.Summary.TotalAthletes, r.Summary.FlaggedAthletes, r.Summary.CategoriesFlagged)
}

// Latest returns the report of the last successful run.
func (s *Service) Latest() (*report.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		WorkerCount:  s.workerCount,
		QueueSize:    s.queueSize,
		DedupeSize:   s.dedupeSize,
		Runs:         s.runs,
		Failures:     s.failures,
		LastJobs:     s.lastJobs,
		LastDuration: s.lastDuration,
	}
	if s.latest != nil {
		st.LastRunID = s.latest.RunID
	}
	return st
}
