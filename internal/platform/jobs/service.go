package jobs

import (
	"context"
	"log/slog"
	"time"

	"perfeval/internal/domain/evaluation"
	"perfeval/internal/platform/config"
)

const (
	JobReaggregate = "evidence_reaggregate"

	staleBatchLimit = 200
)

// Reaggregator is the slice of the evaluation service the background
// refresh needs.
type Reaggregator interface {
	StaleEvaluationIDs(ctx context.Context, limit int) ([]int64, error)
	BatchAggregate(ctx context.Context, evaluationIDs []int64) (evaluation.BatchOutcome, error)
}

type Service struct {
	Cfg   config.Config
	Eval  Reaggregator
	queue chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(cfg config.Config, eval Reaggregator) *Service {
	return &Service{
		Cfg:   cfg,
		Eval:  eval,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.ReaggregateInterval > 0 {
		go s.scheduleReaggregation(ctx, s.Cfg.ReaggregateInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// ReaggregateNow runs the stale-evaluation refresh synchronously, bypassing
// the queue. Used by the admin trigger endpoint.
func (s *Service) ReaggregateNow(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobReaggregate, s.reaggregateStale)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case queued := <-s.queue:
			if _, err := s.runJob(ctx, queued); err != nil {
				slog.Warn("job failed", "jobType", queued.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, queued job) (any, error) {
	started := time.Now()
	result, err := queued.Run(ctx)
	slog.Info("job finished", "jobType", queued.Type, "durationMs", time.Since(started).Milliseconds(), "ok", err == nil)
	return result, err
}

func (s *Service) scheduleReaggregation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobReaggregate, s.reaggregateStale)
		}
	}
}

// reaggregateStale refreshes open evaluations whose evidence changed since
// their last aggregation pass.
func (s *Service) reaggregateStale(ctx context.Context) (any, error) {
	ids, err := s.Eval.StaleEvaluationIDs(ctx, staleBatchLimit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string]any{"refreshed": 0}, nil
	}
	outcome, err := s.Eval.BatchAggregate(ctx, ids)
	if err != nil {
		return outcome, err
	}
	return map[string]any{"refreshed": outcome.Succeeded, "failed": outcome.Failed}, nil
}
