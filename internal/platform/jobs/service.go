package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"appraisal/internal/platform/metrics"
)

const (
	JobNotify = "appraisal_notify"
	JobAudit  = "appraisal_audit"
)

// Service runs fire-and-forget work off the request path on a single worker.
type Service struct {
	queue   chan job
	timeout time.Duration
	wg      sync.WaitGroup
	pending sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) error
}

func New(capacity int) *Service {
	if capacity <= 0 {
		capacity = 128
	}
	return &Service{queue: make(chan job, capacity), timeout: 30 * time.Second}
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Enqueue schedules run. When the queue is full the job is dropped and logged.
func (s *Service) Enqueue(jobType, key string, run func(context.Context) error) {
	s.pending.Add(1)
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
	default:
		s.pending.Done()
		metrics.JobRuns.WithLabelValues(jobType, "dropped").Inc()
		slog.Warn("job queue full", "jobType", jobType, "key", key)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

// Drain blocks until every enqueued job has run.
func (s *Service) Drain() {
	s.pending.Wait()
}

// Wait blocks until the worker has exited after its context is cancelled.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			if err := s.runJob(runCtx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
			cancel()
			s.pending.Done()
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("job panicked", "jobType", j.Type, "key", j.Key, "panic", rec)
			metrics.JobRuns.WithLabelValues(j.Type, "panic").Inc()
			err = nil
			return
		}
		metrics.JobRuns.WithLabelValues(j.Type, metrics.Outcome(err)).Inc()
		slog.Debug("job finished", "jobType", j.Type, "key", j.Key, "duration_ms", time.Since(start).Milliseconds())
	}()
	return j.Run(ctx)
}
