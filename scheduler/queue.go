package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
)

var ErrQueueFull = errors.New("job queue is full")

// Queue runs jobs on a bounded worker pool. A job is accepted only when no
// run of the same job is queued or running, so ticks never overlap a pass.
type Queue struct {
	ctx      context.Context
	logger   logging.Logger
	registry *Registry
	pool     pond.Pool
	inFlight *xsync.Map[Job, time.Time]
	timeout  time.Duration
	stopOnce sync.Once
}

func NewQueue(ctx context.Context, logger logging.Logger, registry *Registry, cfg *config.SchedulerConfig) *Queue {
	return &Queue{
		ctx:      ctx,
		logger:   logger,
		registry: registry,
		pool:     pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize)),
		inFlight: xsync.NewMap[Job, time.Time](),
		timeout:  cfg.JobTimeout,
	}
}

// Enqueue submits a job and reports whether it was accepted.
func (q *Queue) Enqueue(job Job) (bool, error) {
	run, err := q.registry.Lookup(job)
	if err != nil {
		return false, err
	}
	logger := q.logger.WithFields(logrus.Fields{
		"chain":  job.Chain,
		"domain": job.Domain,
	})
	if since, loaded := q.inFlight.LoadOrStore(job, time.Now()); loaded {
		JobRuns.WithLabelValues(job.Chain, job.Domain, "skipped").Inc()
		logger.WithField("in_flight_for", time.Since(since)).Debug("previous run is still in flight, skipping")
		return false, nil
	}
	JobsInFlight.Inc()
	_, ok := q.pool.TrySubmit(func() {
		defer q.release(job)
		q.run(job, run, logger)
	})
	if !ok {
		q.release(job)
		JobRuns.WithLabelValues(job.Chain, job.Domain, "dropped").Inc()
		return false, fmt.Errorf("%s: %w", job, ErrQueueFull)
	}
	return true, nil
}

func (q *Queue) release(job Job) {
	q.inFlight.Delete(job)
	JobsInFlight.Dec()
}

func (q *Queue) run(job Job, run RunFunc, logger logging.Logger) {
	ctx, cancel := context.WithCancel(q.ctx)
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(q.ctx, q.timeout)
	}
	defer cancel()
	start := time.Now()
	logger.Debug("running job")
	if err := run(ctx); err != nil {
		JobRuns.WithLabelValues(job.Chain, job.Domain, "failure").Inc()
		logger.WithError(err).WithField("duration", time.Since(start)).Error("job failed")
		return
	}
	JobRuns.WithLabelValues(job.Chain, job.Domain, "success").Inc()
	logger.WithField("duration", time.Since(start)).Info("job finished")
}

// InFlight reports whether a run of job is queued or running.
func (q *Queue) InFlight(job Job) bool {
	_, ok := q.inFlight.Load(job)
	return ok
}

// Stop waits for queued and running jobs, then releases the workers.
func (q *Queue) Stop() {
	q.stopOnce.Do(q.pool.StopAndWait)
}
