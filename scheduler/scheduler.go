package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/prisma-monitor/indexer/logging"
)

// Scheduler enqueues every registered job on its domain's cron spec.
type Scheduler struct {
	logger logging.Logger
	cron   *cron.Cron
	queue  *Queue
	jobs   []Job
}

// NewScheduler builds a seconds-precision cron with one entry per job.
// schedules maps a domain to its cron spec.
func NewScheduler(logger logging.Logger, registry *Registry, queue *Queue, schedules map[string]string) (*Scheduler, error) {
	cronLog := cronLogger{logger: logger}
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog)))
	s := &Scheduler{logger: logger, cron: c, queue: queue, jobs: registry.Jobs()}
	for _, job := range s.jobs {
		spec, ok := schedules[job.Domain]
		if !ok {
			return nil, fmt.Errorf("no schedule for %s: %w", job, ErrUnknownDomain)
		}
		job := job
		if _, err := c.AddFunc(spec, func() { s.enqueue(job) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q of %s: %w", spec, job, err)
		}
	}
	return s, nil
}

func (s *Scheduler) enqueue(job Job) {
	if _, err := s.queue.Enqueue(job); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"chain":  job.Chain,
			"domain": job.Domain,
		}).Warn("can't enqueue job")
	}
}

// RunNow enqueues every job once, without waiting for its next tick.
func (s *Scheduler) RunNow() {
	for _, job := range s.jobs {
		s.enqueue(job)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop stops new ticks and waits until running jobs finish or ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	done := make(chan struct{})
	go func() {
		s.queue.Stop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs are still running: %w", ctx.Err())
	}
}

type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger := l.logger.WithFields(fieldsOf(keysAndValues))
	if err == nil {
		err = errors.New(msg)
	}
	logger.WithError(err).Error(msg)
}

func fieldsOf(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
