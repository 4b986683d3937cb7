package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/scheduler"
)

func newQueue(t *testing.T, registry *scheduler.Registry, timeout time.Duration) *scheduler.Queue {
	t.Helper()
	q := scheduler.NewQueue(context.Background(), logging.Discard(), registry, &config.SchedulerConfig{
		Workers:    2,
		QueueSize:  4,
		JobTimeout: timeout,
	})
	t.Cleanup(q.Stop)
	return q
}

func TestQueue_SkipsJobInFlight(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var runs int32
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainChain, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	})
	q := newQueue(t, registry, time.Minute)
	job := scheduler.Job{Chain: "ethereum", Domain: scheduler.DomainChain}

	ok, err := q.Enqueue(job)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = q.Enqueue(job)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, q.InFlight(job))

	close(release)
	require.Eventually(t, func() bool { return !q.InFlight(job) }, time.Second, 5*time.Millisecond)

	ok, err = q.Enqueue(job)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 2 }, time.Second, 5*time.Millisecond)
}

func TestQueue_UnknownJob(t *testing.T) {
	t.Parallel()
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainChain, func(context.Context) error { return nil })
	q := newQueue(t, registry, time.Minute)

	for _, job := range []scheduler.Job{
		{Chain: "ethereum", Domain: scheduler.DomainStaking},
		{Chain: "base", Domain: scheduler.DomainChain},
	} {
		ok, err := q.Enqueue(job)
		require.ErrorIs(t, err, scheduler.ErrUnknownDomain)
		require.False(t, ok)
	}
}

func TestQueue_JobTimeout(t *testing.T) {
	t.Parallel()
	result := make(chan error, 1)
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainDAOWeights, func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})
	q := newQueue(t, registry, 20*time.Millisecond)

	ok, err := q.Enqueue(scheduler.Job{Chain: "ethereum", Domain: scheduler.DomainDAOWeights})
	require.NoError(t, err)
	require.True(t, ok)
	select {
	case err = <-result:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled by its timeout")
	}
}

func TestQueue_WithoutTimeoutRunsUntilShutdown(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	hasDeadline := make(chan bool, 1)
	result := make(chan error, 1)
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainChain, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline <- ok
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})
	q := scheduler.NewQueue(ctx, logging.Discard(), registry, &config.SchedulerConfig{Workers: 1, QueueSize: 1})
	t.Cleanup(q.Stop)

	ok, err := q.Enqueue(scheduler.Job{Chain: "ethereum", Domain: scheduler.DomainChain})
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, <-hasDeadline)

	cancel()
	select {
	case err = <-result:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled on shutdown")
	}
}

func TestQueue_StopWaitsForRunningJobs(t *testing.T) {
	t.Parallel()
	var finished int32
	started := make(chan struct{})
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainRevenue, func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return nil
	})
	q := scheduler.NewQueue(context.Background(), logging.Discard(), registry, &config.SchedulerConfig{
		Workers:    1,
		QueueSize:  1,
		JobTimeout: time.Minute,
	})

	ok, err := q.Enqueue(scheduler.Job{Chain: "ethereum", Domain: scheduler.DomainRevenue})
	require.NoError(t, err)
	require.True(t, ok)
	<-started
	q.Stop()
	require.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestRegistry_Jobs(t *testing.T) {
	t.Parallel()
	registry := scheduler.NewRegistry()
	noop := func(context.Context) error { return nil }
	registry.Register("ethereum", scheduler.DomainStaking, noop)
	registry.Register("base", scheduler.DomainChain, noop)
	registry.Register("ethereum", scheduler.DomainChain, noop)

	require.Equal(t, []scheduler.Job{
		{Chain: "base", Domain: scheduler.DomainChain},
		{Chain: "ethereum", Domain: scheduler.DomainChain},
		{Chain: "ethereum", Domain: scheduler.DomainStaking},
	}, registry.Jobs())
}
