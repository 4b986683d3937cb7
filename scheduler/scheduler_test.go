package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/scheduler"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()
	noop := func(context.Context) error { return nil }
	for _, test := range []struct {
		Name      string
		Schedules map[string]string
		Err       error
		AnyErr    bool
	}{
		{
			Name:      "Valid",
			Schedules: map[string]string{scheduler.DomainChain: "*/15 * * * * *"},
		},
		{
			Name:      "MissingSchedule",
			Schedules: map[string]string{scheduler.DomainZaps: "0 30 * * * *"},
			Err:       scheduler.ErrUnknownDomain,
		},
		{
			Name:      "InvalidSpec",
			Schedules: map[string]string{scheduler.DomainChain: "every minute"},
			AnyErr:    true,
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			registry := scheduler.NewRegistry()
			registry.Register("ethereum", scheduler.DomainChain, noop)
			q := newQueue(t, registry, time.Minute)
			_, err := scheduler.NewScheduler(logging.Discard(), registry, q, test.Schedules)
			switch {
			case test.Err != nil:
				require.ErrorIs(t, err, test.Err)
			case test.AnyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	t.Parallel()
	var runs int32
	registry := scheduler.NewRegistry()
	registry.Register("ethereum", scheduler.DomainChain, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	q := newQueue(t, registry, time.Minute)
	s, err := scheduler.NewScheduler(logging.Discard(), registry, q, map[string]string{
		scheduler.DomainChain: "* * * * * *",
	})
	require.NoError(t, err)

	s.RunNow()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)

	s.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, 3*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
