package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
)

type fakeRedis struct {
	mu       sync.Mutex
	failures int
	calls    int
	messages []string
}

func (f *fakeRedis) Publish(_ context.Context, _ string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	f.messages = append(f.messages, message.(string))
	return redis.NewIntResult(1, nil)
}

var publisherCfg = &config.PublisherConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}

func TestRedisPublisher_Publish(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name          string
		Failures      int
		ExpectedCalls int
		ExpectedErr   bool
	}{
		{Name: "FirstAttempt", Failures: 0, ExpectedCalls: 1},
		{Name: "RecoversOnRetry", Failures: 2, ExpectedCalls: 3},
		{Name: "GivesUp", Failures: 5, ExpectedCalls: 3, ExpectedErr: true},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			client := &fakeRedis{failures: test.Failures}
			publisher := messaging.NewRedisPublisher(client, publisherCfg, logging.Discard())
			err := publisher.Publish(context.Background(), messaging.StabilityPoolUpdate, messaging.StabilityPoolPayload{
				Channel:      messaging.ChannelStabilityPool,
				Subscription: messaging.Subscription{Chain: "ethereum"},
				Type:         messaging.PayloadUpdate,
			})
			if test.ExpectedErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Len(t, client.messages, 1)
				require.JSONEq(t, `{"channel":"stability_pool","subscription":{"chain":"ethereum"},"type":"update","payload":null}`, client.messages[0])
			}
			require.Equal(t, test.ExpectedCalls, client.calls)
		})
	}
}

func TestPagination_Normalize(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name          string
		Input         *messaging.Pagination
		ExpectedPage  uint64
		ExpectedItems uint64
	}{
		{Name: "Nil", Input: nil, ExpectedPage: 1, ExpectedItems: 10},
		{Name: "Zero", Input: &messaging.Pagination{}, ExpectedPage: 1, ExpectedItems: 10},
		{Name: "Capped", Input: &messaging.Pagination{Page: 3, Items: 500}, ExpectedPage: 3, ExpectedItems: 100},
		{Name: "Explicit", Input: &messaging.Pagination{Page: 2, Items: 25}, ExpectedPage: 2, ExpectedItems: 25},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			page, items := test.Input.Normalize()
			require.Equal(t, test.ExpectedPage, page)
			require.Equal(t, test.ExpectedItems, items)
		})
	}
}

func TestSubscriptionKeys(t *testing.T) {
	t.Parallel()
	require.Equal(t, "trove_operations_ethereum_0xabcd", messaging.TroveOperationsKey("ethereum", "0xABCD"))
	require.Equal(t, "stability_pool_1", messaging.StabilityPoolKey(1))
	require.Equal(t, "troves_overview_1", messaging.TrovesOverviewKey(1))
	require.NotEqual(t, messaging.StabilityPoolKey(1), messaging.TrovesOverviewKey(1))
}
