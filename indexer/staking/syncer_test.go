package staking_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/indexer/staking"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/repository/memory"
	"github.com/prisma-monitor/indexer/subgraph"
)

const (
	testChainID     = 1
	stakingContract = "0x0c73f1cfd5c9dfc150c8707aa47acbd14f0be108"
)

var errSubgraphDown = errors.New("subgraph is down")

var stakers = []string{
	"0x1111111111111111111111111111111111111111",
	"0x2222222222222222222222222222222222222222",
	"0x3333333333333333333333333333333333333333",
}

type fakeSubgraph struct {
	mu          sync.Mutex
	calls       map[string]int
	deposits    int64
	withdrawals int64
	payouts     int64
	snapshots   int64
	failPayouts bool
}

func newFakeSubgraph() *fakeSubgraph {
	return &fakeSubgraph{
		calls:       make(map[string]int),
		deposits:    1200,
		withdrawals: 300,
		payouts:     5,
		snapshots:   24,
	}
}

func queryName(query string) string {
	name := strings.TrimPrefix(query, "query ")
	if i := strings.IndexAny(name, "( {"); i >= 0 {
		name = name[:i]
	}
	return name
}

func window(vars subgraph.Vars) (int64, int64) {
	return int64(vars["index_gte"].(uint64)), int64(vars["index_lt"].(uint64))
}

func block(i int64) map[string]interface{} {
	return map[string]interface{}{
		"blockNumber":     100 + i,
		"blockTimestamp":  1690000000 + i,
		"transactionHash": fmt.Sprintf("0x%064x", i),
	}
}

func (f *fakeSubgraph) set(fn func(f *fakeSubgraph)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSubgraph) callsOf(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSubgraph) events(vars subgraph.Vars, offset int64) []interface{} {
	from, to := window(vars)
	items := make([]interface{}, 0, to-from)
	for i := from; i < to; i++ {
		item := block(offset + i)
		item["user"] = map[string]interface{}{"id": stakers[i%3], "stakeSize": fmt.Sprint(i)}
		item["amount"] = "10.5"
		item["amountUsd"] = "12.25"
		item["index"] = i
		items = append(items, item)
	}
	return items
}

func (f *fakeSubgraph) Client() subgraph.Client {
	return subgraph.ClientFunc(func(_ context.Context, query string, vars subgraph.Vars) (interface{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := queryName(query)
		f.calls[name]++
		switch name {
		case "StakingContracts":
			return map[string]interface{}{"stakingContracts": []interface{}{map[string]interface{}{
				"id":            "0x0C73F1cFd5c9dFc150C8707Aa47acbD14F0BE108",
				"tvl":           "1500000.5",
				"tokenBalance":  "900000",
				"depositCount":  fmt.Sprint(f.deposits),
				"withdrawCount": fmt.Sprint(f.withdrawals),
				"payoutCount":   fmt.Sprint(f.payouts),
				"snapshotCount": fmt.Sprint(f.snapshots),
			}}}, nil
		case "Stakes":
			return map[string]interface{}{"stakes": f.events(vars, 0)}, nil
		case "Withdrawals":
			return map[string]interface{}{"withdrawals": f.events(vars, 1000000)}, nil
		case "RewardPaids":
			if f.failPayouts {
				return nil, errSubgraphDown
			}
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				item := block(i)
				item["user"] = map[string]interface{}{"id": stakers[i%3]}
				item["index"] = i
				item["token"] = map[string]interface{}{"address": "0xDA47862a83dac0c112BA89c6abC2159b95afd71C", "symbol": "PRISMA"}
				item["amount"] = "3"
				item["amountUsd"] = "1.5"
				items = append(items, item)
			}
			return map[string]interface{}{"rewardPaids": items}, nil
		case "HourlySnapshots":
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				items = append(items, map[string]interface{}{
					"tokenBalance": "900000",
					"totalSupply":  "950000",
					"totalApr":     "12.5",
					"tvl":          "1500000",
					"rewardApr": []interface{}{
						map[string]interface{}{"apr": "10", "token": map[string]interface{}{"symbol": "PRISMA"}},
						map[string]interface{}{"apr": "2.5", "token": map[string]interface{}{"symbol": "CVX"}},
					},
					"timestamp": 1690000000 + i*3600,
				})
			}
			return map[string]interface{}{"hourlySnapshots": items}, nil
		}
		return nil, fmt.Errorf("unexpected query %s", name)
	})
}

func newSyncer(repo *repository.Repo, client subgraph.Client) *staking.Syncer {
	return staking.NewSyncer(&indexer.Deps{
		Chain:     &config.ChainConfig{Name: "ethereum", ChainID: testChainID},
		Client:    client,
		Repo:      repo,
		Publisher: messaging.NopPublisher{},
		Logger:    logging.Discard(),
	})
}

func cursorsOf(t *testing.T, repo *repository.Repo) *entity.StakingContract {
	t.Helper()
	snapshot, err := repo.Cursors.StakingSnapshot(context.Background(), testChainID)
	require.NoError(t, err)
	contract, ok := snapshot.Contracts[stakingContract]
	require.True(t, ok)
	return contract
}

func TestSyncer_Sync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, store := memory.NewRepo()
	fake := newFakeSubgraph()
	syncer := newSyncer(repo, fake.Client())

	require.NoError(t, syncer.Sync(ctx))

	contract := cursorsOf(t, repo)
	require.Equal(t, uint64(1200), contract.DepositCount)
	require.Equal(t, uint64(300), contract.WithdrawCount)
	require.Equal(t, uint64(5), contract.PayoutCount)
	require.Equal(t, uint64(24), contract.SnapshotCount)
	require.Equal(t, "1500000.5", contract.TVL.String())

	counts := store.Counts()
	require.Equal(t, 1500, counts["stake_events"])
	require.Equal(t, 1500, counts["staking_balances"])
	require.Equal(t, 5, counts["reward_payouts"])
	require.Equal(t, 24, counts["staking_snapshots"])
	require.Equal(t, 3, counts["users"])
	require.Equal(t, 2, fake.callsOf("Stakes"))
	require.Equal(t, 1, fake.callsOf("Withdrawals"))

	require.NoError(t, syncer.Sync(ctx))
	require.Equal(t, 2, fake.callsOf("Stakes"))
	require.Equal(t, 1, fake.callsOf("HourlySnapshots"))
	require.Equal(t, 2, fake.callsOf("StakingContracts"))
}

func TestSyncer_ResetsOnlyFailedStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, store := memory.NewRepo()
	fake := newFakeSubgraph()
	fake.failPayouts = true
	syncer := newSyncer(repo, fake.Client())

	err := syncer.Sync(ctx)
	require.ErrorIs(t, err, errSubgraphDown)

	contract := cursorsOf(t, repo)
	require.Equal(t, uint64(0), contract.PayoutCount)
	require.Equal(t, uint64(1200), contract.DepositCount)
	require.Equal(t, uint64(24), contract.SnapshotCount)
	require.Equal(t, 0, store.Counts()["reward_payouts"])

	fake.set(func(f *fakeSubgraph) {
		f.failPayouts = false
		f.payouts = 7
		f.deposits = 1250
	})
	require.NoError(t, syncer.Sync(ctx))

	contract = cursorsOf(t, repo)
	require.Equal(t, uint64(7), contract.PayoutCount)
	require.Equal(t, uint64(1250), contract.DepositCount)
	require.Equal(t, 7, store.Counts()["reward_payouts"])
	require.Equal(t, 1550, store.Counts()["stake_events"])
}

func TestSyncer_KeepsCursorWhenRemoteShrinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := memory.NewRepo()
	fake := newFakeSubgraph()
	syncer := newSyncer(repo, fake.Client())
	require.NoError(t, syncer.Sync(ctx))

	fake.set(func(f *fakeSubgraph) { f.snapshots = 10 })
	require.NoError(t, syncer.Sync(ctx))
	require.Equal(t, uint64(24), cursorsOf(t, repo).SnapshotCount)
	require.Equal(t, 1, fake.callsOf("HourlySnapshots"))
}
