package dao_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/contract"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/indexer/dao"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/repository/memory"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const (
	chainID   = int64(1)
	startTime = int64(1691625600)
	voter     = "0x00000000000000000000000000000000000000a1"
	creator   = "0x00000000000000000000000000000000000000c1"
	core      = "0x5a6a4d54456819380173272a5e8e9b9904bdf41b"
)

type handler func(vars subgraph.Vars) (interface{}, error)

type fakeSubgraph struct {
	mu       sync.Mutex
	handlers map[string]handler
	calls    map[string][]subgraph.Vars
}

func newFakeSubgraph() *fakeSubgraph {
	return &fakeSubgraph{
		handlers: make(map[string]handler),
		calls:    make(map[string][]subgraph.Vars),
	}
}

func (f *fakeSubgraph) on(name string, h handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
}

func (f *fakeSubgraph) callsOf(name string) []subgraph.Vars {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSubgraph) Client() subgraph.Client {
	return subgraph.ClientFunc(func(_ context.Context, query string, vars subgraph.Vars) (interface{}, error) {
		name := strings.TrimPrefix(query, "query ")
		name = name[:strings.IndexAny(name, "( ")]
		f.mu.Lock()
		f.calls[name] = append(f.calls[name], vars)
		h, ok := f.handlers[name]
		f.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("unexpected query %s", name)
		}
		return h(vars)
	})
}

type countingDecoder struct {
	calls int
}

func (d *countingDecoder) DecodePayload(_ context.Context, calls []contract.Call) string {
	d.calls++
	return fmt.Sprintf("%d calls to %s", len(calls), calls[0].Target)
}

func block(i int64) map[string]interface{} {
	return map[string]interface{}{
		"blockNumber":     100 + i,
		"blockTimestamp":  startTime + i,
		"transactionHash": fmt.Sprintf("0x%064x", i),
	}
}

func with(base map[string]interface{}, fields map[string]interface{}) map[string]interface{} {
	for k, v := range fields {
		base[k] = v
	}
	return base
}

func newSyncer(repo *repository.Repo, client subgraph.Client, decoder dao.PayloadDecoder, week int64) *dao.Syncer {
	deps := &indexer.Deps{
		Chain:     &config.ChainConfig{Name: "ethereum", ChainID: chainID, StartTime: startTime},
		Client:    client,
		Repo:      repo,
		Publisher: messaging.NopPublisher{},
		Logger:    logging.Discard(),
	}
	now := time.Unix(utils.WeekStart(week, startTime)+3600, 0)
	return dao.NewSyncer(deps, decoder).WithClock(func() time.Time { return now })
}

type receiverVote struct {
	receiver int64
	points   int64
}

func incentiveVote(index int64, clearance bool, votes ...receiverVote) map[string]interface{} {
	items := make([]interface{}, len(votes))
	for i, v := range votes {
		items[i] = map[string]interface{}{
			"recipient": map[string]interface{}{
				"id":      fmt.Sprint(v.receiver),
				"address": fmt.Sprintf("0x%040x", 0xe000+v.receiver),
			},
			"points": fmt.Sprint(v.points),
		}
	}
	return with(block(index), map[string]interface{}{
		"voter":           map[string]interface{}{"id": voter},
		"weeklyVoteIndex": index,
		"isClearance":     clearance,
		"votes":           items,
	})
}

func TestSyncer_SyncIncentives(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name     string
		Week7    []interface{}
		Expected map[int64][]int64
	}{
		{
			Name:  "ClearanceReplacesAllocation",
			Week7: []interface{}{incentiveVote(0, true, receiverVote{receiver: 1, points: 30})},
			Expected: map[int64][]int64{
				3: {100, 50}, 4: {100, 50}, 5: {100, 50}, 6: {100, 50}, 7: {30, 0},
			},
		},
		{
			Name:  "VotesAddToAllocation",
			Week7: []interface{}{incentiveVote(0, false, receiverVote{receiver: 1, points: 30})},
			Expected: map[int64][]int64{
				3: {100, 50}, 4: {100, 50}, 5: {100, 50}, 6: {100, 50}, 7: {130, 50},
			},
		},
		{
			Name: "ClearanceWithoutVotes",
			Week7: []interface{}{
				incentiveVote(0, false, receiverVote{receiver: 2, points: 10}),
				incentiveVote(1, true),
			},
			Expected: map[int64][]int64{
				3: {100, 50}, 4: {100, 50}, 5: {100, 50}, 6: {100, 50}, 7: {0, 0},
			},
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			fake := newFakeSubgraph()
			fake.on("IncentiveVotes", func(vars subgraph.Vars) (interface{}, error) {
				var votes []interface{}
				switch vars["week"].(int64) {
				case 3:
					votes = []interface{}{incentiveVote(0, false,
						receiverVote{receiver: 1, points: 100},
						receiverVote{receiver: 2, points: 50},
					)}
				case 7:
					votes = test.Week7
				}
				if vars["index_gte"].(int64) > 0 {
					votes = nil
				}
				return map[string]interface{}{"incentiveVotes": votes}, nil
			})
			repo, _ := memory.NewRepo()
			syncer := newSyncer(repo, fake.Client(), nil, 7)

			read := func() map[int64][]int64 {
				points, err := repo.IncentivePoints.FindByVoter(ctx, chainID, voter, 3, 7)
				require.NoError(t, err)
				res := make(map[int64][]int64)
				for _, p := range points {
					res[p.Week] = append(res[p.Week], p.Points)
				}
				return res
			}

			require.NoError(t, syncer.SyncIncentives(ctx))
			require.Equal(t, test.Expected, read())
			require.Len(t, fake.callsOf("IncentiveVotes"), 8)

			require.NoError(t, syncer.SyncIncentives(ctx))
			require.Equal(t, test.Expected, read())
			require.Len(t, fake.callsOf("IncentiveVotes"), 9)
			require.Equal(t, int64(7), fake.callsOf("IncentiveVotes")[8]["week"])
		})
	}
}

func proposal(status string, voteCount int64, weight string) map[string]interface{} {
	votes := make([]interface{}, voteCount)
	for i := range votes {
		votes[i] = with(block(int64(i)), map[string]interface{}{
			"voter":         map[string]interface{}{"id": fmt.Sprintf("0x%040x", i+1)},
			"index":         i,
			"weight":        weight,
			"accountWeight": weight,
			"decisive":      false,
		})
	}
	return with(block(0), map[string]interface{}{
		"id":              "0",
		"creator":         map[string]interface{}{"id": creator},
		"status":          status,
		"index":           "0",
		"payload":         []interface{}{map[string]interface{}{"target": core, "data": "0x2e2d2984"}},
		"week":            "5",
		"requiredWeight":  "1000",
		"receivedWeight":  "10",
		"canExecuteAfter": "0",
		"voteCount":       fmt.Sprint(voteCount),
		"execution":       nil,
		"votes":           votes,
	})
}

func TestSyncer_SyncOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeSubgraph()
	current := proposal("notPassed", 2, "10")
	fake.on("OwnershipProposals", func(subgraph.Vars) (interface{}, error) {
		return map[string]interface{}{"ownershipProposals": []interface{}{current}}, nil
	})
	repo, store := memory.NewRepo()
	decoder := new(countingDecoder)
	syncer := newSyncer(repo, fake.Client(), decoder, 7)

	require.NoError(t, syncer.SyncOwnership(ctx))
	stored, err := repo.OwnershipProposals.GetByIndex(ctx, chainID, creator, 0)
	require.NoError(t, err)
	require.Equal(t, entity.ProposalStatusNotPassed, stored.Status)
	require.Equal(t, "1 calls to "+core, stored.DecodeData)
	require.JSONEq(t, `[{"target":"`+core+`","data":"0x2e2d2984"}]`, string(stored.Data))
	require.Len(t, store.Votes(stored.ID), 2)
	require.Equal(t, 1, decoder.calls)

	// Same vote count: votes are left untouched and the payload is not decoded again.
	current = proposal("passed", 2, "99")
	require.NoError(t, syncer.SyncOwnership(ctx))
	stored, err = repo.OwnershipProposals.GetByIndex(ctx, chainID, creator, 0)
	require.NoError(t, err)
	require.Equal(t, entity.ProposalStatusPassed, stored.Status)
	require.Equal(t, "10", store.Votes(stored.ID)[0].Weight.String())
	require.Equal(t, 1, decoder.calls)

	current = proposal("passed", 3, "99")
	require.NoError(t, syncer.SyncOwnership(ctx))
	votes := store.Votes(stored.ID)
	require.Len(t, votes, 3)
	require.Equal(t, "99", votes[0].Weight.String())

	current = proposal("vetoed", 3, "99")
	require.ErrorIs(t, syncer.SyncOwnership(ctx), entity.ErrUnknownEnumValue)
}

func TestSyncer_SyncBoost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeSubgraph()
	fake.on("WeeklyEmissions", func(vars subgraph.Vars) (interface{}, error) {
		var items []interface{}
		for w := vars["from"].(int64); w <= vars["to"].(int64); w++ {
			items = append(items, map[string]interface{}{"week": w, "emissions": "1000000"})
		}
		return map[string]interface{}{"weeklyEmissions": items}, nil
	})
	fake.on("WeeklyBoostDatas", func(vars subgraph.Vars) (interface{}, error) {
		week := vars["week"].(int64)
		if week != 2 || vars["skip"].(int) > 0 {
			return map[string]interface{}{"weeklyBoostDatas": []interface{}{}}, nil
		}
		claim := with(block(1), map[string]interface{}{
			"caller":              map[string]interface{}{"id": voter},
			"receiver":            map[string]interface{}{"id": voter},
			"boostDelegate":       map[string]interface{}{"id": creator},
			"index":               "0",
			"totalClaimed":        "5",
			"totalClaimedBoosted": "6",
			"week":                week,
			"feeApplied":          "0.1",
		})
		return map[string]interface{}{"weeklyBoostDatas": []interface{}{map[string]interface{}{
			"account":              map[string]interface{}{"id": creator},
			"week":                 week,
			"boost":                "2",
			"pct":                  "0.5",
			"boostDelegation":      true,
			"boostDelegationUsers": "1",
			"timeToDepletion":      "3600",
			"batchRewardClaims":    []interface{}{claim},
		}}}, nil
	})
	repo, store := memory.NewRepo()
	syncer := newSyncer(repo, fake.Client(), nil, 3)

	require.NoError(t, syncer.SyncBoost(ctx))
	counts := store.Counts()
	require.Equal(t, 4, counts["weekly_emissions"])
	require.Equal(t, 1, counts["weekly_boosts"])
	require.Equal(t, 1, counts["batch_reward_claims"])
	require.Len(t, fake.callsOf("WeeklyBoostDatas"), 4)

	require.NoError(t, syncer.SyncBoost(ctx))
	require.Equal(t, counts, store.Counts())
	require.Equal(t, int64(2), fake.callsOf("WeeklyEmissions")[1]["from"])
}

func TestSyncer_SyncWeights(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeSubgraph()
	fake.on("Lockers", func(subgraph.Vars) (interface{}, error) {
		return map[string]interface{}{"lockers": []interface{}{map[string]interface{}{
			"accountDataCount":   "501",
			"totalWeeklyWeights": []string{"0", "100", "90", "0"},
			"totalWeeklyUnlocks": []string{"0", "0", "10", "0"},
		}}}, nil
	})
	fake.on("AccountDatas", func(vars subgraph.Vars) (interface{}, error) {
		from := vars["index_gte"].(int64)
		var accounts []interface{}
		for i := from; i < 501 && i < from+500; i++ {
			accounts = append(accounts, map[string]interface{}{
				"id":                   fmt.Sprintf("0x%040x", i+1),
				"feePct":               "100",
				"frozen":               "7",
				"weight":               "42",
				"accountWeeklyWeights": []string{"0", "5"},
				"accountWeeklyUnlocks": []string{"0", "0"},
			})
		}
		return map[string]interface{}{"accountDatas": accounts}, nil
	})
	repo, store := memory.NewRepo()
	syncer := newSyncer(repo, fake.Client(), nil, 3)

	require.NoError(t, syncer.SyncWeights(ctx))
	counts := store.Counts()
	require.Equal(t, 2, counts["total_weekly_weights"])
	require.Equal(t, 501, counts["user_weekly_weights"])
	require.Len(t, fake.callsOf("AccountDatas"), 2)

	user, err := repo.Users.GetByID(ctx, fmt.Sprintf("0x%040x", 1))
	require.NoError(t, err)
	require.Equal(t, "100", user.LatestFee.String())
	require.Equal(t, "7", user.FrozenBalance.String())
	require.Equal(t, "42", user.Weight.String())
}
