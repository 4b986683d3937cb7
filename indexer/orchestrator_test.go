package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/repository/memory"
	"github.com/prisma-monitor/indexer/subgraph"
)

const (
	testChainID    = int64(1)
	poolAddress    = "0xed8b26d99834540c5013701bb3715fafd39993ba"
	managerAddress = "0x1cc79f3f47bfc060b6f761fcd1afc6d399a968b6"
	collateralAddr = "0xb9aa2ae43a90a4e18f3fe0b09fe3d8c8ddd30ff6"
	priceFeed      = "0xc105e1a8e6b4b0b3e1fd7df4e17bce69ab5ae5b6"
	labelledUser   = "0x0000000000000000000000000000000000000bad"
)

var errSubgraphDown = errors.New("subgraph down")

type fakeSubgraph struct {
	mu               sync.Mutex
	poolSnapshots    uint64
	poolOperations   uint64
	managerSnapshots uint64
	troveSnapshots   uint64
	priceRecords     int64
	price            string
	badOperation     int64
	failPrices       bool
	onQuery          func(query string) error
	calls            map[string]int
}

func newFakeSubgraph() *fakeSubgraph {
	return &fakeSubgraph{
		poolSnapshots:    10,
		poolOperations:   20,
		managerSnapshots: 5,
		troveSnapshots:   30,
		priceRecords:     3,
		price:            "2000.5",
		badOperation:     -1,
		calls:            make(map[string]int),
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

func with(base map[string]interface{}, fields map[string]interface{}) map[string]interface{} {
	for k, v := range fields {
		base[k] = v
	}
	return base
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

func (f *fakeSubgraph) Client() subgraph.Client {
	return subgraph.ClientFunc(func(ctx context.Context, query string, vars subgraph.Vars) (interface{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := queryName(query)
		f.calls[name]++
		if f.onQuery != nil {
			if err := f.onQuery(name); err != nil {
				return nil, err
			}
		}
		switch name {
		case "BaseEntities":
			return f.baseEntities(), nil
		case "StabilityPoolSnapshots":
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				items = append(items, with(block(i), map[string]interface{}{
					"index":                       i,
					"totalDeposited":              "1000",
					"totalCollateralWithdrawnUSD": "0",
				}))
			}
			return map[string]interface{}{"stabilityPoolSnapshots": items}, nil
		case "StabilityPoolOperations":
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				operation := "stableDeposit"
				if i == f.badOperation {
					operation = "stableTeleport"
				}
				items = append(items, with(block(i), map[string]interface{}{
					"user": map[string]interface{}{
						"id":                       fmt.Sprintf("0x%040x", i%7+1),
						"totalDeposited":           "10",
						"totalCollateralGainedUSD": "0",
					},
					"operation":           operation,
					"index":               i,
					"stableAmount":        "10",
					"userDeposit":         "10",
					"withdrawnCollateral": []interface{}{},
				}))
			}
			return map[string]interface{}{"stabilityPoolOperations": items}, nil
		case "TroveManagerSnapshots":
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				items = append(items, with(block(i), map[string]interface{}{
					"index":           i,
					"collateralPrice": f.price,
					"totalDebt":       "1000000",
					"openTroves":      3,
					"totalTroves":     "3",
					"parameters": with(block(0), map[string]interface{}{
						"id":                 "params-0",
						"minuteDecayFactor":  "999037758833783000",
						"redemptionFeeFloor": "5000000000000000",
						"maxRedemptionFee":   "1000000000000000000",
						"borrowingFeeFloor":  "5000000000000000",
						"maxBorrowingFee":    "50000000000000000",
						"maxSystemDebt":      "50000000000000000000000000",
						"interestRate":       "0",
						"MCR":                "1200000000000000000",
					}),
				}))
			}
			return map[string]interface{}{"troveManagerSnapshots": items}, nil
		case "TroveSnapshots":
			from, to := window(vars)
			items := make([]interface{}, 0, to-from)
			for i := from; i < to; i++ {
				items = append(items, with(block(i), map[string]interface{}{
					"trove": map[string]interface{}{
						"owner":                    map[string]interface{}{"id": fmt.Sprintf("0x%040x", i+100)},
						"status":                   "open",
						"snapshotsCount":           1,
						"collateral":               "1",
						"collateralUSD":            "2000",
						"debt":                     "1000",
						"stake":                    "1",
						"rewardSnapshotDebt":       "0",
						"rewardSnapshotCollateral": "0",
					},
					"operation":     "openTrove",
					"index":         i,
					"collateral":    "1",
					"collateralUSD": "2000",
					"debt":          "1000",
					"stake":         "1",
					"borrowingFee":  "5",
				}))
			}
			return map[string]interface{}{"troveSnapshots": items}, nil
		case "PriceRecords":
			if f.failPrices {
				return nil, errSubgraphDown
			}
			since, skip := vars["since"].(int64), vars["skip"].(int)
			var items []interface{}
			for i := int64(0); i < f.priceRecords && len(items) < indexer.PageSize; i++ {
				if 1690000000+i < since {
					continue
				}
				if skip > 0 {
					skip--
					continue
				}
				items = append(items, with(block(i), map[string]interface{}{"price": f.price}))
			}
			return map[string]interface{}{"priceRecords": items}, nil
		}
		return nil, fmt.Errorf("unexpected query %s", name)
	})
}

func (f *fakeSubgraph) baseEntities() map[string]interface{} {
	return map[string]interface{}{
		"protocols": []interface{}{map[string]interface{}{
			"id":           "0x0",
			"startTime":    "1690000000",
			"priceFeed":    priceFeed,
			"lockersCount": "12",
		}},
		"stabilityPools": []interface{}{map[string]interface{}{
			"id":              poolAddress,
			"snapshotsCount":  fmt.Sprint(f.poolSnapshots),
			"operationsCount": fmt.Sprint(f.poolOperations),
			"totalDeposited":  "1000",
		}},
		"troveManagers": []interface{}{with(block(0), map[string]interface{}{
			"id":                  managerAddress,
			"priceFeed":           priceFeed,
			"sunsetting":          false,
			"snapshotsCount":      fmt.Sprint(f.managerSnapshots),
			"troveSnapshotsCount": fmt.Sprint(f.troveSnapshots),
			"collateral": map[string]interface{}{
				"id":          collateralAddr,
				"name":        "Wrapped liquid staked Ether 2.0",
				"decimals":    "18",
				"symbol":      "wstETH",
				"latestPrice": f.price,
			},
		})},
	}
}

var errRedisDown = errors.New("redis down")

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	failing  map[string]bool
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	if p.failing[channel] {
		return errRedisDown
	}
	return nil
}

func (p *recordingPublisher) fail(channels ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = make(map[string]bool, len(channels))
	for _, channel := range channels {
		p.failing[channel] = true
	}
}

func (p *recordingPublisher) count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.channels {
		if c == channel {
			n++
		}
	}
	return n
}

type testEnv struct {
	fake      *fakeSubgraph
	repo      *repository.Repo
	store     *memory.Store
	publisher *recordingPublisher
	syncer    *indexer.ChainSyncer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := newFakeSubgraph()
	repo, store := memory.NewRepo()
	publisher := new(recordingPublisher)
	deps := &indexer.Deps{
		Chain: &config.ChainConfig{
			Name:    "ethereum",
			ChainID: testChainID,
			Labels:  map[string]string{labelledUser: "Treasury"},
		},
		Client:    fake.Client(),
		Repo:      repo,
		Publisher: publisher,
		Logger:    logging.Discard(),
	}
	return &testEnv{
		fake:      fake,
		repo:      repo,
		store:     store,
		publisher: publisher,
		syncer:    indexer.NewChainSyncer(deps),
	}
}

func (e *testEnv) cursors(t *testing.T) map[entity.Stream]uint64 {
	t.Helper()
	cursors, err := e.repo.Cursors.FindByChainID(context.Background(), testChainID)
	require.NoError(t, err)
	res := make(map[entity.Stream]uint64, len(cursors))
	for _, c := range cursors {
		res[c.Stream] = c.Value
	}
	return res
}

func TestChainSyncer_SyncChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.fake.set(func(f *fakeSubgraph) {
		f.poolOperations = 1500
		f.troveSnapshots = 2500
	})

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, map[entity.Stream]uint64{
		entity.StreamPoolSnapshots:    10,
		entity.StreamPoolOperations:   1500,
		entity.StreamManagerSnapshots: 5,
		entity.StreamTroveSnapshots:   2500,
	}, env.cursors(t))
	require.Equal(t, 2, env.fake.callsOf("StabilityPoolOperations"))
	require.Equal(t, 3, env.fake.callsOf("TroveSnapshots"))

	counts := env.store.Counts()
	require.Equal(t, 10, counts["stability_pool_snapshots"])
	require.Equal(t, 1500, counts["stability_pool_operations"])
	require.Equal(t, 5, counts["trove_manager_snapshots"])
	require.Equal(t, 1, counts["trove_manager_parameters"])
	require.Equal(t, 2500, counts["troves"])
	require.Equal(t, 2500, counts["trove_snapshots"])
	require.Equal(t, 3, counts["price_records"])
	require.Equal(t, 1, env.publisher.count(messaging.TroveOverviewUpdate))
	require.Equal(t, 2500, env.publisher.count(messaging.TroveOperationsUpdate))
	require.Equal(t, 1500, env.publisher.count(messaging.StabilityPoolUpdate))

	user, err := env.repo.Users.GetByID(ctx, labelledUser)
	require.NoError(t, err)
	require.NotNil(t, user.Label)
	require.Equal(t, "Treasury", *user.Label)

	// Nothing moved remotely, so a second pass only refreshes base entities.
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, counts, env.store.Counts())
	require.Equal(t, 3, env.fake.callsOf("TroveSnapshots"))
	require.Equal(t, 1, env.fake.callsOf("PriceRecords"))
	require.Equal(t, 1, env.publisher.count(messaging.TroveOverviewUpdate))

	// Re-importing the whole stream from zero leaves exactly one row per snapshot.
	manager, err := env.repo.TroveManagers.GetByChainIDAndAddress(ctx, testChainID, managerAddress)
	require.NoError(t, err)
	require.NoError(t, env.repo.Cursors.Write(ctx, entity.StreamTroveSnapshots, manager.ID, 0))
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 6, env.fake.callsOf("TroveSnapshots"))
	require.Equal(t, uint64(2500), env.cursors(t)[entity.StreamTroveSnapshots])
	require.Equal(t, counts, env.store.Counts())
}

func TestChainSyncer_SyncChain_PublishFailuresDoNotFailPass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.fake.set(func(f *fakeSubgraph) { f.poolOperations = 1200 })
	env.publisher.fail(messaging.StabilityPoolUpdate, messaging.TroveOperationsUpdate, messaging.TroveOverviewUpdate)

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, map[entity.Stream]uint64{
		entity.StreamPoolSnapshots:    10,
		entity.StreamPoolOperations:   1200,
		entity.StreamManagerSnapshots: 5,
		entity.StreamTroveSnapshots:   30,
	}, env.cursors(t))

	counts := env.store.Counts()
	require.Equal(t, 10, counts["stability_pool_snapshots"])
	require.Equal(t, 1200, counts["stability_pool_operations"])
	require.Equal(t, 5, counts["trove_manager_snapshots"])
	require.Equal(t, 30, counts["trove_snapshots"])
	require.Equal(t, 3, counts["price_records"])
	require.Equal(t, 1200, env.publisher.count(messaging.StabilityPoolUpdate))
	require.Equal(t, 30, env.publisher.count(messaging.TroveOperationsUpdate))
	require.Equal(t, 1, env.publisher.count(messaging.TroveOverviewUpdate))
}

func TestChainSyncer_SyncChain_ResetsFailedStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.fake.set(func(f *fakeSubgraph) {
		f.poolOperations = 1200
		f.badOperation = 500
	})

	err := env.syncer.SyncChain(ctx)
	require.ErrorIs(t, err, entity.ErrUnknownEnumValue)
	cursors := env.cursors(t)
	require.Zero(t, cursors[entity.StreamPoolOperations])
	require.Equal(t, uint64(10), cursors[entity.StreamPoolSnapshots])
	require.Equal(t, uint64(5), cursors[entity.StreamManagerSnapshots])
	require.Equal(t, uint64(30), cursors[entity.StreamTroveSnapshots])
	require.Equal(t, 500, env.store.Counts()["stability_pool_operations"])

	env.fake.set(func(f *fakeSubgraph) { f.badOperation = -1 })
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, uint64(1200), env.cursors(t)[entity.StreamPoolOperations])
	require.Equal(t, 1200, env.store.Counts()["stability_pool_operations"])
}

func TestChainSyncer_SyncChain_KeepsCursorWhenRemoteShrinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.syncer.SyncChain(ctx))
	env.fake.set(func(f *fakeSubgraph) { f.troveSnapshots = 12 })
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, uint64(30), env.cursors(t)[entity.StreamTroveSnapshots])
	require.Equal(t, 1, env.fake.callsOf("TroveSnapshots"))
}

func TestChainSyncer_SyncChain_PriceGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	latestPrice := func() decimal.Decimal {
		collateral, err := env.repo.Collaterals.GetByChainIDAndAddress(ctx, testChainID, collateralAddr)
		require.NoError(t, err)
		return collateral.LatestPrice
	}

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 1, env.fake.callsOf("PriceRecords"))
	require.Equal(t, "2000.5", latestPrice().String())

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 1, env.fake.callsOf("PriceRecords"))

	env.fake.set(func(f *fakeSubgraph) {
		f.price = "2100"
		f.failPrices = true
	})
	require.ErrorIs(t, env.syncer.SyncChain(ctx), errSubgraphDown)
	require.Equal(t, "2000.5", latestPrice().String())

	env.fake.set(func(f *fakeSubgraph) { f.failPrices = false })
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, "2100", latestPrice().String())
}

func TestChainSyncer_SyncChain_PriceRecordsAcrossPasses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.fake.set(func(f *fakeSubgraph) { f.priceRecords = 7500 })

	latestPrice := func() decimal.Decimal {
		collateral, err := env.repo.Collaterals.GetByChainIDAndAddress(ctx, testChainID, collateralAddr)
		require.NoError(t, err)
		return collateral.LatestPrice
	}

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 6, env.fake.callsOf("PriceRecords"))
	require.Equal(t, 6000, env.store.Counts()["price_records"])
	require.True(t, latestPrice().IsZero())

	// The gate stays open until the remaining records are stored.
	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 8, env.fake.callsOf("PriceRecords"))
	require.Equal(t, 7500, env.store.Counts()["price_records"])
	require.Equal(t, "2000.5", latestPrice().String())

	require.NoError(t, env.syncer.SyncChain(ctx))
	require.Equal(t, 8, env.fake.callsOf("PriceRecords"))
	require.Equal(t, 7500, env.store.Counts()["price_records"])
}

func TestChainSyncer_SyncChain_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(t)
	env.fake.set(func(f *fakeSubgraph) {
		f.onQuery = func(query string) error {
			if query == "StabilityPoolSnapshots" {
				cancel()
				return context.Canceled
			}
			return nil
		}
	})

	err := env.syncer.SyncChain(ctx)
	require.ErrorIs(t, err, context.Canceled)
	for stream, value := range env.cursors(t) {
		require.Zero(t, value, stream)
	}
}

func TestChainSyncer_SyncChain_NoProtocol(t *testing.T) {
	t.Parallel()
	repo, _ := memory.NewRepo()
	client := subgraph.ClientFunc(func(context.Context, string, subgraph.Vars) (interface{}, error) {
		return map[string]interface{}{"protocols": []interface{}{}}, nil
	})
	syncer := indexer.NewChainSyncer(&indexer.Deps{
		Chain:     &config.ChainConfig{Name: "ethereum", ChainID: testChainID},
		Client:    client,
		Repo:      repo,
		Publisher: messaging.NopPublisher{},
		Logger:    logging.Discard(),
	})
	require.ErrorIs(t, syncer.SyncChain(context.Background()), indexer.ErrNoProtocol)
}

func TestNewStreamImporter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.syncer.SyncChain(ctx))

	deps := &indexer.Deps{
		Chain:     &config.ChainConfig{Name: "ethereum", ChainID: testChainID},
		Client:    env.fake.Client(),
		Repo:      env.repo,
		Publisher: messaging.NopPublisher{},
		Logger:    logging.Discard(),
	}
	importer, err := indexer.NewStreamImporter(ctx, deps, entity.StreamTroveSnapshots, strings.ToUpper(managerAddress[2:]))
	require.Error(t, err)
	require.Nil(t, importer)

	importer, err = indexer.NewStreamImporter(ctx, deps, entity.StreamTroveSnapshots, managerAddress)
	require.NoError(t, err)
	require.NoError(t, importer.ImportRange(ctx, 0, 30))
	require.Equal(t, 30, env.store.Counts()["trove_snapshots"])

	_, err = indexer.NewStreamImporter(ctx, deps, entity.StreamStakingDeposits, managerAddress)
	require.Error(t, err)
	_, err = indexer.NewStreamImporter(ctx, deps, entity.Stream("unknown"), managerAddress)
	require.Error(t, err)
}
