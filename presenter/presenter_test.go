package presenter_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/presenter"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/repository/memory"
	"github.com/prisma-monitor/indexer/utils"
)

const (
	testChainID    = int64(1)
	startTime      = int64(1691625600)
	managerAddress = "0x1cc79f3f47bfc060b6f761fcd1afc6d399a968b6"
	poolAddress    = "0xed8b26d99834540c5013701bb3715fafd39993ba"
	voter          = "0x4444444444444444444444444444444444444444"
)

type testEnv struct {
	repo    *repository.Repo
	hub     *presenter.Hub
	server  *httptest.Server
	manager *entity.TroveManager
	pool    *entity.StabilityPool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo, _ := memory.NewRepo()
	cfg := &config.Config{Chains: map[string]*config.ChainConfig{
		"ethereum": {Name: "ethereum", ChainID: testChainID, StartTime: startTime},
	}}
	require.NoError(t, repo.Chains.Ensure(ctx, &entity.Chain{ID: testChainID, Name: "ethereum"}))

	poolID, err := repo.StabilityPools.Upsert(ctx, &entity.StabilityPool{ChainID: testChainID, Address: poolAddress})
	require.NoError(t, err)
	managerID, err := repo.TroveManagers.Upsert(ctx, &entity.TroveManager{ChainID: testChainID, Address: managerAddress})
	require.NoError(t, err)
	require.NoError(t, repo.Cursors.Write(ctx, entity.StreamTroveSnapshots, managerID, 42))

	for i, debt := range []string{"500", "1500", "1000"} {
		owner := fmt.Sprintf("0x%040x", i+1)
		require.NoError(t, repo.Users.Ensure(ctx, owner))
		_, err = repo.Troves.Upsert(ctx, &entity.Trove{
			ManagerID:     managerID,
			OwnerID:       owner,
			Status:        entity.TroveStatusOpen,
			Debt:          decimal.RequireFromString(debt),
			CollateralUSD: decimal.RequireFromString(debt).Mul(decimal.NewFromInt(2)),
		})
		require.NoError(t, err)
	}

	hub := presenter.NewHub(logging.Discard(), repo, cfg)
	p := presenter.NewPresenter(logging.Discard(), repo, cfg, hub)
	server := httptest.NewServer(p.Handler())
	t.Cleanup(server.Close)
	return &testEnv{
		repo:    repo,
		hub:     hub,
		server:  server,
		manager: &entity.TroveManager{ID: managerID, ChainID: testChainID, Address: managerAddress},
		pool:    &entity.StabilityPool{ID: poolID, ChainID: testChainID, Address: poolAddress},
	}
}

func get(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx
	require.NoError(t, err)
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, sonnet.Unmarshal(blob, out))
	}
	return resp.StatusCode
}

func TestPresenter_GetStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	var res presenter.StatusResult
	require.Equal(t, http.StatusOK, get(t, env.server.URL+"/chains/ethereum/status", &res))
	require.Equal(t, testChainID, res.ChainID)
	values := make(map[entity.Stream]uint64, len(res.Cursors))
	for _, c := range res.Cursors {
		values[c.Stream] = c.Value
	}
	require.Equal(t, uint64(42), values[entity.StreamTroveSnapshots])
	require.Contains(t, values, entity.StreamPoolOperations)

	require.Equal(t, http.StatusNotFound, get(t, env.server.URL+"/chains/fantom/status", nil))
}

func TestPresenter_GetTroves(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	base := env.server.URL + "/chains/ethereum/managers/" + managerAddress + "/troves"

	for _, test := range []struct {
		Name   string
		Query  string
		Status int
		Debts  []string
	}{
		{Name: "DebtAscending", Query: "?order_by=debt", Status: http.StatusOK, Debts: []string{"500", "1000", "1500"}},
		{Name: "DebtDescending", Query: "?order_by=debt&desc=true", Status: http.StatusOK, Debts: []string{"1500", "1000", "500"}},
		{Name: "SecondPage", Query: "?order_by=collateral_usd&items=2&page=2", Status: http.StatusOK, Debts: []string{"1500"}},
		{Name: "DefaultOrder", Status: http.StatusOK},
		{Name: "UnknownOrder", Query: "?order_by=owner", Status: http.StatusBadRequest},
		{Name: "InvalidDesc", Query: "?order_by=debt&desc=maybe", Status: http.StatusBadRequest},
		{Name: "InvalidPage", Query: "?page=-1", Status: http.StatusBadRequest},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			var res presenter.TrovesResult
			require.Equal(t, test.Status, get(t, base+test.Query, &res))
			if test.Debts == nil {
				return
			}
			debts := make([]string, len(res.Troves))
			for i, trove := range res.Troves {
				debts[i] = trove.Debt.String()
			}
			require.Equal(t, test.Debts, debts)
		})
	}

	unknown := env.server.URL + "/chains/ethereum/managers/0x0000000000000000000000000000000000000001/troves"
	require.Equal(t, http.StatusNotFound, get(t, unknown, nil))
}

func TestPresenter_GetIncentives(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.repo.IncentivePoints.ReplaceWeek(ctx, testChainID, voter, 3, []*entity.UserIncentivePoints{
		{ReceiverID: 1, Points: 100},
		{ReceiverID: 2, Points: 50},
	}))
	require.NoError(t, env.repo.IncentivePoints.ReplaceWeek(ctx, testChainID, voter, 6, []*entity.UserIncentivePoints{
		{ReceiverID: 1, Points: 30},
	}))

	var res presenter.IncentivesResult
	require.Equal(t, http.StatusOK, get(t, env.server.URL+"/chains/ethereum/incentives/"+voter+"?from=4&to=7", &res))
	require.Len(t, res.Weeks, 4)
	for _, week := range res.Weeks {
		expected := []*presenter.ReceiverPoints{{ReceiverID: 1, Points: 100}, {ReceiverID: 2, Points: 50}}
		if week.Week >= 6 {
			expected = []*presenter.ReceiverPoints{{ReceiverID: 1, Points: 30}}
		}
		require.Equal(t, expected, week.Points, "week %d", week.Week)
	}

	require.Equal(t, http.StatusBadRequest, get(t, env.server.URL+"/chains/ethereum/incentives/"+voter+"?from=7&to=4", nil))
	require.Equal(t, http.StatusBadRequest, get(t, env.server.URL+"/chains/ethereum/incentives/"+voter+"?from=x", nil))

	res = presenter.IncentivesResult{}
	require.Equal(t, http.StatusOK, get(t, env.server.URL+"/chains/ethereum/incentives/"+voter+"?from=0", &res))
	require.Equal(t, utils.Week(time.Now(), startTime), res.To)
}

func TestForwardFill(t *testing.T) {
	t.Parallel()
	seed := []*entity.UserIncentivePoints{{ReceiverID: 5, Points: 10, Week: 1}}
	rows := []*entity.UserIncentivePoints{
		{ReceiverID: 5, Points: 0, Week: 3},
		{ReceiverID: 7, Points: 20, Week: 3},
	}
	weeks := presenter.ForwardFill(seed, rows, 2, 4)
	require.Equal(t, []*presenter.WeekPoints{
		{Week: 2, Points: []*presenter.ReceiverPoints{{ReceiverID: 5, Points: 10}}},
		{Week: 3, Points: []*presenter.ReceiverPoints{{ReceiverID: 7, Points: 20}}},
		{Week: 4, Points: []*presenter.ReceiverPoints{{ReceiverID: 7, Points: 20}}},
	}, weeks)
}
