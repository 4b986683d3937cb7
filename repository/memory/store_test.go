package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/repository/memory"
)

func TestStore_UpsertKeepsCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := memory.NewRepo()

	id, err := repo.StabilityPools.Upsert(ctx, &entity.StabilityPool{ChainID: 1, Address: "0xPOOL"})
	require.NoError(t, err)
	require.NoError(t, repo.Cursors.Write(ctx, entity.StreamPoolOperations, id, 42))

	again, err := repo.StabilityPools.Upsert(ctx, &entity.StabilityPool{ChainID: 1, Address: "0xpool", OperationsCount: 7})
	require.NoError(t, err)
	require.Equal(t, id, again)

	value, err := repo.Cursors.Read(ctx, entity.StreamPoolOperations, id)
	require.NoError(t, err)
	require.EqualValues(t, 42, value)
}

func TestStore_CollateralPriceGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := memory.NewRepo()

	id, err := repo.Collaterals.Upsert(ctx, &entity.Collateral{ChainID: 1, Address: "0xC", Symbol: "wstETH"})
	require.NoError(t, err)
	require.NoError(t, repo.Collaterals.SetLatestPrice(ctx, id, decimal.NewFromInt(2000)))

	_, err = repo.Collaterals.Upsert(ctx, &entity.Collateral{ChainID: 1, Address: "0xc", Symbol: "wstETH", LatestPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)

	snapshot, err := repo.Cursors.ChainSnapshot(ctx, 1)
	require.NoError(t, err)
	require.True(t, snapshot.Collaterals["0xc"].Equal(decimal.NewFromInt(2000)))
}

func TestStore_CursorErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := memory.NewRepo()

	_, err := repo.Cursors.Read(ctx, entity.StreamTroveSnapshots, int64(99))
	require.ErrorIs(t, err, db.ErrNotFound)

	_, err = repo.Cursors.Read(ctx, entity.Stream("users; DROP TABLE users"), int64(1))
	require.Error(t, err)
}

func TestStore_ReplaceWeek(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, store := memory.NewRepo()

	require.NoError(t, repo.IncentivePoints.ReplaceWeek(ctx, 1, "0xV", 3, []*entity.UserIncentivePoints{
		{ReceiverID: 10, Points: 6000},
		{ReceiverID: 11, Points: 4000},
	}))
	require.NoError(t, repo.IncentivePoints.ReplaceWeek(ctx, 1, "0xv", 3, []*entity.UserIncentivePoints{
		{ReceiverID: 11, Points: 10000},
	}))

	points, err := repo.IncentivePoints.FindByVoter(ctx, 1, "0xv", 3, 3)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.EqualValues(t, 10, points[0].ReceiverID)
	require.EqualValues(t, 0, points[0].Points)
	require.EqualValues(t, 10000, points[1].Points)
	require.Equal(t, 2, store.Counts()["user_incentive_points"])
}

func TestStore_TrovesFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := memory.NewRepo()

	for i, owner := range []string{"0xa", "0xb", "0xc"} {
		_, err := repo.Troves.Upsert(ctx, &entity.Trove{
			ManagerID: 1,
			OwnerID:   owner,
			Status:    entity.TroveStatusOpen,
			Debt:      decimal.NewFromInt(int64(100 * (i + 1))),
		})
		require.NoError(t, err)
	}
	troves, err := repo.Troves.Find(ctx, &entity.TrovesFilter{
		ManagerID: 1,
		OrderBy:   entity.TroveOrderDebt,
		Desc:      true,
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, troves, 2)
	require.Equal(t, "0xc", troves[0].OwnerID)
	require.Equal(t, "0xb", troves[1].OwnerID)

	_, err = repo.Troves.Find(ctx, &entity.TrovesFilter{ManagerID: 1, OrderBy: "owner"})
	require.Error(t, err)
}
