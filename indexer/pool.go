package indexer

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const poolSnapshotsQuery = `query StabilityPoolSnapshots($index_gte: BigInt!, $index_lt: BigInt!) {
  stabilityPoolSnapshots(first: 1000, orderBy: index, where: {index_gte: $index_gte, index_lt: $index_lt}) {
    index
    totalDeposited
    totalCollateralWithdrawnUSD
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

const poolOperationsQuery = `query StabilityPoolOperations($index_gte: BigInt!, $index_lt: BigInt!) {
  stabilityPoolOperations(first: 1000, orderBy: index, where: {index_gte: $index_gte, index_lt: $index_lt}) {
    user {
      id
      totalDeposited
      totalCollateralGainedUSD
    }
    operation
    index
    stableAmount
    userDeposit
    withdrawnCollateral {
      collateral {
        id
      }
      collateralAmount
      collateralAmountUSD
    }
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

const collateralCacheSize = 64

type poolSnapshotData struct {
	Index                       subgraph.Int    `json:"index"`
	TotalDeposited              decimal.Decimal `json:"totalDeposited"`
	TotalCollateralWithdrawnUSD decimal.Decimal `json:"totalCollateralWithdrawnUSD"`
	subgraph.Block
}

type poolOperationData struct {
	User struct {
		ID                       string          `json:"id"`
		TotalDeposited           decimal.Decimal `json:"totalDeposited"`
		TotalCollateralGainedUSD decimal.Decimal `json:"totalCollateralGainedUSD"`
	} `json:"user"`
	Operation           string          `json:"operation"`
	Index               subgraph.Int    `json:"index"`
	StableAmount        decimal.Decimal `json:"stableAmount"`
	UserDeposit         decimal.Decimal `json:"userDeposit"`
	WithdrawnCollateral []struct {
		Collateral          subgraph.Ref    `json:"collateral"`
		CollateralAmount    decimal.Decimal `json:"collateralAmount"`
		CollateralAmountUSD decimal.Decimal `json:"collateralAmountUSD"`
	} `json:"withdrawnCollateral"`
	subgraph.Block
}

type PoolSnapshotsImporter struct {
	*Deps
	pool *entity.StabilityPool
}

func NewPoolSnapshotsImporter(deps *Deps, pool *entity.StabilityPool) *PoolSnapshotsImporter {
	return &PoolSnapshotsImporter{Deps: deps, pool: pool}
}

func (i *PoolSnapshotsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return ForEachPage(ctx, from, to, func(ctx context.Context, r *IndexRange) error {
		var data struct {
			Snapshots []*poolSnapshotData `json:"stabilityPoolSnapshots"`
		}
		if err := i.Client.Query(ctx, poolSnapshotsQuery, r.Vars(), &data); err != nil {
			return fmt.Errorf("can't query stability pool snapshots [%d, %d): %w", r.From, r.To, err)
		}
		for _, s := range data.Snapshots {
			err := i.Repo.PoolSnapshots.Upsert(ctx, &entity.PoolSnapshot{
				PoolID:                      i.pool.ID,
				Index:                       s.Index.Int64(),
				TotalDeposited:              s.TotalDeposited,
				TotalCollateralWithdrawnUSD: s.TotalCollateralWithdrawnUSD,
				Block:                       BlockOf(s.Block),
			})
			if err != nil {
				return fmt.Errorf("can't upsert stability pool snapshot %d: %w", s.Index, err)
			}
		}
		i.imported(string(entity.StreamPoolSnapshots), len(data.Snapshots))
		return nil
	})
}

type PoolOperationsImporter struct {
	*Deps
	pool        *entity.StabilityPool
	collaterals *lru.Cache
}

func NewPoolOperationsImporter(deps *Deps, pool *entity.StabilityPool) (*PoolOperationsImporter, error) {
	cache, err := lru.New(collateralCacheSize)
	if err != nil {
		return nil, fmt.Errorf("can't create collateral cache: %w", err)
	}
	return &PoolOperationsImporter{Deps: deps, pool: pool, collaterals: cache}, nil
}

func (i *PoolOperationsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return ForEachPage(ctx, from, to, func(ctx context.Context, r *IndexRange) error {
		var data struct {
			Operations []*poolOperationData `json:"stabilityPoolOperations"`
		}
		if err := i.Client.Query(ctx, poolOperationsQuery, r.Vars(), &data); err != nil {
			return fmt.Errorf("can't query stability pool operations [%d, %d): %w", r.From, r.To, err)
		}
		for _, op := range data.Operations {
			if err := i.importOperation(ctx, op); err != nil {
				return fmt.Errorf("can't import stability pool operation %d: %w", op.Index, err)
			}
		}
		i.imported(string(entity.StreamPoolOperations), len(data.Operations))
		return nil
	})
}

func (i *PoolOperationsImporter) importOperation(ctx context.Context, op *poolOperationData) error {
	operation, err := entity.PoolOperationTypes.Decode(op.Operation)
	if err != nil {
		return err
	}
	userID := utils.NormalizeAddress(op.User.ID)
	err = i.Repo.Users.UpsertDepositor(ctx, &entity.User{
		ID:                       userID,
		TotalDeposited:           op.User.TotalDeposited,
		TotalCollateralGainedUSD: op.User.TotalCollateralGainedUSD,
	})
	if err != nil {
		return fmt.Errorf("can't upsert depositor: %w", err)
	}
	operationID, err := i.Repo.PoolOperations.Upsert(ctx, &entity.PoolOperation{
		PoolID:       i.pool.ID,
		UserID:       userID,
		Index:        op.Index.Int64(),
		Operation:    operation,
		StableAmount: op.StableAmount,
		UserDeposit:  op.UserDeposit,
		Block:        BlockOf(op.Block),
	})
	if err != nil {
		return fmt.Errorf("can't upsert operation: %w", err)
	}

	withdrawnUSD := decimal.Zero
	for _, w := range op.WithdrawnCollateral {
		collateralID, err := i.collateralID(ctx, w.Collateral.ID)
		if err != nil {
			return err
		}
		err = i.Repo.CollateralWithdrawals.Upsert(ctx, &entity.CollateralWithdrawal{
			CollateralID:        collateralID,
			OperationID:         operationID,
			CollateralAmount:    w.CollateralAmount,
			CollateralAmountUSD: w.CollateralAmountUSD,
		})
		if err != nil {
			return fmt.Errorf("can't upsert collateral withdrawal: %w", err)
		}
		withdrawnUSD = withdrawnUSD.Add(w.CollateralAmountUSD)
	}

	amount := op.StableAmount
	if operation == entity.PoolOperationCollateralWithdrawal {
		amount = withdrawnUSD
	}
	i.publish(ctx, messaging.StabilityPoolUpdate, &messaging.StabilityPoolPayload{
		Channel:      messaging.ChannelStabilityPool,
		Subscription: messaging.Subscription{Chain: i.Chain.Name},
		Type:         messaging.PayloadUpdate,
		Payload: []*entity.PoolOperationView{{
			UserID:          userID,
			Operation:       operation,
			Amount:          amount,
			TransactionHash: op.TransactionHash,
			BlockTimestamp:  op.BlockTimestamp.Int64(),
		}},
	})
	return nil
}

func (i *PoolOperationsImporter) collateralID(ctx context.Context, address string) (int64, error) {
	address = utils.NormalizeAddress(address)
	if id, ok := i.collaterals.Get(address); ok {
		return id.(int64), nil
	}
	collateral, err := i.Repo.Collaterals.GetByChainIDAndAddress(ctx, i.Chain.ChainID, address)
	if err != nil {
		return 0, fmt.Errorf("can't find collateral %s: %w", address, err)
	}
	i.collaterals.Add(address, collateral.ID)
	return collateral.ID, nil
}
