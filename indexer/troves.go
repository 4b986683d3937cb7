package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const troveSnapshotsQuery = `query TroveSnapshots($manager: String!, $index_gte: BigInt!, $index_lt: BigInt!) {
  troveSnapshots(first: 1000, orderBy: index, where: {manager: $manager, index_gte: $index_gte, index_lt: $index_lt}) {
    trove {
      owner {
        id
      }
      status
      snapshotsCount
      collateral
      collateralUSD
      collateralRatio
      debt
      stake
      rewardSnapshotDebt
      rewardSnapshotCollateral
    }
    operation
    index
    collateral
    collateralUSD
    collateralRatio
    debt
    stake
    borrowingFee
    liquidation {
      id
      liquidator {
        id
      }
      liquidatedDebt
      liquidatedCollateral
      liquidatedCollateralUSD
      collGasCompensation
      collGasCompensationUSD
      debtGasCompensation
      blockNumber
      blockTimestamp
      transactionHash
    }
    redemption {
      id
      redeemer {
        id
      }
      attemptedDebtAmount
      actualDebtAmount
      collateralSent
      collateralSentUSD
      collateralSentToRedeemer
      collateralSentToRedeemerUSD
      collateralFee
      collateralFeeUSD
      blockNumber
      blockTimestamp
      transactionHash
    }
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

type troveData struct {
	Owner                    subgraph.Ref     `json:"owner"`
	Status                   string           `json:"status"`
	SnapshotsCount           subgraph.Int     `json:"snapshotsCount"`
	Collateral               decimal.Decimal  `json:"collateral"`
	CollateralUSD            decimal.Decimal  `json:"collateralUSD"`
	CollateralRatio          *decimal.Decimal `json:"collateralRatio"`
	Debt                     decimal.Decimal  `json:"debt"`
	Stake                    decimal.Decimal  `json:"stake"`
	RewardSnapshotDebt       decimal.Decimal  `json:"rewardSnapshotDebt"`
	RewardSnapshotCollateral decimal.Decimal  `json:"rewardSnapshotCollateral"`
}

type liquidationData struct {
	ID                      string          `json:"id"`
	Liquidator              subgraph.Ref    `json:"liquidator"`
	LiquidatedDebt          decimal.Decimal `json:"liquidatedDebt"`
	LiquidatedCollateral    decimal.Decimal `json:"liquidatedCollateral"`
	LiquidatedCollateralUSD decimal.Decimal `json:"liquidatedCollateralUSD"`
	CollGasCompensation     decimal.Decimal `json:"collGasCompensation"`
	CollGasCompensationUSD  decimal.Decimal `json:"collGasCompensationUSD"`
	DebtGasCompensation     decimal.Decimal `json:"debtGasCompensation"`
	subgraph.Block
}

type redemptionData struct {
	ID                          string          `json:"id"`
	Redeemer                    subgraph.Ref    `json:"redeemer"`
	AttemptedDebtAmount         decimal.Decimal `json:"attemptedDebtAmount"`
	ActualDebtAmount            decimal.Decimal `json:"actualDebtAmount"`
	CollateralSent              decimal.Decimal `json:"collateralSent"`
	CollateralSentUSD           decimal.Decimal `json:"collateralSentUSD"`
	CollateralSentToRedeemer    decimal.Decimal `json:"collateralSentToRedeemer"`
	CollateralSentToRedeemerUSD decimal.Decimal `json:"collateralSentToRedeemerUSD"`
	CollateralFee               decimal.Decimal `json:"collateralFee"`
	CollateralFeeUSD            decimal.Decimal `json:"collateralFeeUSD"`
	subgraph.Block
}

type troveSnapshotData struct {
	Trove           *troveData       `json:"trove"`
	Operation       string           `json:"operation"`
	Index           subgraph.Int     `json:"index"`
	Collateral      decimal.Decimal  `json:"collateral"`
	CollateralUSD   decimal.Decimal  `json:"collateralUSD"`
	CollateralRatio *decimal.Decimal `json:"collateralRatio"`
	Debt            decimal.Decimal  `json:"debt"`
	Stake           decimal.Decimal  `json:"stake"`
	BorrowingFee    decimal.Decimal  `json:"borrowingFee"`
	Liquidation     *liquidationData `json:"liquidation"`
	Redemption      *redemptionData  `json:"redemption"`
	subgraph.Block
}

// TroveSnapshotsImporter imports the trove snapshots of one trove manager.
type TroveSnapshotsImporter struct {
	*Deps
	manager *entity.TroveManager
}

func NewTroveSnapshotsImporter(deps *Deps, manager *entity.TroveManager) *TroveSnapshotsImporter {
	return &TroveSnapshotsImporter{Deps: deps, manager: manager}
}

func (i *TroveSnapshotsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return ForEachPage(ctx, from, to, func(ctx context.Context, r *IndexRange) error {
		vars := r.Vars()
		vars["manager"] = i.manager.Address
		var data struct {
			Snapshots []*troveSnapshotData `json:"troveSnapshots"`
		}
		if err := i.Client.Query(ctx, troveSnapshotsQuery, vars, &data); err != nil {
			return fmt.Errorf("can't query trove snapshots [%d, %d): %w", r.From, r.To, err)
		}
		for _, s := range data.Snapshots {
			if err := i.importSnapshot(ctx, s); err != nil {
				return fmt.Errorf("can't import trove snapshot %d: %w", s.Index, err)
			}
		}
		i.imported(string(entity.StreamTroveSnapshots), len(data.Snapshots))
		return nil
	})
}

func (i *TroveSnapshotsImporter) importSnapshot(ctx context.Context, s *troveSnapshotData) error {
	if s.Trove == nil {
		return fmt.Errorf("snapshot has no trove")
	}
	operation, err := entity.TroveOperations.Decode(s.Operation)
	if err != nil {
		return err
	}
	troveID, err := i.upsertTrove(ctx, s.Trove)
	if err != nil {
		return err
	}
	liquidationID, err := i.upsertLiquidation(ctx, s.Liquidation)
	if err != nil {
		return err
	}
	redemptionID, err := i.upsertRedemption(ctx, s.Redemption)
	if err != nil {
		return err
	}
	err = i.Repo.TroveSnapshots.Upsert(ctx, &entity.TroveSnapshot{
		TroveID:         troveID,
		LiquidationID:   liquidationID,
		RedemptionID:    redemptionID,
		Index:           s.Index.Int64(),
		Operation:       operation,
		Collateral:      s.Collateral,
		CollateralUSD:   s.CollateralUSD,
		CollateralRatio: s.CollateralRatio,
		Debt:            s.Debt,
		Stake:           s.Stake,
		BorrowingFee:    s.BorrowingFee,
		Block:           BlockOf(s.Block),
	})
	if err != nil {
		return fmt.Errorf("can't upsert trove snapshot: %w", err)
	}

	i.publish(ctx, messaging.TroveOperationsUpdate, &messaging.TroveOperationsPayload{
		Channel: messaging.ChannelTroveOperations,
		Subscription: messaging.Subscription{
			Chain:   i.Chain.Name,
			Manager: i.manager.Address,
		},
		Type: messaging.PayloadUpdate,
		Payload: []*entity.TroveOperationView{{
			OwnerID:         utils.ChecksumAddress(s.Trove.Owner.ID),
			Operation:       operation,
			CollateralUSD:   s.CollateralUSD,
			Debt:            s.Debt,
			BlockTimestamp:  s.BlockTimestamp.Int64(),
			TransactionHash: s.TransactionHash,
		}},
	})
	return nil
}

func (i *TroveSnapshotsImporter) upsertTrove(ctx context.Context, t *troveData) (int64, error) {
	status, err := entity.TroveStatuses.Decode(t.Status)
	if err != nil {
		return 0, err
	}
	owner := utils.NormalizeAddress(t.Owner.ID)
	if err = i.Repo.Users.Ensure(ctx, owner); err != nil {
		return 0, fmt.Errorf("can't ensure trove owner: %w", err)
	}
	id, err := i.Repo.Troves.Upsert(ctx, &entity.Trove{
		ManagerID:                i.manager.ID,
		OwnerID:                  owner,
		Status:                   status,
		SnapshotsCount:           t.SnapshotsCount.Int64(),
		Collateral:               t.Collateral,
		CollateralUSD:            t.CollateralUSD,
		CollateralRatio:          t.CollateralRatio,
		Debt:                     t.Debt,
		Stake:                    t.Stake,
		RewardSnapshotCollateral: t.RewardSnapshotCollateral,
		RewardSnapshotDebt:       t.RewardSnapshotDebt,
	})
	if err != nil {
		return 0, fmt.Errorf("can't upsert trove: %w", err)
	}
	return id, nil
}

func (i *TroveSnapshotsImporter) upsertLiquidation(ctx context.Context, l *liquidationData) (*int64, error) {
	if l == nil {
		return nil, nil
	}
	liquidator := utils.NormalizeAddress(l.Liquidator.ID)
	if err := i.Repo.Users.Ensure(ctx, liquidator); err != nil {
		return nil, fmt.Errorf("can't ensure liquidator: %w", err)
	}
	id, err := i.Repo.Liquidations.Upsert(ctx, &entity.Liquidation{
		ChainID:                 i.Chain.ChainID,
		LiquidatorID:            liquidator,
		ExternalID:              l.ID,
		LiquidatedDebt:          l.LiquidatedDebt,
		LiquidatedCollateral:    l.LiquidatedCollateral,
		LiquidatedCollateralUSD: l.LiquidatedCollateralUSD,
		CollGasCompensation:     l.CollGasCompensation,
		CollGasCompensationUSD:  l.CollGasCompensationUSD,
		DebtGasCompensation:     l.DebtGasCompensation,
		Block:                   BlockOf(l.Block),
	})
	if err != nil {
		return nil, fmt.Errorf("can't upsert liquidation %s: %w", l.ID, err)
	}
	return &id, nil
}

func (i *TroveSnapshotsImporter) upsertRedemption(ctx context.Context, r *redemptionData) (*int64, error) {
	if r == nil {
		return nil, nil
	}
	redeemer := utils.NormalizeAddress(r.Redeemer.ID)
	if err := i.Repo.Users.Ensure(ctx, redeemer); err != nil {
		return nil, fmt.Errorf("can't ensure redeemer: %w", err)
	}
	id, err := i.Repo.Redemptions.Upsert(ctx, &entity.Redemption{
		ChainID:                     i.Chain.ChainID,
		RedeemerID:                  redeemer,
		ExternalID:                  r.ID,
		AttemptedDebtAmount:         r.AttemptedDebtAmount,
		ActualDebtAmount:            r.ActualDebtAmount,
		CollateralSent:              r.CollateralSent,
		CollateralSentUSD:           r.CollateralSentUSD,
		CollateralSentToRedeemer:    r.CollateralSentToRedeemer,
		CollateralSentToRedeemerUSD: r.CollateralSentToRedeemerUSD,
		CollateralFee:               r.CollateralFee,
		CollateralFeeUSD:            r.CollateralFeeUSD,
		Block:                       BlockOf(r.Block),
	})
	if err != nil {
		return nil, fmt.Errorf("can't upsert redemption %s: %w", r.ID, err)
	}
	return &id, nil
}
