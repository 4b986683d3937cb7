package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
)

const managerSnapshotsQuery = `query TroveManagerSnapshots($manager: String!, $index_gte: BigInt!, $index_lt: BigInt!) {
  troveManagerSnapshots(first: 1000, orderBy: index, where: {manager: $manager, index_gte: $index_gte, index_lt: $index_lt}) {
    index
    collateralPrice
    rate
    borrowingFee
    totalDebt
    totalCollateralUSD
    totalCollateral
    totalStakes
    collateralRatio
    totalBorrowingFeesPaid
    totalRedemptionFeesPaid
    totalRedemptionFeesPaidUSD
    totalCollateralRedistributed
    totalCollateralRedistributedUSD
    totalDebtRedistributed
    openTroves
    totalTrovesOpened
    liquidatedTroves
    totalTrovesLiquidated
    redeemedTroves
    totalTrovesRedeemed
    closedTroves
    totalTrovesClosed
    totalTroves
    parameters {
      id
      minuteDecayFactor
      redemptionFeeFloor
      borrowingFeeFloor
      maxBorrowingFee
      maxSystemDebt
      maxRedemptionFee
      interestRate
      MCR
      blockNumber
      blockTimestamp
      transactionHash
    }
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

// wadDecimals is the fixed-point precision of raw protocol parameters.
const wadDecimals = 18

type parametersData struct {
	ID                 string          `json:"id"`
	MinuteDecayFactor  decimal.Decimal `json:"minuteDecayFactor"`
	RedemptionFeeFloor decimal.Decimal `json:"redemptionFeeFloor"`
	BorrowingFeeFloor  decimal.Decimal `json:"borrowingFeeFloor"`
	MaxBorrowingFee    decimal.Decimal `json:"maxBorrowingFee"`
	MaxSystemDebt      decimal.Decimal `json:"maxSystemDebt"`
	MaxRedemptionFee   decimal.Decimal `json:"maxRedemptionFee"`
	InterestRate       decimal.Decimal `json:"interestRate"`
	MCR                decimal.Decimal `json:"MCR"`
	subgraph.Block
}

type managerSnapshotData struct {
	Index                           subgraph.Int    `json:"index"`
	CollateralPrice                 decimal.Decimal `json:"collateralPrice"`
	Rate                            decimal.Decimal `json:"rate"`
	BorrowingFee                    decimal.Decimal `json:"borrowingFee"`
	TotalDebt                       decimal.Decimal `json:"totalDebt"`
	TotalCollateralUSD              decimal.Decimal `json:"totalCollateralUSD"`
	TotalCollateral                 decimal.Decimal `json:"totalCollateral"`
	TotalStakes                     decimal.Decimal `json:"totalStakes"`
	CollateralRatio                 decimal.Decimal `json:"collateralRatio"`
	TotalBorrowingFeesPaid          decimal.Decimal `json:"totalBorrowingFeesPaid"`
	TotalRedemptionFeesPaid         decimal.Decimal `json:"totalRedemptionFeesPaid"`
	TotalRedemptionFeesPaidUSD      decimal.Decimal `json:"totalRedemptionFeesPaidUSD"`
	TotalCollateralRedistributed    decimal.Decimal `json:"totalCollateralRedistributed"`
	TotalCollateralRedistributedUSD decimal.Decimal `json:"totalCollateralRedistributedUSD"`
	TotalDebtRedistributed          decimal.Decimal `json:"totalDebtRedistributed"`
	OpenTroves                      subgraph.Int    `json:"openTroves"`
	TotalTrovesOpened               subgraph.Int    `json:"totalTrovesOpened"`
	LiquidatedTroves                subgraph.Int    `json:"liquidatedTroves"`
	TotalTrovesLiquidated           subgraph.Int    `json:"totalTrovesLiquidated"`
	RedeemedTroves                  subgraph.Int    `json:"redeemedTroves"`
	TotalTrovesRedeemed             subgraph.Int    `json:"totalTrovesRedeemed"`
	ClosedTroves                    subgraph.Int    `json:"closedTroves"`
	TotalTrovesClosed               subgraph.Int    `json:"totalTrovesClosed"`
	TotalTroves                     subgraph.Int    `json:"totalTroves"`
	Parameters                      *parametersData `json:"parameters"`
	subgraph.Block
}

// ManagerSnapshotsImporter imports the aggregate snapshots of one trove manager.
type ManagerSnapshotsImporter struct {
	*Deps
	manager *entity.TroveManager
}

func NewManagerSnapshotsImporter(deps *Deps, manager *entity.TroveManager) *ManagerSnapshotsImporter {
	return &ManagerSnapshotsImporter{Deps: deps, manager: manager}
}

func (i *ManagerSnapshotsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return ForEachPage(ctx, from, to, func(ctx context.Context, r *IndexRange) error {
		vars := r.Vars()
		vars["manager"] = i.manager.Address
		var data struct {
			Snapshots []*managerSnapshotData `json:"troveManagerSnapshots"`
		}
		if err := i.Client.Query(ctx, managerSnapshotsQuery, vars, &data); err != nil {
			return fmt.Errorf("can't query trove manager snapshots [%d, %d): %w", r.From, r.To, err)
		}
		for _, s := range data.Snapshots {
			if err := i.importSnapshot(ctx, s); err != nil {
				return fmt.Errorf("can't import trove manager snapshot %d: %w", s.Index, err)
			}
		}
		i.imported(string(entity.StreamManagerSnapshots), len(data.Snapshots))
		return nil
	})
}

func (i *ManagerSnapshotsImporter) importSnapshot(ctx context.Context, s *managerSnapshotData) error {
	parametersID, err := i.upsertParameters(ctx, s.Parameters)
	if err != nil {
		return err
	}
	err = i.Repo.TroveManagerSnapshots.Upsert(ctx, &entity.TroveManagerSnapshot{
		ManagerID:                       i.manager.ID,
		ParametersID:                    parametersID,
		Index:                           s.Index.Int64(),
		CollateralPrice:                 s.CollateralPrice,
		Rate:                            s.Rate,
		BorrowingFee:                    s.BorrowingFee,
		CollateralRatio:                 s.CollateralRatio,
		TotalCollateral:                 s.TotalCollateral,
		TotalCollateralUSD:              s.TotalCollateralUSD,
		TotalDebt:                       s.TotalDebt,
		TotalStakes:                     s.TotalStakes,
		TotalBorrowingFeesPaid:          s.TotalBorrowingFeesPaid,
		TotalRedemptionFeesPaid:         s.TotalRedemptionFeesPaid,
		TotalRedemptionFeesPaidUSD:      s.TotalRedemptionFeesPaidUSD,
		TotalCollateralRedistributed:    s.TotalCollateralRedistributed,
		TotalCollateralRedistributedUSD: s.TotalCollateralRedistributedUSD,
		TotalDebtRedistributed:          s.TotalDebtRedistributed,
		OpenTroves:                      s.OpenTroves.Int64(),
		TotalTrovesOpened:               s.TotalTrovesOpened.Int64(),
		LiquidatedTroves:                s.LiquidatedTroves.Int64(),
		TotalTrovesLiquidated:           s.TotalTrovesLiquidated.Int64(),
		RedeemedTroves:                  s.RedeemedTroves.Int64(),
		TotalTrovesRedeemed:             s.TotalTrovesRedeemed.Int64(),
		ClosedTroves:                    s.ClosedTroves.Int64(),
		TotalTrovesClosed:               s.TotalTrovesClosed.Int64(),
		TotalTroves:                     s.TotalTroves.Int64(),
		Block:                           BlockOf(s.Block),
	})
	if err != nil {
		return fmt.Errorf("can't upsert trove manager snapshot: %w", err)
	}
	return nil
}

func (i *ManagerSnapshotsImporter) upsertParameters(ctx context.Context, p *parametersData) (*int64, error) {
	if p == nil {
		return nil, nil
	}
	id, err := i.Repo.TroveManagerParameters.Upsert(ctx, &entity.TroveManagerParameters{
		ManagerID:          i.manager.ID,
		ExternalID:         p.ID,
		MinuteDecayFactor:  p.MinuteDecayFactor.Shift(-wadDecimals),
		RedemptionFeeFloor: p.RedemptionFeeFloor.Shift(-wadDecimals),
		MaxRedemptionFee:   p.MaxRedemptionFee.Shift(-wadDecimals),
		BorrowingFeeFloor:  p.BorrowingFeeFloor.Shift(-wadDecimals),
		MaxBorrowingFee:    p.MaxBorrowingFee.Shift(-wadDecimals),
		MaxSystemDebt:      p.MaxSystemDebt.Shift(-wadDecimals),
		InterestRate:       p.InterestRate.Shift(-wadDecimals),
		MCR:                p.MCR.Shift(-wadDecimals),
		Block:              BlockOf(p.Block),
	})
	if err != nil {
		return nil, fmt.Errorf("can't upsert trove manager parameters %s: %w", p.ID, err)
	}
	return &id, nil
}
