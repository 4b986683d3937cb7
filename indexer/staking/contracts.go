// Package staking imports the cvxPrisma staking subgraph: staking contracts,
// their stake and withdrawal events, reward payouts and hourly snapshots.
package staking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const stakingContractsQuery = `query StakingContracts {
  stakingContracts {
    id
    tvl
    tokenBalance
    depositCount
    withdrawCount
    payoutCount
    snapshotCount
  }
}`

// ContractsImporter upserts staking contracts and returns them with remote counters.
type ContractsImporter struct {
	*indexer.Deps
}

func NewContractsImporter(deps *indexer.Deps) *ContractsImporter {
	return &ContractsImporter{Deps: deps}
}

func (i *ContractsImporter) Import(ctx context.Context) ([]*entity.StakingContract, error) {
	var data struct {
		Contracts []struct {
			ID            string          `json:"id"`
			TVL           decimal.Decimal `json:"tvl"`
			TokenBalance  decimal.Decimal `json:"tokenBalance"`
			DepositCount  subgraph.Int    `json:"depositCount"`
			WithdrawCount subgraph.Int    `json:"withdrawCount"`
			PayoutCount   subgraph.Int    `json:"payoutCount"`
			SnapshotCount subgraph.Int    `json:"snapshotCount"`
		} `json:"stakingContracts"`
	}
	if err := i.Client.Query(ctx, stakingContractsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("can't query staking contracts: %w", err)
	}
	contracts := make([]*entity.StakingContract, 0, len(data.Contracts))
	for _, c := range data.Contracts {
		contract := &entity.StakingContract{
			ID:           utils.NormalizeAddress(c.ID),
			ChainID:      i.Chain.ChainID,
			TokenBalance: c.TokenBalance,
			TVL:          c.TVL,
		}
		if err := i.Repo.StakingContracts.Upsert(ctx, contract); err != nil {
			return nil, fmt.Errorf("can't upsert staking contract %s: %w", c.ID, err)
		}
		contract.DepositCount = c.DepositCount.Uint64()
		contract.WithdrawCount = c.WithdrawCount.Uint64()
		contract.PayoutCount = c.PayoutCount.Uint64()
		contract.SnapshotCount = c.SnapshotCount.Uint64()
		contracts = append(contracts, contract)
	}
	return contracts, nil
}
