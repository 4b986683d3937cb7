package staking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
)

const snapshotsQuery = `query HourlySnapshots($index_gte: BigInt!, $index_lt: BigInt!) {
  hourlySnapshots(first: 1000, orderBy: index, where: {index_gte: $index_gte, index_lt: $index_lt}) {
    tokenBalance
    totalSupply
    totalApr
    tvl
    rewardApr {
      apr
      token {
        symbol
      }
    }
    timestamp
  }
}`

type snapshotData struct {
	TokenBalance decimal.Decimal `json:"tokenBalance"`
	TotalSupply  decimal.Decimal `json:"totalSupply"`
	TotalApr     decimal.Decimal `json:"totalApr"`
	TVL          decimal.Decimal `json:"tvl"`
	RewardApr    []struct {
		Apr   decimal.Decimal `json:"apr"`
		Token struct {
			Symbol string `json:"symbol"`
		} `json:"token"`
	} `json:"rewardApr"`
	Timestamp subgraph.Int `json:"timestamp"`
}

type SnapshotsImporter struct {
	*indexer.Deps
	contract *entity.StakingContract
}

func NewSnapshotsImporter(deps *indexer.Deps, contract *entity.StakingContract) *SnapshotsImporter {
	return &SnapshotsImporter{Deps: deps, contract: contract}
}

func (i *SnapshotsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return indexer.ForEachPage(ctx, from, to, func(ctx context.Context, r *indexer.IndexRange) error {
		var data struct {
			Snapshots []*snapshotData `json:"hourlySnapshots"`
		}
		if err := i.Client.Query(ctx, snapshotsQuery, r.Vars(), &data); err != nil {
			return fmt.Errorf("can't query staking snapshots [%d, %d): %w", r.From, r.To, err)
		}
		for _, s := range data.Snapshots {
			breakdown := make([]entity.AprComponent, len(s.RewardApr))
			for j, apr := range s.RewardApr {
				breakdown[j] = entity.AprComponent{Token: apr.Token.Symbol, Apr: apr.Apr}
			}
			blob, err := sonnet.Marshal(breakdown)
			if err != nil {
				return fmt.Errorf("can't encode apr breakdown: %w", err)
			}
			err = i.Repo.StakingSnapshots.Upsert(ctx, &entity.StakingSnapshotRecord{
				StakingID:    i.contract.ID,
				TokenBalance: s.TokenBalance,
				TokenSupply:  s.TotalSupply,
				TVL:          s.TVL,
				TotalApr:     s.TotalApr,
				AprBreakdown: entity.JSON(blob),
				Timestamp:    s.Timestamp.Int64(),
			})
			if err != nil {
				return fmt.Errorf("can't upsert staking snapshot at %d: %w", s.Timestamp, err)
			}
		}
		indexer.ImportedItems.WithLabelValues(i.Chain.Name, string(entity.StreamStakingSnapshots)).Add(float64(len(data.Snapshots)))
		return nil
	})
}
