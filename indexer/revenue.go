package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
)

const revenueSnapshotsQuery = `query RevenueSnapshots($since: BigInt!, $skip: Int!) {
  revenueSnapshots(first: 1000, skip: $skip, orderBy: timestamp, orderDirection: asc, where: {timestamp_gte: $since}) {
    unlockPenaltyRevenueUSD
    borrowingFeesRevenueUSD
    redemptionFeesRevenueUSD
    timestamp
  }
}`

type revenueSnapshotData struct {
	UnlockPenaltyRevenueUSD  decimal.Decimal `json:"unlockPenaltyRevenueUSD"`
	BorrowingFeesRevenueUSD  decimal.Decimal `json:"borrowingFeesRevenueUSD"`
	RedemptionFeesRevenueUSD decimal.Decimal `json:"redemptionFeesRevenueUSD"`
	Timestamp                subgraph.Int    `json:"timestamp"`
}

type RevenueImporter struct {
	*Deps
}

func NewRevenueImporter(deps *Deps) *RevenueImporter {
	return &RevenueImporter{Deps: deps}
}

// Import refreshes the revenue snapshots from the latest stored one onwards,
// oldest first, until the remote runs out of pages.
// The latest snapshot is re-read since it keeps accumulating until its period ends.
func (i *RevenueImporter) Import(ctx context.Context) error {
	since, err := i.Repo.RevenueSnapshots.LatestTimestamp(ctx, i.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("can't get latest revenue snapshot timestamp: %w", err)
	}
	skip := 0
	for {
		var data struct {
			Snapshots []*revenueSnapshotData `json:"revenueSnapshots"`
		}
		if err = i.Client.Query(ctx, revenueSnapshotsQuery, subgraph.Vars{"since": since, "skip": skip}, &data); err != nil {
			return fmt.Errorf("can't query revenue snapshots: %w", err)
		}
		for _, s := range data.Snapshots {
			err = i.Repo.RevenueSnapshots.Upsert(ctx, &entity.RevenueSnapshot{
				ChainID:                  i.Chain.ChainID,
				UnlockPenaltyRevenueUSD:  s.UnlockPenaltyRevenueUSD,
				BorrowingFeesRevenueUSD:  s.BorrowingFeesRevenueUSD,
				RedemptionFeesRevenueUSD: s.RedemptionFeesRevenueUSD,
				Timestamp:                s.Timestamp.Int64(),
			})
			if err != nil {
				return fmt.Errorf("can't upsert revenue snapshot at %d: %w", s.Timestamp, err)
			}
		}
		i.imported("revenue_snapshots", len(data.Snapshots))
		if len(data.Snapshots) < PageSize {
			return nil
		}
		since, skip = nextTimestampWindow(since, skip, data.Snapshots, func(s *revenueSnapshotData) int64 {
			return s.Timestamp.Int64()
		})
	}
}
