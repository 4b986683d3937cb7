package memory

import (
	"context"

	"github.com/prisma-monitor/indexer/entity"
)

type stakingContractsRepo Store

func (r *stakingContractsRepo) Upsert(_ context.Context, c *entity.StakingContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := entity.StakingContract{
		ID:           addr(c.ID),
		ChainID:      c.ChainID,
		TokenBalance: c.TokenBalance,
		TVL:          c.TVL,
	}
	upsert(r.contracts, row.ID, &row, func(stored, row *entity.StakingContract) {
		stored.ChainID = row.ChainID
		stored.TokenBalance = row.TokenBalance
		stored.TVL = row.TVL
	})
	return nil
}

type stakeEventsRepo Store

func (r *stakeEventsRepo) Upsert(_ context.Context, e *entity.StakeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *e
	row.StakingID, row.UserID = addr(row.StakingID), addr(row.UserID)
	stored, inserted := upsert(r.stakeEvents, key(row.StakingID, row.UserID, row.Index, row.Operation), &row, func(stored, row *entity.StakeEvent) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type rewardPayoutsRepo Store

func (r *rewardPayoutsRepo) Upsert(_ context.Context, p *entity.RewardPayout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *p
	row.StakingID, row.UserID, row.TokenAddress = addr(row.StakingID), addr(row.UserID), addr(row.TokenAddress)
	stored, inserted := upsert(r.payouts, key(row.StakingID, row.UserID, row.Index), &row, func(stored, row *entity.RewardPayout) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type stakingBalancesRepo Store

func (r *stakingBalancesRepo) Upsert(_ context.Context, b *entity.StakingBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *b
	row.StakingID, row.UserID = addr(row.StakingID), addr(row.UserID)
	stored, inserted := upsert(r.balances, key(row.StakingID, row.UserID, row.Timestamp), &row, func(stored, row *entity.StakingBalance) {
		stored.StakeSize = row.StakeSize
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type stakingSnapshotsRepo Store

func (r *stakingSnapshotsRepo) Upsert(_ context.Context, s *entity.StakingSnapshotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *s
	row.StakingID = addr(row.StakingID)
	stored, inserted := upsert(r.stakingSnaps, key(row.StakingID, row.Timestamp), &row, func(stored, row *entity.StakingSnapshotRecord) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}
