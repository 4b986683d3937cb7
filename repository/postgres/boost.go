package postgres

import (
	"context"
	"fmt"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type weeklyBoostsRepo basePostgresRepo

func NewWeeklyBoostsRepo(table string, db *db.DB) entity.WeeklyBoostsRepo {
	return (*weeklyBoostsRepo)(newBasePostgresRepo(table, db))
}

func (r *weeklyBoostsRepo) Upsert(ctx context.Context, b *entity.WeeklyBoost) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", b.ChainID).
		Key("user_id", normalizeAddress(b.UserID)).
		Key("week", b.Week).
		Set("boost", b.Boost).
		Set("pct", b.Pct).
		Set("last_applied_fee", b.LastAppliedFee).
		Set("non_locking_fee", b.NonLockingFee).
		Set("boost_delegation", b.BoostDelegation).
		Set("boost_delegation_users", b.BoostDelegationUsers).
		Set("eligible_for", b.EligibleFor).
		Set("total_claimed", b.TotalClaimed).
		Set("self_claimed", b.SelfClaimed).
		Set("other_claimed", b.OtherClaimed).
		Set("accrued_fees", b.AccruedFees).
		Set("time_to_depletion", b.TimeToDepletion).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert weekly boost: %w", err)
	}
	return nil
}

func (r *weeklyBoostsRepo) LatestWeek(ctx context.Context, chainID int64) (int64, error) {
	return latestWeek(ctx, (*basePostgresRepo)(r), chainID)
}

type batchRewardClaimsRepo basePostgresRepo

func NewBatchRewardClaimsRepo(table string, db *db.DB) entity.BatchRewardClaimsRepo {
	return (*batchRewardClaimsRepo)(newBasePostgresRepo(table, db))
}

func (r *batchRewardClaimsRepo) Upsert(ctx context.Context, c *entity.BatchRewardClaim) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", c.ChainID).
		Key("week", c.Week).
		Key("caller_id", normalizeAddress(c.CallerID)).
		Key("delegate_id", normalizeAddress(c.DelegateID)).
		Key("index", c.Index).
		Set("receiver_id", normalizeAddress(c.ReceiverID)).
		Set("total_claimed", c.TotalClaimed).
		Set("total_claimed_boosted", c.TotalClaimedBoosted).
		Set("delegate_remaining_eligible", c.DelegateRemainingEligible).
		Set("max_fee", c.MaxFee).
		Set("fee_generated", c.FeeGenerated).
		Set("fee_applied", c.FeeApplied).
		Set("block_number", c.BlockNumber).
		Set("block_timestamp", c.BlockTimestamp).
		Set("transaction_hash", c.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert batch reward claim: %w", err)
	}
	return nil
}
