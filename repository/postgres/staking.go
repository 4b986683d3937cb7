package postgres

import (
	"context"
	"fmt"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type stakingContractsRepo basePostgresRepo

func NewStakingContractsRepo(table string, db *db.DB) entity.StakingContractsRepo {
	return (*stakingContractsRepo)(newBasePostgresRepo(table, db))
}

func (r *stakingContractsRepo) Upsert(ctx context.Context, c *entity.StakingContract) error {
	q, args, err := db.Upsert(r.table).
		Key("id", normalizeAddress(c.ID)).
		Set("chain_id", c.ChainID).
		Set("token_balance", c.TokenBalance).
		Set("tvl", c.TVL).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert staking contract: %w", err)
	}
	return nil
}

type stakeEventsRepo basePostgresRepo

func NewStakeEventsRepo(table string, db *db.DB) entity.StakeEventsRepo {
	return (*stakeEventsRepo)(newBasePostgresRepo(table, db))
}

func (r *stakeEventsRepo) Upsert(ctx context.Context, e *entity.StakeEvent) error {
	q, args, err := db.Upsert(r.table).
		Key("staking_id", normalizeAddress(e.StakingID)).
		Key("user_id", normalizeAddress(e.UserID)).
		Key("index", e.Index).
		Key("operation", e.Operation).
		Set("amount", e.Amount).
		Set("amount_usd", e.AmountUSD).
		Set("block_number", e.BlockNumber).
		Set("block_timestamp", e.BlockTimestamp).
		Set("transaction_hash", e.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert stake event: %w", err)
	}
	return nil
}

type rewardPayoutsRepo basePostgresRepo

func NewRewardPayoutsRepo(table string, db *db.DB) entity.RewardPayoutsRepo {
	return (*rewardPayoutsRepo)(newBasePostgresRepo(table, db))
}

func (r *rewardPayoutsRepo) Upsert(ctx context.Context, p *entity.RewardPayout) error {
	q, args, err := db.Upsert(r.table).
		Key("staking_id", normalizeAddress(p.StakingID)).
		Key("user_id", normalizeAddress(p.UserID)).
		Key("index", p.Index).
		Set("token_address", normalizeAddress(p.TokenAddress)).
		Set("token_symbol", p.TokenSymbol).
		Set("amount", p.Amount).
		Set("amount_usd", p.AmountUSD).
		Set("block_number", p.BlockNumber).
		Set("block_timestamp", p.BlockTimestamp).
		Set("transaction_hash", p.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert reward payout: %w", err)
	}
	return nil
}

type stakingBalancesRepo basePostgresRepo

func NewStakingBalancesRepo(table string, db *db.DB) entity.StakingBalancesRepo {
	return (*stakingBalancesRepo)(newBasePostgresRepo(table, db))
}

func (r *stakingBalancesRepo) Upsert(ctx context.Context, b *entity.StakingBalance) error {
	q, args, err := db.Upsert(r.table).
		Key("staking_id", normalizeAddress(b.StakingID)).
		Key("user_id", normalizeAddress(b.UserID)).
		Key("timestamp", b.Timestamp).
		Set("stake_size", b.StakeSize).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert staking balance: %w", err)
	}
	return nil
}

type stakingSnapshotsRepo basePostgresRepo

func NewStakingSnapshotsRepo(table string, db *db.DB) entity.StakingSnapshotsRepo {
	return (*stakingSnapshotsRepo)(newBasePostgresRepo(table, db))
}

func (r *stakingSnapshotsRepo) Upsert(ctx context.Context, s *entity.StakingSnapshotRecord) error {
	q, args, err := db.Upsert(r.table).
		Key("staking_id", normalizeAddress(s.StakingID)).
		Key("timestamp", s.Timestamp).
		Set("token_balance", s.TokenBalance).
		Set("token_supply", s.TokenSupply).
		Set("tvl", s.TVL).
		Set("total_apr", s.TotalApr).
		Set("apr_breakdown", s.AprBreakdown).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert staking snapshot: %w", err)
	}
	return nil
}
