package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type stabilityPoolsRepo basePostgresRepo

func NewStabilityPoolsRepo(table string, db *db.DB) entity.StabilityPoolsRepo {
	return (*stabilityPoolsRepo)(newBasePostgresRepo(table, db))
}

func (r *stabilityPoolsRepo) Upsert(ctx context.Context, pool *entity.StabilityPool) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", pool.ChainID).
		Key("address", normalizeAddress(pool.Address)).
		Set("total_deposited", pool.TotalDeposited).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert stability pool: %w", err)
	}
	return id, nil
}

func (r *stabilityPoolsRepo) GetByChainID(ctx context.Context, chainID int64) (*entity.StabilityPool, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		OrderBy("id").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	pool := new(entity.StabilityPool)
	err = r.db.GetContext(ctx, pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get stability pool: %w", err)
	}
	return pool, nil
}

type poolSnapshotsRepo basePostgresRepo

func NewPoolSnapshotsRepo(table string, db *db.DB) entity.PoolSnapshotsRepo {
	return (*poolSnapshotsRepo)(newBasePostgresRepo(table, db))
}

func (r *poolSnapshotsRepo) Upsert(ctx context.Context, snapshot *entity.PoolSnapshot) error {
	q, args, err := db.Upsert(r.table).
		Key("pool_id", snapshot.PoolID).
		Key("index", snapshot.Index).
		Key("block_timestamp", snapshot.BlockTimestamp).
		Set("total_deposited", snapshot.TotalDeposited).
		Set("total_collateral_withdrawn_usd", snapshot.TotalCollateralWithdrawnUSD).
		Set("block_number", snapshot.BlockNumber).
		Set("transaction_hash", snapshot.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert stability pool snapshot: %w", err)
	}
	return nil
}

type poolOperationsRepo basePostgresRepo

func NewPoolOperationsRepo(table string, db *db.DB) entity.PoolOperationsRepo {
	return (*poolOperationsRepo)(newBasePostgresRepo(table, db))
}

func (r *poolOperationsRepo) Upsert(ctx context.Context, op *entity.PoolOperation) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("pool_id", op.PoolID).
		Key("user_id", normalizeAddress(op.UserID)).
		Key("index", op.Index).
		Key("block_timestamp", op.BlockTimestamp).
		Set("operation", op.Operation).
		Set("stable_amount", op.StableAmount).
		Set("user_deposit", op.UserDeposit).
		Set("block_number", op.BlockNumber).
		Set("transaction_hash", op.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert stability pool operation: %w", err)
	}
	return id, nil
}

// FindRecent reports collateral withdrawals by their summed USD value and deposits by their stable amount.
func (r *poolOperationsRepo) FindRecent(ctx context.Context, poolID int64, limit, offset uint64) ([]*entity.PoolOperationView, error) {
	q, args, err := sq.Select(
		"op.user_id",
		"op.operation",
		"CASE WHEN op.operation = 'collateral_withdrawal' THEN COALESCE(SUM(cw.collateral_amount_usd), 0) ELSE op.stable_amount END AS amount",
		"op.transaction_hash",
		"op.block_timestamp",
	).
		From(r.table + " op").
		LeftJoin("collateral_withdrawals cw ON cw.operation_id = op.id").
		Where(sq.Eq{"op.pool_id": poolID}).
		GroupBy("op.id").
		OrderBy("op.block_timestamp DESC", "op.id DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	ops := make([]*entity.PoolOperationView, 0, limit)
	err = r.db.SelectContext(ctx, &ops, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select stability pool operations: %w", err)
	}
	return ops, nil
}

type collateralWithdrawalsRepo basePostgresRepo

func NewCollateralWithdrawalsRepo(table string, db *db.DB) entity.CollateralWithdrawalsRepo {
	return (*collateralWithdrawalsRepo)(newBasePostgresRepo(table, db))
}

func (r *collateralWithdrawalsRepo) Upsert(ctx context.Context, withdrawal *entity.CollateralWithdrawal) error {
	q, args, err := db.Upsert(r.table).
		Key("collateral_id", withdrawal.CollateralID).
		Key("operation_id", withdrawal.OperationID).
		Set("collateral_amount", withdrawal.CollateralAmount).
		Set("collateral_amount_usd", withdrawal.CollateralAmountUSD).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert collateral withdrawal: %w", err)
	}
	return nil
}
