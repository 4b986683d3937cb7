package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

var troveOrderColumns = map[entity.TroveOrder]string{
	entity.TroveOrderCollateralUSD:   "collateral_usd",
	entity.TroveOrderDebt:            "debt",
	entity.TroveOrderCollateralRatio: "collateral_ratio",
	entity.TroveOrderUpdatedAt:       "updated_at",
}

type trovesRepo basePostgresRepo

func NewTrovesRepo(table string, db *db.DB) entity.TrovesRepo {
	return (*trovesRepo)(newBasePostgresRepo(table, db))
}

func (r *trovesRepo) Upsert(ctx context.Context, trove *entity.Trove) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("manager_id", trove.ManagerID).
		Key("owner_id", normalizeAddress(trove.OwnerID)).
		Set("status", trove.Status).
		Set("snapshots_count", trove.SnapshotsCount).
		Set("collateral", trove.Collateral).
		Set("collateral_usd", trove.CollateralUSD).
		Set("collateral_ratio", trove.CollateralRatio).
		Set("debt", trove.Debt).
		Set("stake", trove.Stake).
		Set("reward_snapshot_collateral", trove.RewardSnapshotCollateral).
		Set("reward_snapshot_debt", trove.RewardSnapshotDebt).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert trove: %w", err)
	}
	return id, nil
}

func (r *trovesRepo) Find(ctx context.Context, filter *entity.TrovesFilter) ([]*entity.Trove, error) {
	col, ok := troveOrderColumns[filter.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unsupported trove order %q", filter.OrderBy)
	}
	order := col + " ASC NULLS FIRST"
	if filter.Desc {
		order = col + " DESC NULLS LAST"
	}
	cond := sq.Eq{"manager_id": filter.ManagerID}
	if filter.Status != nil {
		cond["status"] = *filter.Status
	}
	q, args, err := sq.Select("*").
		From(r.table).
		Where(cond).
		OrderBy(order, "id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	troves := make([]*entity.Trove, 0, filter.Limit)
	err = r.db.SelectContext(ctx, &troves, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select troves: %w", err)
	}
	return troves, nil
}

type troveSnapshotsRepo basePostgresRepo

func NewTroveSnapshotsRepo(table string, db *db.DB) entity.TroveSnapshotsRepo {
	return (*troveSnapshotsRepo)(newBasePostgresRepo(table, db))
}

func (r *troveSnapshotsRepo) Upsert(ctx context.Context, s *entity.TroveSnapshot) error {
	q, args, err := db.Upsert(r.table).
		Key("trove_id", s.TroveID).
		Key("index", s.Index).
		Key("block_timestamp", s.BlockTimestamp).
		Set("liquidation_id", s.LiquidationID).
		Set("redemption_id", s.RedemptionID).
		Set("operation", s.Operation).
		Set("collateral", s.Collateral).
		Set("collateral_usd", s.CollateralUSD).
		Set("collateral_ratio", s.CollateralRatio).
		Set("debt", s.Debt).
		Set("stake", s.Stake).
		Set("borrowing_fee", s.BorrowingFee).
		Set("block_number", s.BlockNumber).
		Set("transaction_hash", s.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert trove snapshot: %w", err)
	}
	return nil
}

func (r *troveSnapshotsRepo) FindOperations(ctx context.Context, managerID int64, limit, offset uint64) ([]*entity.TroveOperationView, error) {
	q, args, err := sq.Select(
		"t.owner_id",
		"s.operation",
		"s.collateral_usd",
		"s.debt",
		"s.block_timestamp",
		"s.transaction_hash",
	).
		From(r.table + " s").
		Join("troves t ON t.id = s.trove_id").
		Where(sq.Eq{"t.manager_id": managerID}).
		OrderBy("s.block_timestamp DESC", "s.index DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	ops := make([]*entity.TroveOperationView, 0, limit)
	err = r.db.SelectContext(ctx, &ops, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select trove operations: %w", err)
	}
	return ops, nil
}

type liquidationsRepo basePostgresRepo

func NewLiquidationsRepo(table string, db *db.DB) entity.LiquidationsRepo {
	return (*liquidationsRepo)(newBasePostgresRepo(table, db))
}

func (r *liquidationsRepo) Upsert(ctx context.Context, l *entity.Liquidation) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", l.ChainID).
		Key("liquidator_id", normalizeAddress(l.LiquidatorID)).
		Key("block_timestamp", l.BlockTimestamp).
		Set("external_id", l.ExternalID).
		Set("liquidated_debt", l.LiquidatedDebt).
		Set("liquidated_collateral", l.LiquidatedCollateral).
		Set("liquidated_collateral_usd", l.LiquidatedCollateralUSD).
		Set("coll_gas_compensation", l.CollGasCompensation).
		Set("coll_gas_compensation_usd", l.CollGasCompensationUSD).
		Set("debt_gas_compensation", l.DebtGasCompensation).
		Set("block_number", l.BlockNumber).
		Set("transaction_hash", l.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert liquidation: %w", err)
	}
	return id, nil
}

type redemptionsRepo basePostgresRepo

func NewRedemptionsRepo(table string, db *db.DB) entity.RedemptionsRepo {
	return (*redemptionsRepo)(newBasePostgresRepo(table, db))
}

func (r *redemptionsRepo) Upsert(ctx context.Context, rd *entity.Redemption) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", rd.ChainID).
		Key("redeemer_id", normalizeAddress(rd.RedeemerID)).
		Key("block_timestamp", rd.BlockTimestamp).
		Set("external_id", rd.ExternalID).
		Set("attempted_debt_amount", rd.AttemptedDebtAmount).
		Set("actual_debt_amount", rd.ActualDebtAmount).
		Set("collateral_sent", rd.CollateralSent).
		Set("collateral_sent_usd", rd.CollateralSentUSD).
		Set("collateral_sent_to_redeemer", rd.CollateralSentToRedeemer).
		Set("collateral_sent_to_redeemer_usd", rd.CollateralSentToRedeemerUSD).
		Set("collateral_fee", rd.CollateralFee).
		Set("collateral_fee_usd", rd.CollateralFeeUSD).
		Set("block_number", rd.BlockNumber).
		Set("transaction_hash", rd.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert redemption: %w", err)
	}
	return id, nil
}
