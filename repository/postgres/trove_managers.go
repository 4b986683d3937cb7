package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type troveManagersRepo basePostgresRepo

func NewTroveManagersRepo(table string, db *db.DB) entity.TroveManagersRepo {
	return (*troveManagersRepo)(newBasePostgresRepo(table, db))
}

func (r *troveManagersRepo) Upsert(ctx context.Context, manager *entity.TroveManager) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", manager.ChainID).
		Key("address", normalizeAddress(manager.Address)).
		Set("collateral_id", manager.CollateralID).
		Set("price_feed", normalizeAddress(manager.PriceFeed)).
		Set("sunsetting", manager.Sunsetting).
		Set("block_number", manager.BlockNumber).
		Set("block_timestamp", manager.BlockTimestamp).
		Set("transaction_hash", manager.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert trove manager: %w", err)
	}
	return id, nil
}

func (r *troveManagersRepo) GetByChainIDAndAddress(ctx context.Context, chainID int64, address string) (*entity.TroveManager, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "address": normalizeAddress(address)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	manager := new(entity.TroveManager)
	err = r.db.GetContext(ctx, manager, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get trove manager: %w", err)
	}
	return manager, nil
}

func (r *troveManagersRepo) FindByChainID(ctx context.Context, chainID int64) ([]*entity.TroveManager, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	managers := make([]*entity.TroveManager, 0, 16)
	err = r.db.SelectContext(ctx, &managers, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select trove managers: %w", err)
	}
	return managers, nil
}

type troveManagerParametersRepo basePostgresRepo

func NewTroveManagerParametersRepo(table string, db *db.DB) entity.TroveManagerParametersRepo {
	return (*troveManagerParametersRepo)(newBasePostgresRepo(table, db))
}

func (r *troveManagerParametersRepo) Upsert(ctx context.Context, params *entity.TroveManagerParameters) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("manager_id", params.ManagerID).
		Key("block_timestamp", params.BlockTimestamp).
		Set("external_id", params.ExternalID).
		Set("minute_decay_factor", params.MinuteDecayFactor).
		Set("redemption_fee_floor", params.RedemptionFeeFloor).
		Set("max_redemption_fee", params.MaxRedemptionFee).
		Set("borrowing_fee_floor", params.BorrowingFeeFloor).
		Set("max_borrowing_fee", params.MaxBorrowingFee).
		Set("max_system_debt", params.MaxSystemDebt).
		Set("interest_rate", params.InterestRate).
		Set("mcr", params.MCR).
		Set("block_number", params.BlockNumber).
		Set("transaction_hash", params.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert trove manager parameters: %w", err)
	}
	return id, nil
}

type troveManagerSnapshotsRepo basePostgresRepo

func NewTroveManagerSnapshotsRepo(table string, db *db.DB) entity.TroveManagerSnapshotsRepo {
	return (*troveManagerSnapshotsRepo)(newBasePostgresRepo(table, db))
}

func (r *troveManagerSnapshotsRepo) Upsert(ctx context.Context, s *entity.TroveManagerSnapshot) error {
	q, args, err := db.Upsert(r.table).
		Key("manager_id", s.ManagerID).
		Key("index", s.Index).
		Key("block_timestamp", s.BlockTimestamp).
		Set("parameters_id", s.ParametersID).
		Set("collateral_price", s.CollateralPrice).
		Set("rate", s.Rate).
		Set("borrowing_fee", s.BorrowingFee).
		Set("collateral_ratio", s.CollateralRatio).
		Set("total_collateral", s.TotalCollateral).
		Set("total_collateral_usd", s.TotalCollateralUSD).
		Set("total_debt", s.TotalDebt).
		Set("total_stakes", s.TotalStakes).
		Set("total_borrowing_fees_paid", s.TotalBorrowingFeesPaid).
		Set("total_redemption_fees_paid", s.TotalRedemptionFeesPaid).
		Set("total_redemption_fees_paid_usd", s.TotalRedemptionFeesPaidUSD).
		Set("total_collateral_redistributed", s.TotalCollateralRedistributed).
		Set("total_collateral_redistributed_usd", s.TotalCollateralRedistributedUSD).
		Set("total_debt_redistributed", s.TotalDebtRedistributed).
		Set("open_troves", s.OpenTroves).
		Set("total_troves_opened", s.TotalTrovesOpened).
		Set("liquidated_troves", s.LiquidatedTroves).
		Set("total_troves_liquidated", s.TotalTrovesLiquidated).
		Set("redeemed_troves", s.RedeemedTroves).
		Set("total_troves_redeemed", s.TotalTrovesRedeemed).
		Set("closed_troves", s.ClosedTroves).
		Set("total_troves_closed", s.TotalTrovesClosed).
		Set("total_troves", s.TotalTroves).
		Set("block_number", s.BlockNumber).
		Set("transaction_hash", s.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert trove manager snapshot: %w", err)
	}
	return nil
}

// FindDetails joins the latest snapshot of every manager of the chain with its parameters.
func (r *troveManagerSnapshotsRepo) FindDetails(ctx context.Context, chainID int64, limit, offset uint64) ([]*entity.TroveManagerDetails, error) {
	latest := sq.Select("*").
		Options("DISTINCT ON (manager_id)").
		From(r.table).
		OrderBy("manager_id", "block_timestamp DESC", "index DESC")
	q, args, err := sq.Select(
		"c.symbol AS name",
		"m.address",
		"s.total_collateral_usd AS tvl",
		"s.total_debt AS debt",
		"COALESCE(p.max_system_debt, 0) AS debt_cap",
		"s.collateral_ratio AS cr",
		"COALESCE(p.mcr, 0) AS mcr",
		"COALESCE(p.interest_rate, 0) AS rate",
		"s.collateral_price AS price",
		"s.open_troves",
		"s.total_troves_closed AS closed_troves",
		"s.total_troves_liquidated AS liq_troves",
		"s.total_troves_redeemed AS red_troves",
	).
		FromSelect(latest, "s").
		Join("trove_managers m ON m.id = s.manager_id").
		Join("collaterals c ON c.id = m.collateral_id").
		LeftJoin("trove_manager_parameters p ON p.id = s.parameters_id").
		Where(sq.Eq{"m.chain_id": chainID}).
		OrderBy("tvl DESC", "m.address").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	details := make([]*entity.TroveManagerDetails, 0, limit)
	err = r.db.SelectContext(ctx, &details, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select trove manager details: %w", err)
	}
	return details, nil
}
