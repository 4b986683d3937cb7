package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type collateralsRepo basePostgresRepo

func NewCollateralsRepo(table string, db *db.DB) entity.CollateralsRepo {
	return (*collateralsRepo)(newBasePostgresRepo(table, db))
}

func (r *collateralsRepo) Upsert(ctx context.Context, collateral *entity.Collateral) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", collateral.ChainID).
		Key("address", normalizeAddress(collateral.Address)).
		Set("stability_pool_id", collateral.StabilityPoolID).
		Set("name", collateral.Name).
		Set("symbol", collateral.Symbol).
		Set("decimals", collateral.Decimals).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert collateral: %w", err)
	}
	return id, nil
}

func (r *collateralsRepo) SetLatestPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	q, args, err := sq.Update(r.table).
		Set("updated_at", sq.Expr("NOW()")).
		Set("latest_price", price).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't update collateral price: %w", err)
	}
	return nil
}

func (r *collateralsRepo) GetByChainIDAndAddress(ctx context.Context, chainID int64, address string) (*entity.Collateral, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "address": normalizeAddress(address)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	collateral := new(entity.Collateral)
	err = r.db.GetContext(ctx, collateral, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get collateral: %w", err)
	}
	return collateral, nil
}

func (r *collateralsRepo) FindByChainID(ctx context.Context, chainID int64) ([]*entity.Collateral, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	collaterals := make([]*entity.Collateral, 0, 16)
	err = r.db.SelectContext(ctx, &collaterals, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select collaterals: %w", err)
	}
	return collaterals, nil
}

type priceRecordsRepo basePostgresRepo

func NewPriceRecordsRepo(table string, db *db.DB) entity.PriceRecordsRepo {
	return (*priceRecordsRepo)(newBasePostgresRepo(table, db))
}

func (r *priceRecordsRepo) Upsert(ctx context.Context, record *entity.PriceRecord) error {
	q, args, err := db.Upsert(r.table).
		Key("collateral_id", record.CollateralID).
		Key("block_timestamp", record.BlockTimestamp).
		Set("price", record.Price).
		Set("block_number", record.BlockNumber).
		Set("transaction_hash", record.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert price record: %w", err)
	}
	return nil
}

func (r *priceRecordsRepo) LatestTimestamp(ctx context.Context, collateralID int64) (int64, error) {
	q, args, err := sq.Select("COALESCE(MAX(block_timestamp), 0)").
		From(r.table).
		Where(sq.Eq{"collateral_id": collateralID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var ts int64
	err = r.db.GetContext(ctx, &ts, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't get latest price record timestamp: %w", err)
	}
	return ts, nil
}

type zapStakesRepo basePostgresRepo

func NewZapStakesRepo(table string, db *db.DB) entity.ZapStakesRepo {
	return (*zapStakesRepo)(newBasePostgresRepo(table, db))
}

func (r *zapStakesRepo) Upsert(ctx context.Context, stake *entity.ZapStake) error {
	q, args, err := db.Upsert(r.table).
		Key("collateral_id", stake.CollateralID).
		Key("index", stake.Index).
		Key("block_timestamp", stake.BlockTimestamp).
		Set("amount", stake.Amount).
		Set("block_number", stake.BlockNumber).
		Set("transaction_hash", stake.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert zap stake: %w", err)
	}
	return nil
}

func (r *zapStakesRepo) NextIndex(ctx context.Context, chainID int64) (int64, error) {
	q, args, err := sq.Select("COALESCE(MAX(z.index) + 1, 0)").
		From(r.table + " z").
		Join("collaterals c ON c.id = z.collateral_id").
		Where(sq.Eq{"c.chain_id": chainID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var next int64
	err = r.db.GetContext(ctx, &next, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't get next zap stake index: %w", err)
	}
	return next, nil
}
