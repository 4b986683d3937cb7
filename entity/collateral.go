package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type Collateral struct {
	ID              int64           `db:"id"`
	ChainID         int64           `db:"chain_id"`
	StabilityPoolID *int64          `db:"stability_pool_id"`
	Address         string          `db:"address"`
	Name            string          `db:"name"`
	Symbol          string          `db:"symbol"`
	Decimals        int             `db:"decimals"`
	LatestPrice     decimal.Decimal `db:"latest_price"`
	Timestamps
}

type PriceRecord struct {
	ID           int64           `db:"id"`
	CollateralID int64           `db:"collateral_id"`
	Price        decimal.Decimal `db:"price"`
	Block
	Timestamps
}

type ZapStake struct {
	ID           int64           `db:"id"`
	CollateralID int64           `db:"collateral_id"`
	Index        int64           `db:"index"`
	Amount       decimal.Decimal `db:"amount"`
	Block
	Timestamps
}

type CollateralsRepo interface {
	// Upsert writes descriptive attributes only; latest_price is the price gate cursor.
	Upsert(ctx context.Context, collateral *Collateral) (int64, error)
	SetLatestPrice(ctx context.Context, id int64, price decimal.Decimal) error
	GetByChainIDAndAddress(ctx context.Context, chainID int64, address string) (*Collateral, error)
	FindByChainID(ctx context.Context, chainID int64) ([]*Collateral, error)
}

type PriceRecordsRepo interface {
	Upsert(ctx context.Context, record *PriceRecord) error
	// LatestTimestamp returns 0 when the collateral has no records.
	LatestTimestamp(ctx context.Context, collateralID int64) (int64, error)
}

type ZapStakesRepo interface {
	Upsert(ctx context.Context, stake *ZapStake) error
	// NextIndex returns the index following the highest stored zap stake of the chain.
	NextIndex(ctx context.Context, chainID int64) (int64, error)
}
