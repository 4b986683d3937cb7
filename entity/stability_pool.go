package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type StabilityPool struct {
	ID              int64           `db:"id"`
	ChainID         int64           `db:"chain_id"`
	Address         string          `db:"address"`
	TotalDeposited  decimal.Decimal `db:"total_deposited"`
	SnapshotsCount  uint64          `db:"snapshots_count"`
	OperationsCount uint64          `db:"operations_count"`
	Timestamps
}

type PoolSnapshot struct {
	ID                          int64           `db:"id"`
	PoolID                      int64           `db:"pool_id"`
	Index                       int64           `db:"index"`
	TotalDeposited              decimal.Decimal `db:"total_deposited"`
	TotalCollateralWithdrawnUSD decimal.Decimal `db:"total_collateral_withdrawn_usd"`
	Block
	Timestamps
}

type PoolOperation struct {
	ID           int64             `db:"id"`
	PoolID       int64             `db:"pool_id"`
	UserID       string            `db:"user_id"`
	Index        int64             `db:"index"`
	Operation    PoolOperationType `db:"operation"`
	StableAmount decimal.Decimal   `db:"stable_amount"`
	UserDeposit  decimal.Decimal   `db:"user_deposit"`
	Block
	Timestamps
}

type CollateralWithdrawal struct {
	ID                  int64           `db:"id"`
	CollateralID        int64           `db:"collateral_id"`
	OperationID         int64           `db:"operation_id"`
	CollateralAmount    decimal.Decimal `db:"collateral_amount"`
	CollateralAmountUSD decimal.Decimal `db:"collateral_amount_usd"`
	Timestamps
}

// PoolOperationView is a stability pool operation with its withdrawals summed up.
type PoolOperationView struct {
	UserID          string            `db:"user_id" json:"user"`
	Operation       PoolOperationType `db:"operation" json:"operation"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"`
	TransactionHash string            `db:"transaction_hash" json:"hash"`
	BlockTimestamp  int64             `db:"block_timestamp" json:"timestamp"`
}

type StabilityPoolsRepo interface {
	// Upsert writes pool attributes and returns the row id. Counters are owned by CursorsRepo.
	Upsert(ctx context.Context, pool *StabilityPool) (int64, error)
	GetByChainID(ctx context.Context, chainID int64) (*StabilityPool, error)
}

type PoolSnapshotsRepo interface {
	Upsert(ctx context.Context, snapshot *PoolSnapshot) error
}

type PoolOperationsRepo interface {
	Upsert(ctx context.Context, op *PoolOperation) (int64, error)
	FindRecent(ctx context.Context, poolID int64, limit, offset uint64) ([]*PoolOperationView, error)
}

type CollateralWithdrawalsRepo interface {
	Upsert(ctx context.Context, withdrawal *CollateralWithdrawal) error
}
