package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

// Trove holds the latest state of a position, keyed by (manager, owner).
type Trove struct {
	ID                       int64            `db:"id"`
	ManagerID                int64            `db:"manager_id"`
	OwnerID                  string           `db:"owner_id"`
	Status                   TroveStatus      `db:"status"`
	SnapshotsCount           int64            `db:"snapshots_count"`
	Collateral               decimal.Decimal  `db:"collateral"`
	CollateralUSD            decimal.Decimal  `db:"collateral_usd"`
	CollateralRatio          *decimal.Decimal `db:"collateral_ratio"`
	Debt                     decimal.Decimal  `db:"debt"`
	Stake                    decimal.Decimal  `db:"stake"`
	RewardSnapshotCollateral decimal.Decimal  `db:"reward_snapshot_collateral"`
	RewardSnapshotDebt       decimal.Decimal  `db:"reward_snapshot_debt"`
	Timestamps
}

type TroveSnapshot struct {
	ID              int64            `db:"id"`
	TroveID         int64            `db:"trove_id"`
	LiquidationID   *int64           `db:"liquidation_id"`
	RedemptionID    *int64           `db:"redemption_id"`
	Index           int64            `db:"index"`
	Operation       TroveOperation   `db:"operation"`
	Collateral      decimal.Decimal  `db:"collateral"`
	CollateralUSD   decimal.Decimal  `db:"collateral_usd"`
	CollateralRatio *decimal.Decimal `db:"collateral_ratio"`
	Debt            decimal.Decimal  `db:"debt"`
	Stake           decimal.Decimal  `db:"stake"`
	BorrowingFee    decimal.Decimal  `db:"borrowing_fee"`
	Block
	Timestamps
}

type Liquidation struct {
	ID                      int64           `db:"id"`
	ChainID                 int64           `db:"chain_id"`
	LiquidatorID            string          `db:"liquidator_id"`
	ExternalID              string          `db:"external_id"`
	LiquidatedDebt          decimal.Decimal `db:"liquidated_debt"`
	LiquidatedCollateral    decimal.Decimal `db:"liquidated_collateral"`
	LiquidatedCollateralUSD decimal.Decimal `db:"liquidated_collateral_usd"`
	CollGasCompensation     decimal.Decimal `db:"coll_gas_compensation"`
	CollGasCompensationUSD  decimal.Decimal `db:"coll_gas_compensation_usd"`
	DebtGasCompensation     decimal.Decimal `db:"debt_gas_compensation"`
	Block
	Timestamps
}

type Redemption struct {
	ID                          int64           `db:"id"`
	ChainID                     int64           `db:"chain_id"`
	RedeemerID                  string          `db:"redeemer_id"`
	ExternalID                  string          `db:"external_id"`
	AttemptedDebtAmount         decimal.Decimal `db:"attempted_debt_amount"`
	ActualDebtAmount            decimal.Decimal `db:"actual_debt_amount"`
	CollateralSent              decimal.Decimal `db:"collateral_sent"`
	CollateralSentUSD           decimal.Decimal `db:"collateral_sent_usd"`
	CollateralSentToRedeemer    decimal.Decimal `db:"collateral_sent_to_redeemer"`
	CollateralSentToRedeemerUSD decimal.Decimal `db:"collateral_sent_to_redeemer_usd"`
	CollateralFee               decimal.Decimal `db:"collateral_fee"`
	CollateralFeeUSD            decimal.Decimal `db:"collateral_fee_usd"`
	Block
	Timestamps
}

// TroveOperationView is a trove snapshot joined with its trove, as shown on dashboards.
type TroveOperationView struct {
	OwnerID         string          `db:"owner_id" json:"owner"`
	Operation       TroveOperation  `db:"operation" json:"operation"`
	CollateralUSD   decimal.Decimal `db:"collateral_usd" json:"collateral_usd"`
	Debt            decimal.Decimal `db:"debt" json:"debt"`
	BlockTimestamp  int64           `db:"block_timestamp" json:"timestamp"`
	TransactionHash string          `db:"transaction_hash" json:"hash"`
}

type TroveOrder string

const (
	TroveOrderCollateralUSD   TroveOrder = "collateral_usd"
	TroveOrderDebt            TroveOrder = "debt"
	TroveOrderCollateralRatio TroveOrder = "collateral_ratio"
	TroveOrderUpdatedAt       TroveOrder = "last_update"
)

type TrovesFilter struct {
	ManagerID int64
	Status    *TroveStatus
	OrderBy   TroveOrder
	Desc      bool
	Limit     uint64
	Offset    uint64
}

type TrovesRepo interface {
	Upsert(ctx context.Context, trove *Trove) (int64, error)
	Find(ctx context.Context, filter *TrovesFilter) ([]*Trove, error)
}

type TroveSnapshotsRepo interface {
	Upsert(ctx context.Context, snapshot *TroveSnapshot) error
	FindOperations(ctx context.Context, managerID int64, limit, offset uint64) ([]*TroveOperationView, error)
}

type LiquidationsRepo interface {
	Upsert(ctx context.Context, liquidation *Liquidation) (int64, error)
}

type RedemptionsRepo interface {
	Upsert(ctx context.Context, redemption *Redemption) (int64, error)
}
