package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type TroveManager struct {
	ID                  int64  `db:"id"`
	ChainID             int64  `db:"chain_id"`
	CollateralID        int64  `db:"collateral_id"`
	Address             string `db:"address"`
	PriceFeed           string `db:"price_feed"`
	Sunsetting          bool   `db:"sunsetting"`
	SnapshotsCount      uint64 `db:"snapshots_count"`
	TroveSnapshotsCount uint64 `db:"trove_snapshots_count"`
	Block
	Timestamps
}

// TroveManagerParameters values are stored as decimal fractions (raw value / 1e18).
type TroveManagerParameters struct {
	ID                 int64           `db:"id"`
	ManagerID          int64           `db:"manager_id"`
	ExternalID         string          `db:"external_id"`
	MinuteDecayFactor  decimal.Decimal `db:"minute_decay_factor"`
	RedemptionFeeFloor decimal.Decimal `db:"redemption_fee_floor"`
	MaxRedemptionFee   decimal.Decimal `db:"max_redemption_fee"`
	BorrowingFeeFloor  decimal.Decimal `db:"borrowing_fee_floor"`
	MaxBorrowingFee    decimal.Decimal `db:"max_borrowing_fee"`
	MaxSystemDebt      decimal.Decimal `db:"max_system_debt"`
	InterestRate       decimal.Decimal `db:"interest_rate"`
	MCR                decimal.Decimal `db:"mcr"`
	Block
	Timestamps
}

type TroveManagerSnapshot struct {
	ID                              int64           `db:"id"`
	ManagerID                       int64           `db:"manager_id"`
	ParametersID                    *int64          `db:"parameters_id"`
	Index                           int64           `db:"index"`
	CollateralPrice                 decimal.Decimal `db:"collateral_price"`
	Rate                            decimal.Decimal `db:"rate"`
	BorrowingFee                    decimal.Decimal `db:"borrowing_fee"`
	CollateralRatio                 decimal.Decimal `db:"collateral_ratio"`
	TotalCollateral                 decimal.Decimal `db:"total_collateral"`
	TotalCollateralUSD              decimal.Decimal `db:"total_collateral_usd"`
	TotalDebt                       decimal.Decimal `db:"total_debt"`
	TotalStakes                     decimal.Decimal `db:"total_stakes"`
	TotalBorrowingFeesPaid          decimal.Decimal `db:"total_borrowing_fees_paid"`
	TotalRedemptionFeesPaid         decimal.Decimal `db:"total_redemption_fees_paid"`
	TotalRedemptionFeesPaidUSD      decimal.Decimal `db:"total_redemption_fees_paid_usd"`
	TotalCollateralRedistributed    decimal.Decimal `db:"total_collateral_redistributed"`
	TotalCollateralRedistributedUSD decimal.Decimal `db:"total_collateral_redistributed_usd"`
	TotalDebtRedistributed          decimal.Decimal `db:"total_debt_redistributed"`
	OpenTroves                      int64           `db:"open_troves"`
	TotalTrovesOpened               int64           `db:"total_troves_opened"`
	LiquidatedTroves                int64           `db:"liquidated_troves"`
	TotalTrovesLiquidated           int64           `db:"total_troves_liquidated"`
	RedeemedTroves                  int64           `db:"redeemed_troves"`
	TotalTrovesRedeemed             int64           `db:"total_troves_redeemed"`
	ClosedTroves                    int64           `db:"closed_troves"`
	TotalTrovesClosed               int64           `db:"total_troves_closed"`
	TotalTroves                     int64           `db:"total_troves"`
	Block
	Timestamps
}

// TroveManagerDetails is the per-market overview pushed to dashboards.
type TroveManagerDetails struct {
	Name         string          `db:"name" json:"name"`
	Address      string          `db:"address" json:"address"`
	TVL          decimal.Decimal `db:"tvl" json:"tvl"`
	Debt         decimal.Decimal `db:"debt" json:"debt"`
	DebtCap      decimal.Decimal `db:"debt_cap" json:"debt_cap"`
	CR           decimal.Decimal `db:"cr" json:"cr"`
	MCR          decimal.Decimal `db:"mcr" json:"mcr"`
	Rate         decimal.Decimal `db:"rate" json:"rate"`
	Price        decimal.Decimal `db:"price" json:"price"`
	OpenTroves   int64           `db:"open_troves" json:"open_troves"`
	ClosedTroves int64           `db:"closed_troves" json:"closed_troves"`
	LiqTroves    int64           `db:"liq_troves" json:"liq_troves"`
	RedTroves    int64           `db:"red_troves" json:"red_troves"`
}

type TroveManagersRepo interface {
	// Upsert writes manager attributes and returns the row id. Counters are owned by CursorsRepo.
	Upsert(ctx context.Context, manager *TroveManager) (int64, error)
	GetByChainIDAndAddress(ctx context.Context, chainID int64, address string) (*TroveManager, error)
	FindByChainID(ctx context.Context, chainID int64) ([]*TroveManager, error)
}

type TroveManagerParametersRepo interface {
	Upsert(ctx context.Context, params *TroveManagerParameters) (int64, error)
}

type TroveManagerSnapshotsRepo interface {
	Upsert(ctx context.Context, snapshot *TroveManagerSnapshot) error
	FindDetails(ctx context.Context, chainID int64, limit, offset uint64) ([]*TroveManagerDetails, error)
}
