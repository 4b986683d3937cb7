package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type RevenueSnapshot struct {
	ID                       int64           `db:"id"`
	ChainID                  int64           `db:"chain_id"`
	UnlockPenaltyRevenueUSD  decimal.Decimal `db:"unlock_penalty_revenue_usd"`
	BorrowingFeesRevenueUSD  decimal.Decimal `db:"borrowing_fees_revenue_usd"`
	RedemptionFeesRevenueUSD decimal.Decimal `db:"redemption_fees_revenue_usd"`
	Timestamp                int64           `db:"timestamp"`
	Timestamps
}

type RevenueSnapshotsRepo interface {
	Upsert(ctx context.Context, snapshot *RevenueSnapshot) error
	LatestTimestamp(ctx context.Context, chainID int64) (int64, error)
}
