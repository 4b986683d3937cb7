package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

// User is a global account keyed by its lowercased address.
// Every importer writes only its own subset of columns.
type User struct {
	ID                       string          `db:"id"`
	Label                    *string         `db:"label"`
	TotalDeposited           decimal.Decimal `db:"total_deposited"`
	TotalCollateralGainedUSD decimal.Decimal `db:"total_collateral_gained_usd"`
	VoteCount                int64           `db:"vote_count"`
	LockBalance              decimal.Decimal `db:"lock_balance"`
	Frozen                   bool            `db:"frozen"`
	FrozenBalance            decimal.Decimal `db:"frozen_balance"`
	LatestFee                decimal.Decimal `db:"latest_fee"`
	Weight                   decimal.Decimal `db:"weight"`
	Timestamps
}

type UsersRepo interface {
	// Ensure creates the user if it does not exist yet, leaving existing rows untouched.
	Ensure(ctx context.Context, id string) error
	UpsertDepositor(ctx context.Context, user *User) error
	// UpsertLocker writes the locker account fields: latest fee, frozen balance and weight.
	UpsertLocker(ctx context.Context, user *User) error
	SetLabel(ctx context.Context, id string, label string) error
	GetByID(ctx context.Context, id string) (*User, error)
}
