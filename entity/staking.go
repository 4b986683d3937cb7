package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

// StakingContract is keyed by its lowercased address.
type StakingContract struct {
	ID            string          `db:"id"`
	ChainID       int64           `db:"chain_id"`
	TokenBalance  decimal.Decimal `db:"token_balance"`
	TVL           decimal.Decimal `db:"tvl"`
	DepositCount  uint64          `db:"deposit_count"`
	WithdrawCount uint64          `db:"withdraw_count"`
	PayoutCount   uint64          `db:"payout_count"`
	SnapshotCount uint64          `db:"snapshot_count"`
	Timestamps
}

type StakeEvent struct {
	ID        int64           `db:"id"`
	StakingID string          `db:"staking_id"`
	UserID    string          `db:"user_id"`
	Operation StakeOperation  `db:"operation"`
	Index     int64           `db:"index"`
	Amount    decimal.Decimal `db:"amount"`
	AmountUSD decimal.Decimal `db:"amount_usd"`
	Block
	Timestamps
}

type RewardPayout struct {
	ID           int64           `db:"id"`
	StakingID    string          `db:"staking_id"`
	UserID       string          `db:"user_id"`
	Index        int64           `db:"index"`
	TokenAddress string          `db:"token_address"`
	TokenSymbol  string          `db:"token_symbol"`
	Amount       decimal.Decimal `db:"amount"`
	AmountUSD    decimal.Decimal `db:"amount_usd"`
	Block
	Timestamps
}

type StakingBalance struct {
	ID        int64           `db:"id"`
	StakingID string          `db:"staking_id"`
	UserID    string          `db:"user_id"`
	StakeSize decimal.Decimal `db:"stake_size"`
	Timestamp int64           `db:"timestamp"`
	Timestamps
}

type AprComponent struct {
	Token string          `json:"token"`
	Apr   decimal.Decimal `json:"apr"`
}

type StakingSnapshotRecord struct {
	ID           int64           `db:"id"`
	StakingID    string          `db:"staking_id"`
	TokenBalance decimal.Decimal `db:"token_balance"`
	TokenSupply  decimal.Decimal `db:"token_supply"`
	TVL          decimal.Decimal `db:"tvl"`
	TotalApr     decimal.Decimal `db:"total_apr"`
	AprBreakdown JSON            `db:"apr_breakdown"`
	Timestamp    int64           `db:"timestamp"`
	Timestamps
}

type StakingContractsRepo interface {
	// Upsert writes contract attributes. Counters are owned by CursorsRepo.
	Upsert(ctx context.Context, contract *StakingContract) error
}

type StakeEventsRepo interface {
	Upsert(ctx context.Context, event *StakeEvent) error
}

type RewardPayoutsRepo interface {
	Upsert(ctx context.Context, payout *RewardPayout) error
}

type StakingBalancesRepo interface {
	Upsert(ctx context.Context, balance *StakingBalance) error
}

type StakingSnapshotsRepo interface {
	Upsert(ctx context.Context, snapshot *StakingSnapshotRecord) error
}
