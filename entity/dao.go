package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type OwnershipProposal struct {
	ID              int64           `db:"id"`
	ChainID         int64           `db:"chain_id"`
	CreatorID       string          `db:"creator_id"`
	ExternalID      string          `db:"external_id"`
	Index           int64           `db:"index"`
	Status          ProposalStatus  `db:"status"`
	Data            JSON            `db:"data"`
	DecodeData      string          `db:"decode_data"`
	Week            int64           `db:"week"`
	RequiredWeight  decimal.Decimal `db:"required_weight"`
	ReceivedWeight  decimal.Decimal `db:"received_weight"`
	CanExecuteAfter int64           `db:"can_execute_after"`
	VoteCount       int64           `db:"vote_count"`
	ExecutionTx     *string         `db:"execution_tx"`
	Block
	Timestamps
}

type OwnershipVote struct {
	ID            int64           `db:"id"`
	ProposalID    int64           `db:"proposal_id"`
	VoterID       string          `db:"voter_id"`
	Index         int64           `db:"index"`
	Weight        decimal.Decimal `db:"weight"`
	AccountWeight decimal.Decimal `db:"account_weight"`
	Decisive      bool            `db:"decisive"`
	Block
	Timestamps
}

type IncentiveReceiver struct {
	ID       int64  `db:"id"`
	ChainID  int64  `db:"chain_id"`
	Address  string `db:"address"`
	Index    int64  `db:"index"`
	IsActive bool   `db:"is_active"`
	Timestamps
}

// IncentiveVote is the audit log of incentive votes. TargetID is 0 for a clearance without new votes.
type IncentiveVote struct {
	ID          int64  `db:"id"`
	ChainID     int64  `db:"chain_id"`
	VoterID     string `db:"voter_id"`
	TargetID    int64  `db:"target_id"`
	Week        int64  `db:"week"`
	Index       int64  `db:"index"`
	Points      int64  `db:"points"`
	IsClearance bool   `db:"is_clearance"`
	Block
	Timestamps
}

// UserIncentivePoints is the weekly allocation of a voter to a receiver.
type UserIncentivePoints struct {
	ID         int64  `db:"id"`
	ChainID    int64  `db:"chain_id"`
	VoterID    string `db:"voter_id"`
	ReceiverID int64  `db:"receiver_id"`
	Week       int64  `db:"week"`
	Points     int64  `db:"points"`
	Timestamps
}

type WeeklyBoost struct {
	ID                   int64           `db:"id"`
	ChainID              int64           `db:"chain_id"`
	UserID               string          `db:"user_id"`
	Week                 int64           `db:"week"`
	Boost                decimal.Decimal `db:"boost"`
	Pct                  decimal.Decimal `db:"pct"`
	LastAppliedFee       decimal.Decimal `db:"last_applied_fee"`
	NonLockingFee        decimal.Decimal `db:"non_locking_fee"`
	BoostDelegation      bool            `db:"boost_delegation"`
	BoostDelegationUsers int64           `db:"boost_delegation_users"`
	EligibleFor          decimal.Decimal `db:"eligible_for"`
	TotalClaimed         decimal.Decimal `db:"total_claimed"`
	SelfClaimed          decimal.Decimal `db:"self_claimed"`
	OtherClaimed         decimal.Decimal `db:"other_claimed"`
	AccruedFees          decimal.Decimal `db:"accrued_fees"`
	TimeToDepletion      int64           `db:"time_to_depletion"`
	Timestamps
}

type BatchRewardClaim struct {
	ID                        int64           `db:"id"`
	ChainID                   int64           `db:"chain_id"`
	Week                      int64           `db:"week"`
	CallerID                  string          `db:"caller_id"`
	ReceiverID                string          `db:"receiver_id"`
	DelegateID                string          `db:"delegate_id"`
	Index                     int64           `db:"index"`
	TotalClaimed              decimal.Decimal `db:"total_claimed"`
	TotalClaimedBoosted       decimal.Decimal `db:"total_claimed_boosted"`
	DelegateRemainingEligible decimal.Decimal `db:"delegate_remaining_eligible"`
	MaxFee                    decimal.Decimal `db:"max_fee"`
	FeeGenerated              decimal.Decimal `db:"fee_generated"`
	FeeApplied                decimal.Decimal `db:"fee_applied"`
	Block
	Timestamps
}

type WeeklyEmission struct {
	ID        int64           `db:"id"`
	ChainID   int64           `db:"chain_id"`
	Week      int64           `db:"week"`
	Emissions decimal.Decimal `db:"emissions"`
	Timestamps
}

type WeeklyWeight struct {
	ID      int64           `db:"id"`
	ChainID int64           `db:"chain_id"`
	UserID  string          `db:"user_id"`
	Week    int64           `db:"week"`
	Weight  decimal.Decimal `db:"weight"`
	Unlock  decimal.Decimal `db:"unlock"`
	Timestamps
}

type OwnershipProposalsRepo interface {
	Upsert(ctx context.Context, proposal *OwnershipProposal) (int64, error)
	GetByIndex(ctx context.Context, chainID int64, creatorID string, index int64) (*OwnershipProposal, error)
}

type OwnershipVotesRepo interface {
	Upsert(ctx context.Context, vote *OwnershipVote) error
}

type IncentiveReceiversRepo interface {
	Upsert(ctx context.Context, receiver *IncentiveReceiver) (int64, error)
}

type IncentiveVotesRepo interface {
	Upsert(ctx context.Context, vote *IncentiveVote) error
	// LatestWeek returns the most recent week with stored votes, 0 when there are none.
	LatestWeek(ctx context.Context, chainID int64) (int64, error)
	FindByVoterAndWeek(ctx context.Context, chainID int64, voterID string, week int64) ([]*IncentiveVote, error)
}

type IncentivePointsRepo interface {
	// LatestBefore returns, per receiver, the allocation of the latest week before the given one.
	LatestBefore(ctx context.Context, chainID int64, voterID string, week int64) ([]*UserIncentivePoints, error)
	InsertIfAbsent(ctx context.Context, points []*UserIncentivePoints) error
	// ReplaceWeek stores the given allocation and zeroes the voter's other receivers of that week.
	ReplaceWeek(ctx context.Context, chainID int64, voterID string, week int64, points []*UserIncentivePoints) error
	FindByVoter(ctx context.Context, chainID int64, voterID string, fromWeek, toWeek int64) ([]*UserIncentivePoints, error)
}

type WeeklyBoostsRepo interface {
	Upsert(ctx context.Context, boost *WeeklyBoost) error
	LatestWeek(ctx context.Context, chainID int64) (int64, error)
}

type BatchRewardClaimsRepo interface {
	Upsert(ctx context.Context, claim *BatchRewardClaim) error
}

type WeeklyEmissionsRepo interface {
	Upsert(ctx context.Context, emission *WeeklyEmission) error
	LatestWeek(ctx context.Context, chainID int64) (int64, error)
}

type WeeklyWeightsRepo interface {
	// UpsertTotal stores a locker-wide weight; UserID is ignored.
	UpsertTotal(ctx context.Context, weight *WeeklyWeight) error
	UpsertUser(ctx context.Context, weight *WeeklyWeight) error
}
