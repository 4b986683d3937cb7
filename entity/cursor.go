package entity

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Stream identifies an append-only remote collection whose import progress is
// tracked by a counter column on its parent row.
type Stream string

const (
	StreamPoolSnapshots      Stream = "stability_pool_snapshots"
	StreamPoolOperations     Stream = "stability_pool_operations"
	StreamManagerSnapshots   Stream = "trove_manager_snapshots"
	StreamTroveSnapshots     Stream = "trove_snapshots"
	StreamStakingDeposits    Stream = "staking_deposits"
	StreamStakingWithdrawals Stream = "staking_withdrawals"
	StreamStakingPayouts     Stream = "staking_payouts"
	StreamStakingSnapshots   Stream = "staking_snapshots"
)

// StreamColumn locates the counter of a stream.
type StreamColumn struct {
	Table  string
	Column string
}

var streamColumns = map[Stream]StreamColumn{
	StreamPoolSnapshots:      {Table: "stability_pools", Column: "snapshots_count"},
	StreamPoolOperations:     {Table: "stability_pools", Column: "operations_count"},
	StreamManagerSnapshots:   {Table: "trove_managers", Column: "snapshots_count"},
	StreamTroveSnapshots:     {Table: "trove_managers", Column: "trove_snapshots_count"},
	StreamStakingDeposits:    {Table: "cvx_prisma_staking", Column: "deposit_count"},
	StreamStakingWithdrawals: {Table: "cvx_prisma_staking", Column: "withdraw_count"},
	StreamStakingPayouts:     {Table: "cvx_prisma_staking", Column: "payout_count"},
	StreamStakingSnapshots:   {Table: "cvx_prisma_staking", Column: "snapshot_count"},
}

func (s Stream) Column() (StreamColumn, error) {
	col, ok := streamColumns[s]
	if !ok {
		return StreamColumn{}, fmt.Errorf("unknown stream %q", s)
	}
	return col, nil
}

func Streams() []Stream {
	return []Stream{
		StreamPoolSnapshots, StreamPoolOperations, StreamManagerSnapshots, StreamTroveSnapshots,
		StreamStakingDeposits, StreamStakingWithdrawals, StreamStakingPayouts, StreamStakingSnapshots,
	}
}

// StreamOwner is the parent row of a stream. ID is int64 for chain entities and
// the contract address for staking contracts.
type StreamOwner struct {
	ChainID int64
	ID      interface{}
	Address string
}

// Cursor is a stored stream position, as exposed to operators.
type Cursor struct {
	Stream  Stream `json:"stream"`
	Owner   string `json:"owner"`
	Value   uint64 `json:"value"`
	ChainID int64  `json:"chain_id"`
}

// ChainSnapshot holds every chain-domain cursor, read in one transaction at the start of a pass.
// Maps are keyed by lowercased address.
type ChainSnapshot struct {
	ChainID     int64
	Pool        *StabilityPool
	Managers    map[string]*TroveManager
	Collaterals map[string]decimal.Decimal
}

// StakingSnapshot holds the cursors of every staking contract of a chain.
type StakingSnapshot struct {
	ChainID   int64
	Contracts map[string]*StakingContract
}

type CursorsRepo interface {
	Read(ctx context.Context, stream Stream, ownerID interface{}) (uint64, error)
	Write(ctx context.Context, stream Stream, ownerID interface{}, value uint64) error
	ChainSnapshot(ctx context.Context, chainID int64) (*ChainSnapshot, error)
	StakingSnapshot(ctx context.Context, chainID int64) (*StakingSnapshot, error)
	FindByChainID(ctx context.Context, chainID int64) ([]*Cursor, error)
}

// CursorsOf flattens snapshots into a stable list of cursors.
func CursorsOf(chain *ChainSnapshot, staking *StakingSnapshot) []*Cursor {
	var cursors []*Cursor
	if chain != nil {
		if pool := chain.Pool; pool != nil {
			cursors = append(cursors,
				&Cursor{Stream: StreamPoolSnapshots, Owner: pool.Address, Value: pool.SnapshotsCount, ChainID: chain.ChainID},
				&Cursor{Stream: StreamPoolOperations, Owner: pool.Address, Value: pool.OperationsCount, ChainID: chain.ChainID},
			)
		}
		for _, addr := range sortedKeys(chain.Managers) {
			m := chain.Managers[addr]
			cursors = append(cursors,
				&Cursor{Stream: StreamManagerSnapshots, Owner: addr, Value: m.SnapshotsCount, ChainID: chain.ChainID},
				&Cursor{Stream: StreamTroveSnapshots, Owner: addr, Value: m.TroveSnapshotsCount, ChainID: chain.ChainID},
			)
		}
	}
	if staking != nil {
		for _, addr := range sortedKeys(staking.Contracts) {
			c := staking.Contracts[addr]
			cursors = append(cursors,
				&Cursor{Stream: StreamStakingDeposits, Owner: addr, Value: c.DepositCount, ChainID: staking.ChainID},
				&Cursor{Stream: StreamStakingWithdrawals, Owner: addr, Value: c.WithdrawCount, ChainID: staking.ChainID},
				&Cursor{Stream: StreamStakingPayouts, Owner: addr, Value: c.PayoutCount, ChainID: staking.ChainID},
				&Cursor{Stream: StreamStakingSnapshots, Owner: addr, Value: c.SnapshotCount, ChainID: staking.ChainID},
			)
		}
	}
	return cursors
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
