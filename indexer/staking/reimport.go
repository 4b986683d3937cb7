package staking

import (
	"fmt"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/utils"
)

// NewStreamImporter builds the importer of one staking stream of a contract.
// The contract row must already exist.
func NewStreamImporter(deps *indexer.Deps, stream entity.Stream, owner string) (indexer.Importer, error) {
	contract := &entity.StakingContract{ID: utils.NormalizeAddress(owner), ChainID: deps.Chain.ChainID}
	if contract.ID == "" {
		return nil, fmt.Errorf("stream %s needs a staking contract address", stream)
	}
	switch stream {
	case entity.StreamStakingDeposits:
		return NewEventsImporter(deps, contract, entity.StakeOperationStake), nil
	case entity.StreamStakingWithdrawals:
		return NewEventsImporter(deps, contract, entity.StakeOperationWithdraw), nil
	case entity.StreamStakingPayouts:
		return NewPayoutsImporter(deps, contract), nil
	case entity.StreamStakingSnapshots:
		return NewSnapshotsImporter(deps, contract), nil
	default:
		return nil, fmt.Errorf("stream %s is not a staking stream", stream)
	}
}

// IsStakingStream reports whether stream is served by a staking subgraph.
func IsStakingStream(stream entity.Stream) bool {
	switch stream {
	case entity.StreamStakingDeposits, entity.StreamStakingWithdrawals,
		entity.StreamStakingPayouts, entity.StreamStakingSnapshots:
		return true
	}
	return false
}
