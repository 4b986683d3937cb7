package staking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
)

// Syncer runs staking passes: four cursored streams per staking contract,
// each reset independently when its import fails.
type Syncer struct {
	*indexer.StreamRunner
}

func NewSyncer(deps *indexer.Deps) *Syncer {
	return &Syncer{StreamRunner: indexer.NewStreamRunner(deps)}
}

func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()
	err := s.sync(ctx)
	indexer.ObservePass(s.Chain.Name, "staking", start, err)
	return err
}

func (s *Syncer) sync(ctx context.Context) error {
	chainID := s.Chain.ChainID
	if err := s.Repo.Chains.Ensure(ctx, &entity.Chain{ID: chainID, Name: s.Chain.Name}); err != nil {
		return fmt.Errorf("can't ensure chain: %w", err)
	}
	prev, err := s.Repo.Cursors.StakingSnapshot(ctx, chainID)
	if err != nil {
		return fmt.Errorf("can't read staking cursors: %w", err)
	}
	contracts, err := NewContractsImporter(s.Deps).Import(ctx)
	if err != nil {
		return err
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].ID < contracts[j].ID })

	var errs error
	for _, contract := range contracts {
		var p entity.StakingContract
		if stored, ok := prev.Contracts[contract.ID]; ok {
			p = *stored
		} else {
			s.Logger.WithField("contract", contract.ID).Warn("new staking contract, importing from scratch")
		}
		for _, stream := range []struct {
			stream   entity.Stream
			prev     uint64
			remote   uint64
			importer indexer.Importer
		}{
			{entity.StreamStakingWithdrawals, p.WithdrawCount, contract.WithdrawCount, NewEventsImporter(s.Deps, contract, entity.StakeOperationWithdraw)},
			{entity.StreamStakingDeposits, p.DepositCount, contract.DepositCount, NewEventsImporter(s.Deps, contract, entity.StakeOperationStake)},
			{entity.StreamStakingPayouts, p.PayoutCount, contract.PayoutCount, NewPayoutsImporter(s.Deps, contract)},
			{entity.StreamStakingSnapshots, p.SnapshotCount, contract.SnapshotCount, NewSnapshotsImporter(s.Deps, contract)},
		} {
			_, err = s.RunStream(ctx, stream.stream, contract.ID, contract.ID, stream.prev, stream.remote, stream.importer)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
