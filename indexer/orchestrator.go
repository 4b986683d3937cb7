package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/messaging"
)

// ChainSyncer runs sync passes of the chain domain and its hourly companions.
type ChainSyncer struct {
	*StreamRunner
}

func NewChainSyncer(deps *Deps) *ChainSyncer {
	return &ChainSyncer{StreamRunner: NewStreamRunner(deps)}
}

// SyncChain imports base entities, then every stream between its stored cursor
// and the remote count. A failed stream is reset to its prior cursor while the
// other streams keep their progress.
func (s *ChainSyncer) SyncChain(ctx context.Context) error {
	start := time.Now()
	err := s.syncChain(ctx)
	ObservePass(s.Chain.Name, "chain", start, err)
	return err
}

func (s *ChainSyncer) SyncRevenue(ctx context.Context) error {
	start := time.Now()
	err := NewRevenueImporter(s.Deps).Import(ctx)
	ObservePass(s.Chain.Name, "revenue", start, err)
	return err
}

func (s *ChainSyncer) SyncZaps(ctx context.Context) error {
	start := time.Now()
	err := NewZapStakesImporter(s.Deps).Import(ctx)
	ObservePass(s.Chain.Name, "zaps", start, err)
	return err
}

func (s *ChainSyncer) syncChain(ctx context.Context) error {
	chainID := s.Chain.ChainID
	if err := s.Repo.Chains.Ensure(ctx, &entity.Chain{ID: chainID, Name: s.Chain.Name}); err != nil {
		return fmt.Errorf("can't ensure chain: %w", err)
	}
	prev, err := s.Repo.Cursors.ChainSnapshot(ctx, chainID)
	if err != nil {
		return fmt.Errorf("can't read cursors: %w", err)
	}
	state, err := NewBaseEntitiesImporter(s.Deps).Import(ctx)
	if err != nil {
		return err
	}
	if err = s.applyLabels(ctx); err != nil {
		return err
	}

	var errs error
	if pool := state.Pool; pool != nil {
		var prevPool entity.StabilityPool
		if prev.Pool != nil {
			prevPool = *prev.Pool
		}
		_, err = s.RunStream(ctx, entity.StreamPoolSnapshots, pool.ID, pool.Address,
			prevPool.SnapshotsCount, pool.SnapshotsCount, NewPoolSnapshotsImporter(s.Deps, pool))
		errs = multierr.Append(errs, err)

		ops, err := NewPoolOperationsImporter(s.Deps, pool)
		if err != nil {
			return err
		}
		_, err = s.RunStream(ctx, entity.StreamPoolOperations, pool.ID, pool.Address,
			prevPool.OperationsCount, pool.OperationsCount, ops)
		errs = multierr.Append(errs, err)
	}

	overviewChanged := false
	for _, address := range sortedAddresses(state.Managers) {
		manager := state.Managers[address]
		var prevManager entity.TroveManager
		if p, ok := prev.Managers[address]; ok {
			prevManager = *p
		}
		advanced, err := s.RunStream(ctx, entity.StreamManagerSnapshots, manager.ID, manager.Address,
			prevManager.SnapshotsCount, manager.SnapshotsCount, NewManagerSnapshotsImporter(s.Deps, manager))
		errs = multierr.Append(errs, err)
		overviewChanged = overviewChanged || advanced

		_, err = s.RunStream(ctx, entity.StreamTroveSnapshots, manager.ID, manager.Address,
			prevManager.TroveSnapshotsCount, manager.TroveSnapshotsCount, NewTroveSnapshotsImporter(s.Deps, manager))
		errs = multierr.Append(errs, err)
	}

	for _, address := range sortedAddresses(state.Collaterals) {
		collateral := state.Collaterals[address]
		prevPrice, known := prev.Collaterals[address]
		if known && prevPrice.Equal(collateral.LatestPrice) {
			continue
		}
		errs = multierr.Append(errs, s.syncPrices(ctx, collateral, prevPrice))
	}

	if overviewChanged {
		s.publish(ctx, messaging.TroveOverviewUpdate, &messaging.TroveOverviewPayload{
			Channel:      messaging.ChannelTrovesOverview,
			Subscription: messaging.Subscription{Chain: s.Chain.Name},
			Type:         messaging.PayloadUpdate,
		})
	}
	return errs
}

// syncPrices imports price records of a collateral whose remote price moved,
// storing the new price only once the import caught up with the remote.
func (s *ChainSyncer) syncPrices(ctx context.Context, collateral *entity.Collateral, prevPrice decimal.Decimal) error {
	logger := s.Logger.WithFields(logrus.Fields{
		"chain":      s.Chain.Name,
		"collateral": collateral.Address,
		"price":      collateral.LatestPrice,
	})
	complete, err := NewPriceRecordsImporter(s.Deps, collateral).Import(ctx)
	if err == nil && !complete {
		logger.Info("price records left for the next pass, keeping latest price")
		return nil
	}
	if err == nil {
		err = s.Repo.Collaterals.SetLatestPrice(ctx, collateral.ID, collateral.LatestPrice)
	}
	if err == nil {
		return nil
	}
	StreamFailures.WithLabelValues(s.Chain.Name, "price_records").Inc()
	logger.WithError(err).Error("price import failed, resetting latest price")
	resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
	defer cancel()
	if resetErr := s.Repo.Collaterals.SetLatestPrice(resetCtx, collateral.ID, prevPrice); resetErr != nil {
		RollbackFailures.WithLabelValues(s.Chain.Name, "price_records").Inc()
		logger.WithError(resetErr).Error("can't reset latest price, manual reset required")
	}
	return fmt.Errorf("price records of %s: %w", collateral.Address, err)
}

func (s *ChainSyncer) applyLabels(ctx context.Context) error {
	for address, label := range s.Chain.Labels {
		if err := s.Repo.Users.Ensure(ctx, address); err != nil {
			return fmt.Errorf("can't ensure labelled user %s: %w", address, err)
		}
		if err := s.Repo.Users.SetLabel(ctx, address, label); err != nil {
			return fmt.Errorf("can't label user %s: %w", address, err)
		}
	}
	return nil
}

// ObservePass records the duration and outcome of a sync pass.
func ObservePass(chain, domain string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	PassDuration.WithLabelValues(chain, domain, result).Observe(time.Since(start).Seconds())
}

func sortedAddresses[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
