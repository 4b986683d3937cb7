// Package dao imports the governance side of the protocol: ownership proposals,
// incentive votes, boost accounting and locker weights. Its streams are week or
// index based and derive their progress from stored rows.
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/prisma-monitor/indexer/contract"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/utils"
)

// PayloadDecoder renders ownership proposal payloads for operators.
type PayloadDecoder interface {
	DecodePayload(ctx context.Context, calls []contract.Call) string
}

type Syncer struct {
	*indexer.Deps
	decoder PayloadDecoder
	now     func() time.Time
}

func NewSyncer(deps *indexer.Deps, decoder PayloadDecoder) *Syncer {
	return &Syncer{
		Deps:    deps,
		decoder: decoder,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock used to compute the current week.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

func (s *Syncer) SyncOwnership(ctx context.Context) error {
	return s.run(ctx, "dao_ownership", s.syncOwnership)
}

func (s *Syncer) SyncIncentives(ctx context.Context) error {
	return s.run(ctx, "dao_incentives", s.syncIncentives)
}

func (s *Syncer) SyncBoost(ctx context.Context) error {
	return s.run(ctx, "dao_boost", s.syncBoost)
}

func (s *Syncer) SyncWeights(ctx context.Context) error {
	return s.run(ctx, "dao_weights", s.syncWeights)
}

func (s *Syncer) run(ctx context.Context, domain string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := s.Repo.Chains.Ensure(ctx, &entity.Chain{ID: s.Chain.ChainID, Name: s.Chain.Name})
	if err == nil {
		err = fn(ctx)
	}
	indexer.ObservePass(s.Chain.Name, domain, start, err)
	return err
}

// currentWeek counts weeks from the configured start time, falling back to the
// start time reported by the protocol entity.
func (s *Syncer) currentWeek(ctx context.Context) (int64, error) {
	startTime := s.Chain.StartTime
	if startTime == 0 {
		protocol, err := s.Repo.Protocols.GetByChainID(ctx, s.Chain.ChainID)
		if err != nil {
			return 0, fmt.Errorf("can't get protocol start time: %w", err)
		}
		startTime = protocol.StartTime
	}
	return utils.Week(s.now(), startTime), nil
}

func (s *Syncer) imported(stream string, n int) {
	indexer.ImportedItems.WithLabelValues(s.Chain.Name, stream).Add(float64(n))
}
