package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
)

type troveManagersRepo Store

func (r *troveManagersRepo) Upsert(_ context.Context, m *entity.TroveManager) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *m
	row.Address = addr(row.Address)
	row.PriceFeed = addr(row.PriceFeed)
	row.SnapshotsCount, row.TroveSnapshotsCount = 0, 0
	stored, inserted := upsert(r.managers, key(row.ChainID, row.Address), &row, func(stored, row *entity.TroveManager) {
		stored.CollateralID = row.CollateralID
		stored.PriceFeed = row.PriceFeed
		stored.Sunsetting = row.Sunsetting
		stored.Block = row.Block
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *troveManagersRepo) GetByChainIDAndAddress(_ context.Context, chainID int64, address string) (*entity.TroveManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[key(chainID, addr(address))]
	if !ok {
		return nil, notFound("trove manager")
	}
	cp := *m
	return &cp, nil
}

func (r *troveManagersRepo) FindByChainID(_ context.Context, chainID int64) ([]*entity.TroveManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := values(r.managers, func(m *entity.TroveManager) bool { return m.ChainID == chainID })
	sortBy(res, func(a, b *entity.TroveManager) bool { return a.ID < b.ID })
	return res, nil
}

type troveManagerParametersRepo Store

func (r *troveManagerParametersRepo) Upsert(_ context.Context, p *entity.TroveManagerParameters) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *p
	stored, inserted := upsert(r.params, key(row.ManagerID, row.BlockTimestamp), &row, func(stored, row *entity.TroveManagerParameters) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

type troveManagerSnapshotsRepo Store

func (r *troveManagerSnapshotsRepo) Upsert(_ context.Context, s *entity.TroveManagerSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *s
	stored, inserted := upsert(r.mgrSnapshots, key(row.ManagerID, row.Index, row.BlockTimestamp), &row, func(stored, row *entity.TroveManagerSnapshot) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *troveManagerSnapshotsRepo) FindDetails(_ context.Context, chainID int64, limit, offset uint64) ([]*entity.TroveManagerDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := make(map[int64]*entity.TroveManagerSnapshot)
	for _, s := range r.mgrSnapshots {
		cur, ok := latest[s.ManagerID]
		if !ok || s.BlockTimestamp > cur.BlockTimestamp || (s.BlockTimestamp == cur.BlockTimestamp && s.Index > cur.Index) {
			latest[s.ManagerID] = s
		}
	}
	details := make([]*entity.TroveManagerDetails, 0, len(latest))
	for _, m := range r.managers {
		s, ok := latest[m.ID]
		if m.ChainID != chainID || !ok {
			continue
		}
		d := &entity.TroveManagerDetails{
			Address:      m.Address,
			TVL:          s.TotalCollateralUSD,
			Debt:         s.TotalDebt,
			CR:           s.CollateralRatio,
			Price:        s.CollateralPrice,
			OpenTroves:   s.OpenTroves,
			ClosedTroves: s.TotalTrovesClosed,
			LiqTroves:    s.TotalTrovesLiquidated,
			RedTroves:    s.TotalTrovesRedeemed,
		}
		for _, c := range r.collaterals {
			if c.ID == m.CollateralID {
				d.Name = c.Symbol
			}
		}
		if s.ParametersID != nil {
			for _, p := range r.params {
				if p.ID == *s.ParametersID {
					d.DebtCap, d.MCR, d.Rate = p.MaxSystemDebt, p.MCR, p.InterestRate
				}
			}
		}
		details = append(details, d)
	}
	sortBy(details, func(a, b *entity.TroveManagerDetails) bool {
		if !a.TVL.Equal(b.TVL) {
			return a.TVL.GreaterThan(b.TVL)
		}
		return a.Address < b.Address
	})
	return page(details, limit, offset), nil
}

type trovesRepo Store

func (r *trovesRepo) Upsert(_ context.Context, t *entity.Trove) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *t
	row.OwnerID = addr(row.OwnerID)
	row.CreatedAt, row.UpdatedAt = now(), now()
	stored, inserted := upsert(r.troves, key(row.ManagerID, row.OwnerID), &row, func(stored, row *entity.Trove) {
		id, created := stored.ID, stored.CreatedAt
		*stored = *row
		stored.ID, stored.CreatedAt = id, created
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *trovesRepo) Find(_ context.Context, filter *entity.TrovesFilter) ([]*entity.Trove, error) {
	var value func(t *entity.Trove) decimal.Decimal
	switch filter.OrderBy {
	case entity.TroveOrderCollateralUSD:
		value = func(t *entity.Trove) decimal.Decimal { return t.CollateralUSD }
	case entity.TroveOrderDebt:
		value = func(t *entity.Trove) decimal.Decimal { return t.Debt }
	case entity.TroveOrderCollateralRatio:
		value = func(t *entity.Trove) decimal.Decimal {
			if t.CollateralRatio == nil {
				return decimal.Zero
			}
			return *t.CollateralRatio
		}
	case entity.TroveOrderUpdatedAt:
		value = func(t *entity.Trove) decimal.Decimal { return decimal.NewFromInt(t.UpdatedAt.UnixNano()) }
	default:
		return nil, fmt.Errorf("unsupported trove order %q", filter.OrderBy)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	troves := values(r.troves, func(t *entity.Trove) bool {
		return t.ManagerID == filter.ManagerID && (filter.Status == nil || t.Status == *filter.Status)
	})
	sortBy(troves, func(a, b *entity.Trove) bool {
		va, vb := value(a), value(b)
		if !va.Equal(vb) {
			return va.LessThan(vb) != filter.Desc
		}
		return a.ID < b.ID
	})
	return page(troves, filter.Limit, filter.Offset), nil
}

type troveSnapshotsRepo Store

func (r *troveSnapshotsRepo) Upsert(_ context.Context, s *entity.TroveSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *s
	stored, inserted := upsert(r.troveSnaps, key(row.TroveID, row.Index, row.BlockTimestamp), &row, func(stored, row *entity.TroveSnapshot) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *troveSnapshotsRepo) FindOperations(_ context.Context, managerID int64, limit, offset uint64) ([]*entity.TroveOperationView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owners := make(map[int64]string)
	for _, t := range r.troves {
		if t.ManagerID == managerID {
			owners[t.ID] = t.OwnerID
		}
	}
	snaps := values(r.troveSnaps, func(s *entity.TroveSnapshot) bool {
		_, ok := owners[s.TroveID]
		return ok
	})
	sortBy(snaps, func(a, b *entity.TroveSnapshot) bool {
		if a.BlockTimestamp != b.BlockTimestamp {
			return a.BlockTimestamp > b.BlockTimestamp
		}
		return a.Index > b.Index
	})
	snaps = page(snaps, limit, offset)
	ops := make([]*entity.TroveOperationView, 0, len(snaps))
	for _, s := range snaps {
		ops = append(ops, &entity.TroveOperationView{
			OwnerID:         owners[s.TroveID],
			Operation:       s.Operation,
			CollateralUSD:   s.CollateralUSD,
			Debt:            s.Debt,
			BlockTimestamp:  s.BlockTimestamp,
			TransactionHash: s.TransactionHash,
		})
	}
	return ops, nil
}

type liquidationsRepo Store

func (r *liquidationsRepo) Upsert(_ context.Context, l *entity.Liquidation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *l
	row.LiquidatorID = addr(row.LiquidatorID)
	stored, inserted := upsert(r.liquidations, key(row.ChainID, row.LiquidatorID, row.BlockTimestamp), &row, func(stored, row *entity.Liquidation) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

type redemptionsRepo Store

func (r *redemptionsRepo) Upsert(_ context.Context, rd *entity.Redemption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *rd
	row.RedeemerID = addr(row.RedeemerID)
	stored, inserted := upsert(r.redemptions, key(row.ChainID, row.RedeemerID, row.BlockTimestamp), &row, func(stored, row *entity.Redemption) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

type cursorsRepo Store

func (r *cursorsRepo) counter(stream entity.Stream, ownerID interface{}) (*uint64, error) {
	if _, err := stream.Column(); err != nil {
		return nil, err
	}
	switch stream {
	case entity.StreamPoolSnapshots, entity.StreamPoolOperations:
		for _, p := range r.pools {
			if p.ID == ownerID {
				if stream == entity.StreamPoolSnapshots {
					return &p.SnapshotsCount, nil
				}
				return &p.OperationsCount, nil
			}
		}
	case entity.StreamManagerSnapshots, entity.StreamTroveSnapshots:
		for _, m := range r.managers {
			if m.ID == ownerID {
				if stream == entity.StreamManagerSnapshots {
					return &m.SnapshotsCount, nil
				}
				return &m.TroveSnapshotsCount, nil
			}
		}
	default:
		id, _ := ownerID.(string)
		c, ok := r.contracts[addr(id)]
		if !ok {
			break
		}
		switch stream {
		case entity.StreamStakingDeposits:
			return &c.DepositCount, nil
		case entity.StreamStakingWithdrawals:
			return &c.WithdrawCount, nil
		case entity.StreamStakingPayouts:
			return &c.PayoutCount, nil
		default:
			return &c.SnapshotCount, nil
		}
	}
	return nil, notFound(fmt.Sprintf("%s cursor of %v", stream, ownerID))
}

func (r *cursorsRepo) Read(_ context.Context, stream entity.Stream, ownerID interface{}) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.counter(stream, ownerID)
	if err != nil {
		return 0, err
	}
	return *c, nil
}

func (r *cursorsRepo) Write(_ context.Context, stream entity.Stream, ownerID interface{}, value uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.counter(stream, ownerID)
	if err != nil {
		return err
	}
	*c = value
	return nil
}

func (r *cursorsRepo) ChainSnapshot(_ context.Context, chainID int64) (*entity.ChainSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := &entity.ChainSnapshot{
		ChainID:     chainID,
		Managers:    make(map[string]*entity.TroveManager),
		Collaterals: make(map[string]decimal.Decimal),
	}
	if pool, err := (*Store)(r).poolOf(chainID); err == nil {
		snapshot.Pool = pool
	}
	for _, m := range values(r.managers, func(m *entity.TroveManager) bool { return m.ChainID == chainID }) {
		snapshot.Managers[m.Address] = m
	}
	for _, c := range r.collaterals {
		if c.ChainID == chainID {
			snapshot.Collaterals[c.Address] = c.LatestPrice
		}
	}
	return snapshot, nil
}

func (r *cursorsRepo) StakingSnapshot(_ context.Context, chainID int64) (*entity.StakingSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := &entity.StakingSnapshot{
		ChainID:   chainID,
		Contracts: make(map[string]*entity.StakingContract),
	}
	for _, c := range values(r.contracts, func(c *entity.StakingContract) bool { return c.ChainID == chainID }) {
		snapshot.Contracts[c.ID] = c
	}
	return snapshot, nil
}

func (r *cursorsRepo) FindByChainID(ctx context.Context, chainID int64) ([]*entity.Cursor, error) {
	chain, err := r.ChainSnapshot(ctx, chainID)
	if err != nil {
		return nil, err
	}
	staking, err := r.StakingSnapshot(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return entity.CursorsOf(chain, staking), nil
}
