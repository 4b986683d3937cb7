package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
)

type chainsRepo Store

func (r *chainsRepo) Ensure(_ context.Context, chain *entity.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *chain
	r.chains[chain.ID] = &cp
	return nil
}

func (r *chainsRepo) FindAll(_ context.Context) ([]*entity.Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*entity.Chain, 0, len(r.chains))
	for _, c := range r.chains {
		cp := *c
		res = append(res, &cp)
	}
	sortBy(res, func(a, b *entity.Chain) bool { return a.ID < b.ID })
	return res, nil
}

type usersRepo Store

func (r *usersRepo) ensure(id string) *entity.User {
	id = addr(id)
	u, ok := r.users[id]
	if !ok {
		u = &entity.User{ID: id}
		r.users[id] = u
	}
	return u
}

func (r *usersRepo) Ensure(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(id)
	return nil
}

func (r *usersRepo) UpsertDepositor(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.ensure(user.ID)
	u.TotalDeposited = user.TotalDeposited
	u.TotalCollateralGainedUSD = user.TotalCollateralGainedUSD
	return nil
}

func (r *usersRepo) UpsertLocker(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.ensure(user.ID)
	u.LatestFee = user.LatestFee
	u.FrozenBalance = user.FrozenBalance
	u.Weight = user.Weight
	return nil
}

func (r *usersRepo) SetLabel(_ context.Context, id string, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.ensure(id)
	u.Label = &label
	return nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[addr(id)]
	if !ok {
		return nil, notFound("user")
	}
	cp := *u
	return &cp, nil
}

type protocolsRepo Store

func (r *protocolsRepo) Upsert(_ context.Context, protocol *entity.Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.protocols[protocol.ChainID]
	if !ok {
		p = &entity.Protocol{ID: (*Store)(r).nextID(), ChainID: protocol.ChainID}
		r.protocols[protocol.ChainID] = p
	}
	p.StartTime = protocol.StartTime
	p.PriceFeed = addr(protocol.PriceFeed)
	p.LockersCount = protocol.LockersCount
	return nil
}

func (r *protocolsRepo) GetByChainID(_ context.Context, chainID int64) (*entity.Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protocols[chainID]
	if !ok {
		return nil, notFound("protocol")
	}
	cp := *p
	return &cp, nil
}

type stabilityPoolsRepo Store

func (r *stabilityPoolsRepo) Upsert(_ context.Context, pool *entity.StabilityPool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := entity.StabilityPool{
		ChainID:        pool.ChainID,
		Address:        addr(pool.Address),
		TotalDeposited: pool.TotalDeposited,
	}
	stored, inserted := upsert(r.pools, key(row.ChainID, row.Address), &row, func(stored, row *entity.StabilityPool) {
		stored.TotalDeposited = row.TotalDeposited
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *stabilityPoolsRepo) GetByChainID(_ context.Context, chainID int64) (*entity.StabilityPool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return (*Store)(r).poolOf(chainID)
}

func (s *Store) poolOf(chainID int64) (*entity.StabilityPool, error) {
	pools := values(s.pools, func(p *entity.StabilityPool) bool { return p.ChainID == chainID })
	if len(pools) == 0 {
		return nil, notFound("stability pool")
	}
	sortBy(pools, func(a, b *entity.StabilityPool) bool { return a.ID < b.ID })
	return pools[0], nil
}

type poolSnapshotsRepo Store

func (r *poolSnapshotsRepo) Upsert(_ context.Context, snapshot *entity.PoolSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *snapshot
	stored, inserted := upsert(r.poolSnapshots, key(row.PoolID, row.Index, row.BlockTimestamp), &row, func(stored, row *entity.PoolSnapshot) {
		stored.TotalDeposited = row.TotalDeposited
		stored.TotalCollateralWithdrawnUSD = row.TotalCollateralWithdrawnUSD
		stored.Block = row.Block
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type poolOperationsRepo Store

func (r *poolOperationsRepo) Upsert(_ context.Context, op *entity.PoolOperation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *op
	row.UserID = addr(row.UserID)
	stored, inserted := upsert(r.poolOps, key(row.PoolID, row.UserID, row.Index, row.BlockTimestamp), &row, func(stored, row *entity.PoolOperation) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *poolOperationsRepo) FindRecent(_ context.Context, poolID int64, limit, offset uint64) ([]*entity.PoolOperationView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := values(r.poolOps, func(op *entity.PoolOperation) bool { return op.PoolID == poolID })
	sortBy(ops, func(a, b *entity.PoolOperation) bool {
		if a.BlockTimestamp != b.BlockTimestamp {
			return a.BlockTimestamp > b.BlockTimestamp
		}
		return a.ID > b.ID
	})
	ops = page(ops, limit, offset)
	res := make([]*entity.PoolOperationView, 0, len(ops))
	for _, op := range ops {
		amount := op.StableAmount
		if op.Operation == entity.PoolOperationCollateralWithdrawal {
			amount = decimal.Zero
			for _, w := range r.withdrawals {
				if w.OperationID == op.ID {
					amount = amount.Add(w.CollateralAmountUSD)
				}
			}
		}
		res = append(res, &entity.PoolOperationView{
			UserID:          op.UserID,
			Operation:       op.Operation,
			Amount:          amount,
			TransactionHash: op.TransactionHash,
			BlockTimestamp:  op.BlockTimestamp,
		})
	}
	return res, nil
}

type collateralWithdrawalsRepo Store

func (r *collateralWithdrawalsRepo) Upsert(_ context.Context, w *entity.CollateralWithdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *w
	stored, inserted := upsert(r.withdrawals, key(row.CollateralID, row.OperationID), &row, func(stored, row *entity.CollateralWithdrawal) {
		stored.CollateralAmount = row.CollateralAmount
		stored.CollateralAmountUSD = row.CollateralAmountUSD
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type collateralsRepo Store

func (r *collateralsRepo) Upsert(_ context.Context, c *entity.Collateral) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *c
	row.Address = addr(row.Address)
	row.LatestPrice = decimal.Zero
	stored, inserted := upsert(r.collaterals, key(row.ChainID, row.Address), &row, func(stored, row *entity.Collateral) {
		stored.StabilityPoolID = row.StabilityPoolID
		stored.Name = row.Name
		stored.Symbol = row.Symbol
		stored.Decimals = row.Decimals
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *collateralsRepo) SetLatestPrice(_ context.Context, id int64, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.collaterals {
		if c.ID == id {
			c.LatestPrice = price
			return nil
		}
	}
	return notFound("collateral")
}

func (r *collateralsRepo) GetByChainIDAndAddress(_ context.Context, chainID int64, address string) (*entity.Collateral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collaterals[key(chainID, addr(address))]
	if !ok {
		return nil, notFound("collateral")
	}
	cp := *c
	return &cp, nil
}

func (r *collateralsRepo) FindByChainID(_ context.Context, chainID int64) ([]*entity.Collateral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := values(r.collaterals, func(c *entity.Collateral) bool { return c.ChainID == chainID })
	sortBy(res, func(a, b *entity.Collateral) bool { return a.ID < b.ID })
	return res, nil
}

type priceRecordsRepo Store

func (r *priceRecordsRepo) Upsert(_ context.Context, p *entity.PriceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *p
	stored, inserted := upsert(r.prices, key(row.CollateralID, row.BlockTimestamp), &row, func(stored, row *entity.PriceRecord) {
		stored.Price = row.Price
		stored.Block = row.Block
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *priceRecordsRepo) LatestTimestamp(_ context.Context, collateralID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ts int64
	for _, p := range r.prices {
		if p.CollateralID == collateralID && p.BlockTimestamp > ts {
			ts = p.BlockTimestamp
		}
	}
	return ts, nil
}

type zapStakesRepo Store

func (r *zapStakesRepo) Upsert(_ context.Context, z *entity.ZapStake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *z
	stored, inserted := upsert(r.zaps, key(row.CollateralID, row.Index, row.BlockTimestamp), &row, func(stored, row *entity.ZapStake) {
		stored.Amount = row.Amount
		stored.Block = row.Block
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *zapStakesRepo) NextIndex(_ context.Context, chainID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	next := int64(0)
	for _, z := range r.zaps {
		for _, c := range r.collaterals {
			if c.ID == z.CollateralID && c.ChainID == chainID && z.Index+1 > next {
				next = z.Index + 1
			}
		}
	}
	return next, nil
}

type revenueSnapshotsRepo Store

func (r *revenueSnapshotsRepo) Upsert(_ context.Context, s *entity.RevenueSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *s
	stored, inserted := upsert(r.revenue, key(row.ChainID, row.Timestamp), &row, func(stored, row *entity.RevenueSnapshot) {
		stored.UnlockPenaltyRevenueUSD = row.UnlockPenaltyRevenueUSD
		stored.BorrowingFeesRevenueUSD = row.BorrowingFeesRevenueUSD
		stored.RedemptionFeesRevenueUSD = row.RedemptionFeesRevenueUSD
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *revenueSnapshotsRepo) LatestTimestamp(_ context.Context, chainID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ts int64
	for _, s := range r.revenue {
		if s.ChainID == chainID && s.Timestamp > ts {
			ts = s.Timestamp
		}
	}
	return ts, nil
}
