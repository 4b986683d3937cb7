package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

// cursorsRepo reads and writes stream counters stored on parent rows.
// Table and column names come only from the entity stream whitelist.
type cursorsRepo basePostgresRepo

func NewCursorsRepo(db *db.DB) entity.CursorsRepo {
	return (*cursorsRepo)(newBasePostgresRepo("", db))
}

func (r *cursorsRepo) Read(ctx context.Context, stream entity.Stream, ownerID interface{}) (uint64, error) {
	col, err := stream.Column()
	if err != nil {
		return 0, err
	}
	q, args, err := sq.Select(col.Column).
		From(col.Table).
		Where(sq.Eq{"id": ownerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var value int64
	err = r.db.GetContext(ctx, &value, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't read %s cursor: %w", stream, err)
	}
	return uint64(value), nil
}

func (r *cursorsRepo) Write(ctx context.Context, stream entity.Stream, ownerID interface{}, value uint64) error {
	col, err := stream.Column()
	if err != nil {
		return err
	}
	q, args, err := sq.Update(col.Table).
		Set("updated_at", sq.Expr("NOW()")).
		Set(col.Column, int64(value)).
		Where(sq.Eq{"id": ownerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't write %s cursor: %w", stream, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("can't write %s cursor of %v: %w", stream, ownerID, db.ErrNotFound)
	}
	return nil
}

func (r *cursorsRepo) ChainSnapshot(ctx context.Context, chainID int64) (*entity.ChainSnapshot, error) {
	snapshot := &entity.ChainSnapshot{
		ChainID:     chainID,
		Managers:    make(map[string]*entity.TroveManager),
		Collaterals: make(map[string]decimal.Decimal),
	}
	err := r.db.ReadSnapshot(ctx, func(tx *db.Tx) error {
		q, args, err := sq.Select("*").
			From("stability_pools").
			Where(sq.Eq{"chain_id": chainID}).
			OrderBy("id").
			Limit(1).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("can't build query: %w", err)
		}
		pool := new(entity.StabilityPool)
		err = tx.GetContext(ctx, pool, q, args...)
		switch {
		case err == nil:
			snapshot.Pool = pool
		case !errors.Is(err, db.ErrNotFound):
			return fmt.Errorf("can't get stability pool: %w", err)
		}

		q, args, err = sq.Select("*").
			From("trove_managers").
			Where(sq.Eq{"chain_id": chainID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("can't build query: %w", err)
		}
		var managers []*entity.TroveManager
		if err = tx.SelectContext(ctx, &managers, q, args...); err != nil {
			return fmt.Errorf("can't select trove managers: %w", err)
		}
		for _, m := range managers {
			snapshot.Managers[m.Address] = m
		}

		q, args, err = sq.Select("*").
			From("collaterals").
			Where(sq.Eq{"chain_id": chainID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("can't build query: %w", err)
		}
		var collaterals []*entity.Collateral
		if err = tx.SelectContext(ctx, &collaterals, q, args...); err != nil {
			return fmt.Errorf("can't select collaterals: %w", err)
		}
		for _, c := range collaterals {
			snapshot.Collaterals[c.Address] = c.LatestPrice
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("can't read chain cursors: %w", err)
	}
	return snapshot, nil
}

func (r *cursorsRepo) StakingSnapshot(ctx context.Context, chainID int64) (*entity.StakingSnapshot, error) {
	snapshot := &entity.StakingSnapshot{
		ChainID:   chainID,
		Contracts: make(map[string]*entity.StakingContract),
	}
	err := r.db.ReadSnapshot(ctx, func(tx *db.Tx) error {
		q, args, err := sq.Select("*").
			From("cvx_prisma_staking").
			Where(sq.Eq{"chain_id": chainID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("can't build query: %w", err)
		}
		var contracts []*entity.StakingContract
		if err = tx.SelectContext(ctx, &contracts, q, args...); err != nil {
			return fmt.Errorf("can't select staking contracts: %w", err)
		}
		for _, c := range contracts {
			snapshot.Contracts[c.ID] = c
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("can't read staking cursors: %w", err)
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

