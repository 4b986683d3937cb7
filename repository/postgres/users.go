package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type usersRepo basePostgresRepo

func NewUsersRepo(table string, db *db.DB) entity.UsersRepo {
	return (*usersRepo)(newBasePostgresRepo(table, db))
}

func (r *usersRepo) Ensure(ctx context.Context, id string) error {
	q, args, err := db.InsertIgnore(r.table).
		Key("id", normalizeAddress(id)).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert user: %w", err)
	}
	return nil
}

func (r *usersRepo) UpsertDepositor(ctx context.Context, user *entity.User) error {
	q, args, err := db.Upsert(r.table).
		Key("id", normalizeAddress(user.ID)).
		Set("total_deposited", user.TotalDeposited).
		Set("total_collateral_gained_usd", user.TotalCollateralGainedUSD).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert depositor: %w", err)
	}
	return nil
}

func (r *usersRepo) UpsertLocker(ctx context.Context, user *entity.User) error {
	q, args, err := db.Upsert(r.table).
		Key("id", normalizeAddress(user.ID)).
		Set("latest_fee", user.LatestFee).
		Set("frozen_balance", user.FrozenBalance).
		Set("weight", user.Weight).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert locker: %w", err)
	}
	return nil
}

func (r *usersRepo) SetLabel(ctx context.Context, id string, label string) error {
	q, args, err := db.Upsert(r.table).
		Key("id", normalizeAddress(id)).
		Set("label", label).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't set user label: %w", err)
	}
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"id": normalizeAddress(id)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	user := new(entity.User)
	err = r.db.GetContext(ctx, user, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get user: %w", err)
	}
	return user, nil
}
