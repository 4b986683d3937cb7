package postgres

import (
	"context"
	"fmt"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type weeklyEmissionsRepo basePostgresRepo

func NewWeeklyEmissionsRepo(table string, db *db.DB) entity.WeeklyEmissionsRepo {
	return (*weeklyEmissionsRepo)(newBasePostgresRepo(table, db))
}

func (r *weeklyEmissionsRepo) Upsert(ctx context.Context, e *entity.WeeklyEmission) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", e.ChainID).
		Key("week", e.Week).
		Set("emissions", e.Emissions).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert weekly emission: %w", err)
	}
	return nil
}

func (r *weeklyEmissionsRepo) LatestWeek(ctx context.Context, chainID int64) (int64, error) {
	return latestWeek(ctx, (*basePostgresRepo)(r), chainID)
}

type weeklyWeightsRepo struct {
	total *basePostgresRepo
	user  *basePostgresRepo
}

func NewWeeklyWeightsRepo(totalTable, userTable string, db *db.DB) entity.WeeklyWeightsRepo {
	return &weeklyWeightsRepo{
		total: newBasePostgresRepo(totalTable, db),
		user:  newBasePostgresRepo(userTable, db),
	}
}

func (r *weeklyWeightsRepo) UpsertTotal(ctx context.Context, w *entity.WeeklyWeight) error {
	q, args, err := db.Upsert(r.total.table).
		Key("chain_id", w.ChainID).
		Key("week", w.Week).
		Set("weight", w.Weight).
		Set("unlock", w.Unlock).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.total.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert total weekly weight: %w", err)
	}
	return nil
}

func (r *weeklyWeightsRepo) UpsertUser(ctx context.Context, w *entity.WeeklyWeight) error {
	q, args, err := db.Upsert(r.user.table).
		Key("chain_id", w.ChainID).
		Key("user_id", normalizeAddress(w.UserID)).
		Key("week", w.Week).
		Set("weight", w.Weight).
		Set("unlock", w.Unlock).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.user.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert user weekly weight: %w", err)
	}
	return nil
}
