package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type chainsRepo basePostgresRepo

func NewChainsRepo(table string, db *db.DB) entity.ChainsRepo {
	return (*chainsRepo)(newBasePostgresRepo(table, db))
}

func (r *chainsRepo) Ensure(ctx context.Context, chain *entity.Chain) error {
	q, args, err := db.Upsert(r.table).
		Key("id", chain.ID).
		Set("name", chain.Name).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert chain: %w", err)
	}
	return nil
}

func (r *chainsRepo) FindAll(ctx context.Context) ([]*entity.Chain, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	chains := make([]*entity.Chain, 0, 4)
	err = r.db.SelectContext(ctx, &chains, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select chains: %w", err)
	}
	return chains, nil
}
