package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type revenueSnapshotsRepo basePostgresRepo

func NewRevenueSnapshotsRepo(table string, db *db.DB) entity.RevenueSnapshotsRepo {
	return (*revenueSnapshotsRepo)(newBasePostgresRepo(table, db))
}

func (r *revenueSnapshotsRepo) Upsert(ctx context.Context, s *entity.RevenueSnapshot) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", s.ChainID).
		Key("timestamp", s.Timestamp).
		Set("unlock_penalty_revenue_usd", s.UnlockPenaltyRevenueUSD).
		Set("borrowing_fees_revenue_usd", s.BorrowingFeesRevenueUSD).
		Set("redemption_fees_revenue_usd", s.RedemptionFeesRevenueUSD).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert revenue snapshot: %w", err)
	}
	return nil
}

func (r *revenueSnapshotsRepo) LatestTimestamp(ctx context.Context, chainID int64) (int64, error) {
	q, args, err := sq.Select("COALESCE(MAX(timestamp), 0)").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var ts int64
	err = r.db.GetContext(ctx, &ts, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't get latest revenue snapshot timestamp: %w", err)
	}
	return ts, nil
}
