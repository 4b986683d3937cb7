package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type incentiveReceiversRepo basePostgresRepo

func NewIncentiveReceiversRepo(table string, db *db.DB) entity.IncentiveReceiversRepo {
	return (*incentiveReceiversRepo)(newBasePostgresRepo(table, db))
}

func (r *incentiveReceiversRepo) Upsert(ctx context.Context, receiver *entity.IncentiveReceiver) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", receiver.ChainID).
		Key("address", normalizeAddress(receiver.Address)).
		Key("index", receiver.Index).
		Set("is_active", receiver.IsActive).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert incentive receiver: %w", err)
	}
	return id, nil
}

type incentiveVotesRepo basePostgresRepo

func NewIncentiveVotesRepo(table string, db *db.DB) entity.IncentiveVotesRepo {
	return (*incentiveVotesRepo)(newBasePostgresRepo(table, db))
}

func (r *incentiveVotesRepo) Upsert(ctx context.Context, v *entity.IncentiveVote) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", v.ChainID).
		Key("voter_id", normalizeAddress(v.VoterID)).
		Key("week", v.Week).
		Key("index", v.Index).
		Key("target_id", v.TargetID).
		Set("points", v.Points).
		Set("is_clearance", v.IsClearance).
		Set("block_number", v.BlockNumber).
		Set("block_timestamp", v.BlockTimestamp).
		Set("transaction_hash", v.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert incentive vote: %w", err)
	}
	return nil
}

func (r *incentiveVotesRepo) LatestWeek(ctx context.Context, chainID int64) (int64, error) {
	return latestWeek(ctx, (*basePostgresRepo)(r), chainID)
}

func (r *incentiveVotesRepo) FindByVoterAndWeek(ctx context.Context, chainID int64, voterID string, week int64) ([]*entity.IncentiveVote, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "voter_id": normalizeAddress(voterID), "week": week}).
		OrderBy("index", "target_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	votes := make([]*entity.IncentiveVote, 0, 8)
	err = r.db.SelectContext(ctx, &votes, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select incentive votes: %w", err)
	}
	return votes, nil
}

type incentivePointsRepo basePostgresRepo

func NewIncentivePointsRepo(table string, db *db.DB) entity.IncentivePointsRepo {
	return (*incentivePointsRepo)(newBasePostgresRepo(table, db))
}

func (r *incentivePointsRepo) LatestBefore(ctx context.Context, chainID int64, voterID string, week int64) ([]*entity.UserIncentivePoints, error) {
	q, args, err := sq.Select("*").
		Options("DISTINCT ON (receiver_id)").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "voter_id": normalizeAddress(voterID)}).
		Where(sq.Lt{"week": week}).
		OrderBy("receiver_id", "week DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	points := make([]*entity.UserIncentivePoints, 0, 8)
	err = r.db.SelectContext(ctx, &points, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select latest incentive points: %w", err)
	}
	return points, nil
}

func (r *incentivePointsRepo) InsertIfAbsent(ctx context.Context, points []*entity.UserIncentivePoints) error {
	if len(points) == 0 {
		return nil
	}
	builder := sq.Insert(r.table).
		Columns("chain_id", "voter_id", "receiver_id", "week", "points")
	for _, p := range points {
		builder = builder.Values(p.ChainID, normalizeAddress(p.VoterID), p.ReceiverID, p.Week, p.Points)
	}
	q, args, err := builder.
		Suffix("ON CONFLICT (chain_id, voter_id, receiver_id, week) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert incentive points: %w", err)
	}
	return nil
}

func (r *incentivePointsRepo) ReplaceWeek(ctx context.Context, chainID int64, voterID string, week int64, points []*entity.UserIncentivePoints) error {
	voterID = normalizeAddress(voterID)
	receivers := make([]int64, 0, len(points))
	return r.db.RunInTx(ctx, nil, func(tx *db.Tx) error {
		for _, p := range points {
			q, args, err := db.Upsert(r.table).
				Key("chain_id", chainID).
				Key("voter_id", voterID).
				Key("receiver_id", p.ReceiverID).
				Key("week", week).
				Set("points", p.Points).
				ToSql()
			if err != nil {
				return fmt.Errorf("can't build query: %w", err)
			}
			if _, err = tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("can't upsert incentive points: %w", err)
			}
			receivers = append(receivers, p.ReceiverID)
		}
		q, args, err := sq.Update(r.table).
			Set("updated_at", sq.Expr("NOW()")).
			Set("points", 0).
			Where(sq.Eq{"chain_id": chainID, "voter_id": voterID, "week": week}).
			Where(sq.Expr("NOT (receiver_id = ANY(?))", pq.Array(receivers))).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("can't build query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("can't reset stale incentive points: %w", err)
		}
		return nil
	})
}

func (r *incentivePointsRepo) FindByVoter(ctx context.Context, chainID int64, voterID string, fromWeek, toWeek int64) ([]*entity.UserIncentivePoints, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "voter_id": normalizeAddress(voterID)}).
		Where(sq.GtOrEq{"week": fromWeek}).
		Where(sq.LtOrEq{"week": toWeek}).
		OrderBy("week", "receiver_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	points := make([]*entity.UserIncentivePoints, 0, 16)
	err = r.db.SelectContext(ctx, &points, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select incentive points: %w", err)
	}
	return points, nil
}

func latestWeek(ctx context.Context, r *basePostgresRepo, chainID int64) (int64, error) {
	q, args, err := sq.Select("COALESCE(MAX(week), 0)").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var week int64
	err = r.db.GetContext(ctx, &week, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't get latest week of %s: %w", r.table, err)
	}
	return week, nil
}
