package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type protocolsRepo basePostgresRepo

func NewProtocolsRepo(table string, db *db.DB) entity.ProtocolsRepo {
	return (*protocolsRepo)(newBasePostgresRepo(table, db))
}

func (r *protocolsRepo) Upsert(ctx context.Context, protocol *entity.Protocol) error {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", protocol.ChainID).
		Set("start_time", protocol.StartTime).
		Set("price_feed", normalizeAddress(protocol.PriceFeed)).
		Set("lockers_count", protocol.LockersCount).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert protocol: %w", err)
	}
	return nil
}

func (r *protocolsRepo) GetByChainID(ctx context.Context, chainID int64) (*entity.Protocol, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	protocol := new(entity.Protocol)
	err = r.db.GetContext(ctx, protocol, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get protocol: %w", err)
	}
	return protocol, nil
}
