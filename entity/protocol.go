package entity

import "context"

type Protocol struct {
	ID           int64  `db:"id"`
	ChainID      int64  `db:"chain_id"`
	StartTime    int64  `db:"start_time"`
	PriceFeed    string `db:"price_feed"`
	LockersCount int64  `db:"lockers_count"`
	Timestamps
}

type ProtocolsRepo interface {
	Upsert(ctx context.Context, protocol *Protocol) error
	GetByChainID(ctx context.Context, chainID int64) (*Protocol, error)
}
