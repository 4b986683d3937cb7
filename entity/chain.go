package entity

import "context"

type Chain struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Timestamps
}

type ChainsRepo interface {
	Ensure(ctx context.Context, chain *Chain) error
	FindAll(ctx context.Context) ([]*Chain, error)
}
