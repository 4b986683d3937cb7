package indexer

import (
	"context"

	"github.com/prisma-monitor/indexer/subgraph"
)

// PageSize is the number of items requested from the subgraph per query.
const PageSize = 1000

// IndexRange is the half-open window [From, To) of item indices.
type IndexRange struct {
	From uint64
	To   uint64
}

func (r *IndexRange) Vars() subgraph.Vars {
	return subgraph.Vars{
		"index_gte": r.From,
		"index_lt":  r.To,
	}
}

func SplitIndexRange(from, to, size uint64) []*IndexRange {
	batches := make([]*IndexRange, 0, 10)
	for start := from; start < to; start += size {
		end := start + size
		if end > to {
			end = to
		}
		batches = append(batches, &IndexRange{
			From: start,
			To:   end,
		})
	}
	return batches
}

// Importer loads the items of one stream with indices in [from, to).
type Importer interface {
	ImportRange(ctx context.Context, from, to uint64) error
}

type ImporterFunc func(ctx context.Context, from, to uint64) error

func (f ImporterFunc) ImportRange(ctx context.Context, from, to uint64) error {
	return f(ctx, from, to)
}

// ForEachPage calls fetch for every page window of [from, to), stopping at the first error.
func ForEachPage(ctx context.Context, from, to uint64, fetch func(ctx context.Context, r *IndexRange) error) error {
	for _, r := range SplitIndexRange(from, to, PageSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fetch(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
