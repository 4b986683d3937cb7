package indexer

import (
	"context"
	"fmt"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/utils"
)

// NewStreamImporter builds the importer of a chain stream owned by the given
// pool or trove manager address. Staking streams are served by the staking package.
func NewStreamImporter(ctx context.Context, deps *Deps, stream entity.Stream, owner string) (Importer, error) {
	owner = utils.NormalizeAddress(owner)
	switch stream {
	case entity.StreamPoolSnapshots, entity.StreamPoolOperations:
		pool, err := deps.Repo.StabilityPools.GetByChainID(ctx, deps.Chain.ChainID)
		if err != nil {
			return nil, fmt.Errorf("can't find stability pool: %w", err)
		}
		if owner != "" && owner != pool.Address {
			return nil, fmt.Errorf("stability pool of chain %s is %s, not %s", deps.Chain.Name, pool.Address, owner)
		}
		if stream == entity.StreamPoolSnapshots {
			return NewPoolSnapshotsImporter(deps, pool), nil
		}
		return NewPoolOperationsImporter(deps, pool)
	case entity.StreamManagerSnapshots, entity.StreamTroveSnapshots:
		manager, err := deps.Repo.TroveManagers.GetByChainIDAndAddress(ctx, deps.Chain.ChainID, owner)
		if err != nil {
			return nil, fmt.Errorf("can't find trove manager %s: %w", owner, err)
		}
		if stream == entity.StreamManagerSnapshots {
			return NewManagerSnapshotsImporter(deps, manager), nil
		}
		return NewTroveSnapshotsImporter(deps, manager), nil
	default:
		if _, err := stream.Column(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("stream %s is not a chain stream", stream)
	}
}
