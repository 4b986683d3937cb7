package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

var ErrNoProtocol = errors.New("subgraph has no protocol entity")

const baseEntitiesQuery = `query BaseEntities {
  protocols {
    id
    startTime
    priceFeed
    lockersCount
  }
  stabilityPools {
    id
    snapshotsCount
    operationsCount
    totalDeposited
  }
  troveManagers(first: 1000) {
    id
    priceFeed
    sunsetting
    snapshotsCount
    troveSnapshotsCount
    blockNumber
    blockTimestamp
    transactionHash
    collateral {
      id
      name
      decimals
      symbol
      latestPrice
    }
  }
}`

type baseEntitiesData struct {
	Protocols []struct {
		ID           string       `json:"id"`
		StartTime    subgraph.Int `json:"startTime"`
		PriceFeed    string       `json:"priceFeed"`
		LockersCount subgraph.Int `json:"lockersCount"`
	} `json:"protocols"`
	StabilityPools []struct {
		ID              string          `json:"id"`
		SnapshotsCount  subgraph.Int    `json:"snapshotsCount"`
		OperationsCount subgraph.Int    `json:"operationsCount"`
		TotalDeposited  decimal.Decimal `json:"totalDeposited"`
	} `json:"stabilityPools"`
	TroveManagers []struct {
		ID                  string       `json:"id"`
		PriceFeed           string       `json:"priceFeed"`
		Sunsetting          bool         `json:"sunsetting"`
		SnapshotsCount      subgraph.Int `json:"snapshotsCount"`
		TroveSnapshotsCount subgraph.Int `json:"troveSnapshotsCount"`
		subgraph.Block
		Collateral struct {
			ID          string          `json:"id"`
			Name        string          `json:"name"`
			Decimals    subgraph.Int    `json:"decimals"`
			Symbol      string          `json:"symbol"`
			LatestPrice decimal.Decimal `json:"latestPrice"`
		} `json:"collateral"`
	} `json:"troveManagers"`
}

// ChainState is the remote view of the base entities: stored row ids with the
// counters and latest prices reported by the subgraph.
type ChainState struct {
	Pool        *entity.StabilityPool
	Managers    map[string]*entity.TroveManager
	Collaterals map[string]*entity.Collateral
}

type BaseEntitiesImporter struct {
	*Deps
}

func NewBaseEntitiesImporter(deps *Deps) *BaseEntitiesImporter {
	return &BaseEntitiesImporter{Deps: deps}
}

// Import upserts protocol, stability pool, collaterals and trove managers.
// Counter columns and latest prices are left to the orchestrator.
func (i *BaseEntitiesImporter) Import(ctx context.Context) (*ChainState, error) {
	var data baseEntitiesData
	if err := i.Client.Query(ctx, baseEntitiesQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("can't query base entities: %w", err)
	}
	if len(data.Protocols) == 0 {
		return nil, ErrNoProtocol
	}
	chainID := i.Chain.ChainID
	protocol := data.Protocols[0]
	err := i.Repo.Protocols.Upsert(ctx, &entity.Protocol{
		ChainID:      chainID,
		StartTime:    protocol.StartTime.Int64(),
		PriceFeed:    utils.NormalizeAddress(protocol.PriceFeed),
		LockersCount: protocol.LockersCount.Int64(),
	})
	if err != nil {
		return nil, fmt.Errorf("can't upsert protocol: %w", err)
	}

	state := &ChainState{
		Managers:    make(map[string]*entity.TroveManager, len(data.TroveManagers)),
		Collaterals: make(map[string]*entity.Collateral, len(data.TroveManagers)),
	}
	var poolID *int64
	if len(data.StabilityPools) > 0 {
		remote := data.StabilityPools[0]
		pool := &entity.StabilityPool{
			ChainID:        chainID,
			Address:        utils.NormalizeAddress(remote.ID),
			TotalDeposited: remote.TotalDeposited,
		}
		pool.ID, err = i.Repo.StabilityPools.Upsert(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("can't upsert stability pool %s: %w", remote.ID, err)
		}
		pool.SnapshotsCount = remote.SnapshotsCount.Uint64()
		pool.OperationsCount = remote.OperationsCount.Uint64()
		state.Pool = pool
		poolID = &pool.ID
	}

	for _, remote := range data.TroveManagers {
		collateral := &entity.Collateral{
			ChainID:         chainID,
			StabilityPoolID: poolID,
			Address:         utils.NormalizeAddress(remote.Collateral.ID),
			Name:            remote.Collateral.Name,
			Symbol:          remote.Collateral.Symbol,
			Decimals:        int(remote.Collateral.Decimals),
		}
		collateral.ID, err = i.Repo.Collaterals.Upsert(ctx, collateral)
		if err != nil {
			return nil, fmt.Errorf("can't upsert collateral %s: %w", remote.Collateral.ID, err)
		}
		collateral.LatestPrice = remote.Collateral.LatestPrice
		state.Collaterals[collateral.Address] = collateral

		manager := &entity.TroveManager{
			ChainID:      chainID,
			CollateralID: collateral.ID,
			Address:      utils.NormalizeAddress(remote.ID),
			PriceFeed:    utils.NormalizeAddress(remote.PriceFeed),
			Sunsetting:   remote.Sunsetting,
			Block:        BlockOf(remote.Block),
		}
		manager.ID, err = i.Repo.TroveManagers.Upsert(ctx, manager)
		if err != nil {
			return nil, fmt.Errorf("can't upsert trove manager %s: %w", remote.ID, err)
		}
		manager.SnapshotsCount = remote.SnapshotsCount.Uint64()
		manager.TroveSnapshotsCount = remote.TroveSnapshotsCount.Uint64()
		state.Managers[manager.Address] = manager
	}
	return state, nil
}

// BlockOf converts the block fields of a subgraph entity.
func BlockOf(b subgraph.Block) entity.Block {
	return entity.Block{
		BlockNumber:     b.BlockNumber.Int64(),
		BlockTimestamp:  b.BlockTimestamp.Int64(),
		TransactionHash: b.TransactionHash,
	}
}
