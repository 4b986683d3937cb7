package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const zapStakesQuery = `query ZapStakes($index_gte: BigInt!) {
  zapStakes(first: 1000, orderBy: index, orderDirection: asc, where: {index_gte: $index_gte}) {
    ethAmount
    collateral {
      id
    }
    index
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

type zapStakeData struct {
	EthAmount  decimal.Decimal `json:"ethAmount"`
	Collateral subgraph.Ref    `json:"collateral"`
	Index      subgraph.Int    `json:"index"`
	subgraph.Block
}

type ZapStakesImporter struct {
	*Deps
}

func NewZapStakesImporter(deps *Deps) *ZapStakesImporter {
	return &ZapStakesImporter{Deps: deps}
}

// Import pages through zap stakes following the highest stored index until a short page.
func (i *ZapStakesImporter) Import(ctx context.Context) error {
	next, err := i.Repo.ZapStakes.NextIndex(ctx, i.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("can't get next zap stake index: %w", err)
	}
	collaterals := make(map[string]int64)
	for {
		var data struct {
			Stakes []*zapStakeData `json:"zapStakes"`
		}
		if err = i.Client.Query(ctx, zapStakesQuery, subgraph.Vars{"index_gte": next}, &data); err != nil {
			return fmt.Errorf("can't query zap stakes from %d: %w", next, err)
		}
		for _, z := range data.Stakes {
			address := utils.NormalizeAddress(z.Collateral.ID)
			collateralID, ok := collaterals[address]
			if !ok {
				collateral, err := i.Repo.Collaterals.GetByChainIDAndAddress(ctx, i.Chain.ChainID, address)
				if err != nil {
					return fmt.Errorf("can't find zap collateral %s: %w", address, err)
				}
				collateralID = collateral.ID
				collaterals[address] = collateralID
			}
			err = i.Repo.ZapStakes.Upsert(ctx, &entity.ZapStake{
				CollateralID: collateralID,
				Index:        z.Index.Int64(),
				Amount:       z.EthAmount,
				Block:        BlockOf(z.Block),
			})
			if err != nil {
				return fmt.Errorf("can't upsert zap stake %d: %w", z.Index, err)
			}
			if z.Index.Int64() >= next {
				next = z.Index.Int64() + 1
			}
		}
		i.imported("zap_stakes", len(data.Stakes))
		if len(data.Stakes) < PageSize {
			return nil
		}
	}
}
