package staking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const payoutsQuery = `query RewardPaids($index_gte: BigInt!, $index_lt: BigInt!) {
  rewardPaids(first: 1000, orderBy: index, where: {index_gte: $index_gte, index_lt: $index_lt}) {
    user {
      id
    }
    index
    token {
      address
      symbol
    }
    amount
    amountUsd
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

type payoutData struct {
	User  subgraph.Ref `json:"user"`
	Index subgraph.Int `json:"index"`
	Token struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	AmountUSD decimal.Decimal `json:"amountUsd"`
	subgraph.Block
}

type PayoutsImporter struct {
	*indexer.Deps
	contract *entity.StakingContract
}

func NewPayoutsImporter(deps *indexer.Deps, contract *entity.StakingContract) *PayoutsImporter {
	return &PayoutsImporter{Deps: deps, contract: contract}
}

func (i *PayoutsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return indexer.ForEachPage(ctx, from, to, func(ctx context.Context, r *indexer.IndexRange) error {
		var data struct {
			Payouts []*payoutData `json:"rewardPaids"`
		}
		if err := i.Client.Query(ctx, payoutsQuery, r.Vars(), &data); err != nil {
			return fmt.Errorf("can't query reward payouts [%d, %d): %w", r.From, r.To, err)
		}
		for _, p := range data.Payouts {
			user := utils.NormalizeAddress(p.User.ID)
			if err := i.Repo.Users.Ensure(ctx, user); err != nil {
				return fmt.Errorf("can't ensure payout receiver: %w", err)
			}
			err := i.Repo.RewardPayouts.Upsert(ctx, &entity.RewardPayout{
				StakingID:    i.contract.ID,
				UserID:       user,
				Index:        p.Index.Int64(),
				TokenAddress: utils.NormalizeAddress(p.Token.Address),
				TokenSymbol:  p.Token.Symbol,
				Amount:       p.Amount,
				AmountUSD:    p.AmountUSD,
				Block:        indexer.BlockOf(p.Block),
			})
			if err != nil {
				return fmt.Errorf("can't upsert reward payout %d: %w", p.Index, err)
			}
		}
		indexer.ImportedItems.WithLabelValues(i.Chain.Name, "reward_payouts").Add(float64(len(data.Payouts)))
		return nil
	})
}
