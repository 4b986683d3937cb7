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

const eventsQueryTemplate = `query %s($index_gte: BigInt!, $index_lt: BigInt!) {
  %s(first: 1000, orderBy: index, where: {index_gte: $index_gte, index_lt: $index_lt}) {
    user {
      id
      stakeSize
    }
    amount
    amountUsd
    index
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

type stakeEventData struct {
	User struct {
		ID        string          `json:"id"`
		StakeSize decimal.Decimal `json:"stakeSize"`
	} `json:"user"`
	Amount    decimal.Decimal `json:"amount"`
	AmountUSD decimal.Decimal `json:"amountUsd"`
	Index     subgraph.Int    `json:"index"`
	subgraph.Block
}

// EventsImporter imports either the stakes or the withdrawals of a staking
// contract, recording the staker's balance at each event.
type EventsImporter struct {
	*indexer.Deps
	contract  *entity.StakingContract
	operation entity.StakeOperation
	field     string
	query     string
}

func NewEventsImporter(deps *indexer.Deps, contract *entity.StakingContract, operation entity.StakeOperation) *EventsImporter {
	name, field := "Stakes", "stakes"
	if operation == entity.StakeOperationWithdraw {
		name, field = "Withdrawals", "withdrawals"
	}
	return &EventsImporter{
		Deps:      deps,
		contract:  contract,
		operation: operation,
		field:     field,
		query:     fmt.Sprintf(eventsQueryTemplate, name, field),
	}
}

func (i *EventsImporter) ImportRange(ctx context.Context, from, to uint64) error {
	return indexer.ForEachPage(ctx, from, to, func(ctx context.Context, r *indexer.IndexRange) error {
		var data map[string][]*stakeEventData
		if err := i.Client.Query(ctx, i.query, r.Vars(), &data); err != nil {
			return fmt.Errorf("can't query %s [%d, %d): %w", i.field, r.From, r.To, err)
		}
		events := data[i.field]
		for _, e := range events {
			if err := i.importEvent(ctx, e); err != nil {
				return fmt.Errorf("can't import %s %d: %w", i.operation, e.Index, err)
			}
		}
		indexer.ImportedItems.WithLabelValues(i.Chain.Name, "stake_events").Add(float64(len(events)))
		return nil
	})
}

func (i *EventsImporter) importEvent(ctx context.Context, e *stakeEventData) error {
	user := utils.NormalizeAddress(e.User.ID)
	if err := i.Repo.Users.Ensure(ctx, user); err != nil {
		return fmt.Errorf("can't ensure staker: %w", err)
	}
	err := i.Repo.StakeEvents.Upsert(ctx, &entity.StakeEvent{
		StakingID: i.contract.ID,
		UserID:    user,
		Operation: i.operation,
		Index:     e.Index.Int64(),
		Amount:    e.Amount,
		AmountUSD: e.AmountUSD,
		Block:     indexer.BlockOf(e.Block),
	})
	if err != nil {
		return fmt.Errorf("can't upsert stake event: %w", err)
	}
	err = i.Repo.StakingBalances.Upsert(ctx, &entity.StakingBalance{
		StakingID: i.contract.ID,
		UserID:    user,
		StakeSize: e.User.StakeSize,
		Timestamp: e.BlockTimestamp.Int64(),
	})
	if err != nil {
		return fmt.Errorf("can't upsert staking balance: %w", err)
	}
	return nil
}
