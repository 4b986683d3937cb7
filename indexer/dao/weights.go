package dao

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const lockersQuery = `query Lockers {
  lockers {
    accountDataCount
    totalWeeklyWeights
    totalWeeklyUnlocks
  }
}`

const accountWeightsQuery = `query AccountDatas($index_gte: Int!) {
  accountDatas(first: 500, orderBy: index, orderDirection: asc, where: {index_gte: $index_gte}) {
    id
    feePct
    frozen
    weight
    accountWeeklyWeights
    accountWeeklyUnlocks
  }
}`

const accountPageSize = 500

type accountData struct {
	ID                   string            `json:"id"`
	FeePct               decimal.Decimal   `json:"feePct"`
	Frozen               decimal.Decimal   `json:"frozen"`
	Weight               decimal.Decimal   `json:"weight"`
	AccountWeeklyWeights []decimal.Decimal `json:"accountWeeklyWeights"`
	AccountWeeklyUnlocks []decimal.Decimal `json:"accountWeeklyUnlocks"`
}

// syncWeights stores the locker-wide weekly weights, then every account's
// weekly weights and current locker fields. Weeks where both weight and
// unlock are zero are skipped.
func (s *Syncer) syncWeights(ctx context.Context) error {
	var data struct {
		Lockers []struct {
			AccountDataCount   subgraph.Int      `json:"accountDataCount"`
			TotalWeeklyWeights []decimal.Decimal `json:"totalWeeklyWeights"`
			TotalWeeklyUnlocks []decimal.Decimal `json:"totalWeeklyUnlocks"`
		} `json:"lockers"`
	}
	if err := s.Client.Query(ctx, lockersQuery, nil, &data); err != nil {
		return fmt.Errorf("can't query lockers: %w", err)
	}
	if len(data.Lockers) == 0 {
		s.Logger.WithField("chain", s.Chain.Name).Warn("subgraph has no locker, skipping weights")
		return nil
	}
	locker := data.Lockers[0]
	for week, weight := range weeklyPairs(locker.TotalWeeklyWeights, locker.TotalWeeklyUnlocks) {
		err := s.Repo.WeeklyWeights.UpsertTotal(ctx, &entity.WeeklyWeight{
			ChainID: s.Chain.ChainID,
			Week:    week,
			Weight:  weight[0],
			Unlock:  weight[1],
		})
		if err != nil {
			return fmt.Errorf("can't upsert total weight of week %d: %w", week, err)
		}
	}

	total := locker.AccountDataCount.Int64()
	for from := int64(0); from < total; from += accountPageSize {
		var page struct {
			Accounts []*accountData `json:"accountDatas"`
		}
		if err := s.Client.Query(ctx, accountWeightsQuery, subgraph.Vars{"index_gte": from}, &page); err != nil {
			return fmt.Errorf("can't query account weights from %d: %w", from, err)
		}
		for _, a := range page.Accounts {
			if err := s.importAccount(ctx, a); err != nil {
				return fmt.Errorf("can't import account %s: %w", a.ID, err)
			}
		}
		s.imported("account_weights", len(page.Accounts))
	}
	return nil
}

func (s *Syncer) importAccount(ctx context.Context, a *accountData) error {
	account := utils.NormalizeAddress(a.ID)
	err := s.Repo.Users.UpsertLocker(ctx, &entity.User{
		ID:            account,
		LatestFee:     a.FeePct,
		FrozenBalance: a.Frozen,
		Weight:        a.Weight,
	})
	if err != nil {
		return fmt.Errorf("can't upsert locker fields: %w", err)
	}
	for week, weight := range weeklyPairs(a.AccountWeeklyWeights, a.AccountWeeklyUnlocks) {
		err = s.Repo.WeeklyWeights.UpsertUser(ctx, &entity.WeeklyWeight{
			ChainID: s.Chain.ChainID,
			UserID:  account,
			Week:    week,
			Weight:  weight[0],
			Unlock:  weight[1],
		})
		if err != nil {
			return fmt.Errorf("can't upsert weight of week %d: %w", week, err)
		}
	}
	return nil
}

// weeklyPairs zips per-week weights and unlocks, dropping weeks where both are zero.
func weeklyPairs(weights, unlocks []decimal.Decimal) map[int64][2]decimal.Decimal {
	res := make(map[int64][2]decimal.Decimal)
	for week, weight := range weights {
		unlock := decimal.Zero
		if week < len(unlocks) {
			unlock = unlocks[week]
		}
		if weight.IsZero() && unlock.IsZero() {
			continue
		}
		res[int64(week)] = [2]decimal.Decimal{weight, unlock}
	}
	return res
}
