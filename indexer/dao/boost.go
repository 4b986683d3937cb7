package dao

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const weeklyEmissionsQuery = `query WeeklyEmissions($from: Int!, $to: Int!) {
  weeklyEmissions(first: 1000, where: {week_gte: $from, week_lte: $to}) {
    week
    emissions
  }
}`

const weeklyBoostQuery = `query WeeklyBoostDatas($week: Int!, $skip: Int!) {
  weeklyBoostDatas(first: 1000, skip: $skip, orderBy: index, orderDirection: desc, where: {week: $week}) {
    account {
      id
    }
    week
    boost
    pct
    lastAppliedFee
    nonLockingFee
    boostDelegation
    boostDelegationUsers
    eligibleFor
    totalClaimed
    selfClaimed
    otherClaimed
    accruedFees
    timeToDepletion
    batchRewardClaims(first: 1000, orderBy: index, orderDirection: desc) {
      caller {
        id
      }
      receiver {
        id
      }
      boostDelegate {
        id
      }
      index
      totalClaimed
      totalClaimedBoosted
      delegateRemainingEligible
      maxFee
      week
      feeGenerated
      feeApplied
      blockNumber
      blockTimestamp
      transactionHash
    }
  }
}`

// maxBoostPages bounds the accounts read per week.
const maxBoostPages = 6

type batchRewardClaimData struct {
	Caller                    subgraph.Ref    `json:"caller"`
	Receiver                  subgraph.Ref    `json:"receiver"`
	BoostDelegate             subgraph.Ref    `json:"boostDelegate"`
	Index                     subgraph.Int    `json:"index"`
	TotalClaimed              decimal.Decimal `json:"totalClaimed"`
	TotalClaimedBoosted       decimal.Decimal `json:"totalClaimedBoosted"`
	DelegateRemainingEligible decimal.Decimal `json:"delegateRemainingEligible"`
	MaxFee                    decimal.Decimal `json:"maxFee"`
	Week                      subgraph.Int    `json:"week"`
	FeeGenerated              decimal.Decimal `json:"feeGenerated"`
	FeeApplied                decimal.Decimal `json:"feeApplied"`
	subgraph.Block
}

type weeklyBoostData struct {
	Account              subgraph.Ref            `json:"account"`
	Week                 subgraph.Int            `json:"week"`
	Boost                decimal.Decimal         `json:"boost"`
	Pct                  decimal.Decimal         `json:"pct"`
	LastAppliedFee       decimal.Decimal         `json:"lastAppliedFee"`
	NonLockingFee        decimal.Decimal         `json:"nonLockingFee"`
	BoostDelegation      bool                    `json:"boostDelegation"`
	BoostDelegationUsers subgraph.Int            `json:"boostDelegationUsers"`
	EligibleFor          decimal.Decimal         `json:"eligibleFor"`
	TotalClaimed         decimal.Decimal         `json:"totalClaimed"`
	SelfClaimed          decimal.Decimal         `json:"selfClaimed"`
	OtherClaimed         decimal.Decimal         `json:"otherClaimed"`
	AccruedFees          decimal.Decimal         `json:"accruedFees"`
	TimeToDepletion      subgraph.Int            `json:"timeToDepletion"`
	BatchRewardClaims    []*batchRewardClaimData `json:"batchRewardClaims"`
}

func (s *Syncer) syncBoost(ctx context.Context) error {
	current, err := s.currentWeek(ctx)
	if err != nil {
		return err
	}
	latest, err := s.Repo.WeeklyBoosts.LatestWeek(ctx, s.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("can't get latest boost week: %w", err)
	}
	if err = s.syncEmissions(ctx, latest, current); err != nil {
		return err
	}
	for week := latest; week <= current; week++ {
		if err = s.syncBoostWeek(ctx, week); err != nil {
			return fmt.Errorf("week %d: %w", week, err)
		}
	}
	return nil
}

func (s *Syncer) syncEmissions(ctx context.Context, from, to int64) error {
	var data struct {
		Emissions []struct {
			Week      subgraph.Int    `json:"week"`
			Emissions decimal.Decimal `json:"emissions"`
		} `json:"weeklyEmissions"`
	}
	if err := s.Client.Query(ctx, weeklyEmissionsQuery, subgraph.Vars{"from": from, "to": to}, &data); err != nil {
		return fmt.Errorf("can't query weekly emissions: %w", err)
	}
	for _, e := range data.Emissions {
		err := s.Repo.WeeklyEmissions.Upsert(ctx, &entity.WeeklyEmission{
			ChainID:   s.Chain.ChainID,
			Week:      e.Week.Int64(),
			Emissions: e.Emissions,
		})
		if err != nil {
			return fmt.Errorf("can't upsert emissions of week %d: %w", e.Week, err)
		}
	}
	s.imported("weekly_emissions", len(data.Emissions))
	return nil
}

func (s *Syncer) syncBoostWeek(ctx context.Context, week int64) error {
	for page := 0; page < maxBoostPages; page++ {
		var data struct {
			Boosts []*weeklyBoostData `json:"weeklyBoostDatas"`
		}
		vars := subgraph.Vars{"week": week, "skip": page * indexer.PageSize}
		if err := s.Client.Query(ctx, weeklyBoostQuery, vars, &data); err != nil {
			return fmt.Errorf("can't query weekly boost page %d: %w", page, err)
		}
		for _, b := range data.Boosts {
			if err := s.importBoost(ctx, b); err != nil {
				return fmt.Errorf("can't import boost of %s: %w", b.Account.ID, err)
			}
		}
		s.imported("weekly_boosts", len(data.Boosts))
		if len(data.Boosts) < indexer.PageSize {
			return nil
		}
	}
	return nil
}

func (s *Syncer) importBoost(ctx context.Context, b *weeklyBoostData) error {
	account := utils.NormalizeAddress(b.Account.ID)
	if err := s.Repo.Users.Ensure(ctx, account); err != nil {
		return fmt.Errorf("can't ensure account: %w", err)
	}
	err := s.Repo.WeeklyBoosts.Upsert(ctx, &entity.WeeklyBoost{
		ChainID:              s.Chain.ChainID,
		UserID:               account,
		Week:                 b.Week.Int64(),
		Boost:                b.Boost,
		Pct:                  b.Pct,
		LastAppliedFee:       b.LastAppliedFee,
		NonLockingFee:        b.NonLockingFee,
		BoostDelegation:      b.BoostDelegation,
		BoostDelegationUsers: b.BoostDelegationUsers.Int64(),
		EligibleFor:          b.EligibleFor,
		TotalClaimed:         b.TotalClaimed,
		SelfClaimed:          b.SelfClaimed,
		OtherClaimed:         b.OtherClaimed,
		AccruedFees:          b.AccruedFees,
		TimeToDepletion:      b.TimeToDepletion.Int64(),
	})
	if err != nil {
		return fmt.Errorf("can't upsert weekly boost: %w", err)
	}
	for _, c := range b.BatchRewardClaims {
		if err = s.importClaim(ctx, c); err != nil {
			return fmt.Errorf("can't import claim %d: %w", c.Index, err)
		}
	}
	return nil
}

func (s *Syncer) importClaim(ctx context.Context, c *batchRewardClaimData) error {
	caller := utils.NormalizeAddress(c.Caller.ID)
	receiver := utils.NormalizeAddress(c.Receiver.ID)
	delegate := utils.NormalizeAddress(c.BoostDelegate.ID)
	for _, user := range []string{caller, receiver, delegate} {
		if err := s.Repo.Users.Ensure(ctx, user); err != nil {
			return fmt.Errorf("can't ensure user %s: %w", user, err)
		}
	}
	err := s.Repo.BatchRewardClaims.Upsert(ctx, &entity.BatchRewardClaim{
		ChainID:                   s.Chain.ChainID,
		Week:                      c.Week.Int64(),
		CallerID:                  caller,
		ReceiverID:                receiver,
		DelegateID:                delegate,
		Index:                     c.Index.Int64(),
		TotalClaimed:              c.TotalClaimed,
		TotalClaimedBoosted:       c.TotalClaimedBoosted,
		DelegateRemainingEligible: c.DelegateRemainingEligible,
		MaxFee:                    c.MaxFee,
		FeeGenerated:              c.FeeGenerated,
		FeeApplied:                c.FeeApplied,
		Block:                     indexer.BlockOf(c.Block),
	})
	if err != nil {
		return fmt.Errorf("can't upsert batch reward claim: %w", err)
	}
	return nil
}
