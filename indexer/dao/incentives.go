package dao

import (
	"context"
	"fmt"
	"sort"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const incentiveVotesQuery = `query IncentiveVotes($week: Int!, $index_gte: Int!) {
  incentiveVotes(first: 1000, orderBy: weeklyVoteIndex, orderDirection: asc, where: {week: $week, weeklyVoteIndex_gte: $index_gte}) {
    voter {
      id
    }
    weeklyVoteIndex
    week
    isClearance
    votes(first: 1000) {
      recipient {
        id
        address
      }
      points
    }
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

type incentiveVoteData struct {
	Voter           subgraph.Ref `json:"voter"`
	WeeklyVoteIndex subgraph.Int `json:"weeklyVoteIndex"`
	Week            subgraph.Int `json:"week"`
	IsClearance     bool         `json:"isClearance"`
	Votes           []struct {
		Recipient struct {
			ID      subgraph.Int `json:"id"`
			Address string       `json:"address"`
		} `json:"recipient"`
		Points subgraph.Int `json:"points"`
	} `json:"votes"`
	subgraph.Block
}

// syncIncentives imports the votes of every week from the latest stored one
// through the current week, then rebuilds the weekly points of each voter seen.
func (s *Syncer) syncIncentives(ctx context.Context) error {
	current, err := s.currentWeek(ctx)
	if err != nil {
		return err
	}
	latest, err := s.Repo.IncentiveVotes.LatestWeek(ctx, s.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("can't get latest incentive vote week: %w", err)
	}
	for week := latest; week <= current; week++ {
		if err = s.syncIncentiveWeek(ctx, week); err != nil {
			return fmt.Errorf("week %d: %w", week, err)
		}
	}
	return nil
}

func (s *Syncer) syncIncentiveWeek(ctx context.Context, week int64) error {
	voters := make(map[string]struct{})
	var next int64
	for {
		var data struct {
			Votes []*incentiveVoteData `json:"incentiveVotes"`
		}
		vars := subgraph.Vars{"week": week, "index_gte": next}
		if err := s.Client.Query(ctx, incentiveVotesQuery, vars, &data); err != nil {
			return fmt.Errorf("can't query incentive votes from %d: %w", next, err)
		}
		for _, v := range data.Votes {
			voter, err := s.importIncentiveVote(ctx, week, v)
			if err != nil {
				return fmt.Errorf("can't import incentive vote %d: %w", v.WeeklyVoteIndex, err)
			}
			voters[voter] = struct{}{}
			if v.WeeklyVoteIndex.Int64() >= next {
				next = v.WeeklyVoteIndex.Int64() + 1
			}
		}
		s.imported("incentive_votes", len(data.Votes))
		if len(data.Votes) < indexer.PageSize {
			break
		}
	}

	sorted := make([]string, 0, len(voters))
	for voter := range voters {
		sorted = append(sorted, voter)
	}
	sort.Strings(sorted)
	for _, voter := range sorted {
		if err := s.RecomputePoints(ctx, voter, week); err != nil {
			return fmt.Errorf("can't recompute points of %s: %w", voter, err)
		}
	}
	return nil
}

func (s *Syncer) importIncentiveVote(ctx context.Context, week int64, v *incentiveVoteData) (string, error) {
	voter := utils.NormalizeAddress(v.Voter.ID)
	if err := s.Repo.Users.Ensure(ctx, voter); err != nil {
		return "", fmt.Errorf("can't ensure voter: %w", err)
	}
	row := &entity.IncentiveVote{
		ChainID:     s.Chain.ChainID,
		VoterID:     voter,
		Week:        week,
		Index:       v.WeeklyVoteIndex.Int64(),
		IsClearance: v.IsClearance,
		Block:       indexer.BlockOf(v.Block),
	}
	if len(v.Votes) == 0 {
		if err := s.Repo.IncentiveVotes.Upsert(ctx, row); err != nil {
			return "", fmt.Errorf("can't upsert clearance: %w", err)
		}
		return voter, nil
	}
	for _, vote := range v.Votes {
		receiverID, err := s.Repo.IncentiveReceivers.Upsert(ctx, &entity.IncentiveReceiver{
			ChainID:  s.Chain.ChainID,
			Address:  utils.NormalizeAddress(vote.Recipient.Address),
			Index:    vote.Recipient.ID.Int64(),
			IsActive: true,
		})
		if err != nil {
			return "", fmt.Errorf("can't upsert receiver %d: %w", vote.Recipient.ID, err)
		}
		target := *row
		target.TargetID = receiverID
		target.Points = vote.Points.Int64()
		if err = s.Repo.IncentiveVotes.Upsert(ctx, &target); err != nil {
			return "", fmt.Errorf("can't upsert vote for receiver %d: %w", vote.Recipient.ID, err)
		}
	}
	return voter, nil
}

// RecomputePoints rebuilds the allocation of a voter for a week. Earlier weeks
// without rows receive the latest known allocation first, then the stored votes
// of the week are replayed on top of the previous week in index order. The
// result depends only on stored rows, so recomputing twice is a no-op.
func (s *Syncer) RecomputePoints(ctx context.Context, voter string, week int64) error {
	chainID := s.Chain.ChainID
	latest, err := s.Repo.IncentivePoints.LatestBefore(ctx, chainID, voter, week)
	if err != nil {
		return fmt.Errorf("can't get previous allocation: %w", err)
	}
	var filled []*entity.UserIncentivePoints
	allocation := make(map[int64]int64, len(latest))
	for _, p := range latest {
		for w := p.Week + 1; w < week; w++ {
			filled = append(filled, &entity.UserIncentivePoints{
				ChainID:    chainID,
				VoterID:    voter,
				ReceiverID: p.ReceiverID,
				Week:       w,
				Points:     p.Points,
			})
		}
		allocation[p.ReceiverID] = p.Points
	}
	if len(filled) > 0 {
		if err = s.Repo.IncentivePoints.InsertIfAbsent(ctx, filled); err != nil {
			return fmt.Errorf("can't forward fill allocation: %w", err)
		}
	}

	votes, err := s.Repo.IncentiveVotes.FindByVoterAndWeek(ctx, chainID, voter, week)
	if err != nil {
		return fmt.Errorf("can't get votes: %w", err)
	}
	cleared := make(map[int64]bool)
	for _, v := range votes {
		if v.IsClearance && !cleared[v.Index] {
			for receiver := range allocation {
				allocation[receiver] = 0
			}
			cleared[v.Index] = true
		}
		if v.TargetID != 0 {
			allocation[v.TargetID] += v.Points
		}
	}

	points := make([]*entity.UserIncentivePoints, 0, len(allocation))
	for receiver, p := range allocation {
		points = append(points, &entity.UserIncentivePoints{
			ChainID:    chainID,
			VoterID:    voter,
			ReceiverID: receiver,
			Week:       week,
			Points:     p,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ReceiverID < points[j].ReceiverID })
	if err = s.Repo.IncentivePoints.ReplaceWeek(ctx, chainID, voter, week, points); err != nil {
		return fmt.Errorf("can't store allocation: %w", err)
	}
	return nil
}
