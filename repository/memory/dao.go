package memory

import (
	"context"

	"github.com/prisma-monitor/indexer/entity"
)

type ownershipProposalsRepo Store

func (r *ownershipProposalsRepo) Upsert(_ context.Context, p *entity.OwnershipProposal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *p
	row.CreatorID = addr(row.CreatorID)
	stored, inserted := upsert(r.proposals, key(row.ChainID, row.CreatorID, row.Index), &row, func(stored, row *entity.OwnershipProposal) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

func (r *ownershipProposalsRepo) GetByIndex(_ context.Context, chainID int64, creatorID string, index int64) (*entity.OwnershipProposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.proposals[key(chainID, addr(creatorID), index)]
	if !ok {
		return nil, notFound("ownership proposal")
	}
	cp := *p
	return &cp, nil
}

type ownershipVotesRepo Store

func (r *ownershipVotesRepo) Upsert(_ context.Context, v *entity.OwnershipVote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *v
	row.VoterID = addr(row.VoterID)
	stored, inserted := upsert(r.ownVotes, key(row.ProposalID, row.VoterID, row.Index), &row, func(stored, row *entity.OwnershipVote) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

// Votes returns the stored ownership votes of a proposal.
func (s *Store) Votes(proposalID int64) []*entity.OwnershipVote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := values(s.ownVotes, func(v *entity.OwnershipVote) bool { return v.ProposalID == proposalID })
	sortBy(votes, func(a, b *entity.OwnershipVote) bool { return a.Index < b.Index })
	return votes
}

type incentiveReceiversRepo Store

func (r *incentiveReceiversRepo) Upsert(_ context.Context, rc *entity.IncentiveReceiver) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *rc
	row.Address = addr(row.Address)
	stored, inserted := upsert(r.receivers, key(row.ChainID, row.Address, row.Index), &row, func(stored, row *entity.IncentiveReceiver) {
		stored.IsActive = row.IsActive
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return stored.ID, nil
}

type incentiveVotesRepo Store

func (r *incentiveVotesRepo) Upsert(_ context.Context, v *entity.IncentiveVote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *v
	row.VoterID = addr(row.VoterID)
	stored, inserted := upsert(r.incVotes, key(row.ChainID, row.VoterID, row.Week, row.Index, row.TargetID), &row, func(stored, row *entity.IncentiveVote) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *incentiveVotesRepo) LatestWeek(_ context.Context, chainID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var week int64
	for _, v := range r.incVotes {
		if v.ChainID == chainID && v.Week > week {
			week = v.Week
		}
	}
	return week, nil
}

func (r *incentiveVotesRepo) FindByVoterAndWeek(_ context.Context, chainID int64, voterID string, week int64) ([]*entity.IncentiveVote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voterID = addr(voterID)
	votes := values(r.incVotes, func(v *entity.IncentiveVote) bool {
		return v.ChainID == chainID && v.VoterID == voterID && v.Week == week
	})
	sortBy(votes, func(a, b *entity.IncentiveVote) bool {
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.TargetID < b.TargetID
	})
	return votes, nil
}

type incentivePointsRepo Store

func (r *incentivePointsRepo) LatestBefore(_ context.Context, chainID int64, voterID string, week int64) ([]*entity.UserIncentivePoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voterID = addr(voterID)
	latest := make(map[int64]*entity.UserIncentivePoints)
	for _, p := range r.points {
		if p.ChainID != chainID || p.VoterID != voterID || p.Week >= week {
			continue
		}
		if cur, ok := latest[p.ReceiverID]; !ok || p.Week > cur.Week {
			latest[p.ReceiverID] = p
		}
	}
	res := make([]*entity.UserIncentivePoints, 0, len(latest))
	for _, p := range latest {
		cp := *p
		res = append(res, &cp)
	}
	sortBy(res, func(a, b *entity.UserIncentivePoints) bool { return a.ReceiverID < b.ReceiverID })
	return res, nil
}

func (r *incentivePointsRepo) InsertIfAbsent(_ context.Context, points []*entity.UserIncentivePoints) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range points {
		row := *p
		row.VoterID = addr(row.VoterID)
		stored, inserted := upsert(r.points, key(row.ChainID, row.VoterID, row.ReceiverID, row.Week), &row, func(_, _ *entity.UserIncentivePoints) {})
		if inserted {
			stored.ID = (*Store)(r).nextID()
		}
	}
	return nil
}

func (r *incentivePointsRepo) ReplaceWeek(_ context.Context, chainID int64, voterID string, week int64, points []*entity.UserIncentivePoints) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	voterID = addr(voterID)
	kept := make(map[int64]bool, len(points))
	for _, p := range points {
		row := entity.UserIncentivePoints{ChainID: chainID, VoterID: voterID, ReceiverID: p.ReceiverID, Week: week, Points: p.Points}
		stored, inserted := upsert(r.points, key(chainID, voterID, p.ReceiverID, week), &row, func(stored, row *entity.UserIncentivePoints) {
			stored.Points = row.Points
		})
		if inserted {
			stored.ID = (*Store)(r).nextID()
		}
		kept[p.ReceiverID] = true
	}
	for _, p := range r.points {
		if p.ChainID == chainID && p.VoterID == voterID && p.Week == week && !kept[p.ReceiverID] {
			p.Points = 0
		}
	}
	return nil
}

func (r *incentivePointsRepo) FindByVoter(_ context.Context, chainID int64, voterID string, fromWeek, toWeek int64) ([]*entity.UserIncentivePoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voterID = addr(voterID)
	res := values(r.points, func(p *entity.UserIncentivePoints) bool {
		return p.ChainID == chainID && p.VoterID == voterID && p.Week >= fromWeek && p.Week <= toWeek
	})
	sortBy(res, func(a, b *entity.UserIncentivePoints) bool {
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.ReceiverID < b.ReceiverID
	})
	return res, nil
}

type weeklyBoostsRepo Store

func (r *weeklyBoostsRepo) Upsert(_ context.Context, b *entity.WeeklyBoost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *b
	row.UserID = addr(row.UserID)
	stored, inserted := upsert(r.boosts, key(row.ChainID, row.UserID, row.Week), &row, func(stored, row *entity.WeeklyBoost) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *weeklyBoostsRepo) LatestWeek(_ context.Context, chainID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var week int64
	for _, b := range r.boosts {
		if b.ChainID == chainID && b.Week > week {
			week = b.Week
		}
	}
	return week, nil
}

type batchRewardClaimsRepo Store

func (r *batchRewardClaimsRepo) Upsert(_ context.Context, c *entity.BatchRewardClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *c
	row.CallerID, row.DelegateID, row.ReceiverID = addr(row.CallerID), addr(row.DelegateID), addr(row.ReceiverID)
	stored, inserted := upsert(r.claims, key(row.ChainID, row.Week, row.CallerID, row.DelegateID, row.Index), &row, func(stored, row *entity.BatchRewardClaim) {
		id := stored.ID
		*stored = *row
		stored.ID = id
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

type weeklyEmissionsRepo Store

func (r *weeklyEmissionsRepo) Upsert(_ context.Context, e *entity.WeeklyEmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *e
	stored, inserted := upsert(r.emissions, key(row.ChainID, row.Week), &row, func(stored, row *entity.WeeklyEmission) {
		stored.Emissions = row.Emissions
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *weeklyEmissionsRepo) LatestWeek(_ context.Context, chainID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var week int64
	for _, e := range r.emissions {
		if e.ChainID == chainID && e.Week > week {
			week = e.Week
		}
	}
	return week, nil
}

type weeklyWeightsRepo Store

func (r *weeklyWeightsRepo) UpsertTotal(_ context.Context, w *entity.WeeklyWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *w
	row.UserID = ""
	stored, inserted := upsert(r.totalWeights, key(row.ChainID, row.Week), &row, func(stored, row *entity.WeeklyWeight) {
		stored.Weight, stored.Unlock = row.Weight, row.Unlock
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}

func (r *weeklyWeightsRepo) UpsertUser(_ context.Context, w *entity.WeeklyWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *w
	row.UserID = addr(row.UserID)
	stored, inserted := upsert(r.userWeights, key(row.ChainID, row.UserID, row.Week), &row, func(stored, row *entity.WeeklyWeight) {
		stored.Weight, stored.Unlock = row.Weight, row.Unlock
	})
	if inserted {
		stored.ID = (*Store)(r).nextID()
	}
	return nil
}
