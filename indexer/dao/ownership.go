package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/contract"
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/subgraph"
	"github.com/prisma-monitor/indexer/utils"
)

const ownershipProposalsQuery = `query OwnershipProposals($index_gte: BigInt!) {
  ownershipProposals(first: 1000, orderBy: index, orderDirection: asc, where: {index_gte: $index_gte}) {
    id
    creator {
      id
    }
    status
    index
    payload {
      target
      data
    }
    week
    requiredWeight
    receivedWeight
    canExecuteAfter
    voteCount
    execution {
      transactionHash
    }
    blockNumber
    blockTimestamp
    transactionHash
    votes(first: 1000, orderBy: index, orderDirection: asc) {
      voter {
        id
      }
      index
      weight
      accountWeight
      decisive
      blockNumber
      blockTimestamp
      transactionHash
    }
  }
}`

type ownershipVoteData struct {
	Voter         subgraph.Ref    `json:"voter"`
	Index         subgraph.Int    `json:"index"`
	Weight        decimal.Decimal `json:"weight"`
	AccountWeight decimal.Decimal `json:"accountWeight"`
	Decisive      bool            `json:"decisive"`
	subgraph.Block
}

type proposalData struct {
	ID              string          `json:"id"`
	Creator         subgraph.Ref    `json:"creator"`
	Status          string          `json:"status"`
	Index           subgraph.Int    `json:"index"`
	Payload         json.RawMessage `json:"payload"`
	Week            subgraph.Int    `json:"week"`
	RequiredWeight  decimal.Decimal `json:"requiredWeight"`
	ReceivedWeight  decimal.Decimal `json:"receivedWeight"`
	CanExecuteAfter subgraph.Int    `json:"canExecuteAfter"`
	VoteCount       subgraph.Int    `json:"voteCount"`
	Execution       *struct {
		TransactionHash string `json:"transactionHash"`
	} `json:"execution"`
	Votes []*ownershipVoteData `json:"votes"`
	subgraph.Block
}

// syncOwnership re-reads every proposal since statuses and weights keep changing
// until execution. Votes are only rewritten when the remote vote count moved.
func (s *Syncer) syncOwnership(ctx context.Context) error {
	var next int64
	for {
		var data struct {
			Proposals []*proposalData `json:"ownershipProposals"`
		}
		if err := s.Client.Query(ctx, ownershipProposalsQuery, subgraph.Vars{"index_gte": next}, &data); err != nil {
			return fmt.Errorf("can't query ownership proposals from %d: %w", next, err)
		}
		for _, p := range data.Proposals {
			if err := s.importProposal(ctx, p); err != nil {
				return fmt.Errorf("can't import ownership proposal %d: %w", p.Index, err)
			}
			if p.Index.Int64() >= next {
				next = p.Index.Int64() + 1
			}
		}
		s.imported("ownership_proposals", len(data.Proposals))
		if len(data.Proposals) < indexer.PageSize {
			return nil
		}
	}
}

func (s *Syncer) importProposal(ctx context.Context, p *proposalData) error {
	status, err := entity.ProposalStatuses.Decode(p.Status)
	if err != nil {
		return err
	}
	creator := utils.NormalizeAddress(p.Creator.ID)
	if err = s.Repo.Users.Ensure(ctx, creator); err != nil {
		return fmt.Errorf("can't ensure proposal creator: %w", err)
	}
	stored, err := s.Repo.OwnershipProposals.GetByIndex(ctx, s.Chain.ChainID, creator, p.Index.Int64())
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("can't get stored proposal: %w", err)
	}

	proposal := &entity.OwnershipProposal{
		ChainID:         s.Chain.ChainID,
		CreatorID:       creator,
		ExternalID:      p.ID,
		Index:           p.Index.Int64(),
		Status:          status,
		Data:            entity.JSON(p.Payload),
		Week:            p.Week.Int64(),
		RequiredWeight:  p.RequiredWeight,
		ReceivedWeight:  p.ReceivedWeight,
		CanExecuteAfter: p.CanExecuteAfter.Int64(),
		VoteCount:       p.VoteCount.Int64(),
		Block:           indexer.BlockOf(p.Block),
	}
	if p.Execution != nil {
		proposal.ExecutionTx = &p.Execution.TransactionHash
	}
	if stored != nil && stored.DecodeData != "" {
		proposal.DecodeData = stored.DecodeData
	} else {
		proposal.DecodeData = s.decodePayload(ctx, p)
	}
	proposalID, err := s.Repo.OwnershipProposals.Upsert(ctx, proposal)
	if err != nil {
		return fmt.Errorf("can't upsert proposal: %w", err)
	}

	if stored != nil && stored.VoteCount == proposal.VoteCount {
		return nil
	}
	for _, v := range p.Votes {
		voter := utils.NormalizeAddress(v.Voter.ID)
		if err = s.Repo.Users.Ensure(ctx, voter); err != nil {
			return fmt.Errorf("can't ensure voter: %w", err)
		}
		err = s.Repo.OwnershipVotes.Upsert(ctx, &entity.OwnershipVote{
			ProposalID:    proposalID,
			VoterID:       voter,
			Index:         v.Index.Int64(),
			Weight:        v.Weight,
			AccountWeight: v.AccountWeight,
			Decisive:      v.Decisive,
			Block:         indexer.BlockOf(v.Block),
		})
		if err != nil {
			return fmt.Errorf("can't upsert vote %d: %w", v.Index, err)
		}
	}
	s.imported("ownership_votes", len(p.Votes))
	return nil
}

func (s *Syncer) decodePayload(ctx context.Context, p *proposalData) string {
	if s.decoder == nil || len(p.Payload) == 0 {
		return ""
	}
	var calls []contract.Call
	if err := sonnet.Unmarshal(p.Payload, &calls); err != nil {
		s.Logger.WithError(err).WithField("proposal", p.ID).Warn("can't parse proposal payload")
		return ""
	}
	return s.decoder.DecodePayload(ctx, calls)
}
