package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
)

type ownershipProposalsRepo basePostgresRepo

func NewOwnershipProposalsRepo(table string, db *db.DB) entity.OwnershipProposalsRepo {
	return (*ownershipProposalsRepo)(newBasePostgresRepo(table, db))
}

func (r *ownershipProposalsRepo) Upsert(ctx context.Context, p *entity.OwnershipProposal) (int64, error) {
	q, args, err := db.Upsert(r.table).
		Key("chain_id", p.ChainID).
		Key("creator_id", normalizeAddress(p.CreatorID)).
		Key("index", p.Index).
		Set("external_id", p.ExternalID).
		Set("status", p.Status).
		Set("data", p.Data).
		Set("decode_data", p.DecodeData).
		Set("week", p.Week).
		Set("required_weight", p.RequiredWeight).
		Set("received_weight", p.ReceivedWeight).
		Set("can_execute_after", p.CanExecuteAfter).
		Set("vote_count", p.VoteCount).
		Set("execution_tx", p.ExecutionTx).
		Set("block_number", p.BlockNumber).
		Set("block_timestamp", p.BlockTimestamp).
		Set("transaction_hash", p.TransactionHash).
		Returning("id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var id int64
	err = r.db.GetContext(ctx, &id, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't upsert ownership proposal: %w", err)
	}
	return id, nil
}

func (r *ownershipProposalsRepo) GetByIndex(ctx context.Context, chainID int64, creatorID string, index int64) (*entity.OwnershipProposal, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "creator_id": normalizeAddress(creatorID), "index": index}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	proposal := new(entity.OwnershipProposal)
	err = r.db.GetContext(ctx, proposal, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get ownership proposal: %w", err)
	}
	return proposal, nil
}

type ownershipVotesRepo basePostgresRepo

func NewOwnershipVotesRepo(table string, db *db.DB) entity.OwnershipVotesRepo {
	return (*ownershipVotesRepo)(newBasePostgresRepo(table, db))
}

func (r *ownershipVotesRepo) Upsert(ctx context.Context, v *entity.OwnershipVote) error {
	q, args, err := db.Upsert(r.table).
		Key("proposal_id", v.ProposalID).
		Key("voter_id", normalizeAddress(v.VoterID)).
		Key("index", v.Index).
		Set("weight", v.Weight).
		Set("account_weight", v.AccountWeight).
		Set("decisive", v.Decisive).
		Set("block_number", v.BlockNumber).
		Set("block_timestamp", v.BlockTimestamp).
		Set("transaction_hash", v.TransactionHash).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't upsert ownership vote: %w", err)
	}
	return nil
}
