// Package memory keeps every repository in process memory. It backs unit tests
// and dry-run imports, and mirrors the conflict rules of the postgres schema.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/repository"
)

type Store struct {
	mu     sync.RWMutex
	lastID int64

	chains        map[int64]*entity.Chain
	users         map[string]*entity.User
	protocols     map[int64]*entity.Protocol
	pools         map[string]*entity.StabilityPool
	poolSnapshots map[string]*entity.PoolSnapshot
	poolOps       map[string]*entity.PoolOperation
	withdrawals   map[string]*entity.CollateralWithdrawal
	collaterals   map[string]*entity.Collateral
	prices        map[string]*entity.PriceRecord
	zaps          map[string]*entity.ZapStake
	managers      map[string]*entity.TroveManager
	params        map[string]*entity.TroveManagerParameters
	mgrSnapshots  map[string]*entity.TroveManagerSnapshot
	troves        map[string]*entity.Trove
	troveSnaps    map[string]*entity.TroveSnapshot
	liquidations  map[string]*entity.Liquidation
	redemptions   map[string]*entity.Redemption
	revenue       map[string]*entity.RevenueSnapshot
	proposals     map[string]*entity.OwnershipProposal
	ownVotes      map[string]*entity.OwnershipVote
	receivers     map[string]*entity.IncentiveReceiver
	incVotes      map[string]*entity.IncentiveVote
	points        map[string]*entity.UserIncentivePoints
	boosts        map[string]*entity.WeeklyBoost
	claims        map[string]*entity.BatchRewardClaim
	emissions     map[string]*entity.WeeklyEmission
	totalWeights  map[string]*entity.WeeklyWeight
	userWeights   map[string]*entity.WeeklyWeight
	contracts     map[string]*entity.StakingContract
	stakeEvents   map[string]*entity.StakeEvent
	payouts       map[string]*entity.RewardPayout
	balances      map[string]*entity.StakingBalance
	stakingSnaps  map[string]*entity.StakingSnapshotRecord
}

func NewStore() *Store {
	return &Store{
		chains:        make(map[int64]*entity.Chain),
		users:         make(map[string]*entity.User),
		protocols:     make(map[int64]*entity.Protocol),
		pools:         make(map[string]*entity.StabilityPool),
		poolSnapshots: make(map[string]*entity.PoolSnapshot),
		poolOps:       make(map[string]*entity.PoolOperation),
		withdrawals:   make(map[string]*entity.CollateralWithdrawal),
		collaterals:   make(map[string]*entity.Collateral),
		prices:        make(map[string]*entity.PriceRecord),
		zaps:          make(map[string]*entity.ZapStake),
		managers:      make(map[string]*entity.TroveManager),
		params:        make(map[string]*entity.TroveManagerParameters),
		mgrSnapshots:  make(map[string]*entity.TroveManagerSnapshot),
		troves:        make(map[string]*entity.Trove),
		troveSnaps:    make(map[string]*entity.TroveSnapshot),
		liquidations:  make(map[string]*entity.Liquidation),
		redemptions:   make(map[string]*entity.Redemption),
		revenue:       make(map[string]*entity.RevenueSnapshot),
		proposals:     make(map[string]*entity.OwnershipProposal),
		ownVotes:      make(map[string]*entity.OwnershipVote),
		receivers:     make(map[string]*entity.IncentiveReceiver),
		incVotes:      make(map[string]*entity.IncentiveVote),
		points:        make(map[string]*entity.UserIncentivePoints),
		boosts:        make(map[string]*entity.WeeklyBoost),
		claims:        make(map[string]*entity.BatchRewardClaim),
		emissions:     make(map[string]*entity.WeeklyEmission),
		totalWeights:  make(map[string]*entity.WeeklyWeight),
		userWeights:   make(map[string]*entity.WeeklyWeight),
		contracts:     make(map[string]*entity.StakingContract),
		stakeEvents:   make(map[string]*entity.StakeEvent),
		payouts:       make(map[string]*entity.RewardPayout),
		balances:      make(map[string]*entity.StakingBalance),
		stakingSnaps:  make(map[string]*entity.StakingSnapshotRecord),
	}
}

// NewRepo returns a repository set sharing one fresh store.
func NewRepo() (*repository.Repo, *Store) {
	s := NewStore()
	return s.Repo(), s
}

func (s *Store) Repo() *repository.Repo {
	return &repository.Repo{
		Chains:                 (*chainsRepo)(s),
		Users:                  (*usersRepo)(s),
		Protocols:              (*protocolsRepo)(s),
		Cursors:                (*cursorsRepo)(s),
		StabilityPools:         (*stabilityPoolsRepo)(s),
		PoolSnapshots:          (*poolSnapshotsRepo)(s),
		PoolOperations:         (*poolOperationsRepo)(s),
		CollateralWithdrawals:  (*collateralWithdrawalsRepo)(s),
		Collaterals:            (*collateralsRepo)(s),
		PriceRecords:           (*priceRecordsRepo)(s),
		ZapStakes:              (*zapStakesRepo)(s),
		TroveManagers:          (*troveManagersRepo)(s),
		TroveManagerParameters: (*troveManagerParametersRepo)(s),
		TroveManagerSnapshots:  (*troveManagerSnapshotsRepo)(s),
		Troves:                 (*trovesRepo)(s),
		TroveSnapshots:         (*troveSnapshotsRepo)(s),
		Liquidations:           (*liquidationsRepo)(s),
		Redemptions:            (*redemptionsRepo)(s),
		RevenueSnapshots:       (*revenueSnapshotsRepo)(s),
		OwnershipProposals:     (*ownershipProposalsRepo)(s),
		OwnershipVotes:         (*ownershipVotesRepo)(s),
		IncentiveReceivers:     (*incentiveReceiversRepo)(s),
		IncentiveVotes:         (*incentiveVotesRepo)(s),
		IncentivePoints:        (*incentivePointsRepo)(s),
		WeeklyBoosts:           (*weeklyBoostsRepo)(s),
		BatchRewardClaims:      (*batchRewardClaimsRepo)(s),
		WeeklyEmissions:        (*weeklyEmissionsRepo)(s),
		WeeklyWeights:          (*weeklyWeightsRepo)(s),
		StakingContracts:       (*stakingContractsRepo)(s),
		StakeEvents:            (*stakeEventsRepo)(s),
		RewardPayouts:          (*rewardPayoutsRepo)(s),
		StakingBalances:        (*stakingBalancesRepo)(s),
		StakingSnapshots:       (*stakingSnapshotsRepo)(s),
	}
}

func key(parts ...interface{}) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, "|")
}

func addr(a string) string {
	return strings.ToLower(a)
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}

// upsert stores row under k. On conflict, merge copies the updatable columns of
// row into the stored one. It returns the stored row and whether it was inserted.
func upsert[T any](rows map[string]*T, k string, row *T, merge func(stored, row *T)) (*T, bool) {
	if stored, ok := rows[k]; ok {
		merge(stored, row)
		return stored, false
	}
	cp := *row
	rows[k] = &cp
	return &cp, true
}

func values[T any](rows map[string]*T, match func(*T) bool) []*T {
	res := make([]*T, 0)
	for _, r := range rows {
		if match(r) {
			cp := *r
			res = append(res, &cp)
		}
	}
	return res
}

func page[T any](rows []*T, limit, offset uint64) []*T {
	if offset >= uint64(len(rows)) {
		return []*T{}
	}
	rows = rows[offset:]
	if limit < uint64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}

func sortBy[T any](rows []*T, less func(a, b *T) bool) {
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func notFound(what string) error {
	return fmt.Errorf("can't get %s: %w", what, db.ErrNotFound)
}

// Counts reports the number of stored rows per table.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"users":                     len(s.users),
		"stability_pools":           len(s.pools),
		"stability_pool_snapshots":  len(s.poolSnapshots),
		"stability_pool_operations": len(s.poolOps),
		"collateral_withdrawals":    len(s.withdrawals),
		"collaterals":               len(s.collaterals),
		"price_records":             len(s.prices),
		"zap_stakes":                len(s.zaps),
		"trove_managers":            len(s.managers),
		"trove_manager_parameters":  len(s.params),
		"trove_manager_snapshots":   len(s.mgrSnapshots),
		"troves":                    len(s.troves),
		"trove_snapshots":           len(s.troveSnaps),
		"liquidations":              len(s.liquidations),
		"redemptions":               len(s.redemptions),
		"revenue_snapshots":         len(s.revenue),
		"ownership_proposals":       len(s.proposals),
		"ownership_votes":           len(s.ownVotes),
		"incentive_receivers":       len(s.receivers),
		"incentive_votes":           len(s.incVotes),
		"user_incentive_points":     len(s.points),
		"weekly_boosts":             len(s.boosts),
		"batch_reward_claims":       len(s.claims),
		"weekly_emissions":          len(s.emissions),
		"total_weekly_weights":      len(s.totalWeights),
		"user_weekly_weights":       len(s.userWeights),
		"cvx_prisma_staking":        len(s.contracts),
		"stake_events":              len(s.stakeEvents),
		"reward_payouts":            len(s.payouts),
		"staking_balances":          len(s.balances),
		"staking_snapshots":         len(s.stakingSnaps),
	}
}
