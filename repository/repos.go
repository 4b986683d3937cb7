package repository

import (
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/repository/postgres"
)

type Repo struct {
	Chains                 entity.ChainsRepo
	Users                  entity.UsersRepo
	Protocols              entity.ProtocolsRepo
	Cursors                entity.CursorsRepo
	StabilityPools         entity.StabilityPoolsRepo
	PoolSnapshots          entity.PoolSnapshotsRepo
	PoolOperations         entity.PoolOperationsRepo
	CollateralWithdrawals  entity.CollateralWithdrawalsRepo
	Collaterals            entity.CollateralsRepo
	PriceRecords           entity.PriceRecordsRepo
	ZapStakes              entity.ZapStakesRepo
	TroveManagers          entity.TroveManagersRepo
	TroveManagerParameters entity.TroveManagerParametersRepo
	TroveManagerSnapshots  entity.TroveManagerSnapshotsRepo
	Troves                 entity.TrovesRepo
	TroveSnapshots         entity.TroveSnapshotsRepo
	Liquidations           entity.LiquidationsRepo
	Redemptions            entity.RedemptionsRepo
	RevenueSnapshots       entity.RevenueSnapshotsRepo
	OwnershipProposals     entity.OwnershipProposalsRepo
	OwnershipVotes         entity.OwnershipVotesRepo
	IncentiveReceivers     entity.IncentiveReceiversRepo
	IncentiveVotes         entity.IncentiveVotesRepo
	IncentivePoints        entity.IncentivePointsRepo
	WeeklyBoosts           entity.WeeklyBoostsRepo
	BatchRewardClaims      entity.BatchRewardClaimsRepo
	WeeklyEmissions        entity.WeeklyEmissionsRepo
	WeeklyWeights          entity.WeeklyWeightsRepo
	StakingContracts       entity.StakingContractsRepo
	StakeEvents            entity.StakeEventsRepo
	RewardPayouts          entity.RewardPayoutsRepo
	StakingBalances        entity.StakingBalancesRepo
	StakingSnapshots       entity.StakingSnapshotsRepo
}

func NewRepo(db *db.DB) *Repo {
	return &Repo{
		Chains:                 postgres.NewChainsRepo("chains", db),
		Users:                  postgres.NewUsersRepo("users", db),
		Protocols:              postgres.NewProtocolsRepo("protocols", db),
		Cursors:                postgres.NewCursorsRepo(db),
		StabilityPools:         postgres.NewStabilityPoolsRepo("stability_pools", db),
		PoolSnapshots:          postgres.NewPoolSnapshotsRepo("stability_pool_snapshots", db),
		PoolOperations:         postgres.NewPoolOperationsRepo("stability_pool_operations", db),
		CollateralWithdrawals:  postgres.NewCollateralWithdrawalsRepo("collateral_withdrawals", db),
		Collaterals:            postgres.NewCollateralsRepo("collaterals", db),
		PriceRecords:           postgres.NewPriceRecordsRepo("price_records", db),
		ZapStakes:              postgres.NewZapStakesRepo("zap_stakes", db),
		TroveManagers:          postgres.NewTroveManagersRepo("trove_managers", db),
		TroveManagerParameters: postgres.NewTroveManagerParametersRepo("trove_manager_parameters", db),
		TroveManagerSnapshots:  postgres.NewTroveManagerSnapshotsRepo("trove_manager_snapshots", db),
		Troves:                 postgres.NewTrovesRepo("troves", db),
		TroveSnapshots:         postgres.NewTroveSnapshotsRepo("trove_snapshots", db),
		Liquidations:           postgres.NewLiquidationsRepo("liquidations", db),
		Redemptions:            postgres.NewRedemptionsRepo("redemptions", db),
		RevenueSnapshots:       postgres.NewRevenueSnapshotsRepo("revenue_snapshots", db),
		OwnershipProposals:     postgres.NewOwnershipProposalsRepo("ownership_proposals", db),
		OwnershipVotes:         postgres.NewOwnershipVotesRepo("ownership_votes", db),
		IncentiveReceivers:     postgres.NewIncentiveReceiversRepo("incentive_receivers", db),
		IncentiveVotes:         postgres.NewIncentiveVotesRepo("incentive_votes", db),
		IncentivePoints:        postgres.NewIncentivePointsRepo("user_incentive_points", db),
		WeeklyBoosts:           postgres.NewWeeklyBoostsRepo("weekly_boosts", db),
		BatchRewardClaims:      postgres.NewBatchRewardClaimsRepo("batch_reward_claims", db),
		WeeklyEmissions:        postgres.NewWeeklyEmissionsRepo("weekly_emissions", db),
		WeeklyWeights:          postgres.NewWeeklyWeightsRepo("total_weekly_weights", "user_weekly_weights", db),
		StakingContracts:       postgres.NewStakingContractsRepo("cvx_prisma_staking", db),
		StakeEvents:            postgres.NewStakeEventsRepo("stake_events", db),
		RewardPayouts:          postgres.NewRewardPayoutsRepo("reward_payouts", db),
		StakingBalances:        postgres.NewStakingBalancesRepo("staking_balances", db),
		StakingSnapshots:       postgres.NewStakingSnapshotsRepo("staking_snapshots", db),
	}
}
