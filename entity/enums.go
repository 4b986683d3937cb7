package entity

type TroveStatus string

const (
	TroveStatusOpen                TroveStatus = "open"
	TroveStatusClosedByOwner       TroveStatus = "closed_by_owner"
	TroveStatusClosedByLiquidation TroveStatus = "closed_by_liquidation"
	TroveStatusClosedByRedemption  TroveStatus = "closed_by_redemption"
)

type TroveOperation string

const (
	TroveOperationOpen                    TroveOperation = "open_trove"
	TroveOperationClose                   TroveOperation = "close_trove"
	TroveOperationAdjust                  TroveOperation = "adjust_trove"
	TroveOperationApplyPendingRewards     TroveOperation = "apply_pending_rewards"
	TroveOperationLiquidateInNormalMode   TroveOperation = "liquidate_in_normal_mode"
	TroveOperationLiquidateInRecoveryMode TroveOperation = "liquidate_in_recovery_mode"
	TroveOperationRedeemCollateral        TroveOperation = "redeem_collateral"
)

type PoolOperationType string

const (
	PoolOperationStableDeposit        PoolOperationType = "stable_deposit"
	PoolOperationStableWithdrawal     PoolOperationType = "stable_withdrawal"
	PoolOperationCollateralWithdrawal PoolOperationType = "collateral_withdrawal"
)

type ProposalStatus string

const (
	ProposalStatusNotPassed ProposalStatus = "not_passed"
	ProposalStatusPassed    ProposalStatus = "passed"
	ProposalStatusCancelled ProposalStatus = "cancelled"
	ProposalStatusExecuted  ProposalStatus = "executed"
)

type StakeOperation string

const (
	StakeOperationStake    StakeOperation = "stake"
	StakeOperationWithdraw StakeOperation = "withdraw"
)

var (
	TroveStatuses = NewEnumTable("TroveStatus",
		[]TroveStatus{TroveStatusOpen, TroveStatusClosedByOwner, TroveStatusClosedByLiquidation, TroveStatusClosedByRedemption},
		map[string]TroveStatus{
			"open":                TroveStatusOpen,
			"closedByOwner":       TroveStatusClosedByOwner,
			"closedByLiquidation": TroveStatusClosedByLiquidation,
			"closedByRedemption":  TroveStatusClosedByRedemption,
		})

	TroveOperations = NewEnumTable("TroveOperation",
		[]TroveOperation{
			TroveOperationOpen, TroveOperationClose, TroveOperationAdjust, TroveOperationApplyPendingRewards,
			TroveOperationLiquidateInNormalMode, TroveOperationLiquidateInRecoveryMode, TroveOperationRedeemCollateral,
		},
		map[string]TroveOperation{
			"openTrove":               TroveOperationOpen,
			"closeTrove":              TroveOperationClose,
			"adjustTrove":             TroveOperationAdjust,
			"applyPendingRewards":     TroveOperationApplyPendingRewards,
			"liquidateInNormalMode":   TroveOperationLiquidateInNormalMode,
			"liquidateInRecoveryMode": TroveOperationLiquidateInRecoveryMode,
			"redeemCollateral":        TroveOperationRedeemCollateral,
		})

	PoolOperationTypes = NewEnumTable("StabilityPoolOperationType",
		[]PoolOperationType{PoolOperationStableDeposit, PoolOperationStableWithdrawal, PoolOperationCollateralWithdrawal},
		map[string]PoolOperationType{
			"stableDeposit":        PoolOperationStableDeposit,
			"stableWithdrawal":     PoolOperationStableWithdrawal,
			"collateralWithdrawal": PoolOperationCollateralWithdrawal,
		})

	ProposalStatuses = NewEnumTable("OwnershipProposalStatus",
		[]ProposalStatus{ProposalStatusNotPassed, ProposalStatusPassed, ProposalStatusCancelled, ProposalStatusExecuted},
		map[string]ProposalStatus{
			"notPassed": ProposalStatusNotPassed,
			"passed":    ProposalStatusPassed,
			"cancelled": ProposalStatusCancelled,
			"executed":  ProposalStatusExecuted,
		})

	StakeOperations = NewEnumTable("StakeOperation",
		[]StakeOperation{StakeOperationStake, StakeOperationWithdraw},
		map[string]StakeOperation{
			"stake":    StakeOperationStake,
			"withdraw": StakeOperationWithdraw,
		})
)

// Enums lists every wire enum table checked at startup.
var Enums = []EnumValidator{
	TroveStatuses,
	TroveOperations,
	PoolOperationTypes,
	ProposalStatuses,
	StakeOperations,
}
