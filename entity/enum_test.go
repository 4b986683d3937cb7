package entity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/entity"
)

func TestEnums_Validate(t *testing.T) {
	t.Parallel()
	for _, e := range entity.Enums {
		require.NoError(t, e.Validate(), e.GraphQLType())
	}
}

func TestEnumTable_Decode(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name           string
		Input          string
		ExpectedOutput entity.TroveStatus
		ExpectedErr    error
	}{
		{"Open", "open", entity.TroveStatusOpen, nil},
		{"Liquidated", "closedByLiquidation", entity.TroveStatusClosedByLiquidation, nil},
		{"Unknown", "frozen", "", entity.ErrUnknownEnumValue},
		{"CaseSensitive", "Open", "", entity.ErrUnknownEnumValue},
		{"Empty", "", "", entity.ErrUnknownEnumValue},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			res, err := entity.TroveStatuses.Decode(test.Input)
			if test.ExpectedErr != nil {
				require.ErrorIs(t, err, test.ExpectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.ExpectedOutput, res)
		})
	}
}

func TestEnumTable_Validate(t *testing.T) {
	t.Parallel()

	missing := entity.NewEnumTable("Op", []entity.StakeOperation{entity.StakeOperationStake, entity.StakeOperationWithdraw},
		map[string]entity.StakeOperation{"stake": entity.StakeOperationStake})
	require.Error(t, missing.Validate())

	duplicate := entity.NewEnumTable("Op", []entity.StakeOperation{entity.StakeOperationStake},
		map[string]entity.StakeOperation{"stake": entity.StakeOperationStake, "deposit": entity.StakeOperationStake})
	require.Error(t, duplicate.Validate())

	undeclared := entity.NewEnumTable("Op", []entity.StakeOperation{entity.StakeOperationStake},
		map[string]entity.StakeOperation{"stake": entity.StakeOperationStake, "withdraw": entity.StakeOperationWithdraw})
	require.Error(t, undeclared.Validate())
}

func TestEnumTable_ValidateRemote(t *testing.T) {
	t.Parallel()
	require.NoError(t, entity.PoolOperationTypes.ValidateRemote([]string{"stableDeposit", "stableWithdrawal", "collateralWithdrawal"}))
	err := entity.PoolOperationTypes.ValidateRemote([]string{"stableDeposit", "emergencyWithdrawal"})
	require.ErrorIs(t, err, entity.ErrUnknownEnumValue)
	require.Equal(t, []string{"collateralWithdrawal", "stableDeposit", "stableWithdrawal"}, entity.PoolOperationTypes.WireValues())
}

func TestStream_Column(t *testing.T) {
	t.Parallel()
	for _, s := range entity.Streams() {
		col, err := s.Column()
		require.NoError(t, err)
		require.NotEmpty(t, col.Table)
		require.NotEmpty(t, col.Column)
	}
	_, err := entity.Stream("users; DROP TABLE users").Column()
	require.Error(t, err)
}
