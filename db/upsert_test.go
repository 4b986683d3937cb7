package db_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/db"
)

func TestUpsertBuilder_ToSql(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		Name         string
		Input        *db.UpsertBuilder
		ExpectedSQL  string
		ExpectedArgs []interface{}
	}{
		{
			Name: "KeyAndValues",
			Input: db.Upsert("troves").
				Key("manager_id", 1).
				Key("owner_id", "0xabc").
				Set("status", "open").
				Set("debt", "100"),
			ExpectedSQL:  "INSERT INTO troves (manager_id,owner_id,status,debt) VALUES ($1,$2,$3,$4) ON CONFLICT (manager_id, owner_id) DO UPDATE SET updated_at = NOW(), status = EXCLUDED.status, debt = EXCLUDED.debt",
			ExpectedArgs: []interface{}{1, "0xabc", "open", "100"},
		},
		{
			Name: "ReturningWithoutValues",
			Input: db.Upsert("incentive_receivers").
				Key("chain_id", int64(1)).
				Key("address", "0x1").
				Key("index", 3).
				Returning("id"),
			ExpectedSQL:  "INSERT INTO incentive_receivers (chain_id,address,index) VALUES ($1,$2,$3) ON CONFLICT (chain_id, address, index) DO UPDATE SET updated_at = NOW() RETURNING id",
			ExpectedArgs: []interface{}{int64(1), "0x1", 3},
		},
		{
			Name: "InsertOnlyColumn",
			Input: db.Upsert("collaterals").
				Key("chain_id", int64(1)).
				Key("address", "0x2").
				Set("symbol", "wstETH").
				SetOnInsert("latest_price", "0").
				Returning("id"),
			ExpectedSQL:  "INSERT INTO collaterals (chain_id,address,symbol,latest_price) VALUES ($1,$2,$3,$4) ON CONFLICT (chain_id, address) DO UPDATE SET updated_at = NOW(), symbol = EXCLUDED.symbol RETURNING id",
			ExpectedArgs: []interface{}{int64(1), "0x2", "wstETH", "0"},
		},
		{
			Name:         "InsertIgnore",
			Input:        db.InsertIgnore("users").Key("id", "0xdead"),
			ExpectedSQL:  "INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING",
			ExpectedArgs: []interface{}{"0xdead"},
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			q, args, err := test.Input.ToSql()
			require.NoError(t, err)
			require.Equal(t, test.ExpectedSQL, q)
			require.Equal(t, test.ExpectedArgs, args)
		})
	}
}

func TestUpsertBuilder_NoKey(t *testing.T) {
	t.Parallel()
	_, _, err := db.Upsert("users").Set("label", "x").ToSql()
	require.ErrorIs(t, err, db.ErrEmptyConflictKey)
}
