package abi_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/prisma-monitor/indexer/contract/abi"
)

func TestPrismaCoreABI(t *testing.T) {
	t.Parallel()
	for _, sig := range []string{
		"setGuardian(address)",
		"setPaused(bool)",
		"setFeeReceiver(address)",
		"transferTokens(address,address,uint256)",
	} {
		method, err := abi.PrismaCoreABI.MethodById(crypto.Keccak256([]byte(sig))[:4])
		require.NoError(t, err, sig)
		require.Equal(t, sig, method.Sig)
	}
}

func TestMustReadABI(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { abi.MustReadABI("not json") })
	parsed := abi.MustReadABI(`[{"type":"function","name":"ping","inputs":[],"outputs":[]}]`)
	require.Contains(t, parsed.Methods, "ping")
}
