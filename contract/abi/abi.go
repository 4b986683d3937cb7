package abi

//nolint:golint
import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed prisma_core.json
var prismaCoreJSONABI string

// PrismaCoreABI covers the admin calls most ownership proposals target.
var PrismaCoreABI abi.ABI

func MustReadABI(raw string) abi.ABI {
	res, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return res
}

func init() {
	PrismaCoreABI = MustReadABI(prismaCoreJSONABI)
}
