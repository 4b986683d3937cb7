package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChecksumAddress renders addr in EIP-55 form. Values that are not addresses are returned unchanged.
func ChecksumAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}
