package subgraph

import (
	"bytes"
	"fmt"
	"strconv"
)

// Int is an integer field that subgraphs encode either as a JSON number (Int)
// or as a decimal string (BigInt).
type Int int64

func (i *Int) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("can't parse %q as integer: %w", data, err)
	}
	*i = Int(v)
	return nil
}

func (i Int) Int64() int64 {
	return int64(i)
}

func (i Int) Uint64() uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// Ref is a reference to another entity, queried as `{ id }`.
type Ref struct {
	ID string `json:"id"`
}

// Block is the common block metadata of event entities.
type Block struct {
	BlockNumber     Int    `json:"blockNumber"`
	BlockTimestamp  Int    `json:"blockTimestamp"`
	TransactionHash string `json:"transactionHash"`
}
