package entity

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Block is the on-chain origin of an imported row.
type Block struct {
	BlockNumber     int64  `db:"block_number"`
	BlockTimestamp  int64  `db:"block_timestamp"`
	TransactionHash string `db:"transaction_hash"`
}

type Timestamps struct {
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// JSON is a raw JSONB column value.
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	return string(j), nil
}

func (j *JSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = JSON(v)
	case []byte:
		*j = append((*j)[:0], v...)
	default:
		return fmt.Errorf("can't scan %T into JSON", src)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}
