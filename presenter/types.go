package presenter

import (
	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
)

type StatusResult struct {
	Chain   string          `json:"chain"`
	ChainID int64           `json:"chain_id"`
	Cursors []*entity.Cursor `json:"cursors"`
}

type TroveInfo struct {
	Owner           string             `json:"owner"`
	Status          entity.TroveStatus `json:"status"`
	Collateral      decimal.Decimal    `json:"collateral"`
	CollateralUSD   decimal.Decimal    `json:"collateral_usd"`
	CollateralRatio *decimal.Decimal   `json:"collateral_ratio"`
	Debt            decimal.Decimal    `json:"debt"`
	Stake           decimal.Decimal    `json:"stake"`
	LastUpdate      int64              `json:"last_update"`
}

type TrovesResult struct {
	Manager string       `json:"manager"`
	OrderBy string       `json:"order_by"`
	Desc    bool         `json:"desc"`
	Troves  []*TroveInfo `json:"troves"`
}

type ReceiverPoints struct {
	ReceiverID int64 `json:"receiver_id"`
	Points     int64 `json:"points"`
}

type WeekPoints struct {
	Week   int64             `json:"week"`
	Points []*ReceiverPoints `json:"points"`
}

type IncentivesResult struct {
	Voter string        `json:"voter"`
	From  int64         `json:"from"`
	To    int64         `json:"to"`
	Weeks []*WeekPoints `json:"weeks"`
}

func troveToTroveInfo(t *entity.Trove) *TroveInfo {
	return &TroveInfo{
		Owner:           t.OwnerID,
		Status:          t.Status,
		Collateral:      t.Collateral,
		CollateralUSD:   t.CollateralUSD,
		CollateralRatio: t.CollateralRatio,
		Debt:            t.Debt,
		Stake:           t.Stake,
		LastUpdate:      t.UpdatedAt.Unix(),
	}
}
