package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/subgraph"
)

const priceRecordsQuery = `query PriceRecords($collateral: String!, $since: BigInt!, $skip: Int!) {
  priceRecords(first: 1000, skip: $skip, orderBy: blockTimestamp, orderDirection: asc, where: {collateral: $collateral, blockTimestamp_gte: $since}) {
    price
    blockNumber
    blockTimestamp
    transactionHash
  }
}`

// maxPricePages bounds a single price import. The rest is picked up by the next pass.
const maxPricePages = 6

type priceRecordData struct {
	Price decimal.Decimal `json:"price"`
	subgraph.Block
}

// PriceRecordsImporter imports the price records of one collateral from the latest stored one onwards.
type PriceRecordsImporter struct {
	*Deps
	collateral *entity.Collateral
}

func NewPriceRecordsImporter(deps *Deps, collateral *entity.Collateral) *PriceRecordsImporter {
	return &PriceRecordsImporter{Deps: deps, collateral: collateral}
}

// Import pages oldest first and stores every page before fetching the next one,
// so the stored watermark never passes a record that was not imported.
// It reports false when the page limit was hit before the remote end.
func (i *PriceRecordsImporter) Import(ctx context.Context) (bool, error) {
	since, err := i.Repo.PriceRecords.LatestTimestamp(ctx, i.collateral.ID)
	if err != nil {
		return false, fmt.Errorf("can't get latest price record timestamp: %w", err)
	}
	skip := 0
	for page := 0; page < maxPricePages; page++ {
		var data struct {
			Records []*priceRecordData `json:"priceRecords"`
		}
		vars := subgraph.Vars{
			"collateral": i.collateral.Address,
			"since":      since,
			"skip":       skip,
		}
		if err = i.Client.Query(ctx, priceRecordsQuery, vars, &data); err != nil {
			return false, fmt.Errorf("can't query price records: %w", err)
		}
		for _, r := range data.Records {
			err = i.Repo.PriceRecords.Upsert(ctx, &entity.PriceRecord{
				CollateralID: i.collateral.ID,
				Price:        r.Price,
				Block:        BlockOf(r.Block),
			})
			if err != nil {
				return false, fmt.Errorf("can't upsert price record at %d: %w", r.BlockTimestamp, err)
			}
		}
		i.imported("price_records", len(data.Records))
		if len(data.Records) < PageSize {
			return true, nil
		}
		since, skip = nextTimestampWindow(since, skip, data.Records, func(r *priceRecordData) int64 {
			return r.BlockTimestamp.Int64()
		})
	}
	return false, nil
}

// nextTimestampWindow moves a `timestamp_gte` window past a full page. Records
// sharing the last timestamp of the page are skipped instead of re-read.
func nextTimestampWindow[T any](since int64, skip int, page []T, timestamp func(T) int64) (int64, int) {
	last := timestamp(page[len(page)-1])
	if last == since {
		return since, skip + len(page)
	}
	tied := 0
	for j := len(page) - 1; j >= 0 && timestamp(page[j]) == last; j-- {
		tied++
	}
	return last, tied
}
