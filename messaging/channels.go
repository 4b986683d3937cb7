package messaging

import (
	"fmt"
	"strings"

	"github.com/prisma-monitor/indexer/entity"
)

// Redis pub/sub channels written by the indexer and relayed by the API.
const (
	TroveOverviewUpdate   = "trove_overview_update"
	StabilityPoolUpdate   = "stability_pool_update"
	TroveOperationsUpdate = "trove_operations_update"
)

// Channels is the fixed set the listener subscribes to.
var Channels = []string{TroveOverviewUpdate, StabilityPoolUpdate, TroveOperationsUpdate}

// WebSocket channels clients subscribe to.
const (
	ChannelTrovesOverview  = "troves_overview"
	ChannelStabilityPool   = "stability_pool"
	ChannelTroveOperations = "trove_operations"
)

type PayloadType string

const (
	PayloadUpdate   PayloadType = "update"
	PayloadSnapshot PayloadType = "snapshot"
)

const (
	DefaultPageItems = 10
	MaxPageItems     = 100
)

type Pagination struct {
	Page  uint64 `json:"page"`
	Items uint64 `json:"items"`
}

// Normalize returns the page and page size to query, with defaults applied.
func (p *Pagination) Normalize() (page, items uint64) {
	if p == nil {
		return 1, DefaultPageItems
	}
	page, items = p.Page, p.Items
	if page == 0 {
		page = 1
	}
	if items == 0 {
		items = DefaultPageItems
	}
	if items > MaxPageItems {
		items = MaxPageItems
	}
	return page, items
}

// Subscription identifies what a message is about. Chain is the configured chain name.
type Subscription struct {
	Chain      string      `json:"chain"`
	Manager    string      `json:"manager,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Envelope is the normalized message relayed to WebSocket clients.
type Envelope[T any] struct {
	Channel      string       `json:"channel"`
	Subscription Subscription `json:"subscription"`
	Type         PayloadType  `json:"type"`
	Payload      []T          `json:"payload"`
}

type (
	TroveOperationsPayload = Envelope[*entity.TroveOperationView]
	StabilityPoolPayload   = Envelope[*entity.PoolOperationView]
	TroveOverviewPayload   = Envelope[*entity.TroveManagerDetails]
)

func TroveOperationsKey(chain, manager string) string {
	return fmt.Sprintf("%s_%s_%s", ChannelTroveOperations, chain, strings.ToLower(manager))
}

func StabilityPoolKey(chainID int64) string {
	return fmt.Sprintf("%s_%d", ChannelStabilityPool, chainID)
}

func TrovesOverviewKey(chainID int64) string {
	return fmt.Sprintf("%s_%d", ChannelTrovesOverview, chainID)
}
