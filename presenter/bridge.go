package presenter

import (
	"context"
	"fmt"

	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/utils"
)

// RegisterHandlers relays the indexer's Redis channels to subscribed WebSocket clients.
func (h *Hub) RegisterHandlers(l *messaging.Listener) {
	l.RegisterHandler(messaging.TroveOperationsUpdate, h.HandleTroveOperations)
	l.RegisterHandler(messaging.StabilityPoolUpdate, h.HandleStabilityPool)
	l.RegisterHandler(messaging.TroveOverviewUpdate, h.HandleTroveOverview)
}

func (h *Hub) HandleTroveOperations(_ context.Context, payload []byte) error {
	var msg messaging.TroveOperationsPayload
	if err := sonnet.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("can't decode trove operations update: %w", err)
	}
	if _, err := h.cfg.ChainByName(msg.Subscription.Chain); err != nil {
		return err
	}
	msg.Channel = messaging.ChannelTroveOperations
	msg.Subscription.Manager = utils.NormalizeAddress(msg.Subscription.Manager)
	h.Broadcast(messaging.TroveOperationsKey(msg.Subscription.Chain, msg.Subscription.Manager), &msg)
	return nil
}

func (h *Hub) HandleStabilityPool(_ context.Context, payload []byte) error {
	var msg messaging.StabilityPoolPayload
	if err := sonnet.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("can't decode stability pool update: %w", err)
	}
	chain, err := h.cfg.ChainByName(msg.Subscription.Chain)
	if err != nil {
		return err
	}
	msg.Channel = messaging.ChannelStabilityPool
	h.Broadcast(messaging.StabilityPoolKey(chain.ChainID), &msg)
	return nil
}

// HandleTroveOverview recomputes the chain's manager details, as the update only names the chain.
func (h *Hub) HandleTroveOverview(ctx context.Context, payload []byte) error {
	var msg messaging.TroveOverviewPayload
	if err := sonnet.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("can't decode troves overview update: %w", err)
	}
	chain, err := h.cfg.ChainByName(msg.Subscription.Chain)
	if err != nil {
		return err
	}
	details, err := h.repo.TroveManagerSnapshots.FindDetails(ctx, chain.ChainID, messaging.MaxPageItems, 0)
	if err != nil {
		return fmt.Errorf("can't find trove manager details: %w", err)
	}
	h.Broadcast(messaging.TrovesOverviewKey(chain.ChainID), &messaging.TroveOverviewPayload{
		Channel:      messaging.ChannelTrovesOverview,
		Subscription: messaging.Subscription{Chain: chain.Name},
		Type:         messaging.PayloadUpdate,
		Payload:      details,
	})
	return nil
}
