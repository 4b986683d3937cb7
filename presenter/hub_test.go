package presenter_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/presenter"
)

type serverMessage struct {
	Type         string                 `json:"type"`
	Channel      string                 `json:"channel"`
	Subscription messaging.Subscription `json:"subscription"`
	Payload      interface{}            `json:"payload"`
}

func dial(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg *presenter.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) *serverMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestHub_RelaysSubscribedUpdates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	conn := dial(t, env)

	sub := messaging.Subscription{Chain: "ethereum", Manager: "0x1CC79f3F47BfC060b6F761FcD1afC6D399a968B6"}
	send(t, conn, &presenter.ClientMessage{Action: presenter.ActionSubscribe, Channel: messaging.ChannelTroveOperations, Subscription: sub})
	ack := receive(t, conn)
	require.Equal(t, "subscribed", ack.Type)
	require.Equal(t, messaging.ChannelTroveOperations, ack.Channel)

	update, err := sonnet.Marshal(&messaging.TroveOperationsPayload{
		Channel:      messaging.ChannelTroveOperations,
		Subscription: messaging.Subscription{Chain: "ethereum", Manager: managerAddress},
		Type:         messaging.PayloadUpdate,
		Payload: []*entity.TroveOperationView{{
			OwnerID:   "0x0000000000000000000000000000000000000001",
			Operation: entity.TroveOperationOpen,
			Debt:      decimal.NewFromInt(2000),
		}},
	})
	require.NoError(t, err)

	listener := messaging.NewListener(nil, logging.Discard())
	env.hub.RegisterHandlers(listener)
	listener.Dispatch(ctx, messaging.TroveOperationsUpdate, update)

	msg := receive(t, conn)
	require.Equal(t, string(messaging.PayloadUpdate), msg.Type)
	require.Equal(t, managerAddress, msg.Subscription.Manager)
	require.Len(t, msg.Payload, 1)

	// updates of other keys are not relayed
	poolUpdate, err := sonnet.Marshal(&messaging.StabilityPoolPayload{
		Channel:      messaging.ChannelStabilityPool,
		Subscription: messaging.Subscription{Chain: "ethereum"},
		Type:         messaging.PayloadUpdate,
	})
	require.NoError(t, err)
	require.NoError(t, env.hub.HandleStabilityPool(ctx, poolUpdate))

	send(t, conn, &presenter.ClientMessage{Action: presenter.ActionUnsubscribe, Channel: messaging.ChannelTroveOperations, Subscription: sub})
	require.Equal(t, "unsubscribed", receive(t, conn).Type)
	require.Zero(t, env.hub.Broadcast(messaging.TroveOperationsKey("ethereum", managerAddress), &presenter.ServerMessage{Type: "noop"}))
}

func TestHub_DropsClientWhenWriteFails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	conn := dial(t, env)

	send(t, conn, &presenter.ClientMessage{
		Action:       presenter.ActionSubscribe,
		Channel:      messaging.ChannelStabilityPool,
		Subscription: messaging.Subscription{Chain: "ethereum"},
	})
	require.Equal(t, "subscribed", receive(t, conn).Type)
	require.Equal(t, 1, env.hub.Clients())

	// a payload that can't be encoded makes the writer give up on the connection
	key := messaging.StabilityPoolKey(testChainID)
	require.Equal(t, 1, env.hub.Broadcast(key, map[string]interface{}{"payload": make(chan int)}))

	require.Eventually(t, func() bool { return env.hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Zero(t, env.hub.Broadcast(key, &presenter.ServerMessage{Type: "noop"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseAbnormalClosure), err.Error())
			break
		}
	}
}

func TestHub_ClientErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	conn := dial(t, env)

	for _, test := range []struct {
		Name string
		Msg  *presenter.ClientMessage
	}{
		{
			Name: "UnknownChain",
			Msg:  &presenter.ClientMessage{Action: presenter.ActionSubscribe, Channel: messaging.ChannelStabilityPool, Subscription: messaging.Subscription{Chain: "fantom"}},
		},
		{
			Name: "UnknownManager",
			Msg: &presenter.ClientMessage{Action: presenter.ActionSubscribe, Channel: messaging.ChannelTroveOperations, Subscription: messaging.Subscription{
				Chain:   "ethereum",
				Manager: "0x0000000000000000000000000000000000000001",
			}},
		},
		{
			Name: "UnknownChannel",
			Msg:  &presenter.ClientMessage{Action: presenter.ActionSubscribe, Channel: "prices", Subscription: messaging.Subscription{Chain: "ethereum"}},
		},
		{
			Name: "UnknownAction",
			Msg:  &presenter.ClientMessage{Action: "replay", Channel: messaging.ChannelStabilityPool, Subscription: messaging.Subscription{Chain: "ethereum"}},
		},
	} {
		send(t, conn, test.Msg)
		require.Equal(t, "error", receive(t, conn).Type, test.Name)
	}
}

func TestHub_Snapshots(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	for i := int64(0); i < 15; i++ {
		_, err := env.repo.PoolOperations.Upsert(ctx, &entity.PoolOperation{
			PoolID:       env.pool.ID,
			UserID:       "0x0000000000000000000000000000000000000001",
			Index:        i,
			Operation:    entity.PoolOperationStableDeposit,
			StableAmount: decimal.NewFromInt(i),
			Block:        entity.Block{BlockTimestamp: 1690000000 + i},
		})
		require.NoError(t, err)
	}
	conn := dial(t, env)

	send(t, conn, &presenter.ClientMessage{
		Action:       presenter.ActionSnapshots,
		Channel:      messaging.ChannelStabilityPool,
		Subscription: messaging.Subscription{Chain: "ethereum"},
	})
	msg := receive(t, conn)
	require.Equal(t, string(messaging.PayloadSnapshot), msg.Type)
	require.Len(t, msg.Payload, messaging.DefaultPageItems)
	require.Equal(t, &messaging.Pagination{Page: 1, Items: messaging.DefaultPageItems}, msg.Subscription.Pagination)

	send(t, conn, &presenter.ClientMessage{
		Action:       presenter.ActionSnapshots,
		Channel:      messaging.ChannelStabilityPool,
		Subscription: messaging.Subscription{Chain: "ethereum", Pagination: &messaging.Pagination{Page: 2, Items: 10}},
	})
	require.Len(t, receive(t, conn).Payload, 5)

	send(t, conn, &presenter.ClientMessage{
		Action:       presenter.ActionSnapshots,
		Channel:      messaging.ChannelTrovesOverview,
		Subscription: messaging.Subscription{Chain: "ethereum"},
	})
	require.Equal(t, string(messaging.PayloadSnapshot), receive(t, conn).Type)
}
