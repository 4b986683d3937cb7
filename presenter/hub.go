package presenter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/utils"
)

const (
	sendBufferSize = 256
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownChannel = errors.New("unknown channel")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionSnapshots   = "snapshots"
)

// ClientMessage is a request sent by a WebSocket client.
type ClientMessage struct {
	Action       string                 `json:"action"`
	Channel      string                 `json:"channel"`
	Subscription messaging.Subscription `json:"subscription"`
}

// ServerMessage wraps replies that are not envelopes: acknowledgements and errors.
type ServerMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Payload interface{} `json:"payload"`
}

type client struct {
	send   chan interface{}
	subs   *xsync.Map[string, struct{}]
	logger logging.Logger
}

// enqueue never blocks: a client that cannot keep up loses messages.
func (c *client) enqueue(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("client send buffer is full, dropping message")
		return false
	}
}

// Hub keeps WebSocket clients and relays updates to the ones subscribed to a key.
type Hub struct {
	logger  logging.Logger
	repo    *repository.Repo
	cfg     *config.Config
	clients *xsync.Map[*client, struct{}]
}

func NewHub(logger logging.Logger, repo *repository.Repo, cfg *config.Config) *Hub {
	return &Hub{
		logger:  logger,
		repo:    repo,
		cfg:     cfg,
		clients: xsync.NewMap[*client, struct{}](),
	}
}

// Broadcast sends msg to every client subscribed to key and returns the number of recipients.
func (h *Hub) Broadcast(key string, msg interface{}) int {
	sent := 0
	h.clients.Range(func(c *client, _ struct{}) bool {
		if _, ok := c.subs.Load(key); ok && c.enqueue(msg) {
			sent++
		}
		return true
	})
	BroadcastMessages.WithLabelValues(key).Add(float64(sent))
	return sent
}

func (h *Hub) Clients() int {
	return h.clients.Size()
}

// ServeHTTP upgrades the connection and serves it until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("failed to upgrade websocket connection")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	logger := h.logger.WithField("remote_addr", r.RemoteAddr)
	c := &client{
		send:   make(chan interface{}, sendBufferSize),
		subs:   xsync.NewMap[string, struct{}](),
		logger: logger,
	}
	h.clients.Store(c, struct{}{})
	ConnectedClients.Inc()
	defer func() {
		h.clients.Delete(c)
		ConnectedClients.Dec()
	}()
	logger.Info("websocket client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer h.detach(c, conn, cancel, logger)
		defer h.recoverGoroutine(logger, "ping", cancel)
		h.sendPings(ctx, conn, logger)
	}()
	go func() {
		defer wg.Done()
		defer h.detach(c, conn, cancel, logger)
		defer h.recoverGoroutine(logger, "writer", cancel)
		h.writeMessages(ctx, conn, c, logger)
	}()

	h.readClientMessages(ctx, conn, c, logger)
	cancel()
	wg.Wait()
	logger.Info("websocket client disconnected")
}

// detach stops broadcasts to a client whose connection can no longer be written
// and wakes the reader blocked on it.
func (h *Hub) detach(c *client, conn *websocket.Conn, cancel context.CancelFunc, logger logging.Logger) {
	h.clients.Delete(c)
	cancel()
	if err := conn.SetReadDeadline(time.Now()); err != nil {
		logger.WithError(err).Debug("failed to interrupt websocket reader")
	}
}

func (h *Hub) recoverGoroutine(logger logging.Logger, name string, cancel context.CancelFunc) {
	if rec := recover(); rec != nil {
		logger.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     rec,
			"stack":     string(debug.Stack()),
		}).Error("panic in websocket goroutine")
		cancel()
	}
}

func (h *Hub) sendPings(ctx context.Context, conn *websocket.Conn, logger logging.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				logger.WithError(err).Debug("failed to send ping")
				return
			}
		}
	}
}

// writeMessages is the only writer of data frames on conn.
func (h *Hub) writeMessages(ctx context.Context, conn *websocket.Conn, c *client, logger logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				logger.WithError(err).Debug("failed to set write deadline")
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.WithError(err).Debug("failed to write websocket message")
				return
			}
		}
	}
}

func (h *Hub) readClientMessages(ctx context.Context, conn *websocket.Conn, c *client, logger logging.Logger) {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		logger.WithError(err).Debug("failed to set read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for ctx.Err() == nil {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("websocket read error")
			}
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		if err := h.handleClientMessage(ctx, c, &msg); err != nil {
			c.enqueue(&ServerMessage{Type: "error", Channel: msg.Channel, Payload: map[string]string{"message": err.Error()}})
		}
	}
}

func (h *Hub) handleClientMessage(ctx context.Context, c *client, msg *ClientMessage) error {
	key, err := h.subscriptionKey(ctx, msg.Channel, &msg.Subscription)
	if err != nil {
		return err
	}
	logger := c.logger.WithFields(logrus.Fields{"action": msg.Action, "key": key})
	switch msg.Action {
	case ActionSubscribe:
		c.subs.Store(key, struct{}{})
		logger.Debug("client subscribed")
		c.enqueue(&ServerMessage{Type: "subscribed", Channel: msg.Channel, Payload: msg.Subscription})
	case ActionUnsubscribe:
		c.subs.Delete(key)
		logger.Debug("client unsubscribed")
		c.enqueue(&ServerMessage{Type: "unsubscribed", Channel: msg.Channel, Payload: msg.Subscription})
	case ActionSnapshots:
		snapshot, err := h.snapshot(ctx, msg.Channel, &msg.Subscription)
		if err != nil {
			return err
		}
		c.enqueue(snapshot)
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, msg.Action)
	}
	return nil
}

// subscriptionKey validates the subscription and returns the broadcast key it maps to.
func (h *Hub) subscriptionKey(ctx context.Context, channel string, sub *messaging.Subscription) (string, error) {
	chain, err := h.cfg.ChainByName(sub.Chain)
	if err != nil {
		return "", err
	}
	switch channel {
	case messaging.ChannelTrovesOverview:
		return messaging.TrovesOverviewKey(chain.ChainID), nil
	case messaging.ChannelStabilityPool:
		return messaging.StabilityPoolKey(chain.ChainID), nil
	case messaging.ChannelTroveOperations:
		address := utils.NormalizeAddress(sub.Manager)
		if _, err = h.repo.TroveManagers.GetByChainIDAndAddress(ctx, chain.ChainID, address); err != nil {
			return "", fmt.Errorf("unknown trove manager %s on %s: %w", address, chain.Name, err)
		}
		return messaging.TroveOperationsKey(chain.Name, address), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownChannel, channel)
}

// snapshot reads a page of the channel's current data from the database.
func (h *Hub) snapshot(ctx context.Context, channel string, sub *messaging.Subscription) (interface{}, error) {
	chain, err := h.cfg.ChainByName(sub.Chain)
	if err != nil {
		return nil, err
	}
	page, items := sub.Pagination.Normalize()
	offset := (page - 1) * items
	sub.Pagination = &messaging.Pagination{Page: page, Items: items}

	switch channel {
	case messaging.ChannelTrovesOverview:
		details, err := h.repo.TroveManagerSnapshots.FindDetails(ctx, chain.ChainID, items, offset)
		if err != nil {
			return nil, fmt.Errorf("can't find trove manager details: %w", err)
		}
		return &messaging.TroveOverviewPayload{Channel: channel, Subscription: *sub, Type: messaging.PayloadSnapshot, Payload: details}, nil
	case messaging.ChannelStabilityPool:
		pool, err := h.repo.StabilityPools.GetByChainID(ctx, chain.ChainID)
		if err != nil {
			return nil, fmt.Errorf("can't find stability pool: %w", err)
		}
		ops, err := h.repo.PoolOperations.FindRecent(ctx, pool.ID, items, offset)
		if err != nil {
			return nil, fmt.Errorf("can't find stability pool operations: %w", err)
		}
		return &messaging.StabilityPoolPayload{Channel: channel, Subscription: *sub, Type: messaging.PayloadSnapshot, Payload: ops}, nil
	case messaging.ChannelTroveOperations:
		address := utils.NormalizeAddress(sub.Manager)
		manager, err := h.repo.TroveManagers.GetByChainIDAndAddress(ctx, chain.ChainID, address)
		if err != nil {
			return nil, fmt.Errorf("unknown trove manager %s on %s: %w", address, chain.Name, err)
		}
		ops, err := h.repo.TroveSnapshots.FindOperations(ctx, manager.ID, items, offset)
		if err != nil {
			return nil, fmt.Errorf("can't find trove operations: %w", err)
		}
		sub.Manager = address
		return &messaging.TroveOperationsPayload{Channel: channel, Subscription: *sub, Type: messaging.PayloadSnapshot, Payload: ops}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownChannel, channel)
}
