// Package gateway serves the backtester over HTTP: a REST endpoint to start
// a batch, the latest results, and a WebSocket feed of per-ticker progress.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/logger"
)

// Hub manages WebSocket clients and fans run events out to them. It is a
// backtest.Observer, so a Runner can report progress to it directly.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64

	replay *ReplayBuffer
	logger *slog.Logger
}

// NewHub creates a hub keeping the last replaySize envelopes for replay.
func NewHub(replaySize int, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replaySize),
		logger:  log,
	}
}

// OnStart implements backtest.Observer.
func (h *Hub) OnStart(ctx context.Context, ticker string) {
	h.BroadcastJSON(ChannelStart, ticker, StartEvent{
		RunID:  logger.RunID(ctx),
		Ticker: ticker,
		TS:     time.Now().UTC(),
	})
}

// OnOutcome implements backtest.Observer.
func (h *Hub) OnOutcome(ctx context.Context, o backtest.Outcome) {
	h.BroadcastJSON(ChannelOutcome, o.Ticker, NewOutcomeEvent(logger.RunID(ctx), o))
}

// BatchDone announces the end of a run to all clients.
func (h *Hub) BatchDone(runID string, outcomes []backtest.Outcome) {
	counts := make(map[backtest.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	h.BroadcastJSON(ChannelBatch, "", BatchEvent{RunID: runID, Counts: counts, TS: time.Now().UTC()})
}

// Register attaches a WebSocket connection. Envelopes newer than lastSeq
// are replayed before live traffic; tickers restricts delivery (empty
// means all).
func (h *Hub) Register(conn *websocket.Conn, lastSeq int64, tickers []string) *Client {
	c := newClient(h, conn, tickers)

	// replay and registration are atomic with respect to Broadcast
	h.mu.Lock()
	for _, env := range h.replay.Since(lastSeq, c.wants) {
		select {
		case c.send <- env:
		default:
		}
	}
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client connected", slog.Int("clients", count))

	go c.writePump()
	go c.readPump()
	return c
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the last envelope sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

var _ backtest.Observer = (*Hub)(nil)
