package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// ticker filter; empty means every ticker
	mu      sync.RWMutex
	tickers map[string]bool
}

func newClient(h *Hub, conn *websocket.Conn, tickers []string) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	c.setTickers(tickers)
	return c
}

func (c *Client) setTickers(tickers []string) {
	set := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if t = upperTrim(t); t != "" {
			set[t] = true
		}
	}
	c.mu.Lock()
	c.tickers = set
	c.mu.Unlock()
}

// wants reports whether an event for ticker should reach this client.
// Events not tied to a ticker are always delivered.
func (c *Client) wants(ticker string) bool {
	if ticker == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickers) == 0 || c.tickers[strings.ToUpper(ticker)]
}

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		c.hub.logger.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var in struct {
			Type    string   `json:"type"`
			Tickers []string `json:"tickers"`
			Ping    int64    `json:"ping"`
		}
		if json.Unmarshal(msg, &in) != nil {
			continue
		}

		switch in.Type {
		case "SUBSCRIBE":
			c.setTickers(in.Tickers)
		case "UNSUBSCRIBE":
			c.setTickers(nil)
		default:
			if in.Ping > 0 {
				pong, _ := json.Marshal(map[string]any{
					"type":      "pong",
					"ping":      in.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				c.trySend(pong)
			}
		}
	}
}

// trySend queues msg unless the client is gone or its buffer is full.
func (c *Client) trySend(msg []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
