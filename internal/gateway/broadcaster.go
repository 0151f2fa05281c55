package gateway

import (
	"encoding/json"
	"strconv"
	"time"
)

// appendEnvelope hand-crafts {"channel":...,"data":...,"ts":...,"seq":N}
// around an already-encoded payload.
func appendEnvelope(buf []byte, channel string, data []byte, now time.Time, seq int64) []byte {
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	return append(buf, '}')
}

// Broadcast wraps data in an envelope, stores it for replay and sends it
// to every client whose filter matches ticker. Slow clients drop messages
// rather than block the batch.
func (h *Hub) Broadcast(channel, ticker string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	env := appendEnvelope(make([]byte, 0, len(channel)+len(data)+96), channel, data, now, h.seq)
	h.replay.Push(h.seq, ticker, env)

	for client := range h.clients {
		if !client.wants(ticker) {
			continue
		}
		select {
		case client.send <- env:
		default:
		}
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(channel, ticker string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("ws marshal failed", "channel", channel, "error", err)
		return
	}
	h.Broadcast(channel, ticker, data)
}
