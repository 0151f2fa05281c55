package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/logger"
	redisstore "github.com/akshargrover/algo-trading-prototype/internal/store/redis"
)

// relayMessage is the Redis payload: a channel name plus the event.
type relayMessage struct {
	Channel string          `json:"channel"`
	Ticker  string          `json:"ticker"`
	Event   json.RawMessage `json:"event"`
}

// Publisher is a backtest.Observer that publishes run events to Redis so
// gateways in other processes (see Relay) can push them to their clients.
type Publisher struct {
	w      *redisstore.Writer
	logger *slog.Logger
}

// NewPublisher creates a Redis event publisher.
func NewPublisher(w *redisstore.Writer, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{w: w, logger: log}
}

func (p *Publisher) publish(ctx context.Context, channel, ticker string, ev any) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := relayMessage{Channel: channel, Ticker: ticker, Event: raw}
	if err := p.w.PublishJSON(ctx, redisstore.OutcomeChannel, msg); err != nil {
		p.logger.Warn("event publish failed", slog.String("ticker", ticker), slog.String("error", err.Error()))
	}
}

// OnStart implements backtest.Observer.
func (p *Publisher) OnStart(ctx context.Context, ticker string) {
	p.publish(ctx, ChannelStart, ticker, StartEvent{RunID: logger.RunID(ctx), Ticker: ticker})
}

// OnOutcome implements backtest.Observer.
func (p *Publisher) OnOutcome(ctx context.Context, o backtest.Outcome) {
	// cancelled outcomes are reported with the batch context, which is done
	p.publish(context.WithoutCancel(ctx), ChannelOutcome, o.Ticker, NewOutcomeEvent(logger.RunID(ctx), o))
}

var _ backtest.Observer = (*Publisher)(nil)

// Relay forwards events published on Redis to the hub's WebSocket clients.
// It blocks until ctx is cancelled or the subscription closes.
func Relay(ctx context.Context, w *redisstore.Writer, hub *Hub, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	pubsub, err := w.Subscribe(ctx, redisstore.OutcomeChannel)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	log.Info("relaying run events", slog.String("channel", redisstore.OutcomeChannel))
	return relayLoop(ctx, pubsub.Channel(), hub, log)
}

func relayLoop(ctx context.Context, ch <-chan *goredis.Message, hub *Hub, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || !knownChannel(m.Channel) || len(m.Event) == 0 {
				log.Warn("dropping malformed relay message", slog.String("payload", msg.Payload))
				continue
			}
			hub.Broadcast(m.Channel, m.Ticker, m.Event)
		}
	}
}
