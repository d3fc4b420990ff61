package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const relayChannel = "tradelink:conversation-events"

type relayEnvelope struct {
	Room  string          `json:"room"`
	Event json.RawMessage `json:"event"`
}

// RedisRelay publishes conversation events through Redis pub/sub so every
// API instance delivers them to its own websocket clients.
type RedisRelay struct {
	rdb *redis.Client
	hub *Hub
	log logrus.FieldLogger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, log logrus.FieldLogger) *RedisRelay {
	return &RedisRelay{
		rdb:        rdb,
		hub:        hub,
		log:        log,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

func encodeRelay(room string, evt Event) ([]byte, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayEnvelope{Room: room, Event: raw})
}

func decodeRelay(payload string) (string, []byte, error) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", nil, err
	}
	if env.Room == "" {
		return "", nil, fmt.Errorf("relay envelope without room")
	}
	return env.Room, env.Event, nil
}

// Publish implements Broadcaster. When Redis is unreachable the event is
// still delivered to local clients.
func (r *RedisRelay) Publish(ctx context.Context, room string, evt Event) {
	data, err := encodeRelay(room, evt)
	if err != nil {
		r.log.WithError(err).WithField("event", evt.Type).Warn("event not encodable")
		return
	}
	if err := r.rdb.Publish(ctx, relayChannel, data).Err(); err != nil {
		r.log.WithError(err).WithField("room", room).Warn("redis publish failed, delivering locally")
		r.hub.Publish(ctx, room, evt)
	}
}

// Run forwards relayed events to the local hub until ctx ends. A failed
// or dropped subscription is retried with exponential backoff, so a Redis
// outage at boot or mid-flight only delays cross-instance delivery.
func (r *RedisRelay) Run(ctx context.Context) {
	wait := r.minBackoff
	for {
		subscribed, err := r.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			wait = r.minBackoff
		}
		r.log.WithError(err).WithFields(logrus.Fields{
			"instance": "messaging.RedisRelay",
			"retry_in": wait.String(),
		}).Warn("conversation relay disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > r.maxBackoff {
			wait = r.maxBackoff
		}
	}
}

// listen holds one subscription until it fails or ctx ends. subscribed
// reports whether Redis confirmed the subscription first.
func (r *RedisRelay) listen(ctx context.Context) (subscribed bool, err error) {
	sub := r.rdb.Subscribe(ctx, relayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", relayChannel, err)
	}
	r.log.WithField("channel", relayChannel).Info("conversation relay listening")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("relay subscription closed")
			}
			room, data, err := decodeRelay(msg.Payload)
			if err != nil {
				r.log.WithError(err).Warn("bad relay payload")
				continue
			}
			r.hub.Deliver(ctx, room, data)
		}
	}
}
