package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/observability"
)

const subscriberBufferSize = 32

// Applier merges a remote change event into local state. It reports whether
// the event was accepted; stale echoes return false and are not rebroadcast.
type Applier func(Event) bool

// Broker multiplexes change events for all mirrored tables to in-process
// subscribers and, when configured, across nodes via Redis pub/sub and NATS.
// Remote events from this node are filtered out by source id.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}

	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string

	apply  Applier
	nodeID string
	logger zerolog.Logger
}

// NewBroker constructs a feed broker. Both redisClient and natsConn may be
// nil; the broker then serves in-process subscribers only.
func NewBroker(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *Broker {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":feed"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".feed"
	}

	return &Broker{
		subscribers: make(map[chan Event]struct{}),
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "feed_broker").Logger(),
	}
}

// SetApplier installs the local-state merge hook invoked for remote events.
func (b *Broker) SetApplier(apply Applier) {
	b.apply = apply
}

// Start launches the cross-node consumers. Safe to call when neither Redis
// nor NATS is configured.
func (b *Broker) Start(ctx context.Context) {
	if b.redis != nil && b.redisStream != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

// Publish broadcasts a locally produced event to subscribers and fans it out
// to the cross-node channels. The caller has already applied the mutation to
// local state (optimistic update).
func (b *Broker) Publish(ctx context.Context, event Event) {
	event.Source = b.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	b.broadcast(event)
	observability.FeedEventsTotal().WithLabelValues(event.Table, event.Type).Inc()

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to encode feed event")
		return
	}

	if b.redis != nil && b.redisStream != "" {
		if err := b.redis.Publish(ctx, b.redisStream, payload).Err(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to publish feed event to redis")
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			b.logger.Warn().Err(err).Msg("failed to publish feed event to nats")
		}
	}
}

// Subscribe registers a feed consumer. The returned cleanup must be called
// when the consumer goes away.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	channel := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[channel] = struct{}{}
	b.mu.Unlock()
	observability.FeedSubscribersActive().Inc()

	cleanup := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[channel]; ok {
			delete(b.subscribers, channel)
			close(channel)
		}
		b.mu.Unlock()
		observability.FeedSubscribersActive().Dec()
	}

	return channel, cleanup
}

func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for channel := range b.subscribers {
		select {
		case channel <- event:
		default:
			b.logger.Warn().Str("table", event.Table).Msg("dropping feed event for slow subscriber")
		}
	}
}

func (b *Broker) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		b.handleRemote([]byte(msg.Payload))
	}
}

func (b *Broker) consumeNATS(ctx context.Context) {
	sub, err := b.nats.QueueSubscribe(b.natsSubject, "pickup-feed", func(msg *nats.Msg) {
		b.handleRemote(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (b *Broker) handleRemote(payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid feed event payload")
		return
	}

	if event.Source == b.nodeID {
		return
	}

	if b.apply != nil && !b.apply(event) {
		return
	}

	observability.FeedEventsTotal().WithLabelValues(event.Table, event.Type).Inc()
	b.broadcast(event)
}
