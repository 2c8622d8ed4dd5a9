package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/PSM-Network/social_layer/pkg/logger"
)

// DefaultChannel is the pub/sub channel notifications are published on when
// none is configured.
const DefaultChannel = "social_layer.events"

// RedisPublisher mirrors every buffered event onto a Redis pub/sub channel so
// observers outside the process can follow the feed. Publishing is
// best-effort: a failed publish is logged and dropped, never retried, so the
// originating operation is unaffected.
type RedisPublisher struct {
	client  *redis.Client
	source  Log
	channel string
	log     *logger.Logger

	mu          sync.Mutex
	unsubscribe func()
	running     bool
}

// NewRedisPublisher wires a publisher to an event source. The client is owned
// by the caller.
func NewRedisPublisher(client *redis.Client, source Log, channel string, log *logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.NewDefault("events-redis")
	}
	return &RedisPublisher{
		client:  client,
		source:  source,
		channel: channel,
		log:     log,
	}
}

func (p *RedisPublisher) Name() string { return "events-redis" }

// Start subscribes to the source and begins forwarding events.
func (p *RedisPublisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	if err := p.client.Ping(ctx).Err(); err != nil {
		return err
	}

	p.unsubscribe = p.source.Subscribe(func(event Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			p.log.WithError(err).Warn("marshal event for redis")
			return
		}
		if err := p.client.Publish(context.Background(), p.channel, payload).Err(); err != nil {
			p.log.WithError(err).WithField("event_id", event.ID).Warn("publish event to redis")
		}
	})
	p.running = true
	p.log.WithField("channel", p.channel).Info("redis event publisher started")
	return nil
}

// Stop detaches from the source. The Redis client is left open for the owner
// to close.
func (p *RedisPublisher) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.running = false
	return nil
}
