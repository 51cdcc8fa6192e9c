package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

// Event is the payload pushed to subscribers of a channel
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher pushes events to live subscribers.
// Delivery is best-effort; callers must not depend on it.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// UserChannel is the channel carrying events for one user
func UserChannel(userID string) string {
	return "user:" + userID
}

// TenantChannel is the channel carrying events for every user of a tenant
func TenantChannel(tenantID string) string {
	return "tenant:" + tenantID
}

// RedisPublisher publishes events through Redis pub/sub
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// RedisOption configures RedisPublisher
type RedisOption func(*RedisPublisher)

// WithChannelPrefix namespaces every channel, e.g. "actionflow:" + "user:u1"
func WithChannelPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) {
		p.prefix = prefix
	}
}

// NewRedisPublisher wraps an existing Redis client
func NewRedisPublisher(client *redis.Client, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish serializes the event as JSON and publishes it on the channel
func (p *RedisPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal realtime event", goerr.V("channel", channel))
	}

	if err := p.client.Publish(ctx, p.prefix+channel, raw).Err(); err != nil {
		return goerr.Wrap(err, "failed to publish realtime event",
			goerr.V("channel", p.prefix+channel),
			goerr.V("type", event.Type))
	}
	return nil
}

// Connect parses a redis:// URL and verifies the connection
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opts.Addr))
	}
	return client, nil
}
