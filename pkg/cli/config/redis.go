package config

import (
	"context"
	"log/slog"

	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// Redis holds CLI flags for the Redis connection used by realtime push and job locks
type Redis struct {
	url           string
	channelPrefix string
}

func (x *Redis) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL (e.g. redis://localhost:6379/0). Enables realtime push and distributed job locks",
			Category:    "Redis",
			Destination: &x.url,
			Sources:     cli.EnvVars("ACTIONFLOW_REDIS_URL"),
		},
		&cli.StringFlag{
			Name:        "redis-channel-prefix",
			Usage:       "Prefix for realtime pub/sub channels",
			Category:    "Redis",
			Value:       "actionflow:",
			Destination: &x.channelPrefix,
			Sources:     cli.EnvVars("ACTIONFLOW_REDIS_CHANNEL_PREFIX"),
		},
	}
}

func (x Redis) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.url != ""),
		slog.String("channel-prefix", x.channelPrefix),
	)
}

// ChannelPrefix returns the realtime channel prefix
func (x *Redis) ChannelPrefix() string {
	return x.channelPrefix
}

// Configure connects to Redis. Returns nil when no URL is set.
func (x *Redis) Configure(ctx context.Context) (*redis.Client, error) {
	if x.url == "" {
		return nil, nil
	}

	client, err := realtime.Connect(ctx, x.url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}
