package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// NewRedis connects to the deployment's Redis broker, which carries
// the realtime change feed. The URL form covers addr, password and db
// in one setting (redis://:pass@host:6379/0).
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("database: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("database: redis ping: %w", err)
	}

	logger.Info().Msg("Connected to Redis successfully")
	return client, nil
}
