package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`

	// Local gateway the UI shell connects to
	GatewayAddr      string `mapstructure:"GATEWAY_ADDR"`
	GatewayTokenHash string `mapstructure:"GATEWAY_TOKEN_HASH"`

	// Hosted backend
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	// Identity service
	AuthBaseURL string `mapstructure:"AUTH_BASE_URL"`
	AuthAPIKey  string `mapstructure:"AUTH_API_KEY"`

	// Object storage (R2 / S3 compatible)
	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY_ID"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_ACCESS_KEY"`
	AvatarBucket     string `mapstructure:"STORAGE_AVATAR_BUCKET"`
	MediaBucket      string `mapstructure:"STORAGE_MEDIA_BUCKET"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"` // Custom domain for the public bucket
}

// Load reads .env plus the environment into a Config. No global is
// kept; callers pass the struct down to whatever needs it.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("GATEWAY_ADDR", "127.0.0.1:8790")
	viper.SetDefault("STORAGE_AVATAR_BUCKET", "avatars")
	viper.SetDefault("STORAGE_MEDIA_BUCKET", "chat-media")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	return &cfg, nil
}
