package redis

import "github.com/redis/go-redis/v9"

// BridgeConfig holds feed bridge configuration with environment variable
// support.
type BridgeConfig struct {
	// Enabled turns the cross-process bridge on. When false the process
	// serves only locally ingested updates.
	Enabled bool `env:"REDIS_BRIDGE_ENABLED" envDefault:"false"`
	// Channel is the Redis pub/sub channel updates travel on.
	Channel string `env:"REDIS_BRIDGE_CHANNEL" envDefault:"chainstream:updates"`
}

// NewBridgeFromConfig creates a Bridge tuned by cfg. Additional options
// apply on top.
func NewBridgeFromConfig(rdb redis.UniversalClient, local Publisher, cfg BridgeConfig, opts ...BridgeOption) *Bridge {
	configOpts := make([]BridgeOption, 0, 1+len(opts))
	if cfg.Channel != "" {
		configOpts = append(configOpts, WithBridgeChannel(cfg.Channel))
	}
	configOpts = append(configOpts, opts...)

	return NewBridge(rdb, local, configOpts...)
}
