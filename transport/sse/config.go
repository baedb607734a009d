package sse

import "time"

// Config holds SSE endpoint configuration with environment variable support.
type Config struct {
	// KeepAlive is the interval between keepalive comments. Zero disables
	// keepalives entirely.
	KeepAlive time.Duration `env:"SSE_KEEP_ALIVE" envDefault:"30s"`

	// ReconnectTime advertises a client reconnect delay in milliseconds.
	// Zero leaves the client's default in place.
	ReconnectTime int `env:"SSE_RECONNECT_TIME" envDefault:"0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeepAlive: DefaultKeepAlive,
	}
}

// NewFromConfig creates a Handler from configuration.
// Additional options can override config values.
func NewFromConfig(b Broadcaster, cfg Config, opts ...Option) *Handler {
	configOpts := make([]Option, 0, 3)

	if cfg.KeepAlive > 0 {
		configOpts = append(configOpts, WithKeepAlive(cfg.KeepAlive))
	} else {
		configOpts = append(configOpts, WithoutKeepAlive())
	}
	if cfg.ReconnectTime > 0 {
		configOpts = append(configOpts, WithReconnectTime(cfg.ReconnectTime))
	}

	configOpts = append(configOpts, opts...)

	return New(b, configOpts...)
}
