package ws

import "time"

// Config holds websocket endpoint configuration with environment variable support.
type Config struct {
	// Buffer sizes for the connection upgrade
	ReadBufferSize  int `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int `env:"WS_WRITE_BUFFER_SIZE" envDefault:"4096"`

	// Handshake and keepalive timing
	HandshakeTimeout time.Duration `env:"WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	WriteWait        time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	PongWait         time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`

	// Inbound message limit. Filter requests are the only expected client
	// payload, so this stays small.
	MaxMessageSize int64 `env:"WS_MAX_MESSAGE_SIZE" envDefault:"65536"`

	// AllowAnyOrigin disables the browser same-origin check. Streaming APIs
	// are typically consumed by non-browser clients, so it defaults to true.
	AllowAnyOrigin bool `env:"WS_ALLOW_ANY_ORIGIN" envDefault:"true"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:   DefaultReadBufferSize,
		WriteBufferSize:  DefaultWriteBufferSize,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteWait:        DefaultWriteWait,
		PongWait:         DefaultPongWait,
		MaxMessageSize:   DefaultMaxMessageSize,
		AllowAnyOrigin:   true,
	}
}

// NewFromConfig creates a Handler from configuration.
// Additional options can override config values.
func NewFromConfig(b Broadcaster, cfg Config, opts ...Option) *Handler {
	configOpts := make([]Option, 0, 7)

	if cfg.ReadBufferSize > 0 {
		configOpts = append(configOpts, WithReadBufferSize(cfg.ReadBufferSize))
	}
	if cfg.WriteBufferSize > 0 {
		configOpts = append(configOpts, WithWriteBufferSize(cfg.WriteBufferSize))
	}
	if cfg.HandshakeTimeout > 0 {
		configOpts = append(configOpts, WithHandshakeTimeout(cfg.HandshakeTimeout))
	}
	if cfg.WriteWait > 0 {
		configOpts = append(configOpts, WithWriteWait(cfg.WriteWait))
	}
	if cfg.PongWait > 0 {
		configOpts = append(configOpts, WithPongWait(cfg.PongWait))
	}
	if cfg.MaxMessageSize > 0 {
		configOpts = append(configOpts, WithMaxMessageSize(cfg.MaxMessageSize))
	}
	if cfg.AllowAnyOrigin {
		configOpts = append(configOpts, WithAllowAnyOrigin())
	}

	configOpts = append(configOpts, opts...)

	return New(b, configOpts...)
}
