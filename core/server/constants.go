package server

import "time"

const (
	// DefaultReadTimeout leaves the connection read deadline disabled.
	// Subscription streams hold their connection open indefinitely; a read
	// deadline would sever them mid-stream.
	DefaultReadTimeout = 0 * time.Second

	// DefaultReadHeaderTimeout bounds how long reading request headers may
	// take, guarding against slow clients now that the connection read
	// deadline is disabled.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout leaves the response write deadline disabled, for
	// the same reason as DefaultReadTimeout.
	DefaultWriteTimeout = 0 * time.Second

	// DefaultIdleTimeout is the default timeout for idle keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxHeaderBytes is the default maximum size of request headers.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB
)
