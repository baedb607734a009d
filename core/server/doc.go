// Package server provides the HTTP host for chainstream's streaming endpoints,
// with graceful shutdown, configurable options, and defaults tuned for
// long-lived connections. It wraps the standard http.Server so WebSocket and
// SSE streams are not severed by per-request deadlines.
//
// # Key Features
//
//   - Graceful shutdown with configurable timeout
//   - Read/write deadlines disabled by default so streams stay open
//   - Header read timeout as the slow-client guard
//   - TLS/HTTPS support with custom configuration
//   - Thread-safe concurrent access protection
//   - Structured logging integration
//   - Simple configuration via functional options or environment
//
// # Basic Usage
//
// Create and run a server with default configuration:
//
//	import (
//		"context"
//		"net/http"
//		"github.com/dmitrymomot/chainstream/core/server"
//	)
//
//	func main() {
//		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//			w.Write([]byte("ok"))
//		})
//
//		ctx := context.Background()
//		if err := server.Run(ctx, ":8080", handler); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Server Configuration
//
// Configure server with custom options:
//
//	srv := server.New(":8080",
//		server.WithShutdownTimeout(60*time.Second),
//		server.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))),
//	)
//
//	ctx := context.Background()
//	if err := srv.Run(ctx, handler); err != nil {
//		log.Fatal(err)
//	}
//
// Or start from the defaults and adjust what differs:
//
//	cfg := server.DefaultConfig()
//	cfg.Addr = ":9090"
//
//	srv, err := server.NewFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Streaming Deadlines
//
// A subscription stream stays open for as long as the subscriber wants
// updates, so the usual per-request deadlines do not apply. ReadTimeout and
// WriteTimeout default to zero (disabled); ReadHeaderTimeout stays enabled to
// drop clients that stall before completing the handshake. If the server also
// hosts conventional request/response endpoints, re-enable the deadlines via
// options or configuration:
//
//	srv := server.New(":8080",
//		server.WithReadTimeout(15*time.Second),
//		server.WithWriteTimeout(15*time.Second),
//	)
//
// # TLS/HTTPS Configuration
//
// Enable HTTPS with custom TLS configuration:
//
//	tlsConfig := server.ModernTLSConfig()
//
//	srv := server.New(":8443",
//		server.WithTLS(tlsConfig),
//		server.WithLogger(logger),
//	)
//
//	if err := srv.Run(ctx, handler); err != nil {
//		log.Fatal(err)
//	}
//
// Certificates can also be loaded from files through configuration:
//
//	cfg := server.Config{
//		Addr:        ":8443",
//		TLSCertFile: "/etc/chainstream/tls/cert.pem",
//		TLSKeyFile:  "/etc/chainstream/tls/key.pem",
//	}
//
//	srv, err := server.NewFromConfig(cfg)
//
// # Graceful Shutdown
//
// Handle graceful shutdown with signal management:
//
//	func main() {
//		srv := server.New(":8080")
//
//		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//		defer stop()
//
//		// Run server - blocks until context is canceled
//		if err := srv.Run(ctx, handler); err != nil {
//			log.Printf("Server error: %v", err)
//		}
//
//		log.Println("Server shutdown complete")
//	}
//
// During shutdown the server stops accepting new connections and waits up to
// the shutdown timeout for in-flight requests. Long-lived streams are expected
// to end when the broadcaster closes their channels, so shutdown order matters:
// stop the broadcaster first, then the server.
//
// # Server Defaults
//
// The server defaults are tuned for a streaming host:
//
//   - ReadTimeout: 0 (disabled)
//   - ReadHeaderTimeout: 10 seconds
//   - WriteTimeout: 0 (disabled)
//   - IdleTimeout: 60 seconds
//   - MaxHeaderBytes: http.DefaultMaxHeaderBytes (1MB)
//   - Graceful shutdown timeout: 30 seconds
//   - Logger: slog.Default()
//
// # Thread Safety
//
// The Server type is safe for concurrent use. All methods properly synchronize
// access to internal state using read-write mutexes.
//
// # Error Handling
//
// The server handles various error conditions:
//
//   - Port already in use
//   - Invalid addresses
//   - TLS certificate errors
//   - Graceful shutdown timeouts
//   - Multiple Run() calls on the same server instance
//
// All errors are properly logged and returned to the caller for handling.
package server
