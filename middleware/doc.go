// Package middleware provides HTTP middleware for the cross-cutting concerns
// of the chainstream HTTP surface: request identification and structured
// request logging.
//
// All middleware follows the standard net/http composition pattern and plugs
// directly into gorilla/mux via Router.Use:
//
//	r := mux.NewRouter()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
//		Logger: log,
//		Skip: func(r *http.Request) bool {
//			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
//		},
//	}))
//
// # Request ID Middleware
//
// RequestID assigns a unique identifier to each request, stores it in the
// request context and echoes it in the X-Request-ID response header. Incoming
// IDs from trusted proxies can be reused:
//
//	r.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
//		UseExisting: true,
//	}))
//
//	// Retrieve the ID in handlers
//	if id, ok := middleware.GetRequestID(r.Context()); ok {
//		// include in error responses, pass to downstream calls
//	}
//
// # Logging Middleware
//
// Logging records one structured line per completed request with method,
// path, status code, response size, duration and client IP. Responses with a
// 5xx status log at error level, 4xx at warning, and requests exceeding
// SlowRequestThreshold are flagged as slow.
//
// The response writer wrapper used for capturing status and size forwards
// http.Flusher and http.Hijacker, so server-sent event streams and websocket
// upgrades work unchanged behind the middleware. Hijacked connections are
// recorded with status 101. Subscription streams stay open far past any
// sensible slow-request threshold, so either skip those paths or ignore the
// slow_request flag for them.
package middleware
