// Package httpapi assembles the streamer's HTTP surface into one router.
//
// Routes:
//
//	POST /v1/ingest     accept one wire envelope from the producer
//	GET  /v1/subscribe  websocket subscription endpoint (if mounted)
//	GET  /v1/stream     server-sent-events subscription endpoint (if mounted)
//	GET  /healthz       liveness probe
//	GET  /readyz        readiness probe over registered component checks
//	GET  /metrics       prometheus metrics (if a registry is provided)
//
// Every request passes through request-ID and logging middleware. The
// subscription transports are plain http.Handlers mounted via options, so
// the router stays ignorant of their protocols.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(b.Metrics())
//
//	api := httpapi.New(b,
//		httpapi.WithLogger(log),
//		httpapi.WithSubscribeHandler(ws.New(b)),
//		httpapi.WithStreamHandler(sse.New(b)),
//		httpapi.WithMetrics(reg),
//		httpapi.WithReadinessCheck("broadcaster", b.Healthcheck),
//	)
//
//	err := server.Run(ctx, ":8080", api)
package httpapi
