package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/feed"
	"github.com/dmitrymomot/chainstream/core/logger"
	"github.com/dmitrymomot/chainstream/middleware"
)

// Publisher is the ingestion surface the API needs.
type Publisher interface {
	Publish(ctx context.Context, u feed.Update) error
}

// HealthFunc reports the health of one component for the readiness probe.
type HealthFunc func(ctx context.Context) error

// API is the HTTP surface of the streamer: ingestion, subscription
// transports, health probes and prometheus metrics behind one router.
type API struct {
	publisher Publisher
	subscribe http.Handler
	stream    http.Handler
	registry  *prometheus.Registry
	checks    []namedCheck
	log       *slog.Logger
	maxBody   int64

	router *mux.Router
}

type namedCheck struct {
	name  string
	check HealthFunc
}

// DefaultMaxBodySize bounds the ingest request body.
const DefaultMaxBodySize = 16 << 20

// Option configures the API.
type Option func(*API)

// WithLogger sets the logger used by the API and its request logging
// middleware.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithSubscribeHandler mounts a websocket subscription handler at
// GET /v1/subscribe.
func WithSubscribeHandler(h http.Handler) Option {
	return func(a *API) {
		a.subscribe = h
	}
}

// WithStreamHandler mounts a server-sent-events subscription handler at
// GET /v1/stream.
func WithStreamHandler(h http.Handler) Option {
	return func(a *API) {
		a.stream = h
	}
}

// WithMetrics exposes the given prometheus registry at GET /metrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(a *API) {
		a.registry = reg
	}
}

// WithReadinessCheck adds a named component check to GET /readyz. Checks run
// in registration order; the probe fails on the first unhealthy component.
func WithReadinessCheck(name string, check HealthFunc) Option {
	return func(a *API) {
		a.checks = append(a.checks, namedCheck{name: name, check: check})
	}
}

// WithMaxBodySize bounds the ingest request body. Default is
// DefaultMaxBodySize.
func WithMaxBodySize(size int64) Option {
	return func(a *API) {
		if size > 0 {
			a.maxBody = size
		}
	}
}

// New builds the API router around the given publisher. The subscription
// transports are optional; routes for absent handlers are not registered.
func New(p Publisher, opts ...Option) *API {
	a := &API{
		publisher: p,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBody:   DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(a)
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger: a.log,
		// Streaming endpoints hold their connection open for the whole
		// subscription, which is not a slow request.
		Skip: func(req *http.Request) bool {
			return req.URL.Path == "/v1/subscribe" || req.URL.Path == "/v1/stream"
		},
	}))

	r.HandleFunc("/healthz", a.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadiness).Methods(http.MethodGet)
	r.HandleFunc("/v1/ingest", a.handleIngest).Methods(http.MethodPost)

	if a.subscribe != nil {
		r.Handle("/v1/subscribe", a.subscribe).Methods(http.MethodGet)
	}
	if a.stream != nil {
		r.Handle("/v1/stream", a.stream).Methods(http.MethodGet)
	}
	if a.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{
			Registry: a.registry,
		})).Methods(http.MethodGet)
	}

	a.router = r
	return a
}

// ServeHTTP implements the http.Handler interface.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// handleIngest accepts one wire envelope per request and feeds its payload
// into the broadcaster. This is the producer boundary: whatever converts
// validator callbacks into updates posts them here.
func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	var env feed.Envelope
	body := http.MaxBytesReader(w, r.Body, a.maxBody)
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		respondError(w, http.StatusBadRequest, "malformed envelope: "+err.Error())
		return
	}

	u := env.Update()
	if u == nil {
		respondError(w, http.StatusBadRequest, "envelope must carry exactly one update payload")
		return
	}

	if err := a.publisher.Publish(r.Context(), u); err != nil {
		if errors.Is(err, broadcast.ErrBroadcasterClosed) {
			respondError(w, http.StatusServiceUnavailable, "shutting down")
			return
		}
		a.log.Error("ingest publish failed",
			logger.UpdateKind(string(u.Kind())),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "publish failed")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"kind":   string(u.Kind()),
	})
}

// handleLiveness reports that the process is up.
func (a *API) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness runs the registered component checks and reports the
// first failure.
func (a *API) handleReadiness(w http.ResponseWriter, r *http.Request) {
	for _, c := range a.checks {
		if err := c.check(r.Context()); err != nil {
			a.log.Warn("readiness check failed",
				logger.Component(c.name),
				logger.Error(err),
			)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "unavailable",
				"component": c.name,
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
