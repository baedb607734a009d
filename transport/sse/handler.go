package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/filter"
	"github.com/dmitrymomot/chainstream/core/logger"
)

const (
	DefaultKeepAlive = 30 * time.Second
)

// Broadcaster is the subscription surface the handler needs.
type Broadcaster interface {
	Subscribe(ctx context.Context, f broadcast.Filter) (*broadcast.Subscription, error)
}

// Handler serves the Server-Sent-Events subscription endpoint. The client
// supplies filter criteria as a `filter` query parameter (JSON) and receives
// update envelopes as data frames. SSE has no inbound channel, so the filter
// is fixed for the lifetime of the stream.
//
// Safe for concurrent use; each request runs on its own stream.
type Handler struct {
	broadcaster Broadcaster
	limits      filter.Limits
	keepAlive   time.Duration
	noKeepAlive bool
	reconnect   int
	log         *slog.Logger
}

// Option configures handler behavior.
type Option func(*Handler)

// WithLimits sets the filter compilation limits enforced at subscribe time.
func WithLimits(limits filter.Limits) Option {
	return func(h *Handler) {
		h.limits = limits
	}
}

// WithLogger sets a custom logger for stream lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithKeepAlive sets the interval between keepalive comments. Proxies and
// load balancers reap idle connections; keepalives hold them open through
// quiet periods on the feed. Default is DefaultKeepAlive.
func WithKeepAlive(interval time.Duration) Option {
	return func(h *Handler) {
		if interval > 0 {
			h.keepAlive = interval
		}
	}
}

// WithoutKeepAlive disables keepalive comments.
func WithoutKeepAlive() Option {
	return func(h *Handler) {
		h.noKeepAlive = true
	}
}

// WithReconnectTime advertises a client reconnect delay in milliseconds via
// the retry field.
func WithReconnectTime(milliseconds int) Option {
	return func(h *Handler) {
		if milliseconds > 0 {
			h.reconnect = milliseconds
		}
	}
}

// New creates an SSE subscription handler for the given broadcaster.
func New(b Broadcaster, opts ...Option) *Handler {
	h := &Handler{
		broadcaster: b,
		limits:      filter.DefaultLimits(),
		keepAlive:   DefaultKeepAlive,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		http.Error(w, "missing filter query parameter", http.StatusBadRequest)
		return
	}

	var req filter.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		http.Error(w, fmt.Sprintf("malformed filter request: %v", err), http.StatusBadRequest)
		return
	}

	f, err := filter.Compile(req, h.limits)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.broadcaster.Subscribe(r.Context(), f)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, broadcast.ErrBroadcasterClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "subscription rejected", status)
		return
	}
	defer sub.Close()

	h.log.Info("sse subscriber connected",
		logger.SubscriberID(sub.ID()),
		logger.ClientIP(r.RemoteAddr),
	)
	defer h.log.Info("sse subscriber disconnected", logger.SubscriberID(sub.ID()))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if h.reconnect > 0 {
		_, _ = fmt.Fprintf(w, "retry: %d\n\n", h.reconnect)
	}
	_, _ = fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	h.stream(r.Context(), w, flusher, sub)
}

// stream pumps envelopes from the subscription to the response until the
// client goes away or the subscription is closed. A lagged eviction ends the
// stream with a terminal error event the client can distinguish from a
// dropped connection.
func (h *Handler) stream(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sub *broadcast.Subscription) {
	var keepAliveTicker *time.Ticker
	var keepAliveChan <-chan time.Time

	if !h.noKeepAlive && h.keepAlive > 0 {
		keepAliveTicker = time.NewTicker(h.keepAlive)
		keepAliveChan = keepAliveTicker.C
		defer keepAliveTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAliveChan:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case env, ok := <-sub.Updates():
			if !ok {
				if errors.Is(sub.Err(), broadcast.ErrSubscriberLagged) {
					_, _ = fmt.Fprintf(w, "event: error\ndata: lagged\n\n")
					flusher.Flush()
				}
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				h.log.Error("envelope marshal failed",
					logger.SubscriberID(sub.ID()),
					logger.Error(err),
				)
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				h.log.Debug("sse write failed",
					logger.SubscriberID(sub.ID()),
					logger.Error(err),
				)
				return
			}

			if keepAliveTicker != nil {
				keepAliveTicker.Reset(h.keepAlive)
			}
			flusher.Flush()
		}
	}
}
