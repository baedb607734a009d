package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/filter"
	"github.com/dmitrymomot/chainstream/core/logger"
)

// Defaults follow the usual gorilla keepalive arithmetic: pings are sent at
// nine tenths of the pong wait so a healthy client always answers in time.
const (
	DefaultReadBufferSize   = 1024
	DefaultWriteBufferSize  = 4096
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultPongWait         = 60 * time.Second
	DefaultMaxMessageSize   = 64 * 1024
)

// Close frame payloads are capped at 125 bytes, two of which carry the code.
const maxCloseReasonBytes = 123

// Broadcaster is the subscription surface the handler needs.
type Broadcaster interface {
	Subscribe(ctx context.Context, f broadcast.Filter) (*broadcast.Subscription, error)
}

// Handler serves the websocket subscription endpoint. The client supplies
// filter criteria either as a `filter` query parameter (JSON) or as the first
// text message after the upgrade, then receives a stream of update envelopes.
// Safe for concurrent use; each request runs on its own connection.
type Handler struct {
	broadcaster Broadcaster
	limits      filter.Limits
	upgrader    websocket.Upgrader
	writeWait   time.Duration
	pongWait    time.Duration
	maxMessage  int64
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

// WithLogger sets a custom logger for connection lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithReadBufferSize sets the connection read buffer size.
func WithReadBufferSize(size int) Option {
	return func(h *Handler) {
		h.upgrader.ReadBufferSize = size
	}
}

// WithWriteBufferSize sets the connection write buffer size.
func WithWriteBufferSize(size int) Option {
	return func(h *Handler) {
		h.upgrader.WriteBufferSize = size
	}
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.upgrader.HandshakeTimeout = timeout
	}
}

// WithOriginCheck sets a custom origin check for browser clients.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithAllowAnyOrigin disables the same-origin check.
func WithAllowAnyOrigin() Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}
}

// WithWriteWait sets the per-message write deadline.
func WithWriteWait(timeout time.Duration) Option {
	return func(h *Handler) {
		h.writeWait = timeout
	}
}

// WithPongWait sets how long the connection survives without a pong.
func WithPongWait(timeout time.Duration) Option {
	return func(h *Handler) {
		h.pongWait = timeout
	}
}

// WithMaxMessageSize limits inbound message size.
func WithMaxMessageSize(size int64) Option {
	return func(h *Handler) {
		h.maxMessage = size
	}
}

// New creates a websocket subscription handler for the given broadcaster.
func New(b Broadcaster, opts ...Option) *Handler {
	h := &Handler{
		broadcaster: b,
		limits:      filter.DefaultLimits(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   DefaultReadBufferSize,
			WriteBufferSize:  DefaultWriteBufferSize,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		writeWait:  DefaultWriteWait,
		pongWait:   DefaultPongWait,
		maxMessage: DefaultMaxMessageSize,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The query parameter path rejects bad filters with a plain 400 before
	// the connection is upgraded.
	var f *filter.Filter
	if raw := r.URL.Query().Get("filter"); raw != "" {
		compiled, err := h.compile([]byte(raw))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f = compiled
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.log.Warn("websocket upgrade failed",
			logger.Error(err),
			logger.ClientIP(r.RemoteAddr),
		)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxMessage)

	if f == nil {
		f, err = h.readFilter(conn)
		if err != nil {
			h.closeWith(conn, websocket.CloseInvalidFramePayloadData, err.Error())
			return
		}
	}

	sub, err := h.broadcaster.Subscribe(r.Context(), f)
	if err != nil {
		reason := "subscription rejected"
		if errors.Is(err, broadcast.ErrBroadcasterClosed) {
			reason = "shutting down"
		}
		h.closeWith(conn, websocket.CloseInternalServerErr, reason)
		return
	}
	defer sub.Close()

	h.log.Info("websocket subscriber connected",
		logger.SubscriberID(sub.ID()),
		logger.ClientIP(r.RemoteAddr),
	)
	defer h.log.Info("websocket subscriber disconnected", logger.SubscriberID(sub.ID()))

	h.stream(r.Context(), conn, sub)
}

// compile parses and compiles a JSON filter request.
func (h *Handler) compile(data []byte) (*filter.Filter, error) {
	var req filter.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed filter request: %w", err)
	}
	return filter.Compile(req, h.limits)
}

// readFilter reads the first client message and compiles it.
func (h *Handler) readFilter(conn *websocket.Conn) (*filter.Filter, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.pongWait)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read filter request: %w", err)
	}
	return h.compile(data)
}

// stream pumps envelopes from the subscription to the connection until either
// side goes away. A reader goroutine watches for pongs and client close
// frames; any inbound error ends the stream and the deferred Close reclaims
// the subscription silently.
func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeWith(conn, websocket.CloseGoingAway, "shutting down")
			return

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed",
					logger.SubscriberID(sub.ID()),
					logger.Error(err),
				)
			}
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return
			}

		case env, ok := <-sub.Updates():
			if !ok {
				if errors.Is(sub.Err(), broadcast.ErrSubscriberLagged) {
					h.closeWith(conn, websocket.ClosePolicyViolation, "lagged")
				} else {
					h.closeWith(conn, websocket.CloseGoingAway, "shutting down")
				}
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				h.log.Debug("websocket write failed",
					logger.SubscriberID(sub.ID()),
					logger.Error(err),
				)
				return
			}
		}
	}
}

// closeWith sends a close frame with the given code and reason, truncated to
// fit the control frame payload limit.
func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReasonBytes {
		reason = reason[:maxCloseReasonBytes]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeWait))
}
