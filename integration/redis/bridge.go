package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/feed"
	"github.com/dmitrymomot/chainstream/core/logger"
)

// DefaultBridgeChannel is the Redis channel bridges publish updates on.
const DefaultBridgeChannel = "chainstream:updates"

// Publisher is the local ingestion surface the bridge feeds into and
// forwards from. A *broadcast.Broadcaster satisfies it.
type Publisher interface {
	Publish(ctx context.Context, u feed.Update) error
}

// Frame is the message bridges exchange over the Redis channel. Origin
// identifies the publishing process so a bridge can skip its own echoes;
// the envelope carries exactly one update payload and no filter names.
type Frame struct {
	Origin   string        `json:"origin"`
	Envelope feed.Envelope `json:"envelope"`
}

// Bridge fans updates out across processes over Redis pub/sub. It sits in
// front of the local broadcaster as its Publisher: updates ingested locally
// are delivered locally and announced on the Redis channel, while Run
// consumes the channel and injects updates announced by other processes.
//
// Announcements are fire-and-forget pub/sub messages: a process that was
// down misses them permanently. That mirrors the delivery contract
// subscribers already have, so the bridge adds no persistence or replay.
type Bridge struct {
	rdb     redis.UniversalClient
	local   Publisher
	channel string
	origin  string
	log     *slog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeChannel sets the Redis channel updates travel on. Default is
// DefaultBridgeChannel.
func WithBridgeChannel(channel string) BridgeOption {
	return func(b *Bridge) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithBridgeLogger sets a custom logger for bridge events.
func WithBridgeLogger(log *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// WithBridgeOrigin overrides the generated origin identity. Two bridges
// sharing an origin ignore each other's frames.
func WithBridgeOrigin(origin string) BridgeOption {
	return func(b *Bridge) {
		if origin != "" {
			b.origin = origin
		}
	}
}

// NewBridge creates a bridge between the local publisher and the Redis
// channel. Each bridge gets a unique origin identity so it never re-ingests
// its own announcements.
func NewBridge(rdb redis.UniversalClient, local Publisher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		rdb:     rdb,
		local:   local,
		channel: DefaultBridgeChannel,
		origin:  uuid.New().String(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Origin returns the bridge's origin identity.
func (b *Bridge) Origin() string {
	return b.origin
}

// Publish delivers the update locally, then announces it on the Redis
// channel. Local delivery failing fails the call; the announcement is
// best-effort, since local subscribers were already served.
func (b *Bridge) Publish(ctx context.Context, u feed.Update) error {
	if err := b.local.Publish(ctx, u); err != nil {
		return err
	}

	data, err := json.Marshal(Frame{
		Origin:   b.origin,
		Envelope: *feed.NewEnvelope(nil, u),
	})
	if err != nil {
		b.log.Error("bridge frame marshal failed",
			logger.UpdateKind(string(u.Kind())),
			logger.Error(err),
		)
		return nil
	}

	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Error("bridge announce failed",
			logger.UpdateKind(string(u.Kind())),
			logger.Error(err),
		)
	}
	return nil
}

// Run provides errgroup compatibility: the returned function consumes the
// Redis channel and injects updates from other processes into the local
// publisher until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) func() error {
	return func() error {
		sub := b.rdb.Subscribe(ctx, b.channel)
		defer sub.Close()

		// Confirm the subscription before reporting started, so updates
		// announced after Run returns control are not missed.
		if _, err := sub.Receive(ctx); err != nil {
			return err
		}

		b.log.Info("bridge consuming", slog.String("channel", b.channel))

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				b.ingest(ctx, []byte(msg.Payload))
			}
		}
	}
}

// ingest decodes one frame and feeds its update into the local publisher.
// Own echoes and malformed frames are dropped.
func (b *Bridge) ingest(ctx context.Context, payload []byte) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		b.log.Warn("bridge frame unmarshal failed", logger.Error(err))
		return
	}

	if f.Origin == b.origin {
		return
	}

	u := f.Envelope.Update()
	if u == nil {
		b.log.Warn("bridge frame without a single update payload",
			slog.String("origin", f.Origin))
		return
	}

	if err := b.local.Publish(ctx, u); err != nil {
		if errors.Is(err, broadcast.ErrBroadcasterClosed) || errors.Is(err, context.Canceled) {
			return
		}
		b.log.Error("bridge local publish failed",
			logger.UpdateKind(string(u.Kind())),
			logger.Error(err),
		)
	}
}
