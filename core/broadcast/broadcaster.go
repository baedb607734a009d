package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/chainstream/core/feed"
)

// Filter decides which of a subscriber's named groups an update satisfies.
// A compiled *filter.Filter satisfies this interface. Implementations must
// be safe for concurrent use and must not block: Match runs on the
// dispatch path for every (update, subscriber) pair.
type Filter interface {
	// Match returns the names of the groups the update satisfies, or nil
	// when the subscriber has no interest in it.
	Match(u feed.Update) []string
}

const (
	// DefaultRegistrationBuffer is the default capacity of the registration channel.
	DefaultRegistrationBuffer = 64
	// DefaultIngestBuffer is the default capacity of the update ingestion channel.
	DefaultIngestBuffer = 1024
	// DefaultSubscriberBuffer is the default capacity of each subscriber's delivery channel.
	DefaultSubscriberBuffer = 256
	// DefaultShutdownTimeout is how long Stop waits for the coordinator to drain.
	DefaultShutdownTimeout = 30 * time.Second
)

// Broadcaster fans a single feed of updates out to any number of
// subscribers, each with its own compiled filter and bounded delivery
// channel.
//
// The registry of live subscribers is owned exclusively by the coordinator
// loop started with Start, so dispatch never takes a lock. Publish and
// Subscribe hand work to the loop through buffered channels and are safe
// for concurrent use. Dispatch to each subscriber is non-blocking: a
// subscriber whose buffer is full is evicted with ErrSubscriberLagged, one
// that closed its subscription is evicted silently, and either way the
// remaining subscribers are unaffected.
//
// Example:
//
//	b := broadcast.New(
//	    broadcast.WithSubscriberBuffer(512),
//	    broadcast.WithLogger(logger),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(b.Run(ctx))
//
//	sub, err := b.Subscribe(ctx, compiledFilter)
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//
//	for env := range sub.Updates() {
//	    // deliver env to the client
//	}
//	if err := sub.Err(); err != nil {
//	    // subscriber fell behind and was evicted
//	}
type Broadcaster struct {
	regCh    chan *Subscription
	updateCh chan feed.Update

	subscriberBuffer int
	shutdownTimeout  time.Duration
	logger           *slog.Logger
	metrics          *Collector

	// subscribers is touched only by the coordinator loop.
	subscribers map[uint64]*Subscription

	nextID atomic.Uint64

	mu       sync.RWMutex
	closed   bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	updatesDispatched  atomic.Int64
	envelopesDelivered atomic.Int64
	evictedLagged      atomic.Int64
	evictedClosed      atomic.Int64
	activeSubscribers  atomic.Int32
	lastDispatchAt     atomic.Int64
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithRegistrationBuffer sets the capacity of the registration channel.
// Default is DefaultRegistrationBuffer.
func WithRegistrationBuffer(size int) Option {
	return func(b *Broadcaster) {
		if size > 0 {
			b.regCh = make(chan *Subscription, size)
		}
	}
}

// WithIngestBuffer sets the capacity of the update ingestion channel.
// Default is DefaultIngestBuffer. A larger buffer allows more updates to be
// queued before publishers block.
func WithIngestBuffer(size int) Option {
	return func(b *Broadcaster) {
		if size > 0 {
			b.updateCh = make(chan feed.Update, size)
		}
	}
}

// WithSubscriberBuffer sets the capacity of each new subscriber's delivery
// channel. Default is DefaultSubscriberBuffer. A subscriber whose buffer is
// full when a matching update arrives is evicted as lagged.
func WithSubscriberBuffer(size int) Option {
	return func(b *Broadcaster) {
		if size > 0 {
			b.subscriberBuffer = size
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for the coordinator loop
// to drain before cancelling it. Default is DefaultShutdownTimeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(b *Broadcaster) {
		if timeout > 0 {
			b.shutdownTimeout = timeout
		}
	}
}

// WithLogger configures structured logging for the broadcaster.
// Use slog.New(slog.NewTextHandler(io.Discard, nil)) to disable logging.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a broadcaster with default buffering. Call Start, or Run
// inside an errgroup, before publishing.
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		regCh:            make(chan *Subscription, DefaultRegistrationBuffer),
		updateCh:         make(chan feed.Update, DefaultIngestBuffer),
		subscriberBuffer: DefaultSubscriberBuffer,
		shutdownTimeout:  DefaultShutdownTimeout,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:          NewMetricsCollector(),
		subscribers:      make(map[uint64]*Subscription),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewFromConfig creates a broadcaster tuned by cfg. Zero config fields keep
// their defaults; opts apply on top.
func NewFromConfig(cfg Config, opts ...Option) *Broadcaster {
	base := make([]Option, 0, 4+len(opts))
	if cfg.RegistrationBuffer > 0 {
		base = append(base, WithRegistrationBuffer(cfg.RegistrationBuffer))
	}
	if cfg.IngestBuffer > 0 {
		base = append(base, WithIngestBuffer(cfg.IngestBuffer))
	}
	if cfg.SubscriberBuffer > 0 {
		base = append(base, WithSubscriberBuffer(cfg.SubscriberBuffer))
	}
	if cfg.ShutdownTimeout > 0 {
		base = append(base, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(base, opts...)...)
}

// Publish enqueues one update for dispatch. Updates are dispatched in the
// order Publish accepted them. It returns ErrBroadcasterClosed after Close;
// it blocks only when the ingestion buffer is full, and ctx bounds the wait.
func (b *Broadcaster) Publish(ctx context.Context, u feed.Update) error {
	if u == nil {
		return ErrNilUpdate
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.updateCh <- u:
		return nil
	}
}

// Subscribe registers a new consumer with an already compiled filter. The
// subscription's identity is assigned here, monotonically and never reused;
// envelopes start flowing once the coordinator picks up the registration.
// Subscribe returns ErrBroadcasterClosed after Close.
func (b *Broadcaster) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	if f == nil {
		return nil, ErrNilFilter
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrBroadcasterClosed
	}

	sub := &Subscription{
		id:     b.nextID.Add(1),
		filter: f,
		ch:     make(chan *feed.Envelope, b.subscriberBuffer),
		done:   make(chan struct{}),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case b.regCh <- sub:
		b.logger.DebugContext(ctx, "subscription enqueued",
			slog.Uint64("subscriber_id", sub.id))
		return sub, nil
	}
}

// Start runs the coordinator loop. This is a blocking operation: it returns
// nil after Close once both intake channels are drained, or ctx.Err() when
// the context is cancelled. Either way every remaining subscription is
// closed cleanly on exit. Use Run for the errgroup pattern or call Start in
// a goroutine.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return ErrBroadcasterAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel = cancel
	b.loopDone = done
	b.mu.Unlock()

	defer close(done)
	defer b.shutdownSubscribers()

	b.logger.InfoContext(ctx, "broadcaster started")

	regCh := b.regCh
	updateCh := b.updateCh

	for regCh != nil || updateCh != nil {
		select {
		case <-loopCtx.Done():
			b.logger.Info("broadcaster stopping")
			return loopCtx.Err()
		case sub, ok := <-regCh:
			if !ok {
				regCh = nil
				continue
			}
			b.addSubscriber(sub)
		case u, ok := <-updateCh:
			if !ok {
				updateCh = nil
				continue
			}
			b.dispatch(u)
		}
	}

	b.logger.Info("intake channels drained")
	return nil
}

// Stop gracefully shuts down the broadcaster. It closes the intake
// channels, waits up to the shutdown timeout for the coordinator to drain
// accepted updates, then cancels the loop if the timeout is exceeded.
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	if b.cancel == nil {
		b.mu.Unlock()
		return ErrBroadcasterNotStarted
	}

	cancel := b.cancel
	done := b.loopDone
	b.cancel = nil
	b.mu.Unlock()

	_ = b.Close()

	b.logger.Info("broadcaster stopping, draining intake channels",
		slog.Duration("timeout", b.shutdownTimeout))

	select {
	case <-done:
		cancel()
		b.logger.Info("broadcaster stopped cleanly")
		return nil
	case <-time.After(b.shutdownTimeout):
		cancel()
		<-done
		b.logger.Warn("broadcaster shutdown timeout exceeded - drain abandoned",
			slog.Duration("timeout", b.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", b.shutdownTimeout)
	}
}

// Close stops intake: subsequent Publish and Subscribe calls fail with
// ErrBroadcasterClosed. The coordinator drains updates it already accepted,
// then exits and closes every remaining subscription cleanly. Close does
// not wait for the drain; Stop does.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	b.closed = true
	close(b.regCh)
	close(b.updateCh)
	b.logger.Info("broadcaster intake closed")
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the coordinator, monitors context
// cancellation, and performs graceful shutdown when the context is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- b.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			// Context cancelled - perform graceful shutdown
			_ = b.Stop() // Ignore stop error in normal shutdown
			<-errCh      // Wait for Start() to exit
			return nil
		case err := <-errCh:
			// Start() returned - check if it's a normal shutdown
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

func (b *Broadcaster) addSubscriber(sub *Subscription) {
	b.subscribers[sub.id] = sub
	b.activeSubscribers.Add(1)
	b.metrics.connectionCount.Inc()
	b.logger.Info("subscriber added", slog.Uint64("subscriber_id", sub.id))
}

// dispatch delivers one update to every subscriber whose filter matches.
// Evictions collected during the pass apply only after every subscriber has
// been offered the update, so a full or closed channel cannot affect what
// the others receive.
func (b *Broadcaster) dispatch(u feed.Update) {
	kind := string(u.Kind())
	b.updatesDispatched.Add(1)
	b.lastDispatchAt.Store(time.Now().Unix())
	b.metrics.updatesTotal.WithLabelValues(kind).Inc()

	var lagged, closed []uint64

	for id, sub := range b.subscribers {
		names := b.matchFilter(sub, u)
		if len(names) == 0 {
			continue
		}

		select {
		case <-sub.done:
			closed = append(closed, id)
			continue
		default:
		}

		select {
		case sub.ch <- feed.NewEnvelope(names, u):
			b.envelopesDelivered.Add(1)
			b.metrics.deliveriesTotal.WithLabelValues(kind).Inc()
		default:
			lagged = append(lagged, id)
		}
	}

	for _, id := range lagged {
		b.evict(id, reasonLagged)
	}
	for _, id := range closed {
		b.evict(id, reasonClosed)
	}
}

func (b *Broadcaster) evict(id uint64, reason string) {
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}

	delete(b.subscribers, id)
	b.activeSubscribers.Add(-1)
	b.metrics.connectionCount.Dec()
	b.metrics.evictionsTotal.WithLabelValues(reason).Inc()

	switch reason {
	case reasonLagged:
		sub.err = ErrSubscriberLagged
		b.evictedLagged.Add(1)
		b.logger.Error("subscriber lagged, evicting",
			slog.Uint64("subscriber_id", id))
	default:
		b.evictedClosed.Add(1)
		b.logger.Info("subscriber closed, evicting",
			slog.Uint64("subscriber_id", id))
	}

	close(sub.ch)
}

// matchFilter isolates filter panics: a panicking filter must not take the
// coordinator down, so the subscriber is skipped for this update.
func (b *Broadcaster) matchFilter(sub *Subscription, u feed.Update) (names []string) {
	defer func() {
		if r := recover(); r != nil {
			names = nil
			b.logger.Error("filter panicked, skipping subscriber for this update",
				slog.Uint64("subscriber_id", sub.id),
				slog.Any("panic", r))
		}
	}()

	return sub.filter.Match(u)
}

// shutdownSubscribers closes every remaining subscription cleanly, then
// releases registrations the loop never picked up so their readers do not
// block forever.
func (b *Broadcaster) shutdownSubscribers() {
	// A Subscribe that raced the loop's exit must fail instead of
	// enqueueing a registration nothing will ever pick up. Taking the
	// write lock here also waits out any Subscribe already past the
	// closed check, so the drain below sees its registration.
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	remaining := len(b.subscribers)

	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		b.activeSubscribers.Add(-1)
		b.metrics.connectionCount.Dec()
		close(sub.ch)
	}

	if remaining > 0 {
		b.logger.Info("broadcaster stopped, remaining subscriptions closed",
			slog.Int("subscribers", remaining))
	}

	for {
		select {
		case sub, ok := <-b.regCh:
			if !ok {
				return
			}
			close(sub.ch)
		default:
			return
		}
	}
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	Subscribers        int32
	UpdatesDispatched  int64
	EnvelopesDelivered int64
	EvictedLagged      int64
	EvictedClosed      int64
	IsRunning          bool
	LastDispatchAt     time.Time
}

// Stats returns current broadcaster statistics for observability and monitoring.
func (b *Broadcaster) Stats() Stats {
	b.mu.RLock()
	isRunning := b.cancel != nil
	done := b.loopDone
	b.mu.RUnlock()

	if isRunning && done != nil {
		select {
		case <-done:
			isRunning = false
		default:
		}
	}

	last := b.lastDispatchAt.Load()
	var lastDispatch time.Time
	if last > 0 {
		lastDispatch = time.Unix(last, 0)
	}

	return Stats{
		Subscribers:        b.activeSubscribers.Load(),
		UpdatesDispatched:  b.updatesDispatched.Load(),
		EnvelopesDelivered: b.envelopesDelivered.Load(),
		EvictedLagged:      b.evictedLagged.Load(),
		EvictedClosed:      b.evictedClosed.Load(),
		IsRunning:          isRunning,
		LastDispatchAt:     lastDispatch,
	}
}

// Healthcheck validates that the coordinator loop is running.
// Returns nil if healthy, or an error describing the health issue.
func (b *Broadcaster) Healthcheck(ctx context.Context) error {
	if !b.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrBroadcasterNotRunning)
	}

	return nil
}

// Metrics returns the broadcaster's prometheus collector so callers can
// register it with their registry.
func (b *Broadcaster) Metrics() prometheus.Collector {
	return b.metrics
}
