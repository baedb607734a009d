package broadcast_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/feed"
	"github.com/dmitrymomot/chainstream/core/filter"
)

// filterFunc adapts a function to the broadcast.Filter interface.
type filterFunc func(feed.Update) []string

func (f filterFunc) Match(u feed.Update) []string { return f(u) }

func matchAll(name string) filterFunc {
	return func(feed.Update) []string { return []string{name} }
}

func matchKind(kind feed.Kind, name string) filterFunc {
	return func(u feed.Update) []string {
		if u.Kind() != kind {
			return nil
		}
		return []string{name}
	}
}

// startBroadcaster runs the coordinator loop in the background and waits
// until it is running. The returned channel yields Start's result.
func startBroadcaster(t *testing.T, b *broadcast.Broadcaster) chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Start(context.Background())
	}()

	require.Eventually(t, func() bool {
		return b.Stats().IsRunning
	}, time.Second, 10*time.Millisecond, "broadcaster should start")

	t.Cleanup(func() { _ = b.Stop() })

	return errCh
}

// waitSubscribers waits until the coordinator has confirmed n registrations.
func waitSubscribers(t *testing.T, b *broadcast.Broadcaster, n int32) {
	t.Helper()

	require.Eventually(t, func() bool {
		return b.Stats().Subscribers == n
	}, time.Second, 10*time.Millisecond, "expected %d registered subscribers", n)
}

// recvEnvelope receives one envelope or fails the test.
func recvEnvelope(t *testing.T, sub *broadcast.Subscription) *feed.Envelope {
	t.Helper()

	select {
	case env, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed unexpectedly")
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

// requireClosed asserts that the subscription's channel closes without
// yielding further envelopes.
func requireClosed(t *testing.T, sub *broadcast.Subscription) {
	t.Helper()

	select {
	case env, ok := <-sub.Updates():
		require.False(t, ok, "expected closed channel, got envelope %v", env)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for updates channel to close")
	}
}

func TestBroadcaster_StartStop_Lifecycle(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	errCh := startBroadcaster(t, b)

	sub, err := b.Subscribe(context.Background(), matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	// Publish one update and verify delivery.
	require.NoError(t, b.Publish(context.Background(), &feed.SlotUpdate{Slot: 1}))
	env := recvEnvelope(t, sub)
	assert.Equal(t, []string{"all"}, env.Filters)

	// Stop drains the intake channels and exits cleanly.
	require.NoError(t, b.Stop())
	require.NoError(t, <-errCh)
	assert.False(t, b.Stats().IsRunning)

	// The subscription is closed with no terminal error.
	requireClosed(t, sub)
	assert.NoError(t, sub.Err())

	// Intake is rejected after shutdown.
	require.ErrorIs(t, b.Publish(context.Background(), &feed.SlotUpdate{Slot: 2}), broadcast.ErrBroadcasterClosed)
	_, err = b.Subscribe(context.Background(), matchAll("late"))
	require.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)
}

func TestBroadcaster_DoubleStart(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)

	err := b.Start(context.Background())
	require.ErrorIs(t, err, broadcast.ErrBroadcasterAlreadyStarted)
}

func TestBroadcaster_StopBeforeStart(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	err := b.Stop()
	require.ErrorIs(t, err, broadcast.ErrBroadcasterNotStarted)
}

func TestBroadcaster_NilArguments(t *testing.T) {
	t.Parallel()

	b := broadcast.New()

	require.ErrorIs(t, b.Publish(context.Background(), nil), broadcast.ErrNilUpdate)

	_, err := b.Subscribe(context.Background(), nil)
	require.ErrorIs(t, err, broadcast.ErrNilFilter)
}

func TestBroadcaster_FanOutMatchesFilters(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	slotsOnly, err := b.Subscribe(ctx, matchKind(feed.KindSlot, "slots"))
	require.NoError(t, err)
	accountsOnly, err := b.Subscribe(ctx, matchKind(feed.KindAccount, "accounts"))
	require.NoError(t, err)
	everything, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 3)

	slot := &feed.SlotUpdate{Slot: 10, Status: feed.StatusConfirmed}
	account := &feed.AccountUpdate{Pubkey: []byte("acc"), Slot: 10}
	require.NoError(t, b.Publish(ctx, slot))
	require.NoError(t, b.Publish(ctx, account))

	// The slot subscriber sees only the slot update.
	env := recvEnvelope(t, slotsOnly)
	assert.Equal(t, []string{"slots"}, env.Filters)
	assert.Same(t, feed.Update(slot), env.Update())

	// The account subscriber sees only the account update.
	env = recvEnvelope(t, accountsOnly)
	assert.Equal(t, []string{"accounts"}, env.Filters)
	assert.Same(t, feed.Update(account), env.Update())

	// The catch-all subscriber sees both, in publish order, and shares the
	// same update instances instead of copies.
	env = recvEnvelope(t, everything)
	assert.Same(t, feed.Update(slot), env.Update())
	env = recvEnvelope(t, everything)
	assert.Same(t, feed.Update(account), env.Update())
}

func TestBroadcaster_CompiledFilterIntegration(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	f, err := filter.Compile(filter.Request{
		Slots: map[string]filter.SlotCriteria{"slots": {}},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	sub, err := b.Subscribe(ctx, f)
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	require.NoError(t, b.Publish(ctx, &feed.BlockUpdate{Slot: 5}))
	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 5}))

	// Only the slot update passes the compiled filter.
	env := recvEnvelope(t, sub)
	assert.Equal(t, feed.KindSlot, env.Kind())
	assert.Equal(t, []string{"slots"}, env.Filters)
}

func TestBroadcaster_AccountFilterSelectsSingleUpdate(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	pubkeyP := []byte("pubkey-p-pubkey-p-pubkey-p-32by!")
	pubkeyQ := []byte("pubkey-q-pubkey-q-pubkey-q-32by!")

	f, err := filter.Compile(filter.Request{
		Accounts: map[string]filter.AccountCriteria{
			"wallet": {Accounts: []string{base64.StdEncoding.EncodeToString(pubkeyP)}},
		},
	}, filter.DefaultLimits())
	require.NoError(t, err)

	sub, err := b.Subscribe(ctx, f)
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 5}))
	require.NoError(t, b.Publish(ctx, &feed.AccountUpdate{Pubkey: pubkeyP, Slot: 5}))
	require.NoError(t, b.Publish(ctx, &feed.AccountUpdate{Pubkey: pubkeyQ, Slot: 5}))
	require.NoError(t, b.Publish(ctx, &feed.BlockUpdate{Slot: 5}))

	// Exactly one envelope: the watched account's write, tagged with the
	// subscriber's group name.
	env := recvEnvelope(t, sub)
	assert.Equal(t, []string{"wallet"}, env.Filters)
	require.NotNil(t, env.Account)
	assert.Equal(t, pubkeyP, env.Account.Pubkey)

	require.NoError(t, b.Close())
	requireClosed(t, sub)
}

func TestBroadcaster_PerSubscriberOrdering(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: uint64(i)}))
	}

	for i := 0; i < n; i++ {
		env := recvEnvelope(t, sub)
		slot, ok := env.Update().(*feed.SlotUpdate)
		require.True(t, ok)
		assert.Equal(t, uint64(i), slot.Slot)
	}
}

func TestBroadcaster_LaggedSubscriberEvicted(t *testing.T) {
	t.Parallel()

	b := broadcast.New(broadcast.WithSubscriberBuffer(1))
	startBroadcaster(t, b)
	ctx := context.Background()

	slow, err := b.Subscribe(ctx, matchAll("slow"))
	require.NoError(t, err)
	healthy, err := b.Subscribe(ctx, matchAll("healthy"))
	require.NoError(t, err)
	waitSubscribers(t, b, 2)

	// The slow subscriber reads nothing: the first update fills its buffer,
	// the second finds it full and evicts it. The healthy subscriber keeps
	// reading between updates, so its buffer never fills.
	first := &feed.SlotUpdate{Slot: 1}
	second := &feed.SlotUpdate{Slot: 2}
	require.NoError(t, b.Publish(ctx, first))
	env := recvEnvelope(t, healthy)
	assert.Same(t, feed.Update(first), env.Update())

	require.NoError(t, b.Publish(ctx, second))
	env = recvEnvelope(t, healthy)
	assert.Same(t, feed.Update(second), env.Update())

	require.Eventually(t, func() bool {
		return b.Stats().EvictedLagged == 1
	}, time.Second, 10*time.Millisecond, "slow subscriber should be evicted as lagged")

	// The buffered update is still readable, then the channel closes with
	// the terminal error. The update that evicted the subscriber is never
	// delivered to it.
	env = recvEnvelope(t, slow)
	assert.Same(t, feed.Update(first), env.Update())
	requireClosed(t, slow)
	require.ErrorIs(t, slow.Err(), broadcast.ErrSubscriberLagged)

	// The healthy subscriber is unaffected.
	stats := b.Stats()
	assert.Equal(t, int32(1), stats.Subscribers)
	assert.Equal(t, int64(1), stats.EvictedLagged)
	assert.Equal(t, int64(0), stats.EvictedClosed)
}

func TestBroadcaster_ClosedSubscriberEvicted(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	leaving, err := b.Subscribe(ctx, matchAll("leaving"))
	require.NoError(t, err)
	staying, err := b.Subscribe(ctx, matchAll("staying"))
	require.NoError(t, err)
	waitSubscribers(t, b, 2)

	// The consumer walks away; the coordinator notices on the next
	// matching dispatch and evicts silently.
	leaving.Close()
	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))

	require.Eventually(t, func() bool {
		return b.Stats().EvictedClosed == 1
	}, time.Second, 10*time.Millisecond, "closed subscriber should be evicted")

	requireClosed(t, leaving)
	assert.NoError(t, leaving.Err())

	// The remaining subscriber still received the update.
	env := recvEnvelope(t, staying)
	assert.Equal(t, []string{"staying"}, env.Filters)
	assert.Equal(t, int32(1), b.Stats().Subscribers)
}

func TestBroadcaster_SubscriptionCloseIdempotent(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)

	sub, err := b.Subscribe(context.Background(), matchAll("all"))
	require.NoError(t, err)

	sub.Close()
	sub.Close()
}

func TestBroadcaster_SubscriberIDsMonotonic(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	first, err := b.Subscribe(ctx, matchAll("a"))
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, matchAll("b"))
	require.NoError(t, err)
	waitSubscribers(t, b, 2)

	assert.Greater(t, second.ID(), first.ID())

	// Identities are never reused, even after an eviction freed one.
	first.Close()
	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))
	require.Eventually(t, func() bool {
		return b.Stats().EvictedClosed == 1
	}, time.Second, 10*time.Millisecond, "closed subscriber should be evicted")

	third, err := b.Subscribe(ctx, matchAll("c"))
	require.NoError(t, err)
	assert.Greater(t, third.ID(), second.ID())
}

func TestBroadcaster_FilterPanicIsolated(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	panicking, err := b.Subscribe(ctx, filterFunc(func(feed.Update) []string {
		panic("broken filter")
	}))
	require.NoError(t, err)
	healthy, err := b.Subscribe(ctx, matchAll("healthy"))
	require.NoError(t, err)
	waitSubscribers(t, b, 2)

	// Dispatch survives the panic and still reaches the healthy subscriber.
	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))
	env := recvEnvelope(t, healthy)
	assert.Equal(t, []string{"healthy"}, env.Filters)

	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 2}))
	env = recvEnvelope(t, healthy)
	slot, ok := env.Update().(*feed.SlotUpdate)
	require.True(t, ok)
	assert.Equal(t, uint64(2), slot.Slot)

	// The panicking subscriber is skipped, not evicted.
	assert.Equal(t, int32(2), b.Stats().Subscribers)
	select {
	case env, ok := <-panicking.Updates():
		if ok {
			t.Fatalf("unexpected envelope for panicking filter: %v", env)
		}
		t.Fatal("updates channel closed unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_CleanShutdownDrainsAcceptedUpdates(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	errCh := startBroadcaster(t, b)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: uint64(i)}))
	}

	// Close stops intake; updates already accepted still reach the
	// subscriber before its channel closes.
	require.NoError(t, b.Close())
	require.NoError(t, <-errCh)

	for i := 0; i < n; i++ {
		env := recvEnvelope(t, sub)
		slot, ok := env.Update().(*feed.SlotUpdate)
		require.True(t, ok)
		assert.Equal(t, uint64(i), slot.Slot)
	}
	requireClosed(t, sub)
	assert.NoError(t, sub.Err())
}

func TestBroadcaster_CancelledStartRejectsLateSubscribe(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Start(ctx)
	}()
	require.Eventually(t, func() bool {
		return b.Stats().IsRunning
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// A Subscribe that arrives after the loop exited must fail instead of
	// handing back a subscription nothing will ever serve.
	_, err := b.Subscribe(context.Background(), matchAll("late"))
	require.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)
	require.ErrorIs(t, b.Publish(context.Background(), &feed.SlotUpdate{Slot: 1}), broadcast.ErrBroadcasterClosed)
}

func TestBroadcaster_DoubleClose(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)

	require.NoError(t, b.Close())
	require.ErrorIs(t, b.Close(), broadcast.ErrBroadcasterClosed)
}

func TestBroadcaster_RunWithErrgroup(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(b.Run(gctx))

	require.Eventually(t, func() bool {
		return b.Stats().IsRunning
	}, time.Second, 10*time.Millisecond, "broadcaster should start")

	sub, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))
	recvEnvelope(t, sub)

	// Context cancellation shuts the group down without an error.
	cancel()
	require.NoError(t, g.Wait())
	requireClosed(t, sub)
}

func TestBroadcaster_Healthcheck(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	ctx := context.Background()

	err := b.Healthcheck(ctx)
	require.ErrorIs(t, err, broadcast.ErrHealthcheckFailed)
	require.ErrorIs(t, err, broadcast.ErrBroadcasterNotRunning)

	errCh := startBroadcaster(t, b)
	require.NoError(t, b.Healthcheck(ctx))

	require.NoError(t, b.Stop())
	<-errCh
	require.ErrorIs(t, b.Healthcheck(ctx), broadcast.ErrBroadcasterNotRunning)
}

func TestBroadcaster_Stats(t *testing.T) {
	t.Parallel()

	b := broadcast.New()
	startBroadcaster(t, b)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))
	recvEnvelope(t, sub)

	stats := b.Stats()
	assert.Equal(t, int64(1), stats.UpdatesDispatched)
	assert.Equal(t, int64(1), stats.EnvelopesDelivered)
	assert.True(t, stats.IsRunning)
	assert.False(t, stats.LastDispatchAt.IsZero())
}

func TestBroadcaster_MetricsRegister(t *testing.T) {
	t.Parallel()

	b := broadcast.New()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(b.Metrics()))
}

func TestBroadcaster_NewFromConfig(t *testing.T) {
	t.Parallel()

	b := broadcast.NewFromConfig(broadcast.Config{
		RegistrationBuffer: 4,
		IngestBuffer:       8,
		SubscriberBuffer:   2,
		ShutdownTimeout:    5 * time.Second,
	})
	startBroadcaster(t, b)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, matchAll("all"))
	require.NoError(t, err)
	waitSubscribers(t, b, 1)

	require.NoError(t, b.Publish(ctx, &feed.SlotUpdate{Slot: 1}))
	env := recvEnvelope(t, sub)
	assert.Equal(t, []string{"all"}, env.Filters)
}
