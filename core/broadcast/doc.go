// Package broadcast fans a single ordered feed of chain updates out to any
// number of subscribers, each with its own compiled filter and bounded
// delivery channel. It provides non-blocking dispatch, automatic eviction
// of subscribers that fall behind, graceful shutdown, and comprehensive
// observability.
//
// # Core Components
//
// Broadcaster owns the subscriber registry and runs the coordinator loop.
// Producers hand updates to the loop with Publish; consumers register with
// Subscribe. The registry is owned exclusively by the loop, so dispatch
// touches no locks and subscriber bookkeeping needs no synchronization.
//
// Subscription is one consumer's view of the feed: a receive-only channel
// of envelopes plus a terminal error. The coordinator is the only party
// that closes the channel.
//
// Collector exposes the broadcaster's prometheus metrics: the number of
// registered subscribers, dispatched updates and delivered envelopes by
// kind, and evictions by reason.
//
// # Dispatch Semantics
//
// Each published update is offered to every registered subscriber exactly
// once, in publish order. Matching runs the subscriber's compiled filter;
// delivery is a non-blocking send into the subscriber's buffered channel.
// Three outcomes are possible per subscriber:
//
//   - Delivered: the envelope is buffered for the consumer.
//   - Lagged: the buffer is full. The subscriber is evicted at the end of
//     the dispatch pass and its subscription ends with ErrSubscriberLagged.
//   - Closed: the consumer called Close. The subscriber is evicted
//     silently at the end of the pass.
//
// Evictions never interrupt a pass, so one slow consumer cannot affect
// what the others receive. A subscriber evicted as lagged does not receive
// the update that evicted it.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "log/slog"
//	    "os"
//
//	    "golang.org/x/sync/errgroup"
//
//	    "github.com/dmitrymomot/chainstream/core/broadcast"
//	    "github.com/dmitrymomot/chainstream/core/feed"
//	    "github.com/dmitrymomot/chainstream/core/filter"
//	)
//
//	func main() {
//	    logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//
//	    b := broadcast.New(
//	        broadcast.WithSubscriberBuffer(512),
//	        broadcast.WithLogger(logger),
//	    )
//
//	    g, ctx := errgroup.WithContext(context.Background())
//	    g.Go(b.Run(ctx))
//
//	    // Consumer side.
//	    f, err := filter.Compile(filter.Request{
//	        Slots: map[string]filter.SlotCriteria{"slots": {}},
//	    }, filter.DefaultLimits())
//	    if err != nil {
//	        logger.Error("bad filter", "error", err)
//	        return
//	    }
//
//	    sub, err := b.Subscribe(ctx, f)
//	    if err != nil {
//	        logger.Error("subscribe failed", "error", err)
//	        return
//	    }
//	    defer sub.Close()
//
//	    go func() {
//	        for env := range sub.Updates() {
//	            logger.Info("update", "kind", env.Kind(), "filters", env.Filters)
//	        }
//	        if err := sub.Err(); err != nil {
//	            logger.Warn("subscription ended", "error", err)
//	        }
//	    }()
//
//	    // Producer side.
//	    _ = b.Publish(ctx, &feed.SlotUpdate{Slot: 42, Status: feed.StatusProcessed})
//
//	    // Graceful shutdown: stop intake, drain, close subscribers.
//	    _ = b.Close()
//	    _ = g.Wait()
//	}
//
// # Lifecycle
//
// Start blocks running the coordinator loop; Run adapts it to the errgroup
// pattern. Close stops intake and lets the loop drain what it already
// accepted; Stop closes intake and waits for the drain with a timeout.
// After the loop exits every remaining subscription is closed cleanly with
// a nil terminal error.
//
// # Observability
//
// Stats returns dispatch counters and the registry size from atomics, safe
// to call from any goroutine. Healthcheck reports whether the coordinator
// loop is running, for readiness probes. Metrics returns a
// prometheus.Collector to register with a metrics registry:
//
//	prometheus.MustRegister(b.Metrics())
//
// The connection count gauge moves only on coordinator decisions: it is
// incremented when the loop picks up a registration, not when Subscribe
// returns, and decremented on eviction or shutdown.
package broadcast
