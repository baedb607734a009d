// Package redis provides Redis client initialization with health checking,
// plus the pub/sub bridge that fans chain updates out across processes.
//
// # Connection
//
// Connect creates a client, validates the connection URL, and verifies
// connectivity with a ping before returning; transient failures are retried
// with exponential backoff. Healthcheck returns a probe function for the
// readiness endpoint.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Both redis:// and rediss:// (TLS) URL schemes are supported. Sentinel
// errors (ErrFailedToParseRedisConnString, ErrRedisNotReady,
// ErrEmptyConnectionURL, ErrHealthcheckFailed) are checkable with
// errors.Is.
//
// # Feed Bridge
//
// A single process broadcasts only what it ingests. The Bridge extends the
// fan-out across processes: it wraps the local broadcaster as its
// Publisher, announcing every locally ingested update on a Redis channel,
// and consumes the same channel to inject updates announced by peers.
// Frames carry the announcing bridge's origin identity, so a bridge never
// re-ingests its own announcements and no echo loop forms between peers.
//
//	bridge := redis.NewBridge(client, broadcaster,
//		redis.WithBridgeLogger(log),
//	)
//
//	g.Go(bridge.Run(ctx))
//	api := httpapi.New(bridge)  // ingest through the bridge
//
// Pub/sub is fire-and-forget: there is no persistence and no replay, which
// matches the at-most-once contract subscribers already have.
package redis
