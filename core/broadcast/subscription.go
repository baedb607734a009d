package broadcast

import (
	"sync"

	"github.com/dmitrymomot/chainstream/core/feed"
)

// Subscription is one consumer's view of the broadcast feed. Envelopes
// matching the subscription's filter arrive on Updates in publish order.
//
// The coordinator is the only writer to the delivery channel and the only
// party that closes it. It closes the channel when the subscriber is
// evicted or when the broadcaster shuts down; buffered envelopes remain
// readable after close. Once Updates is closed, Err reports why.
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan *feed.Envelope

	done      chan struct{}
	closeOnce sync.Once

	// err is written by the coordinator before it closes ch; the channel
	// close orders the write before any reader observing the close.
	err error
}

// ID returns the subscription's identity. IDs increase monotonically for
// the lifetime of the broadcaster and are never reused.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Updates returns the delivery channel. The channel is closed by the
// coordinator on eviction or shutdown; callers must keep receiving until
// it is closed and must not retain the channel past that point.
func (s *Subscription) Updates() <-chan *feed.Envelope {
	return s.ch
}

// Err reports why the subscription ended. It must be called only after
// Updates is closed. It returns ErrSubscriberLagged when the subscriber was
// evicted for falling behind, and nil after a Close-initiated eviction or a
// broadcaster shutdown.
func (s *Subscription) Err() error {
	return s.err
}

// Close signals that the consumer is done. The coordinator notices during
// a later dispatch and evicts the subscription silently, closing Updates.
// Close is idempotent and safe to call from any goroutine.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
