// Package ws serves chain update subscriptions over websocket.
//
// A client opens a connection, supplies its filter criteria once, and then
// receives a stream of JSON update envelopes. Each envelope carries one
// update and the names of the client's filter groups it matched.
//
// # Protocol
//
// The filter travels in one of two ways:
//
//   - As a `filter` query parameter holding the JSON filter request. Compile
//     failures are rejected with HTTP 400 before the connection is upgraded.
//   - As the first text message after the upgrade. Compile failures close
//     the connection with code 1007 and the failure detail as the reason.
//
// After the filter is accepted the server only ever sends: update envelopes
// as text messages, pings, and a final close frame. Client messages beyond
// the filter are ignored; pongs keep the connection alive.
//
// # Close Semantics
//
//   - 1001 "shutting down": the broadcaster drained and closed the stream.
//   - 1008 "lagged": the client consumed too slowly and was evicted. The
//     stream delivered every envelope accepted before the eviction point,
//     each at most once.
//   - 1011: the subscription was rejected (broadcaster not accepting).
//
// A client that simply disconnects is reclaimed silently.
//
// # Basic Usage
//
//	b := broadcast.New()
//	// start the broadcaster...
//
//	handler := ws.New(b,
//		ws.WithLimits(limits),
//		ws.WithLogger(log),
//	)
//	mux.Handle("/v1/subscribe", handler)
//
// Client side, with the filter as the first message:
//
//	conn, _, err := websocket.DefaultDialer.Dial("ws://host/v1/subscribe", nil)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	req := filter.Request{
//		Slots: map[string]filter.SlotCriteria{"slots": {}},
//	}
//	if err := conn.WriteJSON(req); err != nil {
//		return err
//	}
//
//	for {
//		var env feed.Envelope
//		if err := conn.ReadJSON(&env); err != nil {
//			return err // inspect close code for "lagged"
//		}
//		// consume env
//	}
//
// # Keepalive
//
// The server pings at nine tenths of the pong wait and drops connections
// whose read deadline expires without a pong. Stock websocket libraries
// answer pings automatically, so well-behaved clients need no extra code.
package ws
