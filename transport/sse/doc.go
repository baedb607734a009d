// Package sse serves chain update subscriptions over Server-Sent Events.
//
// SSE is the browser-native fallback to the websocket endpoint: an
// EventSource needs nothing but a URL, so the filter request travels as a
// `filter` query parameter holding the JSON filter criteria. Compile
// failures are rejected with HTTP 400 before the stream starts; a client
// with a bad filter never sees an event stream at all.
//
// # Stream Format
//
// Accepted streams open with a `: connected` comment, then carry one
// `data:` frame per matching update envelope. Keepalive comments hold idle
// connections open through proxies. A client evicted for consuming too
// slowly receives a terminal frame it can distinguish from a dropped
// connection:
//
//	event: error
//	data: lagged
//
// A broadcaster shutdown simply ends the stream.
//
// # Basic Usage
//
//	b := broadcast.New()
//	// start the broadcaster...
//
//	handler := sse.New(b,
//		sse.WithLimits(limits),
//		sse.WithLogger(log),
//	)
//	mux.Handle("/v1/stream", handler)
//
// Browser side:
//
//	const filter = JSON.stringify({slots: {slots: {}}});
//	const es = new EventSource("/v1/stream?filter=" + encodeURIComponent(filter));
//	es.onmessage = (e) => consume(JSON.parse(e.data));
//	es.addEventListener("error", (e) => {
//	    if (e.data === "lagged") es.close();
//	});
package sse
