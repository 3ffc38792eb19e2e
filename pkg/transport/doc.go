// Package transport carries management messages over TCP.
//
// Each message travels as one frame: a 4-byte big-endian length followed by
// the CBOR-encoded request, response or notification. TLS is optional and
// enabled by passing a *tls.Config.
//
//	┌────────────────────────────────┐
//	│   Request / Response / Notify  │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│        TLS (optional)          │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// A Server answers requests in arrival order on each connection and fans
// notifications out to all connections with Broadcast. A ClientConn binds an
// interaction.Client to one connection.
package transport
