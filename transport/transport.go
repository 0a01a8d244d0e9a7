// Package transport defines the framed-transport collaborator (§6) the
// session layer drives but does not implement itself, plus two
// concrete implementations: a WebSocket transport and a NATS-tunneled
// bridge transport.
package transport

import "gitlab.com/silenteer-oss/wampc/codec"

// Events are the three callbacks a Transport invokes on the session
// that owns it. Connected supplies the Serializer binding negotiated
// for this connection (installed once per connection and read-only
// thereafter, per spec.md §5). Received delivers one already-framed
// message payload. Disconnected fires exactly once per connection
// attempt, whether the disconnect was requested or not.
type Events struct {
	Connected    func(s codec.Serializer)
	Received     func(data []byte)
	Disconnected func(err error, reason string)
}

// Transport is the framed-transport collaborator. Implementations own
// their own connection lifecycle; the session only ever calls Connect,
// Send, and Disconnect, and only ever learns about transport state
// through the Events it installed before calling Connect.
type Transport interface {
	Connect(events Events) error
	Send(data []byte) error
	Disconnect(reason string)
}
