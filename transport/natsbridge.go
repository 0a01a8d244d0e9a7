package transport

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"logur.dev/logur"

	"gitlab.com/silenteer-oss/wampc/codec"
)

// NatsBridge is an alternate Transport that tunnels WAMP frames over a
// pair of NATS subjects instead of a raw WebSocket: outbound frames are
// published to <subject>.in, inbound frames arrive on <subject>.out,
// which the router is expected to publish replies/events to. This
// shows the Transport interface is pluggable the way the teacher's own
// IConnection abstraction decouples Client/Server from the wire.
type NatsBridge struct {
	url        string
	subject    string
	logger     logur.Logger
	serializer codec.Serializer

	conn *nats.Conn
	sub  *nats.Subscription

	events Events
	closed bool
}

type NatsBridgeOption func(*NatsBridge)

func WithNatsLogger(logger logur.Logger) NatsBridgeOption {
	return func(b *NatsBridge) { b.logger = logger }
}

func WithNatsSerializer(s codec.Serializer) NatsBridgeOption {
	return func(b *NatsBridge) { b.serializer = s }
}

// NewNatsBridge builds a bridge transport that exchanges frames on
// "<subject>.in" (outbound, CALL/PUBLISH/... the client sends) and
// "<subject>.out" (inbound, RESULT/EVENT/... the router publishes).
func NewNatsBridge(url, subject string, opts ...NatsBridgeOption) *NatsBridge {
	b := &NatsBridge{url: url, subject: subject}
	for _, opt := range opts {
		opt(b)
	}
	if b.serializer == nil {
		b.serializer = codec.NewJSONSerializer()
	}
	return b
}

func (b *NatsBridge) Connect(events Events) error {
	b.events = events
	b.closed = false
	conn, err := nats.Connect(b.url,
		nats.Name("wampc-nats-bridge"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, e error) {
			if e != nil {
				b.fireDisconnected(e, "")
			}
		}),
	)
	if err != nil {
		return errors.WithMessage(err, "transport: nats connect error")
	}
	b.conn = conn

	sub, err := conn.Subscribe(b.subject+".out", func(msg *nats.Msg) {
		if events.Received != nil {
			events.Received(msg.Data)
		}
	})
	if err != nil {
		conn.Close()
		return errors.WithMessage(err, "transport: nats subscribe error")
	}
	b.sub = sub

	if err := conn.Flush(); err != nil {
		conn.Close()
		return errors.WithMessage(err, "transport: nats flush error")
	}

	if events.Connected != nil {
		events.Connected(b.serializer)
	}
	return nil
}

func (b *NatsBridge) Send(data []byte) error {
	if b.conn == nil {
		return errors.New("transport: send before connect")
	}
	return b.conn.Publish(b.subject+".in", data)
}

func (b *NatsBridge) Disconnect(reason string) {
	if b.closed {
		return
	}
	if b.sub != nil {
		_ = b.sub.Drain()
	}
	if b.conn != nil {
		_ = b.conn.FlushTimeout(2 * time.Second)
		b.conn.Close()
	}
	b.fireDisconnected(nil, reason)
}

// fireDisconnected invokes the Disconnected event exactly once per
// connection attempt, whether it fires from a locally requested
// Disconnect or from the NATS client's own disconnect-error handler.
func (b *NatsBridge) fireDisconnected(err error, reason string) {
	if b.closed {
		return
	}
	b.closed = true
	if b.events.Disconnected != nil {
		b.events.Disconnected(err, reason)
	}
}
