// Package wampc is the client-side peer of the WAMP basic profile: it
// wires together a Transport, a Serializer, and the session state
// machine (package session) into the convenience constructors below.
package wampc

import (
	"github.com/prometheus/client_golang/prometheus"
	"logur.dev/logur"

	"gitlab.com/silenteer-oss/wampc/codec"
	"gitlab.com/silenteer-oss/wampc/session"
	"gitlab.com/silenteer-oss/wampc/tracing"
	"gitlab.com/silenteer-oss/wampc/transport"
)

// Option customizes a session before it connects, following the
// teacher's functional-options pattern (nats.Option in connection.go).
type Option func(*session.Config)

func WithAgent(agent string) Option {
	return func(c *session.Config) { c.Agent = agent }
}

func WithAuth(methods []string, authID, authRole string, extra map[string]interface{}) Option {
	return func(c *session.Config) {
		c.AuthMethods = methods
		c.AuthID = authID
		c.AuthRole = authRole
		if extra != nil {
			c.AuthExtra = extra
		}
	}
}

func WithCallee() Option {
	return func(c *session.Config) { c.SupportCallee = true }
}

func WithAutoReconnect() Option {
	return func(c *session.Config) { c.AutoReconnect = true }
}

func WithChallengeDelegate(fn session.ChallengeFunc) Option {
	return func(c *session.Config) { c.OnChallenge = fn }
}

func WithConnectedDelegate(fn session.ConnectedFunc) Option {
	return func(c *session.Config) { c.OnConnected = fn }
}

func WithSessionEndedDelegate(fn session.SessionEndedFunc) Option {
	return func(c *session.Config) { c.OnSessionEnded = fn }
}

func WithLogger(logger logur.Logger) Option {
	return func(c *session.Config) { c.Logger = logger }
}

// WithMetrics registers a Prometheus-backed Metrics sink scoped by
// labels (e.g. a session name) against reg, and wires it to the
// session's table-occupancy and message-volume counters.
func WithMetrics(reg prometheus.Registerer, labels prometheus.Labels) Option {
	return func(c *session.Config) { c.Metrics = NewMetrics(reg, labels) }
}

// WithTracing starts a jaeger tracer for serviceName (from env-sourced
// jaeger config, see tracing.InitTracing) and wires it so every
// established session (from WELCOME on) gets a session span and every
// CALL/PUBLISH gets a child request span.
func WithTracing(serviceName string) Option {
	tracing.InitTracing(serviceName)
	return func(c *session.Config) { c.Tracer = jaegerTracer{} }
}

// NewWebSocketSession builds a session over the default WebSocket
// transport, reading realm, agent, auto-reconnect, transport URL and
// serializer from the viper-backed Config (see config.go). opts are
// applied afterwards and can override agent and auto-reconnect; realm,
// transport URL and serializer come from Config only.
func NewWebSocketSession(opts ...Option) *session.Session {
	cfg := GetConfig()
	sessionCfg := session.Config{Realm: cfg.Realm, Agent: cfg.Agent, AutoReconnect: cfg.AutoReconnect}
	for _, opt := range opts {
		opt(&sessionCfg)
	}
	if sessionCfg.Logger == nil {
		sessionCfg.Logger = GetLogger()
	}

	serializer := serializerFor(cfg.Serializer)
	t := transport.NewWebSocket(cfg.TransportURL,
		transport.WithLogger(sessionCfg.Logger),
		transport.WithSerializer(serializer, subprotocolFor(cfg.Serializer)),
	)
	return session.New(t, sessionCfg)
}

// NewNatsBridgeSession builds a session tunneled over a pair of NATS
// subjects instead of a raw WebSocket (see transport.NatsBridge).
func NewNatsBridgeSession(natsURL, subject string, opts ...Option) *session.Session {
	cfg := GetConfig()
	sessionCfg := session.Config{Realm: cfg.Realm, Agent: cfg.Agent, AutoReconnect: cfg.AutoReconnect}
	for _, opt := range opts {
		opt(&sessionCfg)
	}
	if sessionCfg.Logger == nil {
		sessionCfg.Logger = GetLogger()
	}

	serializer := serializerFor(cfg.Serializer)
	t := transport.NewNatsBridge(natsURL, subject,
		transport.WithNatsLogger(sessionCfg.Logger),
		transport.WithNatsSerializer(serializer),
	)
	return session.New(t, sessionCfg)
}

func serializerFor(name string) codec.Serializer {
	if name == "msgpack" {
		return codec.NewMsgpackSerializer()
	}
	return codec.NewJSONSerializer()
}

func subprotocolFor(name string) string {
	if name == "msgpack" {
		return "wamp.2.msgpack"
	}
	return "wamp.2.json"
}
