package session

import (
	"sync"

	"logur.dev/logur"

	"gitlab.com/silenteer-oss/wampc/codec"
	"gitlab.com/silenteer-oss/wampc/transport"
	"gitlab.com/silenteer-oss/wampc/wamp"
)

// State is one point in the session lifecycle (spec.md §4.1).
type State int

const (
	Disconnected State = iota
	HelloSent
	Challenged
	Established
	Closing
	Aborted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case HelloSent:
		return "hello-sent"
	case Challenged:
		return "challenged"
	case Established:
		return "established"
	case Closing:
		return "closing"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ChallengeFunc computes the signature for an authmethod/extra
// challenge. The embedding application owns credential computation
// (spec.md §1, explicitly out of scope for the core).
type ChallengeFunc func(authMethod string, extra wamp.Dict) (signature string, err error)

// ConnectedFunc fires once the router has replied WELCOME.
type ConnectedFunc func(s *Session, sessionID wamp.RequestID)

// SessionEndedFunc fires exactly once per connection, whatever the
// cause (GOODBYE, ABORT, or transport loss).
type SessionEndedFunc func(reason string)

// Config bundles the parameters bound at session construction
// (spec.md §3 "Lifecycles": "a session is created (parameters bound)").
type Config struct {
	Realm         string
	Agent         string
	AuthMethods   []string
	AuthID        string
	AuthRole      string
	AuthExtra     wamp.Dict
	SupportCallee bool
	AutoReconnect bool

	OnChallenge    ChallengeFunc
	OnConnected    ConnectedFunc
	OnSessionEnded SessionEndedFunc

	Logger  logur.Logger
	Metrics MetricsSink
	Tracer  Tracer
}

// Session is the WAMP client session state machine and public API
// (spec.md §4). A transport disconnect replaces the pending and handle
// tables with fresh, empty ones, so a later Connect on the same Session
// (including auto-reconnect) starts without prior registrations or
// subscriptions, never resuming the old session (spec.md §1 Non-goals).
// The request-id sequence is not reset: it keeps increasing across
// reconnects of the same Session.
type Session struct {
	mu sync.Mutex

	cfg        Config
	transport  transport.Transport
	serializer codec.Serializer
	logger     logur.Logger

	state       State
	sessionID   *wamp.RequestID
	clientRoles wamp.RoleSet
	routerRoles wamp.RoleSet

	ids     *wamp.IDAllocator
	pending *pendingTables
	handles *handleTable

	span Span
}

// New creates a session bound to the given transport and config but
// does not connect it. Matches spec.md §3's "created (parameters
// bound)" lifecycle stage.
func New(t transport.Transport, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logFallback()
	}
	return &Session{
		cfg:         cfg,
		transport:   t,
		logger:      cfg.Logger,
		state:       Disconnected,
		clientRoles: wamp.NewClientRoleSet(cfg.SupportCallee),
		ids:         wamp.NewIDAllocator(),
		pending:     newPendingTables(),
		handles:     newHandleTable(),
	}
}

func logFallback() logur.Logger { return logur.NoopLogger{} }

// State returns the current FSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the router-assigned session id and true iff the
// session is connected, per spec.md §3's invariant: "session-id
// present ⇔ state = ESTABLISHED (or CLOSING pending final disconnect)".
func (s *Session) SessionID() (wamp.RequestID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == nil {
		return 0, false
	}
	return *s.sessionID, true
}

// RouterRoles returns the role set the router advertised in WELCOME.
// Empty until the session reaches Established.
func (s *Session) RouterRoles() wamp.RoleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routerRoles
}

// AdvertisedRoles returns the client role set this session sends in
// HELLO.details.roles (spec.md's role-registry component), available
// before Connect is even called since it is fixed by Config.SupportCallee
// at construction.
func (s *Session) AdvertisedRoles() wamp.RoleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientRoles
}

// Stats is a point-in-time snapshot of table occupancy, exposed for
// external diagnostics (see package www) and for Metrics gauges.
type Stats struct {
	PendingCalls         int
	PendingRegistrations int
	PendingSubscriptions int
	LiveRegistrations    int
	LiveSubscriptions    int
}

// Stats returns the current pending/live table sizes.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		PendingCalls:         len(s.pending.calls),
		PendingRegistrations: len(s.pending.registers),
		PendingSubscriptions: len(s.pending.subscribes),
		LiveRegistrations:    len(s.handles.registrations),
		LiveSubscriptions:    len(s.handles.subscriptions),
	}
}

// Connect dials the transport and, once connected, sends HELLO
// (spec.md §4.1 "connect()").
func (s *Session) Connect() error {
	events := transport.Events{
		Connected:    s.onTransportConnected,
		Received:     s.onTransportReceived,
		Disconnected: s.onTransportDisconnected,
	}
	return s.transport.Connect(events)
}

func (s *Session) onTransportConnected(serializer codec.Serializer) {
	s.mu.Lock()
	s.serializer = serializer
	s.state = HelloSent
	s.mu.Unlock()

	details := wamp.Dict{
		"agent": s.cfg.Agent,
		"roles": s.clientRoles.ToDict(),
	}
	if len(s.cfg.AuthMethods) > 0 {
		methods := make(wamp.List, len(s.cfg.AuthMethods))
		for i, m := range s.cfg.AuthMethods {
			methods[i] = m
		}
		details["authmethods"] = methods
	}
	if s.cfg.AuthID != "" {
		details["authid"] = s.cfg.AuthID
	}
	if s.cfg.AuthRole != "" {
		details["authrole"] = s.cfg.AuthRole
	}
	if s.cfg.AuthExtra != nil {
		details["authextra"] = s.cfg.AuthExtra
	}

	s.send(&wamp.Hello{Realm: s.cfg.Realm, Details: details})
}

func (s *Session) onTransportReceived(data []byte) {
	s.mu.Lock()
	serializer := s.serializer
	s.mu.Unlock()
	if serializer == nil {
		s.logger.Error("received frame before serializer was installed")
		return
	}

	raw, err := serializer.Unpack(data)
	if err != nil {
		s.logger.Error("frame decode error", map[string]interface{}{"err": err})
		s.messageDropped()
		return
	}
	s.messageReceived()
	s.dispatch(raw)
}

func (s *Session) onTransportDisconnected(err error, reason string) {
	s.mu.Lock()
	s.state = Disconnected
	s.sessionID = nil
	pending := s.pending
	s.pending = newPendingTables()
	handles := s.handles
	s.handles = newHandleTable()
	autoReconnect := s.cfg.AutoReconnect
	s.mu.Unlock()

	handles.invalidateAll()
	s.drainWithCancellation(pending)

	s.mu.Lock()
	span := s.span
	s.span = nil
	s.mu.Unlock()
	if span != nil {
		span.Finish()
	}

	finalReason := reason
	if finalReason == "" && err != nil {
		finalReason = err.Error()
	}
	if finalReason == "" {
		finalReason = "Unknown error."
	}
	if s.cfg.OnSessionEnded != nil {
		s.cfg.OnSessionEnded(finalReason)
	}

	// spec.md §4.1: auto-reconnect only when neither reason nor error
	// were supplied (flagged as possibly unintentional in §9 Open
	// Question 5; implemented as written).
	if autoReconnect && reason == "" && err == nil {
		_ = s.Connect()
	}
}

func (s *Session) drainWithCancellation(p *pendingTables) {
	d := p.drainAll()
	cancelErr := wamp.ErrTransportClosedDetails()
	for _, e := range d.calls {
		e.lane.Post(func(e *callEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed, nil, nil)
				}
			}
		}(e))
	}
	for _, e := range d.registers {
		e.lane.Post(func(e *registerEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed)
				}
			}
		}(e))
	}
	for _, e := range d.unregisters {
		e.lane.Post(func(e *unregisterEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed)
				}
			}
		}(e))
	}
	for _, e := range d.subscribes {
		e.lane.Post(func(e *subscribeEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed)
				}
			}
		}(e))
	}
	for _, e := range d.unsubscribes {
		e.lane.Post(func(e *unsubscribeEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed)
				}
			}
		}(e))
	}
	for _, e := range d.publishes {
		e.lane.Post(func(e *publishEntry) func() {
			return func() {
				if e.failure != nil {
					e.failure(cancelErr, wamp.ErrTransportClosed)
				}
			}
		}(e))
	}
}

// Disconnect begins a graceful close (spec.md §4.1 "disconnect()").
func (s *Session) Disconnect(reason string) {
	if reason == "" {
		reason = wamp.ErrCloseRealm
	}
	s.mu.Lock()
	if s.state != Established {
		s.mu.Unlock()
		return
	}
	s.state = Closing
	s.mu.Unlock()

	s.send(&wamp.Goodbye{Details: wamp.Dict{}, Reason: reason})
}

func (s *Session) send(msg wamp.Message) {
	s.mu.Lock()
	serializer := s.serializer
	s.mu.Unlock()
	if serializer == nil {
		s.logger.Error("send attempted before serializer was installed")
		return
	}
	data, err := serializer.Pack(msg.Pack())
	if err != nil {
		s.logger.Error("frame encode error", map[string]interface{}{"err": err})
		return
	}
	if err := s.transport.Send(data); err != nil {
		s.logger.Error("transport send error", map[string]interface{}{"err": err})
		return
	}
	s.messageSent()
}

// isEstablished reports whether API calls may proceed, per the shared
// precondition in spec.md §4.3.
func (s *Session) isEstablished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Established
}
