package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/silenteer-oss/wampc/codec"
	"gitlab.com/silenteer-oss/wampc/transport"
	"gitlab.com/silenteer-oss/wampc/wamp"
)

// fakeTransport is an in-memory Transport double: Send hands the frame
// straight to a test-controlled router instead of a socket, so these
// tests exercise the session's encode/decode/dispatch path without a
// network dependency, mirroring how the teacher's own tests stub out
// socket.Manager in socket package tests.
type fakeTransport struct {
	mu         sync.Mutex
	events     transport.Events
	sent       []wamp.List
	serializer codec.Serializer
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{serializer: codec.NewJSONSerializer()}
}

func (f *fakeTransport) Connect(events transport.Events) error {
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
	events.Connected(f.serializer)
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	raw, err := f.serializer.Unpack(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, raw)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Disconnect(reason string) {
	f.mu.Lock()
	events := f.events
	f.mu.Unlock()
	if events.Disconnected != nil {
		events.Disconnected(nil, reason)
	}
}

// deliver pushes a router-originated message into the session as if it
// arrived off the wire, round-tripping it through the real serializer.
func (f *fakeTransport) deliver(t *testing.T, msg wamp.Message) {
	t.Helper()
	data, err := f.serializer.Pack(msg.Pack())
	require.NoError(t, err)
	f.mu.Lock()
	events := f.events
	f.mu.Unlock()
	events.Received(data)
}

func (f *fakeTransport) lastSent() wamp.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newEstablishedSession(t *testing.T, cfg Config) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	sess := New(ft, cfg)
	require.NoError(t, sess.Connect())
	waitFor(t, func() bool { return sess.State() == HelloSent })

	ft.deliver(t, &wamp.Welcome{Session: 1234, Details: wamp.Dict{"roles": wamp.Dict{"broker": wamp.Dict{}, "dealer": wamp.Dict{}}}})
	waitFor(t, func() bool { return sess.State() == Established })
	return sess, ft
}

func TestConnectSendsHelloWithClientRoles(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, Config{Realm: "realm1", Agent: "test-agent"})
	require.NoError(t, sess.Connect())

	waitFor(t, func() bool { return ft.lastSent() != nil })
	hello := ft.lastSent()
	assert.Equal(t, wamp.HELLO, wamp.MessageType(int(hello[0].(float64))))
	assert.Equal(t, "realm1", hello[1])
	roles := hello[2].(map[string]interface{})["roles"].(map[string]interface{})
	assert.Contains(t, roles, wamp.RoleCaller)
	assert.Contains(t, roles, wamp.RoleSubscriber)
	assert.Contains(t, roles, wamp.RolePublisher)
}

func TestWelcomeEstablishesSessionAndInvokesCallback(t *testing.T) {
	var gotID wamp.RequestID
	connected := make(chan struct{})
	sess, _ := newEstablishedSession(t, Config{
		Realm: "realm1",
		OnConnected: func(s *Session, sessionID wamp.RequestID) {
			gotID = sessionID
			close(connected)
		},
	})

	<-connected
	assert.Equal(t, wamp.RequestID(1234), gotID)
	sid, ok := sess.SessionID()
	assert.True(t, ok)
	assert.Equal(t, wamp.RequestID(1234), sid)
}

func TestChallengeResponseFlow(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, Config{
		Realm:       "realm1",
		AuthMethods: []string{"wampcra"},
		AuthID:      "alice",
		OnChallenge: func(method string, extra wamp.Dict) (string, error) {
			assert.Equal(t, "wampcra", method)
			return "computed-signature", nil
		},
	})
	require.NoError(t, sess.Connect())
	waitFor(t, func() bool { return sess.State() == HelloSent })

	ft.deliver(t, &wamp.Challenge{AuthMethod: "wampcra", Extra: wamp.Dict{"challenge": "nonce"}})
	waitFor(t, func() bool { return sess.State() == Challenged })

	authenticate := ft.lastSent()
	assert.Equal(t, wamp.AUTHENTICATE, wamp.MessageType(int(authenticate[0].(float64))))
	assert.Equal(t, "computed-signature", authenticate[1])
}

func TestChallengeWithoutDelegateAborts(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, Config{Realm: "realm1", AuthMethods: []string{"wampcra"}})
	require.NoError(t, sess.Connect())
	waitFor(t, func() bool { return sess.State() == HelloSent })

	ft.deliver(t, &wamp.Challenge{AuthMethod: "wampcra", Extra: wamp.Dict{}})
	waitFor(t, func() bool { return sess.State() == Aborted })
}

func TestCallRoundTrip(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	var gotArgs wamp.List
	done := make(chan struct{})
	sess.Call("com.example.add", nil, wamp.List{1, 2}, nil, lane,
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {
			gotArgs = args
			close(done)
		},
		func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) {
			t.Fatal("unexpected call error")
		},
	)

	waitFor(t, func() bool { return ft.lastSent() != nil })
	call := ft.lastSent()
	reqID := wamp.RequestID(uint64(call[1].(float64)))

	ft.deliver(t, &wamp.Result{RequestID: reqID, Details: wamp.Dict{}, Args: wamp.List{3.0}})
	<-done
	assert.Equal(t, wamp.List{3.0}, gotArgs)
}

func TestCallErrorInvokesFailureCallback(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	done := make(chan struct{})
	var gotURI string
	sess.Call("com.example.boom", nil, nil, nil, lane,
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {
			t.Fatal("unexpected call success")
		},
		func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) {
			gotURI = errURI
			close(done)
		},
	)

	waitFor(t, func() bool { return ft.lastSent() != nil })
	call := ft.lastSent()
	reqID := wamp.RequestID(uint64(call[1].(float64)))

	ft.deliver(t, &wamp.Error{RequestType: wamp.RequestID(wamp.CALL), RequestID: reqID, Details: wamp.Dict{}, Error: "com.example.error.boom"})
	<-done
	assert.Equal(t, "com.example.error.boom", gotURI)
}

func TestSubscribeAndEventMergesTopicIntoNonEmptyDetails(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	subscribed := make(chan *Subscription, 1)
	eventDetails := make(chan wamp.Dict, 1)
	sess.Subscribe("com.example.ticks", nil, lane,
		func(sub *Subscription) { subscribed <- sub },
		func(details wamp.Dict, errURI string) { t.Fatal("unexpected subscribe error") },
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) { eventDetails <- details },
	)

	waitFor(t, func() bool { return ft.lastSent() != nil })
	subscribe := ft.lastSent()
	reqID := wamp.RequestID(uint64(subscribe[1].(float64)))

	ft.deliver(t, &wamp.Subscribed{RequestID: reqID, SubscriptionID: 555})
	sub := <-subscribed
	assert.Equal(t, wamp.RequestID(555), sub.ID())

	ft.deliver(t, &wamp.Event{SubscriptionID: 555, PublicationID: 1, Details: wamp.Dict{"trustlevel": 1.0}, Args: wamp.List{"tick"}})
	details := <-eventDetails
	assert.Equal(t, "com.example.ticks", details["topic"])

	assert.Equal(t, 1, sess.Stats().LiveSubscriptions)
}

func TestEventWithEmptyDetailsIsNotMerged(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	subscribed := make(chan *Subscription, 1)
	eventDetails := make(chan wamp.Dict, 1)
	sess.Subscribe("com.example.silent", nil, lane,
		func(sub *Subscription) { subscribed <- sub },
		func(details wamp.Dict, errURI string) { t.Fatal("unexpected subscribe error") },
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) { eventDetails <- details },
	)
	waitFor(t, func() bool { return ft.lastSent() != nil })
	reqID := wamp.RequestID(uint64(ft.lastSent()[1].(float64)))
	ft.deliver(t, &wamp.Subscribed{RequestID: reqID, SubscriptionID: 777})
	<-subscribed

	ft.deliver(t, &wamp.Event{SubscriptionID: 777, PublicationID: 2, Details: wamp.Dict{}, Args: wamp.List{}})
	details := <-eventDetails
	assert.Empty(t, details)
}

func TestUnsubscribeInvalidatesHandle(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	subscribed := make(chan *Subscription, 1)
	sess.Subscribe("com.example.ticks", nil, lane,
		func(sub *Subscription) { subscribed <- sub },
		func(details wamp.Dict, errURI string) {},
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {},
	)
	waitFor(t, func() bool { return ft.lastSent() != nil })
	reqID := wamp.RequestID(uint64(ft.lastSent()[1].(float64)))
	ft.deliver(t, &wamp.Subscribed{RequestID: reqID, SubscriptionID: 42})
	sub := <-subscribed

	unsubDone := make(chan struct{})
	sub.Unsubscribe(func() { close(unsubDone) }, func(details wamp.Dict, errURI string) { t.Fatal("unexpected") })
	waitFor(t, func() bool { return ft.lastSent()[0].(float64) == float64(wamp.UNSUBSCRIBE) })
	unsubReqID := wamp.RequestID(uint64(ft.lastSent()[1].(float64)))
	ft.deliver(t, &wamp.Unsubscribed{RequestID: unsubReqID})
	<-unsubDone

	assert.False(t, sub.isLive())
	assert.Equal(t, 0, sess.Stats().LiveSubscriptions)
}

func TestInvocationYieldShapesMapAsKwArgsOnly(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1", SupportCallee: true})
	lane := &InlineLane{}

	registered := make(chan *Registration, 1)
	sess.Register("com.example.echo", nil, lane,
		func(reg *Registration) { registered <- reg },
		func(details wamp.Dict, errURI string) { t.Fatal("unexpected register error") },
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) <-chan InvocationResult {
			out := make(chan InvocationResult, 1)
			out <- InvocationResult{Value: wamp.Dict{"echoed": args[0]}}
			return out
		},
	)
	waitFor(t, func() bool { return ft.lastSent() != nil })
	reqID := wamp.RequestID(uint64(ft.lastSent()[1].(float64)))
	ft.deliver(t, &wamp.Registered{RequestID: reqID, RegistrationID: 99})
	<-registered

	ft.deliver(t, &wamp.Invocation{RequestID: 500, RegistrationID: 99, Details: wamp.Dict{}, Args: wamp.List{"hi"}})
	waitFor(t, func() bool {
		last := ft.lastSent()
		return last != nil && last[0].(float64) == float64(wamp.YIELD)
	})
	yield := ft.lastSent()
	assert.Equal(t, float64(500), yield[1])
	kwArgs := yield[4].(map[string]interface{})
	assert.Equal(t, "hi", kwArgs["echoed"])
}

func TestTransportDisconnectDrainsPendingWithCancellation(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	lane := &InlineLane{}

	failed := make(chan string, 1)
	sess.Call("com.example.slow", nil, nil, nil, lane,
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) { t.Fatal("unexpected success") },
		func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) { failed <- errURI },
	)
	waitFor(t, func() bool { return ft.lastSent() != nil })

	ft.Disconnect("")
	uri := <-failed
	assert.Equal(t, wamp.ErrTransportClosed, uri)
	assert.Equal(t, Disconnected, sess.State())
}

func TestDisconnectSendsGoodbyeWithDefaultReason(t *testing.T) {
	sess, ft := newEstablishedSession(t, Config{Realm: "realm1"})
	sess.Disconnect("")

	waitFor(t, func() bool { return ft.lastSent() != nil && ft.lastSent()[0].(float64) == float64(wamp.GOODBYE) })
	goodbye := ft.lastSent()
	assert.Equal(t, wamp.ErrCloseRealm, goodbye[2])
}

func TestAPICallsAreNoOpsBeforeEstablished(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, Config{Realm: "realm1"})
	lane := &InlineLane{}

	sess.Call("com.example.x", nil, nil, nil, lane,
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) { t.Fatal("should not be called") },
		func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) { t.Fatal("should not be called") },
	)
	assert.Nil(t, ft.lastSent())
}
