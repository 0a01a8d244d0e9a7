package session

import "gitlab.com/silenteer-oss/wampc/wamp"

// CallSuccessFunc receives a successful RESULT.
type CallSuccessFunc func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict)

// CallErrorFunc receives an ERROR correlated to a CALL.
type CallErrorFunc func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict)

// RequestSuccessFunc receives a positive reply that carries nothing
// the caller needs (UNREGISTERED/UNSUBSCRIBED/PUBLISHED). REGISTERED and
// SUBSCRIBED are delivered to func(*Registration)/func(*Subscription)
// callbacks instead.
type RequestSuccessFunc func()

// RequestErrorFunc receives an ERROR correlated to a REGISTER,
// UNREGISTER, SUBSCRIBE, UNSUBSCRIBE, or acknowledged PUBLISH.
type RequestErrorFunc func(details wamp.Dict, errURI string)

// InvocationHandler computes a YIELD payload for one INVOCATION. It is
// called on the owning registration's lane and reports completion
// asynchronously through the returned channel; the session waits for
// that result off the lane, so a slow procedure does not hold up the
// lane, and posts the YIELD back onto the lane once the result arrives.
// YIELDs are therefore sent in completion order, not invocation order.
type InvocationHandler func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) <-chan InvocationResult

// InvocationResult is what an InvocationHandler eventually produces.
// Value drives the YIELD shaping rule in spec.md §4.2: a map produces
// kwargs-only, a list produces args-only, anything else becomes a
// single-element args list.
type InvocationResult struct {
	Value interface{}
}

// EventHandler receives one EVENT for a live subscription.
type EventHandler func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict)

type callEntry struct {
	success CallSuccessFunc
	failure CallErrorFunc
	lane    Lane
}

type registerEntry struct {
	success   func(*Registration)
	failure   RequestErrorFunc
	handler   InvocationHandler
	procedure string
	lane      Lane
}

type unregisterEntry struct {
	registrationID wamp.RequestID
	success        RequestSuccessFunc
	failure        RequestErrorFunc
	lane           Lane
}

type subscribeEntry struct {
	success func(*Subscription)
	failure RequestErrorFunc
	handler EventHandler
	topic   string
	lane    Lane
}

type unsubscribeEntry struct {
	subscriptionID wamp.RequestID
	success        RequestSuccessFunc
	failure        RequestErrorFunc
	lane           Lane
}

type publishEntry struct {
	success RequestSuccessFunc
	failure RequestErrorFunc
	lane    Lane
}

// pendingTables groups the six request-id-keyed maps named in spec.md
// §3. Access must be serialized by the caller (session.go guards every
// access with its own mutex); these maps do no locking themselves.
type pendingTables struct {
	calls        map[wamp.RequestID]*callEntry
	registers    map[wamp.RequestID]*registerEntry
	unregisters  map[wamp.RequestID]*unregisterEntry
	subscribes   map[wamp.RequestID]*subscribeEntry
	unsubscribes map[wamp.RequestID]*unsubscribeEntry
	publishes    map[wamp.RequestID]*publishEntry
}

func newPendingTables() *pendingTables {
	return &pendingTables{
		calls:        make(map[wamp.RequestID]*callEntry),
		registers:    make(map[wamp.RequestID]*registerEntry),
		unregisters:  make(map[wamp.RequestID]*unregisterEntry),
		subscribes:   make(map[wamp.RequestID]*subscribeEntry),
		unsubscribes: make(map[wamp.RequestID]*unsubscribeEntry),
		publishes:    make(map[wamp.RequestID]*publishEntry),
	}
}

// drained holds every entry drainAll removed from every table, for
// delivery of a synthetic cancellation error on transport disconnect (§7 point
// 2, §9 Open Question 2 — resolved in DESIGN.md as "yes, drain with a
// synthetic error").
type drained struct {
	calls        []*callEntry
	registers    []*registerEntry
	unregisters  []*unregisterEntry
	subscribes   []*subscribeEntry
	unsubscribes []*unsubscribeEntry
	publishes    []*publishEntry
}

func (p *pendingTables) drainAll() drained {
	d := drained{}
	for _, e := range p.calls {
		d.calls = append(d.calls, e)
	}
	for _, e := range p.registers {
		d.registers = append(d.registers, e)
	}
	for _, e := range p.unregisters {
		d.unregisters = append(d.unregisters, e)
	}
	for _, e := range p.subscribes {
		d.subscribes = append(d.subscribes, e)
	}
	for _, e := range p.unsubscribes {
		d.unsubscribes = append(d.unsubscribes, e)
	}
	for _, e := range p.publishes {
		d.publishes = append(d.publishes, e)
	}
	p.calls = make(map[wamp.RequestID]*callEntry)
	p.registers = make(map[wamp.RequestID]*registerEntry)
	p.unregisters = make(map[wamp.RequestID]*unregisterEntry)
	p.subscribes = make(map[wamp.RequestID]*subscribeEntry)
	p.unsubscribes = make(map[wamp.RequestID]*unsubscribeEntry)
	p.publishes = make(map[wamp.RequestID]*publishEntry)
	return d
}

func (p *pendingTables) depth() (calls, registers, subscribes int) {
	return len(p.calls), len(p.registers), len(p.subscribes)
}
