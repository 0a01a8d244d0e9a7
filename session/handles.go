package session

import (
	"sync"

	"gitlab.com/silenteer-oss/wampc/wamp"
)

// handleOwner is the narrow back-reference a Registration/Subscription
// handle holds into its owning session (spec.md §9: "model as an
// interface the session implements; the handle stores a non-owning
// reference"). It deliberately exposes only unregister/unsubscribe, not
// the full Session API, so a handle cannot accidentally extend the
// session's lifetime or reach into unrelated tables.
type handleOwner interface {
	unregister(registrationID wamp.RequestID, success RequestSuccessFunc, failure RequestErrorFunc, lane Lane)
	unsubscribe(subscriptionID wamp.RequestID, success RequestSuccessFunc, failure RequestErrorFunc, lane Lane)
}

// Registration is the live handle returned to a callee on REGISTERED.
// It is marked invalid the instant UNREGISTERED confirms removal; every
// method on an invalidated Registration is a no-op (spec.md §4.4).
type Registration struct {
	mu          sync.Mutex
	owner       handleOwner
	id          wamp.RequestID
	procedure   string
	handler     InvocationHandler
	lane        Lane
	invalidated bool
}

func (r *Registration) ID() wamp.RequestID { return r.id }
func (r *Registration) Procedure() string  { return r.procedure }

func (r *Registration) isLive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.invalidated
}

func (r *Registration) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = true
}

// Unregister requests removal of this registration. A no-op if the
// registration was already invalidated by a prior UNREGISTERED.
func (r *Registration) Unregister(success RequestSuccessFunc, failure RequestErrorFunc) {
	if !r.isLive() {
		return
	}
	r.owner.unregister(r.id, success, failure, r.lane)
}

// Subscription is the live handle returned to a subscriber on
// SUBSCRIBED. Mirrors Registration.
type Subscription struct {
	mu          sync.Mutex
	owner       handleOwner
	id          wamp.RequestID
	topic       string
	handler     EventHandler
	lane        Lane
	invalidated bool
}

func (s *Subscription) ID() wamp.RequestID { return s.id }
func (s *Subscription) Topic() string      { return s.topic }

func (s *Subscription) isLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalidated
}

func (s *Subscription) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// Unsubscribe requests removal of this subscription. A no-op if the
// subscription was already invalidated by a prior UNSUBSCRIBED.
func (s *Subscription) Unsubscribe(success RequestSuccessFunc, failure RequestErrorFunc) {
	if !s.isLive() {
		return
	}
	s.owner.unsubscribe(s.id, success, failure, s.lane)
}

// handleTable is the live registration/subscription map keyed by the
// router-assigned id (spec.md §3, component 5 of the System Overview).
type handleTable struct {
	registrations map[wamp.RequestID]*Registration
	subscriptions map[wamp.RequestID]*Subscription
}

func newHandleTable() *handleTable {
	return &handleTable{
		registrations: make(map[wamp.RequestID]*Registration),
		subscriptions: make(map[wamp.RequestID]*Subscription),
	}
}

func (h *handleTable) addRegistration(r *Registration) { h.registrations[r.id] = r }
func (h *handleTable) addSubscription(s *Subscription) { h.subscriptions[s.id] = s }

func (h *handleTable) removeRegistration(id wamp.RequestID) *Registration {
	r, ok := h.registrations[id]
	if !ok {
		return nil
	}
	delete(h.registrations, id)
	r.invalidate()
	return r
}

func (h *handleTable) removeSubscription(id wamp.RequestID) *Subscription {
	s, ok := h.subscriptions[id]
	if !ok {
		return nil
	}
	delete(h.subscriptions, id)
	s.invalidate()
	return s
}

func (h *handleTable) invalidateAll() {
	for _, r := range h.registrations {
		r.invalidate()
	}
	for _, s := range h.subscriptions {
		s.invalidate()
	}
	h.registrations = make(map[wamp.RequestID]*Registration)
	h.subscriptions = make(map[wamp.RequestID]*Subscription)
}
