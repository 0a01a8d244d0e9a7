package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/silenteer-oss/wampc/wamp"
)

type noopOwner struct{}

func (noopOwner) unregister(wamp.RequestID, RequestSuccessFunc, RequestErrorFunc, Lane) {}
func (noopOwner) unsubscribe(wamp.RequestID, RequestSuccessFunc, RequestErrorFunc, Lane) {}

func TestHandleTableAddAndRemoveRegistration(t *testing.T) {
	ht := newHandleTable()
	reg := &Registration{owner: noopOwner{}, id: 1, procedure: "com.example.p"}
	ht.addRegistration(reg)

	assert.True(t, reg.isLive())
	removed := ht.removeRegistration(1)
	assert.Same(t, reg, removed)
	assert.False(t, reg.isLive())
	assert.Nil(t, ht.removeRegistration(1))
}

func TestHandleTableAddAndRemoveSubscription(t *testing.T) {
	ht := newHandleTable()
	sub := &Subscription{owner: noopOwner{}, id: 1, topic: "com.example.t"}
	ht.addSubscription(sub)

	assert.True(t, sub.isLive())
	removed := ht.removeSubscription(1)
	assert.Same(t, sub, removed)
	assert.False(t, sub.isLive())
	assert.Nil(t, ht.removeSubscription(1))
}

func TestHandleTableInvalidateAllClearsAndMarksDead(t *testing.T) {
	ht := newHandleTable()
	reg := &Registration{owner: noopOwner{}, id: 1}
	sub := &Subscription{owner: noopOwner{}, id: 2}
	ht.addRegistration(reg)
	ht.addSubscription(sub)

	ht.invalidateAll()

	assert.False(t, reg.isLive())
	assert.False(t, sub.isLive())
	assert.Empty(t, ht.registrations)
	assert.Empty(t, ht.subscriptions)
}

func TestInvalidatedRegistrationUnregisterIsNoOp(t *testing.T) {
	called := false
	owner := &countingOwner{onUnregister: func() { called = true }}
	reg := &Registration{owner: owner, id: 1}
	reg.invalidate()

	reg.Unregister(nil, nil)
	assert.False(t, called)
}

func TestInvalidatedSubscriptionUnsubscribeIsNoOp(t *testing.T) {
	called := false
	owner := &countingOwner{onUnsubscribe: func() { called = true }}
	sub := &Subscription{owner: owner, id: 1}
	sub.invalidate()

	sub.Unsubscribe(nil, nil)
	assert.False(t, called)
}

type countingOwner struct {
	onUnregister  func()
	onUnsubscribe func()
}

func (o *countingOwner) unregister(wamp.RequestID, RequestSuccessFunc, RequestErrorFunc, Lane) {
	if o.onUnregister != nil {
		o.onUnregister()
	}
}

func (o *countingOwner) unsubscribe(wamp.RequestID, RequestSuccessFunc, RequestErrorFunc, Lane) {
	if o.onUnsubscribe != nil {
		o.onUnsubscribe()
	}
}
