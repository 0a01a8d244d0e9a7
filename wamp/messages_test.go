package wamp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/silenteer-oss/wampc/wamp"
)

func TestIDAllocatorFirstIssuedIdIsTwo(t *testing.T) {
	alloc := wamp.NewIDAllocator()
	assert.Equal(t, wamp.RequestID(2), alloc.Next())
	assert.Equal(t, wamp.RequestID(3), alloc.Next())
}

func TestIDAllocatorStrictlyIncreasing(t *testing.T) {
	alloc := wamp.NewIDAllocator()
	prev := alloc.Next()
	for i := 0; i < 100; i++ {
		next := alloc.Next()
		assert.Greater(t, uint64(next), uint64(prev))
		prev = next
	}
}

func TestRoundTripCall(t *testing.T) {
	call := &wamp.Call{
		RequestID: 2,
		Options:   wamp.Dict{},
		Procedure: "com.example.add",
		Args:      wamp.List{2, 3},
	}
	packed := call.Pack()
	require.Equal(t, wamp.List{wamp.CALL, wamp.RequestID(2), wamp.Dict{}, "com.example.add", wamp.List{2, 3}}, packed)

	decoded, err := wamp.Decode(wamp.List{wamp.RESULT, wamp.RequestID(2), wamp.Dict{}, wamp.List{5}})
	require.NoError(t, err)
	result, ok := decoded.(*wamp.Result)
	require.True(t, ok)
	assert.Equal(t, wamp.RequestID(2), result.RequestID)
	assert.Equal(t, wamp.List{5}, result.Args)
	assert.Nil(t, result.KwArgs)
}

func TestPublishElidesEmptyTrailingFields(t *testing.T) {
	pub := &wamp.Publish{RequestID: 3, Options: wamp.Dict{}, Topic: "com.x"}
	assert.Equal(t, wamp.List{wamp.PUBLISH, wamp.RequestID(3), wamp.Dict{}, "com.x"}, pub.Pack())

	pubWithArgs := &wamp.Publish{RequestID: 3, Options: wamp.Dict{}, Topic: "com.x", Args: wamp.List{"hi"}}
	assert.Equal(t, wamp.List{wamp.PUBLISH, wamp.RequestID(3), wamp.Dict{}, "com.x", wamp.List{"hi"}}, pubWithArgs.Pack())

	pubWithKw := &wamp.Publish{RequestID: 3, Options: wamp.Dict{}, Topic: "com.x", KwArgs: wamp.Dict{"a": 1}}
	assert.Equal(t, wamp.List{wamp.PUBLISH, wamp.RequestID(3), wamp.Dict{}, "com.x", wamp.List{}, wamp.Dict{"a": 1}}, pubWithKw.Pack())
}

func TestDecodeEventAndInvocation(t *testing.T) {
	decoded, err := wamp.Decode(wamp.List{wamp.EVENT, wamp.RequestID(777), wamp.RequestID(1), wamp.Dict{}, wamp.List{"hi"}})
	require.NoError(t, err)
	event := decoded.(*wamp.Event)
	assert.Equal(t, wamp.RequestID(777), event.SubscriptionID)
	assert.Equal(t, wamp.List{"hi"}, event.Args)

	decoded, err = wamp.Decode(wamp.List{wamp.INVOCATION, wamp.RequestID(3), wamp.RequestID(42), wamp.Dict{}, wamp.List{1, 2}})
	require.NoError(t, err)
	inv := decoded.(*wamp.Invocation)
	assert.Equal(t, wamp.RequestID(42), inv.RegistrationID)
	assert.Equal(t, wamp.List{1, 2}, inv.Args)
}

func TestDecodeRejectsOutboundOnlyAndUnknown(t *testing.T) {
	_, err := wamp.Decode(wamp.List{wamp.HELLO, "realm1", wamp.Dict{}})
	assert.Error(t, err)

	_, err = wamp.Decode(wamp.List{wamp.MessageType(9999)})
	assert.Error(t, err)
}

func TestRoleSetAdvertisement(t *testing.T) {
	rs := wamp.NewClientRoleSet(false)
	assert.True(t, rs.Has(wamp.RoleCaller))
	assert.True(t, rs.Has(wamp.RoleSubscriber))
	assert.True(t, rs.Has(wamp.RolePublisher))
	assert.False(t, rs.Has(wamp.RoleCallee))

	withCallee := wamp.NewClientRoleSet(true)
	assert.True(t, withCallee.Has(wamp.RoleCallee))
}

func TestParseRouterRoles(t *testing.T) {
	details := wamp.Dict{"roles": map[string]interface{}{"dealer": map[string]interface{}{}, "broker": map[string]interface{}{}}}
	rs := wamp.ParseRouterRoles(details)
	assert.True(t, rs.Has(wamp.RoleDealer))
	assert.True(t, rs.Has(wamp.RoleBroker))
}
