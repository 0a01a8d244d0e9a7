package wamp

import (
	"github.com/pkg/errors"
)

// Dict is the WAMP "details"/"options" map carried by most messages.
type Dict map[string]interface{}

// List is the WAMP positional-argument list.
type List []interface{}

// Message is the tagged-variant interface every decoded WAMP message
// implements. Pack returns the wire array (including the leading type
// code); the type code alone is never enough to round-trip a message,
// so Pack always re-derives it from the concrete type.
type Message interface {
	Type() MessageType
	Pack() List
}

func trimTrailingEmpty(args List, kwargs Dict) List {
	out := List{}
	if len(args) > 0 || len(kwargs) > 0 {
		out = append(out, toList(args))
		if len(kwargs) > 0 {
			out = append(out, toDict(kwargs))
		}
	}
	return out
}

func toList(l List) interface{} {
	if l == nil {
		return List{}
	}
	return l
}

func toDict(d Dict) interface{} {
	if d == nil {
		return Dict{}
	}
	return d
}

// ---- Outbound + inbound session messages ----

type Hello struct {
	Realm   string
	Details Dict
}

func (m *Hello) Type() MessageType { return HELLO }
func (m *Hello) Pack() List        { return List{HELLO, m.Realm, m.Details} }

type Welcome struct {
	Session RequestID
	Details Dict
}

func (m *Welcome) Type() MessageType { return WELCOME }
func (m *Welcome) Pack() List        { return List{WELCOME, m.Session, m.Details} }

type Abort struct {
	Details Dict
	Reason  string
}

func (m *Abort) Type() MessageType { return ABORT }
func (m *Abort) Pack() List        { return List{ABORT, m.Details, m.Reason} }

type Challenge struct {
	AuthMethod string
	Extra      Dict
}

func (m *Challenge) Type() MessageType { return CHALLENGE }
func (m *Challenge) Pack() List        { return List{CHALLENGE, m.AuthMethod, m.Extra} }

type Authenticate struct {
	Signature string
	Extra     Dict
}

func (m *Authenticate) Type() MessageType { return AUTHENTICATE }
func (m *Authenticate) Pack() List        { return List{AUTHENTICATE, m.Signature, m.Extra} }

type Goodbye struct {
	Details Dict
	Reason  string
}

func (m *Goodbye) Type() MessageType { return GOODBYE }
func (m *Goodbye) Pack() List        { return List{GOODBYE, m.Details, m.Reason} }

type Error struct {
	RequestType RequestID
	RequestID   RequestID
	Details     Dict
	Error       string
	Args        List
	KwArgs      Dict
}

func (m *Error) Type() MessageType { return ERROR }
func (m *Error) Pack() List {
	l := List{ERROR, m.RequestType, m.RequestID, m.Details, m.Error}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

// ---- Publish / Subscribe ----

type Publish struct {
	RequestID RequestID
	Options   Dict
	Topic     string
	Args      List
	KwArgs    Dict
}

func (m *Publish) Type() MessageType { return PUBLISH }
func (m *Publish) Pack() List {
	l := List{PUBLISH, m.RequestID, m.Options, m.Topic}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

type Published struct {
	RequestID     RequestID
	PublicationID RequestID
}

func (m *Published) Type() MessageType { return PUBLISHED }
func (m *Published) Pack() List        { return List{PUBLISHED, m.RequestID, m.PublicationID} }

type Subscribe struct {
	RequestID RequestID
	Options   Dict
	Topic     string
}

func (m *Subscribe) Type() MessageType { return SUBSCRIBE }
func (m *Subscribe) Pack() List        { return List{SUBSCRIBE, m.RequestID, m.Options, m.Topic} }

type Subscribed struct {
	RequestID      RequestID
	SubscriptionID RequestID
}

func (m *Subscribed) Type() MessageType { return SUBSCRIBED }
func (m *Subscribed) Pack() List        { return List{SUBSCRIBED, m.RequestID, m.SubscriptionID} }

type Unsubscribe struct {
	RequestID      RequestID
	SubscriptionID RequestID
}

func (m *Unsubscribe) Type() MessageType { return UNSUBSCRIBE }
func (m *Unsubscribe) Pack() List        { return List{UNSUBSCRIBE, m.RequestID, m.SubscriptionID} }

type Unsubscribed struct {
	RequestID RequestID
}

func (m *Unsubscribed) Type() MessageType { return UNSUBSCRIBED }
func (m *Unsubscribed) Pack() List        { return List{UNSUBSCRIBED, m.RequestID} }

type Event struct {
	SubscriptionID RequestID
	PublicationID  RequestID
	Details        Dict
	Args           List
	KwArgs         Dict
}

func (m *Event) Type() MessageType { return EVENT }
func (m *Event) Pack() List {
	l := List{EVENT, m.SubscriptionID, m.PublicationID, m.Details}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

// ---- Call / Result ----

type Call struct {
	RequestID RequestID
	Options   Dict
	Procedure string
	Args      List
	KwArgs    Dict
}

func (m *Call) Type() MessageType { return CALL }
func (m *Call) Pack() List {
	l := List{CALL, m.RequestID, m.Options, m.Procedure}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

type Result struct {
	RequestID RequestID
	Details   Dict
	Args      List
	KwArgs    Dict
}

func (m *Result) Type() MessageType { return RESULT }
func (m *Result) Pack() List {
	l := List{RESULT, m.RequestID, m.Details}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

// ---- Register / Invocation ----

type Register struct {
	RequestID RequestID
	Options   Dict
	Procedure string
}

func (m *Register) Type() MessageType { return REGISTER }
func (m *Register) Pack() List        { return List{REGISTER, m.RequestID, m.Options, m.Procedure} }

type Registered struct {
	RequestID      RequestID
	RegistrationID RequestID
}

func (m *Registered) Type() MessageType { return REGISTERED }
func (m *Registered) Pack() List        { return List{REGISTERED, m.RequestID, m.RegistrationID} }

type Unregister struct {
	RequestID      RequestID
	RegistrationID RequestID
}

func (m *Unregister) Type() MessageType { return UNREGISTER }
func (m *Unregister) Pack() List        { return List{UNREGISTER, m.RequestID, m.RegistrationID} }

type Unregistered struct {
	RequestID RequestID
}

func (m *Unregistered) Type() MessageType { return UNREGISTERED }
func (m *Unregistered) Pack() List        { return List{UNREGISTERED, m.RequestID} }

type Invocation struct {
	RequestID      RequestID
	RegistrationID RequestID
	Details        Dict
	Args           List
	KwArgs         Dict
}

func (m *Invocation) Type() MessageType { return INVOCATION }
func (m *Invocation) Pack() List {
	l := List{INVOCATION, m.RequestID, m.RegistrationID, m.Details}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

type Yield struct {
	RequestID RequestID
	Options   Dict
	Args      List
	KwArgs    Dict
}

func (m *Yield) Type() MessageType { return YIELD }
func (m *Yield) Pack() List {
	l := List{YIELD, m.RequestID, m.Options}
	return append(l, trimTrailingEmpty(m.Args, m.KwArgs)...)
}

// Decode turns an unpacked wire array into a typed Message. It only
// decodes variants the client can legally receive; an outbound-only or
// unknown type code yields an error (session/dispatch.go logs and drops
// such frames).
func Decode(raw List) (Message, error) {
	if len(raw) == 0 {
		return nil, errors.New("wamp: empty message array")
	}
	code, err := toMessageType(raw[0])
	if err != nil {
		return nil, err
	}

	switch code {
	case WELCOME:
		return decodeWelcome(raw)
	case ABORT:
		return decodeAbort(raw)
	case CHALLENGE:
		return decodeChallenge(raw)
	case GOODBYE:
		return decodeGoodbye(raw)
	case ERROR:
		return decodeError(raw)
	case PUBLISHED:
		return decodePublished(raw)
	case SUBSCRIBED:
		return decodeSubscribed(raw)
	case UNSUBSCRIBED:
		return decodeUnsubscribed(raw)
	case EVENT:
		return decodeEvent(raw)
	case RESULT:
		return decodeResult(raw)
	case REGISTERED:
		return decodeRegistered(raw)
	case UNREGISTERED:
		return decodeUnregistered(raw)
	case INVOCATION:
		return decodeInvocation(raw)
	default:
		if IsOutboundOnly(code) {
			return nil, errors.Errorf("wamp: %s is an outbound-only message type, a router must never send it", code)
		}
		if IsKnownInbound(code) {
			return nil, errors.Errorf("wamp: missing decoder for known inbound type %v", code)
		}
		return nil, errors.Errorf("wamp: not a decodable inbound variant: %v", code)
	}
}

func toMessageType(v interface{}) (MessageType, error) {
	switch n := v.(type) {
	case MessageType:
		return n, nil
	case int:
		return MessageType(n), nil
	case int64:
		return MessageType(n), nil
	case float64:
		return MessageType(n), nil
	case uint64:
		return MessageType(n), nil
	default:
		return 0, errors.Errorf("wamp: leading element is not an integer type code: %T", v)
	}
}

func toRequestID(v interface{}) (RequestID, error) {
	switch n := v.(type) {
	case RequestID:
		return n, nil
	case int:
		return RequestID(n), nil
	case int64:
		return RequestID(n), nil
	case float64:
		return RequestID(n), nil
	case uint64:
		return RequestID(n), nil
	default:
		return 0, errors.Errorf("wamp: expected integer id, got %T", v)
	}
}

func toDictField(v interface{}) (Dict, error) {
	if v == nil {
		return Dict{}, nil
	}
	switch d := v.(type) {
	case Dict:
		return d, nil
	case map[string]interface{}:
		return Dict(d), nil
	default:
		return nil, errors.Errorf("wamp: expected a dict field, got %T", v)
	}
}

func toStringField(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("wamp: expected a string field, got %T", v)
	}
	return s, nil
}

func optionalArgs(raw List, idx int) List {
	if len(raw) <= idx {
		return nil
	}
	switch l := raw[idx].(type) {
	case List:
		return l
	case []interface{}:
		return List(l)
	default:
		return nil
	}
}

func optionalKwArgs(raw List, idx int) Dict {
	if len(raw) <= idx {
		return nil
	}
	switch d := raw[idx].(type) {
	case Dict:
		return d
	case map[string]interface{}:
		return Dict(d)
	default:
		return nil
	}
}

func decodeWelcome(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed WELCOME")
	}
	sid, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	details, err := toDictField(raw[2])
	if err != nil {
		return nil, err
	}
	return &Welcome{Session: sid, Details: details}, nil
}

func decodeAbort(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed ABORT")
	}
	details, err := toDictField(raw[1])
	if err != nil {
		return nil, err
	}
	reason, err := toStringField(raw[2])
	if err != nil {
		return nil, err
	}
	return &Abort{Details: details, Reason: reason}, nil
}

func decodeChallenge(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed CHALLENGE")
	}
	method, err := toStringField(raw[1])
	if err != nil {
		return nil, err
	}
	extra, err := toDictField(raw[2])
	if err != nil {
		return nil, err
	}
	return &Challenge{AuthMethod: method, Extra: extra}, nil
}

func decodeGoodbye(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed GOODBYE")
	}
	details, err := toDictField(raw[1])
	if err != nil {
		return nil, err
	}
	reason, err := toStringField(raw[2])
	if err != nil {
		return nil, err
	}
	return &Goodbye{Details: details, Reason: reason}, nil
}

func decodeError(raw List) (Message, error) {
	if len(raw) < 5 {
		return nil, errors.New("wamp: malformed ERROR")
	}
	reqType, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	reqID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	details, err := toDictField(raw[3])
	if err != nil {
		return nil, err
	}
	uri, err := toStringField(raw[4])
	if err != nil {
		return nil, err
	}
	return &Error{
		RequestType: reqType,
		RequestID:   reqID,
		Details:     details,
		Error:       uri,
		Args:        optionalArgs(raw, 5),
		KwArgs:      optionalKwArgs(raw, 6),
	}, nil
}

func decodePublished(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed PUBLISHED")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	pubID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	return &Published{RequestID: reqID, PublicationID: pubID}, nil
}

func decodeSubscribed(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed SUBSCRIBED")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	subID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	return &Subscribed{RequestID: reqID, SubscriptionID: subID}, nil
}

func decodeUnsubscribed(raw List) (Message, error) {
	if len(raw) < 2 {
		return nil, errors.New("wamp: malformed UNSUBSCRIBED")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	return &Unsubscribed{RequestID: reqID}, nil
}

func decodeEvent(raw List) (Message, error) {
	if len(raw) < 4 {
		return nil, errors.New("wamp: malformed EVENT")
	}
	subID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	pubID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	details, err := toDictField(raw[3])
	if err != nil {
		return nil, err
	}
	return &Event{
		SubscriptionID: subID,
		PublicationID:  pubID,
		Details:        details,
		Args:           optionalArgs(raw, 4),
		KwArgs:         optionalKwArgs(raw, 5),
	}, nil
}

func decodeResult(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed RESULT")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	details, err := toDictField(raw[2])
	if err != nil {
		return nil, err
	}
	return &Result{
		RequestID: reqID,
		Details:   details,
		Args:      optionalArgs(raw, 3),
		KwArgs:    optionalKwArgs(raw, 4),
	}, nil
}

func decodeRegistered(raw List) (Message, error) {
	if len(raw) < 3 {
		return nil, errors.New("wamp: malformed REGISTERED")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	regID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	return &Registered{RequestID: reqID, RegistrationID: regID}, nil
}

func decodeUnregistered(raw List) (Message, error) {
	if len(raw) < 2 {
		return nil, errors.New("wamp: malformed UNREGISTERED")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	return &Unregistered{RequestID: reqID}, nil
}

func decodeInvocation(raw List) (Message, error) {
	if len(raw) < 4 {
		return nil, errors.New("wamp: malformed INVOCATION")
	}
	reqID, err := toRequestID(raw[1])
	if err != nil {
		return nil, err
	}
	regID, err := toRequestID(raw[2])
	if err != nil {
		return nil, err
	}
	details, err := toDictField(raw[3])
	if err != nil {
		return nil, err
	}
	return &Invocation{
		RequestID:      reqID,
		RegistrationID: regID,
		Details:        details,
		Args:           optionalArgs(raw, 4),
		KwArgs:         optionalKwArgs(raw, 5),
	}, nil
}
