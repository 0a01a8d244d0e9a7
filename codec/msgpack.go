package codec

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"gitlab.com/silenteer-oss/wampc/wamp"
)

// MsgpackSerializer is the binary alternative WAMP serializer called
// out explicitly by spec.md §1 ("JSON / MessagePack").
type MsgpackSerializer struct{}

func NewMsgpackSerializer() *MsgpackSerializer { return &MsgpackSerializer{} }

func (s *MsgpackSerializer) Name() string { return "msgpack" }

func (s *MsgpackSerializer) Pack(msg wamp.List) ([]byte, error) {
	b, err := msgpack.Marshal([]interface{}(msg))
	if err != nil {
		return nil, errors.WithMessage(err, "codec: msgpack pack error")
	}
	return b, nil
}

func (s *MsgpackSerializer) Unpack(data []byte) (wamp.List, error) {
	var raw []interface{}
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, errors.WithMessage(err, "codec: msgpack unpack error")
	}
	return wamp.List(raw), nil
}
