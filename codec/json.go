package codec

import (
	"encoding/json"

	"github.com/pkg/errors"

	"gitlab.com/silenteer-oss/wampc/wamp"
)

// JSONSerializer is the default WAMP serializer. No third-party JSON
// library is substituted for stdlib encoding/json here: see DESIGN.md
// for why.
type JSONSerializer struct{}

func NewJSONSerializer() *JSONSerializer { return &JSONSerializer{} }

func (s *JSONSerializer) Name() string { return "json" }

func (s *JSONSerializer) Pack(msg wamp.List) ([]byte, error) {
	b, err := json.Marshal([]interface{}(msg))
	if err != nil {
		return nil, errors.WithMessage(err, "codec: json pack error")
	}
	return b, nil
}

func (s *JSONSerializer) Unpack(data []byte) (wamp.List, error) {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WithMessage(err, "codec: json unpack error")
	}
	return wamp.List(raw), nil
}
