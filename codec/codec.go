// Package codec implements the WAMP Serializer collaborator (§6): it
// translates between a wire-level byte slice and the ordered
// heterogeneous array the wamp package's Message types pack to/from.
// This concern is intentionally out of scope for the session layer
// itself (see spec.md §1, "Explicitly out of scope").
package codec

import "gitlab.com/silenteer-oss/wampc/wamp"

// Serializer packs a message array to bytes and unpacks bytes back to
// a message array. Implementations must round-trip every WAMP message
// variant field-for-field.
type Serializer interface {
	Pack(msg wamp.List) ([]byte, error)
	Unpack(data []byte) (wamp.List, error)
	Name() string
}
