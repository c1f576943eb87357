// Package connect provides the Connect RPC admin service.
package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec serializes plain Go structs. It is registered under the "json" name so
// the default protobuf JSON codec is not used for these messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
