// Package rpc holds the connect plumbing shared by every service: the JSON
// codec, bearer-token authentication and handler construction.
package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

const codecName = "json"

// JSONCodec encodes plain Go structs as JSON. It replaces connect's default
// JSON codec, which only accepts protobuf messages.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return codecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}
