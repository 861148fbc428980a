// Package api declares the Connect services of splitledger: procedure
// names, request and response messages, handler constructors and clients.
//
// Messages are plain Go structs carried as JSON. Codec replaces Connect's
// built-in "json" codec so handlers and clients can exchange them. Request
// dates are Timestamps, which use the protobuf JSON mapping.
package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is the Connect codec name, matching the application/json content type.
const CodecName = "json"

// Codec marshals messages as JSON.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
