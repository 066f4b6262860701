// Package gritrpc implements the gRPC store/orchestrator face (spec.md §6,
// SPEC_FULL.md §4.12): Put/Get/SetRef/GetRef/GetRefs against the object
// store, plus StartAgent/StopAgent/GetRunningAgents against the runtime
// orchestrator. It hand-wires a grpc.ServiceDesc against plain Go structs
// carried over a custom JSON codec instead of protoc-generated stubs, the
// same shape spec.md's worker-face grpc.ServiceDesc stream registration
// implies without requiring a .proto build step.
package gritrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with google.golang.org/grpc/encoding so gRPC
// dials/serves using "application/grpc+json" content subtypes instead of
// protobuf's wire format.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec over encoding/json, letting every
// request/response type in this package be a plain Go struct.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}
