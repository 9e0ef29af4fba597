package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the GrainStorage gRPC service exchange plain Go structs
// (messages.go) instead of protoc-generated proto.Message types; there is
// no .proto source for this facade, so the usual generated codec does not
// apply. Registered once under the "json" name; the client selects it per
// call with grpc.CallContentSubtype("json").
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
