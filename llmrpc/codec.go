package llmrpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// Codec encodes RemoteLLM messages in the protobuf wire format. Other
// proto.Message values (health checks, reflection) are delegated to the
// protobuf runtime so the codec can be forced on a shared *grpc.Server.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.Marshal()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("llmrpc: cannot marshal %T", v)
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.Unmarshal(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("llmrpc: cannot unmarshal into %T", v)
}

// Name implements encoding.Codec. The payload is plain protobuf, so peers see
// the standard application/grpc+proto content type.
func (Codec) Name() string {
	return "proto"
}
