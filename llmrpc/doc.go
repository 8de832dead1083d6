// Package llmrpc holds the wire schema of the RemoteLLM gRPC service
// (llm_rpc.proto) and its Go bindings.
//
// Messages are encoded in the protobuf binary format with protowire, so the
// service interoperates with any peer built from llm_rpc.proto. Unknown fields
// are skipped when decoding. Servers must be built with
// grpc.ForceServerCodec(Codec{}); the generated-style client forces the codec
// on every call.
package llmrpc
