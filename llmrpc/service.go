package llmrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	RemoteLLM_ServiceName               = "llm_rpc.api.RemoteLLM"
	RemoteLLM_Generate_FullMethodName   = "/llm_rpc.api.RemoteLLM/Generate"
	RemoteLLM_GetLlmType_FullMethodName = "/llm_rpc.api.RemoteLLM/GetLlmType"
)

// RemoteLLMClient is the client API for the RemoteLLM service.
type RemoteLLMClient interface {
	Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (*GenerateReply, error)
	GetLlmType(ctx context.Context, in *LLMTypeRequest, opts ...grpc.CallOption) (*LLMTypeReply, error)
}

type remoteLLMClient struct {
	cc grpc.ClientConnInterface
}

// NewRemoteLLMClient binds a RemoteLLM client to cc.
func NewRemoteLLMClient(cc grpc.ClientConnInterface) RemoteLLMClient {
	return &remoteLLMClient{cc: cc}
}

func (c *remoteLLMClient) Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (*GenerateReply, error) {
	out := new(GenerateReply)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, RemoteLLM_Generate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *remoteLLMClient) GetLlmType(ctx context.Context, in *LLMTypeRequest, opts ...grpc.CallOption) (*LLMTypeReply, error) {
	out := new(LLMTypeReply)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, RemoteLLM_GetLlmType_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoteLLMServer is the server API for the RemoteLLM service.
type RemoteLLMServer interface {
	Generate(context.Context, *GenerateRequest) (*GenerateReply, error)
	GetLlmType(context.Context, *LLMTypeRequest) (*LLMTypeReply, error)
}

// UnimplementedRemoteLLMServer can be embedded to satisfy RemoteLLMServer.
type UnimplementedRemoteLLMServer struct{}

func (UnimplementedRemoteLLMServer) Generate(context.Context, *GenerateRequest) (*GenerateReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Generate not implemented")
}

func (UnimplementedRemoteLLMServer) GetLlmType(context.Context, *LLMTypeRequest) (*LLMTypeReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetLlmType not implemented")
}

// RegisterRemoteLLMServer registers srv on s. The *grpc.Server behind s must
// be created with grpc.ForceServerCodec(Codec{}).
func RegisterRemoteLLMServer(s grpc.ServiceRegistrar, srv RemoteLLMServer) {
	s.RegisterService(&RemoteLLM_ServiceDesc, srv)
}

func _RemoteLLM_Generate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GenerateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RemoteLLMServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RemoteLLM_Generate_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RemoteLLMServer).Generate(ctx, req.(*GenerateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RemoteLLM_GetLlmType_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LLMTypeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RemoteLLMServer).GetLlmType(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RemoteLLM_GetLlmType_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RemoteLLMServer).GetLlmType(ctx, req.(*LLMTypeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RemoteLLM_ServiceDesc is the grpc.ServiceDesc for the RemoteLLM service.
var RemoteLLM_ServiceDesc = grpc.ServiceDesc{
	ServiceName: RemoteLLM_ServiceName,
	HandlerType: (*RemoteLLMServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Generate",
			Handler:    _RemoteLLM_Generate_Handler,
		},
		{
			MethodName: "GetLlmType",
			Handler:    _RemoteLLM_GetLlmType_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "llm_rpc.proto",
}
