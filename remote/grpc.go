package remote

import (
	"context"
	"log/slog"

	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/sweetpotato0/remote-llm/llmrpc"
	"github.com/sweetpotato0/remote-llm/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// NewGRPCServer returns a gRPC server that speaks the RemoteLLM wire codec,
// traces every call and turns handler panics into Internal errors.
// m may be nil.
func NewGRPCServer(logger *slog.Logger, m *metrics.Metrics, opts ...grpc.ServerOption) *grpc.Server {
	var unary []grpc.UnaryServerInterceptor
	if m != nil {
		unary = append(unary, m.Server.UnaryServerInterceptor())
	}
	unary = append(unary,
		grpclogging.UnaryServerInterceptor(interceptorLogger(logger),
			grpclogging.WithLogOnEvents(grpclogging.FinishCall),
		),
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(func(p any) error {
			logger.Error("panic in rpc handler", "panic", p)
			return status.Error(codes.Internal, "internal error")
		})),
	)

	base := []grpc.ServerOption{
		grpc.ForceServerCodec(llmrpc.Codec{}),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// Dial creates a plaintext client connection to target using the RemoteLLM
// codec. Later options override the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(llmrpc.Codec{})),
	}
	return grpc.NewClient(target, append(base, opts...)...)
}

func interceptorLogger(l *slog.Logger) grpclogging.Logger {
	return grpclogging.LoggerFunc(func(ctx context.Context, lvl grpclogging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
