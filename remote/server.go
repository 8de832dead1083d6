package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llmrpc"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
	"github.com/sweetpotato0/remote-llm/pkg/metrics"
	"github.com/sweetpotato0/remote-llm/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	pathAsync    = "async"
	pathBlocking = "blocking"

	// DefaultStopTimeout bounds the graceful shutdown in Serve.
	DefaultStopTimeout = 10 * time.Second

	recordTimeout = 5 * time.Second
)

// Server answers RemoteLLM calls with one wrapped backend.
// Concurrent calls reach the backend concurrently.
type Server struct {
	backend llm.LLM
	async   llm.AsyncLLM

	logger      *slog.Logger
	metrics     *metrics.Metrics
	recorder    Recorder
	tokens      TokenCounter
	grpcOpts    []grpc.ServerOption
	stopTimeout time.Duration

	typeOnce sync.Once
	llmType  string
}

var _ llmrpc.RemoteLLMServer = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables Prometheus collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRecorder stores every successful exchange in r.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithTokenCounter counts prompt and generation tokens with c.
func WithTokenCounter(c TokenCounter) Option {
	return func(s *Server) {
		s.tokens = c
	}
}

// WithServerOptions passes extra options to the gRPC server built by Serve.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(s *Server) {
		s.grpcOpts = append(s.grpcOpts, opts...)
	}
}

// WithStopTimeout bounds the graceful stop in Serve before in-flight calls
// are aborted.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// NewServer wraps backend. Whether the async path is used is decided here,
// once, from the backend's capabilities.
func NewServer(backend llm.LLM, opts ...Option) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", errorskg.ErrInvalidInput)
	}
	s := &Server{
		backend:     backend,
		logger:      logging.WithComponent("remote.server"),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if llm.Describe(backend).Async {
		s.async = backend.(llm.AsyncLLM)
	}
	s.logger.Info("llm backend registered", "async", s.async != nil)
	return s, nil
}

// Register adds the RemoteLLM service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	llmrpc.RegisterRemoteLLMServer(r, s)
}

// Generate runs the request prompts through the backend.
func (s *Server) Generate(ctx context.Context, req *llmrpc.GenerateRequest) (*llmrpc.GenerateReply, error) {
	prompts := req.GetPrompts()
	stop := req.GetStop()

	s.logger.Debug("generate request", "prompts", prompts, "stop", stop)
	s.logger.Info("generate request received", "prompt_count", len(prompts), "stop_count", len(stop))
	s.metrics.AddPrompts(len(prompts))
	s.countTokens("input", prompts...)

	if len(prompts) == 0 {
		return &llmrpc.GenerateReply{}, nil
	}

	start := time.Now()
	result, path, err := s.generate(ctx, prompts, stop)
	if err != nil {
		s.logger.Warn("generation failed", "path", path, "error", err)
		return nil, toStatus(err)
	}
	if err := result.Validate(len(prompts)); err != nil {
		s.logger.Error("backend returned mismatched result", "path", path, "error", err)
		return nil, toStatus(err)
	}
	elapsed := time.Since(start)

	reply := PackResult(result)
	n := 0
	for _, batch := range result.Generations {
		n += len(batch)
		for _, g := range batch {
			s.countTokens("output", g.Text)
		}
	}
	s.logger.Info("generation completed", "path", path, "generations", n, "duration", elapsed)
	s.metrics.AddGenerations(n)

	s.record(ctx, &Exchange{
		Prompts:  prompts,
		Stop:     stop,
		Result:   result,
		Path:     path,
		Duration: elapsed,
	})
	return reply, nil
}

// GetLlmType reports the wrapped backend type.
func (s *Server) GetLlmType(ctx context.Context, _ *llmrpc.LLMTypeRequest) (*llmrpc.LLMTypeReply, error) {
	return &llmrpc.LLMTypeReply{LlmType: s.backend.Type()}, nil
}

func (s *Server) generate(ctx context.Context, prompts, stop []string) (result *llm.Result, path string, err error) {
	ctx, span := telemetry.Start(ctx, "llm.generate",
		attribute.Int("llm.prompts", len(prompts)),
		attribute.Int("llm.stop", len(stop)),
	)
	defer func() {
		span.SetAttributes(attribute.String("llm.path", path))
		telemetry.End(span, err)
	}()

	if s.async != nil {
		start := time.Now()
		result, err = s.async.GenerateAsync(ctx, prompts, stop).Await(ctx)
		if !errors.Is(err, errorskg.ErrNotImplemented) {
			s.metrics.ObserveBackend(pathAsync, err, time.Since(start))
			return result, pathAsync, err
		}
		s.logger.Debug("async generation not implemented, falling back to blocking path")
		s.metrics.IncFallback()
	}

	start := time.Now()
	result, err = s.backend.Generate(ctx, prompts, stop)
	s.metrics.ObserveBackend(pathBlocking, err, time.Since(start))
	return result, pathBlocking, err
}

func (s *Server) countTokens(direction string, texts ...string) {
	if s.tokens == nil {
		return
	}
	n := 0
	for _, t := range texts {
		n += s.tokens.CountTokens(t)
	}
	s.metrics.AddTokens(direction, n)
}

func (s *Server) record(ctx context.Context, ex *Exchange) {
	if s.recorder == nil {
		return
	}
	ex.ID = uuid.NewString()
	ex.LLMType = s.backendType()
	ex.CreatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	err := s.recorder.Record(ctx, ex)
	s.metrics.ObserveRecording(err)
	if err != nil {
		s.logger.Error("failed to record exchange", "id", ex.ID, "error", err)
	}
}

func (s *Server) backendType() string {
	s.typeOnce.Do(func() {
		s.llmType = s.backend.Type()
	})
	return s.llmType
}

// Serve hosts the service on lis until ctx is done, then stops gracefully.
// A gRPC health service reports the RemoteLLM service as serving meanwhile.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	gs := NewGRPCServer(s.logger, s.metrics, s.grpcOpts...)
	s.Register(gs)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(llmrpc.RemoteLLM_ServiceName, healthpb.HealthCheckResponse_SERVING)
	if s.metrics != nil {
		s.metrics.Server.InitializeMetrics(gs)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- gs.Serve(lis)
	}()
	s.logger.Info("remote llm server listening", "addr", lis.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down remote llm server")
	hs.Shutdown()
	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(s.stopTimeout):
		s.logger.Warn("graceful stop timed out, aborting in-flight calls")
		gs.Stop()
	}
	if err := <-errc; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
