package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llm/fake"
	"github.com/sweetpotato0/remote-llm/llmrpc"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dialBufconn(t *testing.T, lis *bufconn.Listener) *grpc.ClientConn {
	t.Helper()
	conn, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// serve runs backend behind a Server on an in-memory listener.
func serve(t *testing.T, backend llm.LLM, opts ...Option) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := newTestServer(t, backend, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	})
	return dialBufconn(t, lis)
}

func TestClientGenerate(t *testing.T) {
	for _, mode := range []fake.Mode{fake.ModeSync, fake.ModeAsync, fake.ModeAsyncNotImplemented} {
		backend := fake.New([]string{"Hello back", "World back"}, fake.WithMode(mode))
		client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

		res, err := client.Generate(context.Background(), []string{"Hello", "World"}, nil)
		if err != nil {
			t.Fatalf("mode %d: Generate failed: %v", mode, err)
		}
		if res.Len() != 2 || res.Generations[0][0].Text != "Hello back" || res.Generations[1][0].Text != "World back" {
			t.Fatalf("mode %d: unexpected result %+v", mode, res)
		}
		if calls := backend.Calls(); len(calls) != 1 || len(calls[0].Stop) != 0 {
			t.Fatalf("mode %d: unexpected backend calls %+v", mode, calls)
		}
	}
}

func TestClientGenerateAsync(t *testing.T) {
	backend := fake.New([]string{"r"}, fake.WithInfo(`{"k":"v"}`))
	client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := client.GenerateAsync(ctx, []string{"p"}, []string{"x"}).Await(ctx)
	if err != nil {
		t.Fatalf("GenerateAsync failed: %v", err)
	}
	if res.Generations[0][0].Info != `{"k":"v"}` {
		t.Fatalf("generation info lost: %+v", res.Generations[0][0])
	}
	if stop := backend.Calls()[0].Stop; len(stop) != 1 || stop[0] != "x" {
		t.Fatalf("stop not forwarded: %q", stop)
	}
}

func TestClientEmptyPrompts(t *testing.T) {
	backend := fake.New([]string{"unused"})
	client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

	res, err := client.Generate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Len() != 0 {
		t.Fatalf("expected empty result, got %d batches", res.Len())
	}
}

func TestClientType(t *testing.T) {
	conn := serve(t, fake.New(nil, fake.WithType("foo")))

	if got := NewClient(conn, WithClientLogger(logging.Discard())).Type(); got != "remote:foo" {
		t.Fatalf("Type = %q, want remote:foo", got)
	}
	got, err := NewClient(conn, WithTypePrefix("grpc/")).TypeContext(context.Background())
	if err != nil || got != "grpc/foo" {
		t.Fatalf("TypeContext = %q, %v", got, err)
	}
}

func TestClientSaveUnsupported(t *testing.T) {
	client := NewClient(serve(t, fake.New(nil)))
	err := client.Save("x.json")
	if !errors.Is(err, errorskg.ErrUnsupportedOperation) {
		t.Fatalf("expected unsupported operation, got %v", err)
	}
}

func TestClientRemoteError(t *testing.T) {
	backend := fake.New(nil, fake.WithError(errors.New("quota exceeded")))
	client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

	_, err := client.Generate(context.Background(), []string{"p"}, nil)
	if !errors.Is(err, errorskg.ErrRemoteCall) {
		t.Fatalf("expected remote call error, got %v", err)
	}
	var rerr *errorskg.RemoteCallError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RemoteCallError, got %T", err)
	}
	if rerr.Code != codes.Unknown || rerr.Method != llmrpc.RemoteLLM_Generate_FullMethodName {
		t.Fatalf("unexpected remote error %+v", rerr)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("backend message lost: %v", err)
	}
}

func TestClientInvalidUTF8ReplyFailsCall(t *testing.T) {
	backend := fake.New([]string{"ok\xff"})
	client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

	_, err := client.Generate(context.Background(), []string{"p"}, nil)
	var rerr *errorskg.RemoteCallError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RemoteCallError, got %v", err)
	}
	if rerr.Code != codes.Internal {
		t.Fatalf("code = %v, want Internal", rerr.Code)
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	backend := fake.New(nil, fake.WithMode(fake.ModeAsync), fake.WithEcho())
	client := NewClient(serve(t, backend), WithClientLogger(logging.Discard()))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		prompts := []string{fmt.Sprintf("c%d-a", i), fmt.Sprintf("c%d-b", i), fmt.Sprintf("c%d-c", i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Generate(context.Background(), prompts, nil)
			if err != nil {
				errs <- err
				return
			}
			if res.Len() != len(prompts) {
				errs <- fmt.Errorf("caller got %d lists for %d prompts", res.Len(), len(prompts))
				return
			}
			for k, p := range prompts {
				if got := res.Generations[k][0].Text; got != fake.EchoPrefix+p {
					errs <- fmt.Errorf("prompt %q answered with %q", p, got)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Generate: %v", err)
	}
	if calls := backend.Calls(); len(calls) != callers {
		t.Fatalf("expected %d backend calls, got %d", callers, len(calls))
	}
}

type truncatingServer struct {
	llmrpc.UnimplementedRemoteLLMServer
}

func (truncatingServer) Generate(context.Context, *llmrpc.GenerateRequest) (*llmrpc.GenerateReply, error) {
	return &llmrpc.GenerateReply{Generations: []*llmrpc.GenerateReplyGenerationList{{}}}, nil
}

func TestClientRejectsMismatchedReply(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(logging.Discard(), nil)
	llmrpc.RegisterRemoteLLMServer(gs, truncatingServer{})
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	client := NewClient(dialBufconn(t, lis), WithClientLogger(logging.Discard()))
	_, err := client.Generate(context.Background(), []string{"a", "b"}, nil)
	if !errors.Is(err, errorskg.ErrProtocolViolation) {
		t.Fatalf("expected protocol violation, got %v", err)
	}

	_, err = client.TypeContext(context.Background())
	var rerr *errorskg.RemoteCallError
	if !errors.As(err, &rerr) || rerr.Code != codes.Unimplemented {
		t.Fatalf("expected Unimplemented remote error, got %v", err)
	}
	if got := client.Type(); got != "remote:unknown" {
		t.Fatalf("Type = %q, want remote:unknown", got)
	}
}

func TestHealthServing(t *testing.T) {
	conn := serve(t, fake.New(nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: llmrpc.RemoteLLM_ServiceName,
	})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}

type panickingBackend struct{ fake.LLM }

func (*panickingBackend) Generate(context.Context, []string, []string) (*llm.Result, error) {
	panic("backend exploded")
}

func TestPanicBecomesInternal(t *testing.T) {
	client := NewClient(serve(t, &panickingBackend{}), WithClientLogger(logging.Discard()))
	_, err := client.Generate(context.Background(), []string{"p"}, nil)
	var rerr *errorskg.RemoteCallError
	if !errors.As(err, &rerr) || rerr.Code != codes.Internal {
		t.Fatalf("expected Internal remote error, got %v", err)
	}
}
