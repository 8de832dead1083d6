package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llmrpc"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	// DefaultTypePrefix marks types reported through a Client.
	DefaultTypePrefix = "remote:"
	// DefaultTypeTimeout bounds the GetLlmType call made by Type.
	DefaultTypeTimeout = 30 * time.Second
)

// Client is an llm.LLM whose generations run on a RemoteLLM server.
// It is safe for concurrent use when the underlying connection is.
type Client struct {
	rpc         llmrpc.RemoteLLMClient
	prefix      string
	typeTimeout time.Duration
	callOpts    []grpc.CallOption
	logger      *slog.Logger
}

var _ llm.AsyncLLM = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTypePrefix changes the prefix prepended to the remote backend type.
func WithTypePrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithTypeTimeout bounds the RPC issued by Type, which has no context.
func WithTypeTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.typeTimeout = d
		}
	}
}

// WithCallOptions appends call options to every RPC.
func WithCallOptions(opts ...grpc.CallOption) ClientOption {
	return func(c *Client) {
		c.callOpts = append(c.callOpts, opts...)
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client over conn. The connection is owned by the caller.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{
		rpc:         llmrpc.NewRemoteLLMClient(conn),
		prefix:      DefaultTypePrefix,
		typeTimeout: DefaultTypeTimeout,
		logger:      logging.WithComponent("remote.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends all prompts in one request and blocks for the reply.
func (c *Client) Generate(ctx context.Context, prompts []string, stop []string) (*llm.Result, error) {
	req := &llmrpc.GenerateRequest{Prompts: prompts, Stop: stop}
	reply, err := c.rpc.Generate(ctx, req, c.callOpts...)
	if err != nil {
		return nil, callError(llmrpc.RemoteLLM_Generate_FullMethodName, err)
	}
	result, err := UnpackReply(reply, len(prompts))
	if err != nil {
		c.logger.Warn("malformed generate reply", "prompts", len(prompts), "lists", len(reply.GetGenerations()))
		return nil, err
	}
	return result, nil
}

// GenerateAsync issues the same request as Generate without blocking the caller.
func (c *Client) GenerateAsync(ctx context.Context, prompts []string, stop []string) *llm.Future {
	return llm.Go(ctx, func(ctx context.Context) (*llm.Result, error) {
		return c.Generate(ctx, prompts, stop)
	})
}

// TypeContext asks the server for its backend type and adds the client prefix.
func (c *Client) TypeContext(ctx context.Context) (string, error) {
	reply, err := c.rpc.GetLlmType(ctx, &llmrpc.LLMTypeRequest{}, c.callOpts...)
	if err != nil {
		return "", callError(llmrpc.RemoteLLM_GetLlmType_FullMethodName, err)
	}
	return c.prefix + reply.GetLlmType(), nil
}

// Type is TypeContext bounded by the type timeout. On failure it logs the
// error and reports the prefix followed by "unknown".
func (c *Client) Type() string {
	ctx, cancel := context.WithTimeout(context.Background(), c.typeTimeout)
	defer cancel()
	t, err := c.TypeContext(ctx)
	if err != nil {
		c.logger.Error("failed to fetch remote llm type", "error", err)
		return c.prefix + "unknown"
	}
	return t
}

// Save always fails: a remote backend has no local parameters to persist.
func (c *Client) Save(path string) error {
	return fmt.Errorf("save remote llm to %q: %w", path, errorskg.ErrUnsupportedOperation)
}

func callError(method string, err error) error {
	return &errorskg.RemoteCallError{
		Method: method,
		Code:   status.Code(err),
		Err:    err,
	}
}
