// Package mcp exposes an llm.LLM as Model Context Protocol tools, so MCP hosts
// can reach any backend the proxy can serve, remote ones included.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
)

// Version is advertised in the server implementation info.
const Version = "0.1.0"

// GenerateArgs are the arguments of the generate tool.
type GenerateArgs struct {
	Prompts []string `json:"prompts" jsonschema:"Prompts to complete, answered in order"`
	Stop    []string `json:"stop,omitempty" jsonschema:"Stop sequences shared by every prompt"`
}

// NewServer builds an MCP server with two tools: generate, which returns the
// first generation of each prompt, and llm_type.
func NewServer(name string, l llm.LLM) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: Version,
		Title:   "remote-llm tool server",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate",
		Description: "Complete each prompt with the served language model",
	}, generateHandler(l))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "llm_type",
		Description: "Report which language model backend is served",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: l.Type()}},
		}, nil, nil
	})

	return server
}

func generateHandler(l llm.LLM) mcp.ToolHandlerFor[GenerateArgs, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, a GenerateArgs) (*mcp.CallToolResult, any, error) {
		if len(a.Prompts) == 0 {
			return nil, nil, fmt.Errorf("%w: at least one prompt is required", errorskg.ErrInvalidInput)
		}
		res, err := l.Generate(ctx, a.Prompts, a.Stop)
		if err != nil {
			return nil, nil, err
		}
		if err := res.Validate(len(a.Prompts)); err != nil {
			return nil, nil, err
		}

		content := make([]mcp.Content, 0, len(a.Prompts))
		for _, batch := range res.Generations {
			text := ""
			if len(batch) > 0 {
				text = batch[0].Text
			}
			content = append(content, &mcp.TextContent{Text: text})
		}
		return &mcp.CallToolResult{Content: content}, nil, nil
	}
}

// Handler serves server over the streamable HTTP transport.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
