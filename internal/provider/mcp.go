package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/toolgate/toolgate/internal/domain"
)

// MCPProvider talks to one remote MCP server over streamable HTTP. The
// connection is established lazily on first use and reused afterwards.
type MCPProvider struct {
	name    string
	baseURL string

	mu     sync.Mutex
	client *client.Client
}

// NewMCPProvider creates a provider for the MCP server at baseURL.
func NewMCPProvider(name, baseURL string) *MCPProvider {
	return &MCPProvider{name: name, baseURL: baseURL}
}

// Name identifies the server.
func (p *MCPProvider) Name() string {
	return p.name
}

func (p *MCPProvider) connect(ctx context.Context) (*client.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	c, err := client.NewStreamableHttpClient(p.baseURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "failed to create MCP client for %s", p.name)
	}
	if err := c.Start(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "failed to start MCP transport for %s", p.name)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "toolgate", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "failed to initialize MCP session with %s", p.name)
	}

	p.client = c
	return c, nil
}

// ListTools enumerates the server's tools.
func (p *MCPProvider) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		p.reset()
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "failed to list tools from %s", p.name)
	}

	out := make([]domain.ToolDescriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = nil
		}
		out = append(out, domain.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Schema:      schema,
			Server:      p.name,
		})
	}
	return out, nil
}

// CallTool invokes a tool. The whole MCP result (content blocks plus the
// isError flag) is returned as the raw payload so the normalizer can
// propagate provider-signaled errors verbatim.
func (p *MCPProvider) CallTool(ctx context.Context, tool string, args domain.Params) (json.RawMessage, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	// Params marshals its keys in insertion order; flattening to a plain map
	// here would alphabetize them and break order-sensitive providers.
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrCodeTimeout, err, "tool %s did not respond in time", tool)
		}
		if isInvalidParams(err) {
			return nil, &domain.PipelineError{
				Code:     domain.ErrCodeValidation,
				ToolName: tool,
				Message:  fmt.Sprintf("provider rejected parameters: %v", err),
				Err:      err,
			}
		}
		p.reset()
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "tool %s invocation failed on %s", tool, p.name)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, err, "failed to encode result from %s", tool)
	}
	return raw, nil
}

// isInvalidParams sniffs a JSON-RPC invalid-params rejection. Providers
// surface it either by the canonical code or by message.
func isInvalidParams(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "-32602") || strings.Contains(msg, "invalid params") ||
		strings.Contains(msg, "invalid arguments")
}

// reset drops the cached client so the next call reconnects.
func (p *MCPProvider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}
}

// Close shuts down the underlying MCP session.
func (p *MCPProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
