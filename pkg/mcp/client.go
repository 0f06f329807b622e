package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
)

const (
	clientName    = "mcp-orchestrator"
	clientVersion = "1.0.0"
)

// Client is a Session backed by a go-sdk ClientSession.
type Client struct {
	config  ServerConfig
	session *mcp.ClientSession

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new MCP client for the given server configuration
func NewClient(config ServerConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{config: config.Clone()}, nil
}

// Connect establishes connection to the MCP server
func (c *Client) Connect(ctx context.Context) error {
	if c.session != nil {
		return nil
	}

	var transport mcp.Transport

	switch c.config.Type {
	case ServerTypeHTTP:
		transport = c.createHTTPTransport()

	case ServerTypeStdio, "":
		transport = c.createStdioTransport(ctx)

	case ServerTypeInProcess:
		if c.config.Server == nil {
			return fmt.Errorf("in-process server %s has no server attached", c.config.Name)
		}
		transport = NewInProcessTransport(c.config.Server)

	default:
		return fmt.Errorf("unsupported server type: %s", c.config.Type)
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, &mcp.ClientOptions{})

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to MCP server %s: %w", c.config.Name, err)
	}

	c.session = session
	if info := c.GetServerInfo(); info != nil {
		applog.WithModule("mcp").Debug("connected to MCP server",
			"endpoint", c.config.Name, "server", info.Name, "version", info.Version)
	}
	return nil
}

// createStdioTransport creates a command transport for stdio-based servers
func (c *Client) createStdioTransport(ctx context.Context) mcp.Transport {
	cmd := exec.CommandContext(ctx, c.config.Command, c.config.Args...)

	if c.config.WorkingDir != "" {
		cmd.Dir = c.config.WorkingDir
	}

	// Inherit parent environment and add custom ones
	cmd.Env = os.Environ()
	for key, value := range c.config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Stderr = os.Stderr

	return &mcp.CommandTransport{Command: cmd}
}

// createHTTPTransport creates a streamable HTTP transport
func (c *Client) createHTTPTransport() mcp.Transport {
	httpClient := &http.Client{}
	if len(c.config.Headers) > 0 {
		httpClient.Transport = &headerTransport{
			headers: c.config.Headers,
			base:    http.DefaultTransport,
		}
	}

	return &mcp.StreamableClientTransport{
		Endpoint:   c.config.URL,
		HTTPClient: httpClient,
	}
}

// headerTransport adds custom headers to all HTTP requests
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Name returns the endpoint name.
func (c *Client) Name() string { return c.config.Name }

// ListTools fetches every page of the server's tool listing and returns it
// in the wrapped {"tools": [...]} shape.
func (c *Client) ListTools(ctx context.Context) (any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	all := &mcp.ListToolsResult{}
	params := &mcp.ListToolsParams{}
	for {
		page, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools on %s: %w", c.config.Name, err)
		}
		all.Tools = append(all.Tools, page.Tools...)
		if page.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: page.NextCursor}
	}
	return all, nil
}

// CallTool forwards the call as-is. Transport errors are returned; a
// server-side tool failure comes back as a result with IsError set.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	response, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("tool call %s/%s failed: %w", c.config.Name, name, err)
	}

	return convertCallToolResult(response), nil
}

// Close closes the connection to the MCP server. Later calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// GetServerInfo returns information about the connected server
func (c *Client) GetServerInfo() *mcp.Implementation {
	if c.session != nil && c.session.InitializeResult() != nil {
		return c.session.InitializeResult().ServerInfo
	}
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session == nil {
		return fmt.Errorf("client %s not connected", c.config.Name)
	}
	return nil
}

func convertCallToolResult(res *mcp.CallToolResult) *ToolResult {
	out := &ToolResult{IsError: res.IsError}
	for _, block := range res.Content {
		switch v := block.(type) {
		case *mcp.TextContent:
			out.Content = append(out.Content, Content{Type: "text", Text: v.Text})
		case *mcp.ImageContent:
			out.Content = append(out.Content, Content{Type: "image", MIMEType: v.MIMEType, Data: v.Data})
		case *mcp.AudioContent:
			out.Content = append(out.Content, Content{Type: "audio", MIMEType: v.MIMEType, Data: v.Data})
		case *mcp.ResourceLink:
			out.Content = append(out.Content, Content{Type: "resource_link", URI: v.URI, MIMEType: v.MIMEType})
		case *mcp.EmbeddedResource:
			c := Content{Type: "resource"}
			if v.Resource != nil {
				c.URI = v.Resource.URI
				c.MIMEType = v.Resource.MIMEType
				c.Text = v.Resource.Text
				c.Data = v.Resource.Blob
			}
			out.Content = append(out.Content, c)
		}
	}
	// Servers returning only structured output still get a text block.
	if len(out.Content) == 0 && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			out.Content = append(out.Content, Content{Type: "text", Text: string(data)})
		}
	}
	return out
}

// SDKConnector opens sessions with Client.
type SDKConnector struct{}

// Connect creates and connects a Client for cfg.
func (SDKConnector) Connect(ctx context.Context, cfg ServerConfig) (Session, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Name, err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
