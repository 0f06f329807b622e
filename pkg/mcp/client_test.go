package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{
			name: "valid stdio config",
			config: ServerConfig{
				Name:        "test-server",
				Description: "Test MCP server",
				Command:     "echo",
				Args:        []string{"test"},
			},
		},
		{
			name:   "valid http config",
			config: ServerConfig{Name: "remote", Type: ServerTypeHTTP, URL: "http://localhost:3000/mcp"},
		},
		{
			name:    "missing name",
			config:  ServerConfig{Command: "echo"},
			wantErr: true,
		},
		{
			name:    "empty command",
			config:  ServerConfig{Name: "test-server"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			config:  ServerConfig{Name: "test-server", Type: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Name, client.Name())
			assert.Nil(t, client.GetServerInfo())
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	client, err := NewClient(ServerConfig{Name: "idle", Command: "echo"})
	require.NoError(t, err)

	_, err = client.ListTools(context.Background())
	assert.ErrorContains(t, err, "not connected")

	_, err = client.CallTool(context.Background(), "anything", nil)
	assert.ErrorContains(t, err, "not connected")

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestClient_InProcessWithoutServer(t *testing.T) {
	client, err := NewClient(ServerConfig{Name: "empty", Type: ServerTypeInProcess})
	require.NoError(t, err)
	assert.ErrorContains(t, client.Connect(context.Background()), "no server attached")
}

func TestSDKConnector_InvalidConfig(t *testing.T) {
	_, err := SDKConnector{}.Connect(context.Background(), ServerConfig{Name: "broken"})
	assert.ErrorContains(t, err, "failed to create client for broken")
}

func TestConvertCallToolResult(t *testing.T) {
	t.Run("content blocks", func(t *testing.T) {
		res := convertCallToolResult(&mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "hello"},
				&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1, 2}},
				&mcp.ResourceLink{URI: "file:///tmp/a.txt", MIMEType: "text/plain"},
				&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: "mem://x", Text: "inline"}},
			},
		})

		require.Len(t, res.Content, 4)
		assert.Equal(t, Content{Type: "text", Text: "hello"}, res.Content[0])
		assert.Equal(t, "image", res.Content[1].Type)
		assert.Equal(t, []byte{1, 2}, res.Content[1].Data)
		assert.Equal(t, "file:///tmp/a.txt", res.Content[2].URI)
		assert.Equal(t, "inline", res.Content[3].Text)
		assert.False(t, res.IsError)
	})

	t.Run("error flag", func(t *testing.T) {
		res := convertCallToolResult(&mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "denied"}},
		})
		assert.True(t, res.IsError)
		assert.ErrorIs(t, res.Err(), ErrToolReportedError)
		assert.ErrorContains(t, res.Err(), "denied")
	})

	t.Run("structured only", func(t *testing.T) {
		res := convertCallToolResult(&mcp.CallToolResult{
			StructuredContent: map[string]any{"count": 3},
		})
		text, ok := res.Text()
		require.True(t, ok)
		assert.JSONEq(t, `{"count":3}`, text)
	})
}

func TestToolResult(t *testing.T) {
	t.Run("text and decode", func(t *testing.T) {
		res := &ToolResult{Content: []Content{
			{Type: "image", Data: []byte{0}},
			{Type: "text", Text: `{"name":"demo"}`},
		}}
		text, ok := res.Text()
		require.True(t, ok)
		assert.Equal(t, `{"name":"demo"}`, text)

		var v struct{ Name string }
		require.NoError(t, res.DecodeJSON(&v))
		assert.Equal(t, "demo", v.Name)
		assert.NoError(t, res.Err())
	})

	t.Run("no text", func(t *testing.T) {
		res := &ToolResult{}
		_, ok := res.Text()
		assert.False(t, ok)
		assert.ErrorIs(t, res.DecodeJSON(&struct{}{}), ErrNoTextContent)
	})

	t.Run("invalid json", func(t *testing.T) {
		res := &ToolResult{Content: []Content{{Type: "text", Text: "not json"}}}
		assert.ErrorContains(t, res.DecodeJSON(&struct{}{}), "failed to parse tool result")
	})

	t.Run("error without text", func(t *testing.T) {
		res := &ToolResult{IsError: true}
		assert.Equal(t, ErrToolReportedError, res.Err())
	})

	t.Run("nil result", func(t *testing.T) {
		var res *ToolResult
		_, ok := res.Text()
		assert.False(t, ok)
		assert.NoError(t, res.Err())
	})
}

func TestServerConfig_CloneAndCommandLine(t *testing.T) {
	cfg := ServerConfig{
		Name:    "fs",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
		Env:     map[string]string{"A": "1"},
	}
	clone := cfg.Clone()
	clone.Args[2] = "/etc"
	clone.Env["A"] = "2"

	assert.Equal(t, "/tmp", cfg.Args[2])
	assert.Equal(t, "1", cfg.Env["A"])
	assert.Equal(t, "npx -y @modelcontextprotocol/server-filesystem /tmp", cfg.CommandLine())
	assert.Equal(t, "http://x/mcp", ServerConfig{Type: ServerTypeHTTP, URL: "http://x/mcp"}.CommandLine())
	assert.Equal(t, "(built-in)", ServerConfig{Type: ServerTypeInProcess}.CommandLine())
}

// ClientTestSuite drives a Client against an in-process mcp-go server.
type ClientTestSuite struct {
	suite.Suite
	client *Client
}

func newEchoServer() *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("echo-server", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(mcpgo.NewToolWithRawSchema("echo", "Echo the message back",
		json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`)),
		func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			msg, _ := req.GetArguments()["message"].(string)
			if msg == "" {
				return mcpgo.NewToolResultError("message is required"), nil
			}
			return mcpgo.NewToolResultText(strings.ToUpper(msg)), nil
		})
	s.AddTool(mcpgo.NewToolWithRawSchema("noop", "Do nothing", json.RawMessage(`{"type":"object","properties":{}}`)),
		func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText("done"), nil
		})
	return s
}

func (s *ClientTestSuite) SetupTest() {
	client, err := NewClient(ServerConfig{
		Name:   "echo",
		Type:   ServerTypeInProcess,
		Server: newEchoServer(),
	})
	s.Require().NoError(err)
	s.Require().NoError(client.Connect(context.Background()))
	s.client = client
}

func (s *ClientTestSuite) TearDownTest() {
	s.NoError(s.client.Close())
}

func (s *ClientTestSuite) TestServerInfo() {
	info := s.client.GetServerInfo()
	s.Require().NotNil(info)
	s.Equal("echo-server", info.Name)
}

func (s *ClientTestSuite) TestListTools() {
	raw, err := s.client.ListTools(context.Background())
	s.Require().NoError(err)

	tools, err := NormalizeToolList(raw)
	s.Require().NoError(err)
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	s.ElementsMatch([]string{"echo", "noop"}, names)
}

func (s *ClientTestSuite) TestCallTool() {
	res, err := s.client.CallTool(context.Background(), "echo", map[string]any{"message": "hi"})
	s.Require().NoError(err)
	text, ok := res.Text()
	s.True(ok)
	s.Equal("HI", text)
	s.NoError(res.Err())
}

func (s *ClientTestSuite) TestCallTool_NilArguments() {
	res, err := s.client.CallTool(context.Background(), "noop", nil)
	s.Require().NoError(err)
	text, _ := res.Text()
	s.Equal("done", text)
}

func (s *ClientTestSuite) TestCallTool_ToolError() {
	res, err := s.client.CallTool(context.Background(), "echo", map[string]any{})
	s.Require().NoError(err)
	s.True(res.IsError)
	s.ErrorIs(res.Err(), ErrToolReportedError)
}

func (s *ClientTestSuite) TestCloseTwice() {
	s.NoError(s.client.Close())
	s.NoError(s.client.Close())
	_, err := s.client.ListTools(context.Background())
	s.Error(err)
}

func TestConnect_LogsServerInfo(t *testing.T) {
	var buf bytes.Buffer
	applog.Configure(&buf, applog.FormatJSON)
	applog.SetDebug(true)
	t.Cleanup(func() {
		applog.Configure(os.Stderr, applog.FormatText)
		applog.SetDebug(false)
	})

	client, err := NewClient(ServerConfig{Name: "echo", Type: ServerTypeInProcess, Server: newEchoServer()})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	logged := buf.String()
	assert.Contains(t, logged, `"msg":"connected to MCP server"`)
	assert.Contains(t, logged, `"endpoint":"echo"`)
	assert.Contains(t, logged, `"server":"echo-server"`)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
