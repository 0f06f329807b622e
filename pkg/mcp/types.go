package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ServerType identifies how a tool server is reached.
type ServerType string

const (
	ServerTypeStdio     ServerType = "stdio"
	ServerTypeHTTP      ServerType = "http"
	ServerTypeInProcess ServerType = "inprocess"
)

// ServerConfig describes one named tool-server endpoint.
type ServerConfig struct {
	Name        string            `toml:"name" json:"name" mapstructure:"name"`
	Description string            `toml:"description" json:"description" mapstructure:"description"`
	Type        ServerType        `toml:"type" json:"type" mapstructure:"type"`
	Command     string            `toml:"command" json:"command" mapstructure:"command"`
	Args        []string          `toml:"args" json:"args" mapstructure:"args"`
	WorkingDir  string            `toml:"working_dir" json:"working_dir" mapstructure:"working_dir"`
	Env         map[string]string `toml:"env" json:"env" mapstructure:"env"`
	URL         string            `toml:"url" json:"url" mapstructure:"url"`
	Headers     map[string]string `toml:"headers" json:"headers" mapstructure:"headers"`

	// Server is set for in-process endpoints only.
	Server *mcpserver.MCPServer `toml:"-" json:"-" mapstructure:"-"`
}

// Clone returns a deep copy so callers cannot mutate a loaded config.
func (c ServerConfig) Clone() ServerConfig {
	out := c
	out.Args = append([]string(nil), c.Args...)
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// CommandLine renders the launch descriptor for display.
func (c ServerConfig) CommandLine() string {
	switch c.Type {
	case ServerTypeHTTP:
		return c.URL
	case ServerTypeInProcess:
		return "(built-in)"
	}
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// Tool is the descriptor a server reports for one callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// Content is one block of a tool result. Only text blocks carry Text.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// ToolResult is the transient payload returned by a tool invocation.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// ErrNoTextContent is returned when a result carries no text block.
var ErrNoTextContent = errors.New("tool result has no text content")

// ErrToolReportedError marks results the server flagged with isError.
var ErrToolReportedError = errors.New("tool reported an error")

// Text returns the first text block.
func (r *ToolResult) Text() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text, true
		}
	}
	return "", false
}

// DecodeJSON parses the first text block as JSON into v.
func (r *ToolResult) DecodeJSON(v any) error {
	text, ok := r.Text()
	if !ok {
		return ErrNoTextContent
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("failed to parse tool result as JSON: %w", err)
	}
	return nil
}

// Err converts a server-flagged failure into an error.
func (r *ToolResult) Err() error {
	if r == nil || !r.IsError {
		return nil
	}
	if text, ok := r.Text(); ok && text != "" {
		return fmt.Errorf("%w: %s", ErrToolReportedError, text)
	}
	return ErrToolReportedError
}

// Session is a live connection to one endpoint.
//
// ListTools returns the remote listing as received: either a bare sequence
// of tools or an object wrapping one under "tools". Use NormalizeToolList
// to obtain []Tool.
type Session interface {
	ListTools(ctx context.Context) (any, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)
	Close() error
}

// Connector opens sessions.
type Connector interface {
	Connect(ctx context.Context, cfg ServerConfig) (Session, error)
}
