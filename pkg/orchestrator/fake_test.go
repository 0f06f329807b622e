package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

var errTransport = errors.New("transport broken")

type fakeSession struct {
	mu         sync.Mutex
	name       string
	tools      any
	listErr    error
	callErr    error
	results    map[string]*mcp.ToolResult
	calls      []string
	onCall     func(name string)
	closeCount int
	closeErr   error
}

func (s *fakeSession) ListTools(ctx context.Context) (any, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tools, nil
}

func (s *fakeSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if s.onCall != nil {
		s.onCall(name)
	}
	if s.callErr != nil {
		return nil, s.callErr
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return textResult("ok"), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return s.closeErr
}

func (s *fakeSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeConnector struct {
	sessions map[string]*fakeSession
	failOn   string
	order    []string
}

func newFakeConnector(names ...string) *fakeConnector {
	c := &fakeConnector{sessions: make(map[string]*fakeSession)}
	for _, n := range names {
		c.sessions[n] = &fakeSession{name: n}
	}
	return c
}

func (c *fakeConnector) Connect(ctx context.Context, cfg mcp.ServerConfig) (mcp.Session, error) {
	c.order = append(c.order, cfg.Name)
	if cfg.Name == c.failOn {
		return nil, fmt.Errorf("cannot start %s: %w", cfg.Name, errTransport)
	}
	s, ok := c.sessions[cfg.Name]
	if !ok {
		s = &fakeSession{name: cfg.Name}
		c.sessions[cfg.Name] = s
	}
	return s, nil
}

func textResult(text string) *mcp.ToolResult {
	return &mcp.ToolResult{Content: []mcp.Content{{Type: "text", Text: text}}}
}

func stdioServers(names ...string) []mcp.ServerConfig {
	out := make([]mcp.ServerConfig, 0, len(names))
	for _, n := range names {
		out = append(out, mcp.ServerConfig{Name: n, Type: mcp.ServerTypeStdio, Command: "fake-" + n})
	}
	return out
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

func (g *fakeGenerator) Model() string { return "fake-model" }
