// Package orchestrator drives several MCP tool servers from one process:
// it opens one session per configured endpoint, lists and invokes tools,
// and closes every session exactly once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/liliang-cn/mcp-orchestrator/pkg/llm"
	applog "github.com/liliang-cn/mcp-orchestrator/pkg/log"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

// State is the lifecycle position of an Orchestrator.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LLMFactory builds the language-model handle during Initialize.
type LLMFactory func() (llm.Generator, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLLM sets the factory used to build the language-model handle.
func WithLLM(factory LLMFactory) Option {
	return func(o *Orchestrator) { o.llmFactory = factory }
}

// WithLogger overrides the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// Orchestrator owns the endpoint list and every session it opens.
// It is meant to be driven from a single goroutine.
type Orchestrator struct {
	servers    []mcp.ServerConfig
	connector  mcp.Connector
	llmFactory LLMFactory
	logger     *slog.Logger

	state    State
	sessions map[string]mcp.Session
	order    []string
	llm      llm.Generator
}

// New validates the endpoint list. Names must be unique and non-empty.
func New(servers []mcp.ServerConfig, connector mcp.Connector, opts ...Option) (*Orchestrator, error) {
	if connector == nil {
		return nil, fmt.Errorf("connector cannot be nil")
	}

	seen := make(map[string]bool, len(servers))
	copied := make([]mcp.ServerConfig, 0, len(servers))
	for _, s := range servers {
		if s.Name == "" {
			return nil, fmt.Errorf("server name is required")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate server name: %s", s.Name)
		}
		seen[s.Name] = true
		copied = append(copied, s.Clone())
	}

	o := &Orchestrator{
		servers:   copied,
		connector: connector,
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = applog.WithModule("orchestrator")
	}
	return o, nil
}

// State reports the lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Servers returns copies of the configured endpoints in declared order.
func (o *Orchestrator) Servers() []mcp.ServerConfig {
	out := make([]mcp.ServerConfig, len(o.servers))
	for i, s := range o.servers {
		out[i] = s.Clone()
	}
	return out
}

// Sessions returns the names of open sessions, sorted.
func (o *Orchestrator) Sessions() []string {
	names := make([]string, 0, len(o.sessions))
	for name := range o.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LLM returns the language-model handle, nil when none was configured.
func (o *Orchestrator) LLM() llm.Generator { return o.llm }

// Initialize opens a session for every endpoint in declared order, then
// builds the LLM handle. Any failure closes the sessions opened so far and
// leaves the orchestrator uninitialized.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	switch o.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateClosed:
		return ErrClosed
	}

	sessions := make(map[string]mcp.Session, len(o.servers))
	order := make([]string, 0, len(o.servers))
	abort := func(cause error) error {
		for i := len(order) - 1; i >= 0; i-- {
			if err := sessions[order[i]].Close(); err != nil {
				o.logger.Warn("failed to close session after aborted initialize",
					"endpoint", order[i], "error", err)
			}
		}
		return cause
	}

	for _, server := range o.servers {
		o.logger.Debug("connecting", "endpoint", server.Name, "command", server.CommandLine())
		session, err := o.connector.Connect(ctx, server.Clone())
		if err != nil {
			return abort(fmt.Errorf("failed to create session %s: %w", server.Name, err))
		}
		if session == nil {
			return abort(fmt.Errorf("failed to create session %s: connector returned no session", server.Name))
		}
		sessions[server.Name] = session
		order = append(order, server.Name)
		o.logger.Info("session created", "endpoint", server.Name)
	}

	var handle llm.Generator
	if o.llmFactory != nil {
		var err error
		handle, err = o.llmFactory()
		if err != nil {
			return abort(fmt.Errorf("failed to create LLM client: %w", err))
		}
	}

	o.sessions = sessions
	o.order = order
	o.llm = handle
	o.state = StateInitialized
	return nil
}

func (o *Orchestrator) session(name string) (mcp.Session, error) {
	if o.state != StateInitialized {
		return nil, ErrNotInitialized
	}
	session, ok := o.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return session, nil
}

// ListTools returns the ordered tool descriptors of one endpoint. An
// endpoint without a session counts as not initialized; the error matches
// both ErrNotInitialized and ErrSessionNotFound.
func (o *Orchestrator) ListTools(ctx context.Context, endpoint string) ([]mcp.Tool, error) {
	session, err := o.session(endpoint)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotInitialized, err)
	}
	if err != nil {
		return nil, err
	}
	raw, err := session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", endpoint, err)
	}
	tools, err := mcp.NormalizeToolList(raw)
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", endpoint, err)
	}
	return tools, nil
}

// Invoke calls a tool on one endpoint. There is no timeout or retry beyond
// what ctx carries.
func (o *Orchestrator) Invoke(ctx context.Context, endpoint, tool string, args map[string]any) (*mcp.ToolResult, error) {
	session, err := o.session(endpoint)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("invoking tool", "endpoint", endpoint, "tool", tool)
	result, err := session.CallTool(ctx, tool, args)
	if err != nil {
		return nil, fmt.Errorf("invoke %s/%s: %w", endpoint, tool, err)
	}
	return result, nil
}

// Cleanup closes every open session exactly once, in reverse creation order,
// and moves to the closed state. It is a no-op before Initialize and on
// repeated calls. Close errors are joined. Session Close takes no context,
// so ctx only carries through to the log records.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	if o.state != StateInitialized {
		return nil
	}
	o.state = StateClosed

	var errs []error
	for i := len(o.order) - 1; i >= 0; i-- {
		name := o.order[i]
		if err := o.sessions[name].Close(); err != nil {
			o.logger.WarnContext(ctx, "failed to close session", "endpoint", name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			continue
		}
		o.logger.DebugContext(ctx, "session closed", "endpoint", name)
	}
	o.sessions = nil
	o.order = nil
	return errors.Join(errs...)
}
