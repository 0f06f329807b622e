// Package servers provides in-process implementations of the demo's tool
// servers so the orchestrator can run without Node.js.
package servers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-filesystem-server/filesystemserver"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
	"github.com/liliang-cn/mcp-orchestrator/pkg/memory"
)

// Options configures the built-in servers.
type Options struct {
	// Roots are the directories the filesystem server may access.
	Roots []string
	// Store backs the memory server; nil keeps the graph in memory.
	Store memory.Store
}

// Builtin returns the mcp-go server for a known endpoint name.
// The returned cleanup func releases resources held by the server.
func Builtin(ctx context.Context, name string, opts Options) (*mcpserver.MCPServer, func() error, error) {
	switch name {
	case mcp.FilesystemServer:
		if len(opts.Roots) == 0 {
			return nil, nil, fmt.Errorf("filesystem server requires at least one root directory")
		}
		srv, err := filesystemserver.NewFilesystemServer(opts.Roots)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create filesystem server: %w", err)
		}
		return srv, func() error { return nil }, nil

	case mcp.MemoryServer:
		kg, err := memory.NewKnowledgeGraph(ctx, opts.Store)
		if err != nil {
			return nil, nil, err
		}
		return memory.NewServer(kg), kg.Close, nil
	}
	return nil, nil, fmt.Errorf("no built-in server named %q", name)
}

// Names lists the endpoints Builtin knows.
func Names() []string {
	return []string{mcp.FilesystemServer, mcp.MemoryServer}
}

// BuiltinServers returns in-process endpoint configs for both demo servers,
// the filesystem one rooted at cwd. Call the returned func once the sessions
// are closed.
func BuiltinServers(ctx context.Context, cwd string, store memory.Store) ([]mcp.ServerConfig, func() error, error) {
	opts := Options{Roots: []string{cwd}, Store: store}

	var configs []mcp.ServerConfig
	var cleanups []func() error
	release := func() error {
		var firstErr error
		for _, c := range cleanups {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	descriptions := map[string]string{
		mcp.FilesystemServer: "Local file operations (built-in)",
		mcp.MemoryServer:     "Knowledge graph storage (built-in)",
	}
	for _, name := range Names() {
		srv, cleanup, err := Builtin(ctx, name, opts)
		if err != nil {
			_ = release()
			return nil, nil, err
		}
		cleanups = append(cleanups, cleanup)
		configs = append(configs, mcp.ServerConfig{
			Name:        name,
			Description: descriptions[name],
			Type:        mcp.ServerTypeInProcess,
			Server:      srv,
		})
	}
	return configs, release, nil
}
