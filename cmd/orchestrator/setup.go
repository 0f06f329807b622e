package main

import (
	"context"
	"fmt"
	"os"

	"github.com/liliang-cn/mcp-orchestrator/pkg/llm"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
	"github.com/liliang-cn/mcp-orchestrator/pkg/orchestrator"
	"github.com/liliang-cn/mcp-orchestrator/pkg/servers"
)

// newOrchestrator builds the orchestrator from the loaded config. The
// returned release func frees built-in servers and must run after Cleanup.
func newOrchestrator(ctx context.Context, builtin bool) (*orchestrator.Orchestrator, func() error, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	release := func() error { return nil }
	var endpoints []mcp.ServerConfig
	if builtin || cfg.Builtin {
		store, err := cfg.MemoryStore()
		if err != nil {
			return nil, nil, err
		}
		endpoints, release, err = servers.BuiltinServers(ctx, cwd, store)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	} else {
		endpoints, err = cfg.Servers(cwd)
		if err != nil {
			return nil, nil, err
		}
	}

	var opts []orchestrator.Option
	if cfg.LLM.Enabled {
		llmCfg := cfg.LLM
		opts = append(opts, orchestrator.WithLLM(func() (llm.Generator, error) {
			return llm.New(llmCfg)
		}))
	}

	o, err := orchestrator.New(endpoints, mcp.SDKConnector{}, opts...)
	if err != nil {
		_ = release()
		return nil, nil, err
	}
	return o, release, nil
}
