package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/mcp-orchestrator/pkg/llm"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

const manifestJSON = `{
  "name": "multi-server-orchestrator",
  "version": "1.0.0",
  "description": "Drives several MCP servers",
  "dependencies": {"zod": "^3.0.0", "@modelcontextprotocol/sdk": "^1.0.0"}
}`

func demoConnector() *fakeConnector {
	c := newFakeConnector(mcp.FilesystemServer, mcp.MemoryServer)
	c.sessions[mcp.FilesystemServer].tools = []any{
		map[string]any{"name": "read_file", "description": "Read a file"},
		map[string]any{"name": "list_directory", "description": "List a directory"},
	}
	c.sessions[mcp.FilesystemServer].results = map[string]*mcp.ToolResult{
		"read_file":      textResult(manifestJSON),
		"list_directory": textResult("[FILE] package.json\n[DIR] src"),
	}
	c.sessions[mcp.MemoryServer].tools = map[string]any{
		"tools": []any{map[string]any{"name": "read_graph", "description": "Read the graph"}},
	}
	return c
}

func TestDemoSteps(t *testing.T) {
	all, err := DemoSteps(DemoOptions{})
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	assert.Equal(t, StepNames(), names)

	some, err := DemoSteps(DemoOptions{Steps: []string{StepFileOperations, StepListTools}})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, StepFileOperations, some[0].Name)
	assert.Equal(t, StepListTools, some[1].Name)

	_, err = DemoSteps(DemoOptions{Steps: []string{"dance"}})
	assert.ErrorContains(t, err, `unknown step "dance"`)
}

func TestRunDemo_AllStepsSucceed(t *testing.T) {
	connector := demoConnector()
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := RunDemo(context.Background(), o, DemoOptions{Root: "/project", Output: &out})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.OK(), "failed steps: %v", report.Failed())
	assert.Len(t, report.Steps, len(StepNames()))

	text := out.String()
	assert.Contains(t, text, "FILESYSTEM server (2 tools):")
	assert.Contains(t, text, "MEMORY server (1 tools):")
	assert.Contains(t, text, "Name: multi-server-orchestrator")
	assert.Contains(t, text, "  - @modelcontextprotocol/sdk\n  - zod\n")
	assert.Contains(t, text, "[DIR] src")
	assert.Contains(t, text, "Language model not configured, skipping summary")
	assert.Contains(t, text, "ALL DEMONSTRATIONS COMPLETE")
	assert.Contains(t, text, "3 total tools available across 2 servers")
	assert.Contains(t, text, "All servers disconnected")

	assert.Equal(t, StateClosed, o.State())
	assert.Equal(t, 1, connector.sessions[mcp.FilesystemServer].closeCount)
	assert.Equal(t, 1, connector.sessions[mcp.MemoryServer].closeCount)
	assert.Equal(t, []string{"create_entities", "create_entities", "create_relations", "read_graph"},
		connector.sessions[mcp.MemoryServer].calls)
}

func TestRunDemo_FailingMemoryEndpointDoesNotStopTheRun(t *testing.T) {
	connector := demoConnector()
	connector.sessions[mcp.MemoryServer].callErr = errTransport
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := RunDemo(context.Background(), o, DemoOptions{
		Steps:  []string{StepMemoryOperations, StepFileOperations},
		Output: &out,
	})
	require.NoError(t, err)
	require.Len(t, report.Steps, 2)

	assert.ErrorIs(t, report.Steps[0].Err, errTransport)
	assert.NoError(t, report.Steps[1].Err, "the step after a failure still runs")
	assert.Equal(t, []string{"list_directory"}, connector.sessions[mcp.FilesystemServer].calls)

	assert.Contains(t, out.String(), "memory-operations failed")
	assert.Contains(t, out.String(), "1 FAILED STEP(S)")
	assert.Equal(t, 1, connector.sessions[mcp.FilesystemServer].closeCount)
	assert.Equal(t, 1, connector.sessions[mcp.MemoryServer].closeCount)
}

func TestRunDemo_ToolErrorResultFailsStep(t *testing.T) {
	connector := demoConnector()
	connector.sessions[mcp.FilesystemServer].results["read_file"] = &mcp.ToolResult{
		Content: []mcp.Content{{Type: "text", Text: "no such file"}},
		IsError: true,
	}
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	report, err := RunDemo(context.Background(), o, DemoOptions{
		Steps:  []string{StepAnalyzeProject},
		Output: &bytes.Buffer{},
	})
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.ErrorIs(t, report.Steps[0].Err, mcp.ErrToolReportedError)
	assert.Empty(t, connector.sessions[mcp.MemoryServer].calls, "nothing is stored after a failed read")
}

func TestRunDemo_InitializeFailureStillCleansUp(t *testing.T) {
	connector := demoConnector()
	connector.failOn = mcp.MemoryServer
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := RunDemo(context.Background(), o, DemoOptions{Output: &out})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, errTransport)
	assert.Contains(t, out.String(), "initialization failed")
	assert.Equal(t, 1, connector.sessions[mcp.FilesystemServer].closeCount)
	assert.NotContains(t, out.String(), "All servers disconnected")
}

func TestRunDemo_CleanupErrorIsReturned(t *testing.T) {
	connector := demoConnector()
	connector.sessions[mcp.MemoryServer].closeErr = errors.New("stuck")
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	report, err := RunDemo(context.Background(), o, DemoOptions{
		Steps:  []string{StepFileOperations},
		Output: &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "stuck")
	require.NotNil(t, report)
	assert.True(t, report.OK())
	assert.Equal(t, 1, connector.sessions[mcp.FilesystemServer].closeCount)
}

func TestRunDemo_Summarize(t *testing.T) {
	connector := demoConnector()
	connector.sessions[mcp.MemoryServer].results = map[string]*mcp.ToolResult{
		"read_graph": textResult(`{"entities":[{"name":"mcp-go-sdk"}],"relations":[]}`),
	}
	gen := &fakeGenerator{reply: "The project uses the Go SDK."}
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector,
		WithLLM(func() (llm.Generator, error) { return gen, nil }))
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := RunDemo(context.Background(), o, DemoOptions{
		Steps:  []string{StepSummarize},
		Output: &out,
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Contains(t, gen.prompt, "mcp-go-sdk")
	assert.Contains(t, out.String(), "The project uses the Go SDK.")
	assert.Contains(t, out.String(), "Language model: fake-model")
}

func TestRunDemo_CancelledDuringStepsReturnsContextError(t *testing.T) {
	connector := demoConnector()
	connector.sessions[mcp.FilesystemServer].closeErr = errors.New("stuck")
	o, err := New(stdioServers(mcp.FilesystemServer, mcp.MemoryServer), connector)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	connector.sessions[mcp.FilesystemServer].onCall = func(name string) {
		if name == "list_directory" {
			cancel()
		}
	}

	report, err := RunDemo(ctx, o, DemoOptions{
		Steps:  []string{StepFileOperations, StepMemoryOperations},
		Output: &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorContains(t, err, "stuck", "cleanup errors are joined")
	require.NotNil(t, report)
	require.Len(t, report.Steps, 2)
	assert.ErrorIs(t, report.Steps[1].Err, context.Canceled)
	assert.Empty(t, connector.sessions[mcp.MemoryServer].calls)
	assert.Equal(t, 1, connector.sessions[mcp.MemoryServer].closeCount)
}

func TestDemoPath(t *testing.T) {
	d := newDemo(DemoOptions{Root: "/project", Output: &bytes.Buffer{}})
	assert.Equal(t, "/project/package.json", d.path("package.json"))
	assert.Equal(t, "/project", d.path("."))
	assert.Equal(t, "/etc/hosts", d.path("/etc/hosts"))

	bare := newDemo(DemoOptions{Output: &bytes.Buffer{}})
	assert.Equal(t, ".", bare.path("."))
}
