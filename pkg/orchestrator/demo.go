package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

// ProjectEntity is the knowledge-graph entity describing the analysed project.
const ProjectEntity = "multi-server-orchestrator"

// Demo step names.
const (
	StepListTools        = "list-tools"
	StepAnalyzeProject   = "analyze-project"
	StepMemoryOperations = "memory-operations"
	StepFileOperations   = "file-operations"
	StepSummarize        = "summarize"
)

// DemoOptions configures the demonstration sequence.
type DemoOptions struct {
	// Root is the project directory. Relative paths are resolved against it
	// before they are sent to the filesystem endpoint.
	Root string
	// ProjectFile is read through the filesystem endpoint and parsed as JSON.
	ProjectFile string
	// Steps restricts the run to the named steps; empty runs all of them.
	Steps []string
	// Output receives the narration; defaults to stdout.
	Output io.Writer
}

type demo struct {
	opts     DemoOptions
	narrator *Narrator
	tools    map[string]int
}

func newDemo(opts DemoOptions) *demo {
	if opts.ProjectFile == "" {
		opts.ProjectFile = "package.json"
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &demo{
		opts:     opts,
		narrator: NewNarrator(opts.Output),
		tools:    make(map[string]int),
	}
}

// DemoSteps returns the demonstration sequence filtered by opts.Steps.
func DemoSteps(opts DemoOptions) ([]Step, error) {
	return newDemo(opts).steps()
}

func (d *demo) path(p string) string {
	if d.opts.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.opts.Root, p)
}

func (d *demo) steps() ([]Step, error) {
	all := []Step{
		{Name: StepListTools, Description: "List tools of every endpoint", Run: d.listTools},
		{Name: StepAnalyzeProject, Description: "Read the project manifest and store it in memory", Run: d.analyzeProject},
		{Name: StepMemoryOperations, Description: "Create entities and relations, then read the graph", Run: d.memoryOperations},
		{Name: StepFileOperations, Description: "List the project directory", Run: d.fileOperations},
		{Name: StepSummarize, Description: "Summarize the knowledge graph with the language model", Run: d.summarize},
	}
	if len(d.opts.Steps) == 0 {
		return all, nil
	}

	byName := make(map[string]Step, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	selected := make([]Step, 0, len(d.opts.Steps))
	for _, name := range d.opts.Steps {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown step %q", name)
		}
		selected = append(selected, s)
	}
	return selected, nil
}

// StepNames lists every demo step in execution order.
func StepNames() []string {
	return []string{StepListTools, StepAnalyzeProject, StepMemoryOperations, StepFileOperations, StepSummarize}
}

// RunDemo initializes o, runs the demo steps and always cleans up. An
// Initialize failure aborts the run; step failures do not. When ctx is
// cancelled mid-run the partial report is returned with ctx.Err().
func RunDemo(ctx context.Context, o *Orchestrator, opts DemoOptions) (report *Report, err error) {
	d := newDemo(opts)
	steps, err := d.steps()
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := o.Cleanup(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if o.State() == StateClosed {
			d.narrator.Info("")
			d.narrator.Success("All servers disconnected")
		}
	}()

	d.narrator.Banner("MULTI-SERVER ORCHESTRATION DEMO", "Powered by the Model Context Protocol Go SDK")
	d.narrator.Info("Initializing orchestrator...")
	if err := o.Initialize(ctx); err != nil {
		d.narrator.Fail("initialization failed: %v", err)
		return nil, err
	}
	d.narrator.Success("Connected to %d MCP servers:", len(o.Sessions()))
	for _, s := range o.Servers() {
		d.narrator.Info("   - %s: %s", s.Name, s.Description)
	}
	if o.LLM() != nil {
		d.narrator.Info("   Language model: %s", o.LLM().Model())
	}
	d.narrator.Info("")

	report = NewRunner(d.narrator).Run(ctx, o, steps)
	d.summary(report)
	return report, ctx.Err()
}

func (d *demo) summary(report *Report) {
	d.narrator.Info("")
	d.narrator.Rule("=")
	if report.OK() {
		d.narrator.Success("ALL DEMONSTRATIONS COMPLETE")
	} else {
		d.narrator.Warn("DEMONSTRATIONS COMPLETE WITH %d FAILED STEP(S)", len(report.Failed()))
	}
	d.narrator.Rule("=")
	d.narrator.Info("Summary (run %s):", report.RunID)
	for _, s := range report.Steps {
		if s.Err != nil {
			d.narrator.Fail("%s: %v", s.Name, s.Err)
		} else {
			d.narrator.Success("%s (%s)", s.Name, s.Duration.Round(time.Millisecond))
		}
	}
	if total := d.totalTools(); total > 0 {
		d.narrator.Info("  %d total tools available across %d servers", total, len(d.tools))
	}
}

func (d *demo) totalTools() int {
	total := 0
	for _, n := range d.tools {
		total += n
	}
	return total
}

func (d *demo) listTools(ctx context.Context, o *Orchestrator) error {
	d.narrator.Section("Available Tools Across All Servers")

	var errs []error
	for _, server := range o.Servers() {
		tools, err := o.ListTools(ctx, server.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		d.tools[server.Name] = len(tools)
		d.narrator.Tools(server.Name, tools)
	}
	return errors.Join(errs...)
}

func (d *demo) analyzeProject(ctx context.Context, o *Orchestrator) error {
	d.narrator.Section("Analyzing Current Project")
	d.narrator.Info("Reading %s...", d.opts.ProjectFile)

	result, err := o.Invoke(ctx, mcp.FilesystemServer, "read_file", map[string]any{
		"path": d.path(d.opts.ProjectFile),
	})
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}

	var manifest struct {
		Name         string         `json:"name"`
		Version      string         `json:"version"`
		Description  string         `json:"description"`
		Dependencies map[string]any `json:"dependencies"`
	}
	if err := result.DecodeJSON(&manifest); err != nil {
		return fmt.Errorf("%s: %w", d.opts.ProjectFile, err)
	}

	var info strings.Builder
	fmt.Fprintf(&info, "Name: %s\nVersion: %s\nDescription: %s\n\nDependencies:\n", manifest.Name, manifest.Version, manifest.Description)
	deps := make([]string, 0, len(manifest.Dependencies))
	for dep := range manifest.Dependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	for _, dep := range deps {
		fmt.Fprintf(&info, "  - %s\n", dep)
	}
	d.narrator.Block("Project Information:", info.String())

	d.narrator.Info("\nStoring project info in knowledge graph...")
	observations := []any{
		"Go project using the MCP Go SDK",
		"Demonstrates multi-server orchestration",
		"Uses Filesystem and Memory MCP servers",
	}
	if manifest.Name != "" {
		observations = append(observations, "Manifest name: "+manifest.Name)
	}
	stored, err := o.Invoke(ctx, mcp.MemoryServer, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{
				"name":         ProjectEntity,
				"entityType":   "project",
				"observations": observations,
			},
		},
	})
	if err != nil {
		return err
	}
	if err := stored.Err(); err != nil {
		return err
	}
	d.narrator.Success("Project information stored in memory")
	return nil
}

func (d *demo) memoryOperations(ctx context.Context, o *Orchestrator) error {
	d.narrator.Section("Demonstrating Memory Operations")

	d.narrator.Info("1. Creating entities in knowledge graph...")
	created, err := o.Invoke(ctx, mcp.MemoryServer, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{
				"name":         "mcp-go-sdk",
				"entityType":   "library",
				"observations": []any{"Official Go SDK for the Model Context Protocol", "Supports stdio and streamable HTTP transports"},
			},
			map[string]any{
				"name":         "language-model",
				"entityType":   "ai-model",
				"observations": []any{"OpenAI-compatible chat model", "Used to summarize the knowledge graph"},
			},
		},
	})
	if err != nil {
		return err
	}
	if err := created.Err(); err != nil {
		return err
	}
	d.narrator.Success("Created 2 entities")

	d.narrator.Info("\n2. Creating relationship between entities...")
	related, err := o.Invoke(ctx, mcp.MemoryServer, "create_relations", map[string]any{
		"relations": []any{
			map[string]any{"from": ProjectEntity, "to": "mcp-go-sdk", "relationType": "uses"},
		},
	})
	if err != nil {
		return err
	}
	if err := related.Err(); err != nil {
		return err
	}
	d.narrator.Success("Created relationship")

	d.narrator.Info("\n3. Reading knowledge graph...")
	graph, err := o.Invoke(ctx, mcp.MemoryServer, "read_graph", map[string]any{})
	if err != nil {
		return err
	}
	if err := graph.Err(); err != nil {
		return err
	}
	if text, ok := graph.Text(); ok {
		d.narrator.Block("Knowledge Graph:", text)
	}
	return nil
}

func (d *demo) fileOperations(ctx context.Context, o *Orchestrator) error {
	d.narrator.Section("Demonstrating File Operations")
	d.narrator.Info("1. Listing project files...")

	listing, err := o.Invoke(ctx, mcp.FilesystemServer, "list_directory", map[string]any{
		"path": d.path("."),
	})
	if err != nil {
		return err
	}
	if err := listing.Err(); err != nil {
		return err
	}
	if text, ok := listing.Text(); ok {
		d.narrator.Block("Project Files:", text)
	}
	return nil
}

const summarizePrompt = "Summarize the following knowledge graph in one short paragraph. " +
	"Mention each entity and how they relate.\n\n%s"

func (d *demo) summarize(ctx context.Context, o *Orchestrator) error {
	if o.LLM() == nil {
		d.narrator.Info("\nLanguage model not configured, skipping summary")
		return nil
	}
	d.narrator.Section("Summarizing Knowledge Graph")

	graph, err := o.Invoke(ctx, mcp.MemoryServer, "read_graph", map[string]any{})
	if err != nil {
		return err
	}
	if err := graph.Err(); err != nil {
		return err
	}
	text, ok := graph.Text()
	if !ok {
		return mcp.ErrNoTextContent
	}

	summary, err := o.LLM().Generate(ctx, "You describe knowledge graphs for developers.", fmt.Sprintf(summarizePrompt, text))
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	d.narrator.Block("Summary:", summary)
	return nil
}
