package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// FilesystemServer and MemoryServer are the endpoint names used by the demo.
	FilesystemServer = "filesystem"
	MemoryServer     = "memory"
)

// SimpleServerConfig is one entry of an mcpServers.json file.
type SimpleServerConfig struct {
	Type        string            `json:"type,omitempty"`
	Description string            `json:"description,omitempty"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	WorkingDir  string            `json:"workingDir,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

// JSONServersConfig is the {"mcpServers": {...}} document shared with
// Claude Desktop style clients.
type JSONServersConfig struct {
	MCPServers map[string]SimpleServerConfig `json:"mcpServers"`
}

// DefaultServers returns the filesystem and memory endpoints launched through npx.
// The filesystem server is rooted at cwd.
func DefaultServers(cwd string) []ServerConfig {
	return []ServerConfig{
		{
			Name:        FilesystemServer,
			Description: "Local file operations",
			Type:        ServerTypeStdio,
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-filesystem", cwd},
		},
		{
			Name:        MemoryServer,
			Description: "Knowledge graph storage",
			Type:        ServerTypeStdio,
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-memory"},
		},
	}
}

// LoadServersFromJSON reads an mcpServers.json file.
func LoadServersFromJSON(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers file %s: %w", path, err)
	}
	servers, err := ParseServersJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid servers file %s: %w", path, err)
	}
	return servers, nil
}

// ParseServersJSON decodes an mcpServers document. Servers are returned
// sorted by name so session creation order is stable.
func ParseServersJSON(data []byte) ([]ServerConfig, error) {
	var doc JSONServersConfig
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse servers JSON: %w", err)
	}
	if len(doc.MCPServers) == 0 {
		return nil, fmt.Errorf("no servers defined under mcpServers")
	}

	names := make([]string, 0, len(doc.MCPServers))
	for name := range doc.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make([]ServerConfig, 0, len(names))
	for _, name := range names {
		cfg, err := SimpleToServerConfig(name, doc.MCPServers[name])
		if err != nil {
			return nil, err
		}
		servers = append(servers, cfg)
	}
	return servers, nil
}

// SaveServersJSON writes servers in mcpServers format. In-process servers
// are skipped since they cannot be described by a launch command.
func SaveServersJSON(path string, servers []ServerConfig) error {
	doc := JSONServersConfig{MCPServers: make(map[string]SimpleServerConfig, len(servers))}
	for _, s := range servers {
		if s.Type == ServerTypeInProcess {
			continue
		}
		doc.MCPServers[s.Name] = ServerConfigToSimple(s)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal servers: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write servers file: %w", err)
	}
	return nil
}

// SimpleToServerConfig converts a JSON entry, inferring http when only a
// url is given.
func SimpleToServerConfig(name string, simple SimpleServerConfig) (ServerConfig, error) {
	serverType := ServerTypeStdio
	if simple.Type != "" {
		serverType = ServerType(simple.Type)
	} else if simple.URL != "" {
		serverType = ServerTypeHTTP
	}

	cfg := ServerConfig{
		Name:        name,
		Description: simple.Description,
		Type:        serverType,
		Command:     simple.Command,
		Args:        simple.Args,
		URL:         simple.URL,
		Headers:     simple.Headers,
		WorkingDir:  simple.WorkingDir,
		Env:         simple.Env,
	}
	if cfg.Description == "" {
		cfg.Description = fmt.Sprintf("MCP server: %s", name)
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ServerConfigToSimple converts a ServerConfig for JSON storage.
func ServerConfigToSimple(cfg ServerConfig) SimpleServerConfig {
	return SimpleServerConfig{
		Type:        string(cfg.Type),
		Description: cfg.Description,
		Command:     cfg.Command,
		Args:        cfg.Args,
		URL:         cfg.URL,
		Headers:     cfg.Headers,
		WorkingDir:  cfg.WorkingDir,
		Env:         cfg.Env,
	}
}

// Validate checks that the endpoint can be launched or reached.
func (c ServerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("server name is required")
	}
	switch c.Type {
	case ServerTypeStdio, "":
		if c.Command == "" {
			return fmt.Errorf("stdio server %s requires a command", c.Name)
		}
	case ServerTypeHTTP:
		if c.URL == "" {
			return fmt.Errorf("http server %s requires a url", c.Name)
		}
	case ServerTypeInProcess:
		// Server is attached programmatically and may be nil when
		// the config is only being described.
	default:
		return fmt.Errorf("unsupported server type %q for %s", c.Type, c.Name)
	}
	return nil
}
