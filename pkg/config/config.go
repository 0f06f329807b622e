package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/liliang-cn/mcp-orchestrator/pkg/llm"
	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
	"github.com/liliang-cn/mcp-orchestrator/pkg/memory"
)

// FileName is the config file looked up in the working directory and home.
const FileName = "orchestrator.toml"

type Config struct {
	Home        string       `mapstructure:"home" toml:"home"`
	Debug       bool         `mapstructure:"debug" toml:"debug"`
	LogFormat   string       `mapstructure:"log_format" toml:"log_format"`
	ServersFile string       `mapstructure:"servers_file" toml:"servers_file"`
	Builtin     bool         `mapstructure:"builtin" toml:"builtin"`
	Memory      MemoryConfig `mapstructure:"memory" toml:"memory"`
	Demo        DemoConfig   `mapstructure:"demo" toml:"demo"`
	LLM         llm.Config   `mapstructure:"llm" toml:"llm"`
}

// MemoryConfig selects the backing store of the built-in memory server.
type MemoryConfig struct {
	Store string `mapstructure:"store" toml:"store"`
	Path  string `mapstructure:"path" toml:"path"`
}

// DemoConfig tunes the demonstration run.
type DemoConfig struct {
	ProjectFile string   `mapstructure:"project_file" toml:"project_file"`
	Steps       []string `mapstructure:"steps" toml:"steps"`
}

// Load reads configPath, or the first orchestrator.toml found in the working
// directory or the home directory. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	home := os.Getenv("ORCHESTRATOR_HOME")
	if home == "" {
		home = "~/.orchestrator"
	}
	home = expandHomePath(home)

	explicit := configPath != ""
	if explicit {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path %s: %w", configPath, err)
		}
		v.SetConfigFile(absPath)
	} else if _, err := os.Stat(FileName); err == nil {
		abs, _ := filepath.Abs(FileName)
		v.SetConfigFile(abs)
	} else {
		v.SetConfigFile(filepath.Join(home, FileName))
	}
	v.SetConfigType("toml")

	setDefaults(v, home)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		// If default config doesn't exist, we continue with defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Home = expandHomePath(cfg.Home)
	cfg.ServersFile = expandHomePath(cfg.ServersFile)
	cfg.Memory.Path = expandHomePath(cfg.Memory.Path)
	cfg.resolveMemoryPath()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v, expandHomePath("~/.orchestrator"))
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.resolveMemoryPath()
	return cfg
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("home", home)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("servers_file", "")
	v.SetDefault("builtin", false)

	v.SetDefault("memory.store", memory.StoreMemory)
	v.SetDefault("memory.path", "")

	v.SetDefault("demo.project_file", "package.json")
	v.SetDefault("demo.steps", []string{})

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 60*time.Second)
}

func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix("ORCHESTRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"home":         {"ORCHESTRATOR_HOME"},
		"llm.api_key":  {"ORCHESTRATOR_LLM_API_KEY", "OPENAI_API_KEY"},
		"llm.base_url": {"ORCHESTRATOR_LLM_BASE_URL", "OPENAI_BASE_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s env var: %w", key, err)
		}
	}
	return nil
}

func (c *Config) resolveMemoryPath() {
	if c.Memory.Path != "" {
		return
	}
	switch c.Memory.Store {
	case memory.StoreFile:
		c.Memory.Path = filepath.Join(c.Home, "memory.jsonl")
	case memory.StoreSQLite:
		c.Memory.Path = filepath.Join(c.Home, "memory.db")
	}
}

func (c *Config) Validate() error {
	validStores := map[string]bool{memory.StoreMemory: true, memory.StoreFile: true, memory.StoreSQLite: true}
	if !validStores[strings.ToLower(c.Memory.Store)] {
		return fmt.Errorf("invalid memory.store: %s (supported: memory, file, sqlite)", c.Memory.Store)
	}

	validFormats := map[string]bool{"text": true, "json": true, "": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", c.LogFormat)
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2: %v", *t)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be non-negative: %d", c.LLM.MaxTokens)
	}
	return nil
}

// Servers returns the endpoint map: the servers file when configured,
// otherwise the default filesystem and memory endpoints rooted at cwd.
func (c *Config) Servers(cwd string) ([]mcp.ServerConfig, error) {
	if c.ServersFile == "" {
		return mcp.DefaultServers(cwd), nil
	}
	return mcp.LoadServersFromJSON(c.ServersFile)
}

// MemoryStore opens the store selected by memory.store.
func (c *Config) MemoryStore() (memory.Store, error) {
	return memory.NewStore(c.Memory.Store, c.Memory.Path)
}

// WriteFile encodes c as TOML at path, refusing to overwrite unless force.
func (c *Config) WriteFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandHomePath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}
