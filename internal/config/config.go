// Package config handles configuration loading and management for kai.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ShayCichocki/kai/internal/logging"
)

// ProjectConfigName is the project-level override file.
const ProjectConfigName = ".kai.yaml"

// Config holds all configuration for kai.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SCM      SCMConfig      `mapstructure:"scm"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  logging.Config `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// LLMConfig selects and configures the reasoning backend.
type LLMConfig struct {
	// Provider is anthropic or ollama.
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int64  `mapstructure:"max_tokens"`

	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`

	OllamaURL string `mapstructure:"ollama_url"`

	// RequestsPerMinute limits calls to the provider. Zero disables limiting.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// AgentsConfig holds defaults shared by every role.
type AgentsConfig struct {
	MaxIterations       int           `mapstructure:"max_iterations"`
	MaxRetries          int           `mapstructure:"max_retries"`
	ToolTimeout         time.Duration `mapstructure:"tool_timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	TokenBudget         int           `mapstructure:"token_budget"`
	// RolesFile overrides per-role settings. Missing files are ignored.
	RolesFile string `mapstructure:"roles_file"`
	// Workdir is the sandbox root for the file_system tool.
	Workdir string `mapstructure:"workdir"`
}

// MemoryConfig selects the episodic store and embedder.
type MemoryConfig struct {
	// Backend is chromem, qdrant or none.
	Backend string `mapstructure:"backend"`
	// Path persists the chromem database. Empty keeps it in memory.
	Path     string         `mapstructure:"path"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
}

// QdrantConfig locates a Qdrant server.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	UseTLS     bool   `mapstructure:"use_tls"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// EmbedderConfig selects how episode text is embedded.
type EmbedderConfig struct {
	// Provider is hash or openai (any OpenAI compatible endpoint).
	Provider   string `mapstructure:"provider"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Token      string `mapstructure:"token"`
	Dimensions int    `mapstructure:"dimensions"`
}

// StorageConfig locates the pipeline database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
	// InMemory skips SQLite entirely.
	InMemory bool `mapstructure:"in_memory"`
}

// SCMConfig configures branches and pull requests.
type SCMConfig struct {
	RepoPath    string `mapstructure:"repo_path"`
	GitHubToken string `mapstructure:"github_token"`
	// GitHubRepo is owner/name or a github.com URL.
	GitHubRepo string `mapstructure:"github_repo"`
}

// EventsConfig configures event delivery.
type EventsConfig struct {
	// NATSURL enables publishing when set.
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	BufferSize    int    `mapstructure:"buffer_size"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// PipelineConfig configures the delivery pipeline.
type PipelineConfig struct {
	BaseBranch string `mapstructure:"base_branch"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GITHUB_TOKEN, KAI_*), including .env
// 2. Project config (.kai.yaml in current directory or parent)
// 3. User config (~/.config/kai/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		pv := viper.New()
		pv.SetConfigFile(projectConfig)
		if err := pv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file on top of defaults.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	cfg.SCM.GitHubToken = os.ExpandEnv(cfg.SCM.GitHubToken)
	cfg.Memory.Qdrant.APIKey = os.ExpandEnv(cfg.Memory.Qdrant.APIKey)
	cfg.Memory.Embedder.Token = os.ExpandEnv(cfg.Memory.Embedder.Token)
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("KAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "ANTHROPIC_API_KEY", "KAI_LLM_API_KEY")
	_ = v.BindEnv("scm.github_token", "GITHUB_TOKEN", "KAI_SCM_GITHUB_TOKEN")
	_ = v.BindEnv("llm.provider", "KAI_LLM_PROVIDER")
	_ = v.BindEnv("llm.model", "KAI_LLM_MODEL")
	_ = v.BindEnv("storage.path", "KAI_STORAGE_PATH")
	_ = v.BindEnv("events.nats_url", "KAI_NATS_URL", "NATS_URL")
	_ = v.BindEnv("logging.level", "KAI_LOG_LEVEL")
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.requests_per_minute", 50)
	v.SetDefault("llm.burst", 5)

	v.SetDefault("agents.max_iterations", 10)
	v.SetDefault("agents.max_retries", 3)
	v.SetDefault("agents.tool_timeout", "30s")
	v.SetDefault("agents.confidence_threshold", 0.7)
	v.SetDefault("agents.token_budget", 50000)
	v.SetDefault("agents.roles_file", filepath.Join("configs", "roles.yaml"))
	v.SetDefault("agents.workdir", ".")

	v.SetDefault("memory.backend", "chromem")
	v.SetDefault("memory.path", filepath.Join(".kai", "memory"))
	v.SetDefault("memory.qdrant.host", "localhost")
	v.SetDefault("memory.qdrant.port", 6334)
	v.SetDefault("memory.qdrant.collection", "kai_episodes")
	v.SetDefault("memory.embedder.provider", "hash")
	v.SetDefault("memory.embedder.dimensions", 384)

	v.SetDefault("storage.path", filepath.Join(".kai", "kai.db"))
	v.SetDefault("storage.in_memory", false)

	v.SetDefault("scm.repo_path", ".")

	v.SetDefault("events.subject_prefix", "kai.events")
	v.SetDefault("events.buffer_size", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("pipeline.base_branch", "main")
}

// getUserConfigDir returns the XDG config directory for kai.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kai")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kai")
	}
	return filepath.Join(home, ".config", "kai")
}

// findProjectConfig searches for .kai.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}

// Default returns a Config with default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(err)
	}
	return cfg
}
