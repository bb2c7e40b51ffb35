package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the user config
(~/.config/kai/config.yaml), the project .kai.yaml and environment
variables have been applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		displayAllConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func masked(s string) string {
	if s == "" {
		return "(not set)"
	}
	return config.MaskAPIKey(s)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	key, _ := config.GetAPIKey(cfg)
	fmt.Fprintf(w, "config.user: %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Fprintf(w, "config.project: %s\n", p)
	}
	fmt.Fprintf(w, "llm.provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "llm.model: %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "llm.api_key: %s (%s)\n", masked(key), config.GetAPIKeySource(cfg))
	if key != "" {
		if err := config.ValidateAPIKey(key); err != nil {
			fmt.Fprintf(w, "  warning: %v\n", err)
		}
	}
	fmt.Fprintf(w, "llm.use_bedrock: %t\n", cfg.LLM.UseBedrock)
	fmt.Fprintf(w, "llm.requests_per_minute: %g\n", cfg.LLM.RequestsPerMinute)
	fmt.Fprintf(w, "agents.max_iterations: %d\n", cfg.Agents.MaxIterations)
	fmt.Fprintf(w, "agents.max_retries: %d\n", cfg.Agents.MaxRetries)
	fmt.Fprintf(w, "agents.tool_timeout: %s\n", cfg.Agents.ToolTimeout)
	fmt.Fprintf(w, "agents.confidence_threshold: %g\n", cfg.Agents.ConfidenceThreshold)
	fmt.Fprintf(w, "agents.roles_file: %s\n", cfg.Agents.RolesFile)
	fmt.Fprintf(w, "memory.backend: %s\n", cfg.Memory.Backend)
	fmt.Fprintf(w, "memory.embedder.provider: %s\n", cfg.Memory.Embedder.Provider)
	fmt.Fprintf(w, "storage.path: %s\n", cfg.Storage.Path)
	fmt.Fprintf(w, "storage.in_memory: %t\n", cfg.Storage.InMemory)
	fmt.Fprintf(w, "scm.repo_path: %s\n", cfg.SCM.RepoPath)
	fmt.Fprintf(w, "scm.github_repo: %s\n", cfg.SCM.GitHubRepo)
	fmt.Fprintf(w, "scm.github_token: %s\n", masked(cfg.SCM.GitHubToken))
	fmt.Fprintf(w, "events.nats_url: %s\n", cfg.Events.NATSURL)
	fmt.Fprintf(w, "logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "metrics.addr: %s\n", cfg.Metrics.Addr)
	fmt.Fprintf(w, "pipeline.base_branch: %s\n", cfg.Pipeline.BaseBranch)
}
