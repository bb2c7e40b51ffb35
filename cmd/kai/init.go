package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/config"
	"github.com/ShayCichocki/kai/internal/logging"
	"github.com/ShayCichocki/kai/internal/notify"
	"github.com/ShayCichocki/kai/internal/scm"
)

var (
	initForce       bool
	initNoGit       bool
	initWithConfigs bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a KAI project",
	Long: `Initialize a directory for use with KAI.

This command sets up everything needed to run KAI:
  - Initializes a git repository if needed
  - Creates the .kai workspace (decisions.md, signals, logs)
  - Adds KAI entries to .gitignore
  - Optionally writes configs/roles.yaml and a .kai.yaml template

Examples:
  kai init                 # Initialize current directory
  kai init ./myproject     # Initialize specific directory
  kai init --with-configs  # Also write example configuration`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initNoGit, "no-git", false, "Skip git initialization")
	initCmd.Flags().BoolVar(&initWithConfigs, "with-configs", false, "Write configs/roles.yaml and .kai.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Fprintf(out, "Initializing KAI in %s...\n\n", absPath)

	kaiDir := filepath.Join(absPath, notify.DirName)
	if _, err := os.Stat(kaiDir); err == nil && !initForce {
		fmt.Fprintln(out, "Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	switch config.GetAPIKeySource(nil) {
	case config.KeySourceNone:
		printStatus(out, "⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	default:
		printStatus(out, "✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	if !initNoGit {
		if err := initGitRepo(out, absPath); err != nil {
			return err
		}
	}

	ws, err := notify.Open(absPath, nil)
	if err != nil {
		return err
	}
	ws.Close()
	decisions := ws.DecisionsPath()
	if err := os.MkdirAll(filepath.Dir(logging.RepoLogPath(absPath)), 0755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}
	printStatus(out, "✓", "Created .kai workspace ("+filepath.Base(decisions)+")", color.FgGreen)

	if !initNoGit {
		if err := updateGitignore(absPath); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		printStatus(out, "✓", "Updated .gitignore with KAI entries", color.FgGreen)
	}

	if initWithConfigs {
		if err := writeIfMissing(filepath.Join(absPath, "configs", "roles.yaml"), rolesTemplate); err != nil {
			return err
		}
		printStatus(out, "✓", "Created configs/roles.yaml", color.FgGreen)
		if err := writeIfMissing(filepath.Join(absPath, config.ProjectConfigName), projectConfigTemplate); err != nil {
			return err
		}
		printStatus(out, "✓", "Created .kai.yaml template", color.FgGreen)
	}

	fmt.Fprintf(out, "\n%s KAI initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  kai run \"your request here\"")
	fmt.Fprintln(out, "  kai project create <name> -d \"what to build\"")
	return nil
}

// initGitRepo opens or creates the repository at repoPath.
func initGitRepo(out io.Writer, repoPath string) error {
	_, err := git.PlainOpen(repoPath)
	if err == nil {
		msg := "Git repository exists"
		if branch, err := scm.NewGitRepo(repoPath).CurrentBranch(); err == nil && branch != "" {
			msg += " (on " + branch + ")"
		}
		printStatus(out, "✓", msg, color.FgGreen)
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return fmt.Errorf("open repository: %w", err)
	}
	if _, err := git.PlainInit(repoPath, false); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	printStatus(out, "✓", "Initialized git repository", color.FgGreen)
	return nil
}

var gitignoreEntries = []string{
	".kai/kai.db*",
	".kai/logs/",
	".kai/memory/",
	".kai/signals/",
}

// updateGitignore adds KAI entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	path := filepath.Join(repoPath, ".gitignore")
	var existing string
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range gitignoreEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(existing)
	if len(existing) > 0 && !strings.HasSuffix(existing, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n# KAI\n")
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

const projectConfigTemplate = `# KAI project configuration
# Overrides ~/.config/kai/config.yaml

# llm:
#   provider: anthropic        # or ollama
#   model: claude-sonnet-4-20250514
#   requests_per_minute: 50

# agents:
#   max_iterations: 10
#   roles_file: configs/roles.yaml

# memory:
#   backend: chromem           # chromem, qdrant or none

# scm:
#   github_repo: owner/name

# events:
#   nats_url: nats://localhost:4222

# pipeline:
#   base_branch: main
`

const rolesTemplate = `# Per-role agent overrides. Zero values keep the built-in defaults.
roles:
  PLANNER:
    maxIterations: 5
    confidenceThreshold: 0.6
    tools: [file_system]
  CODE_WRITER:
    maxIterations: 12
    tools: [file_system, go_compile]
  REVIEWER:
    maxIterations: 6
    confidenceThreshold: 0.8
    tools: [file_system, go_compile]
  FIXER:
    maxIterations: 8
    maxRetries: 5
    tools: [file_system, go_compile]
  TESTER:
    maxIterations: 8
    tools: [file_system, go_compile, run_tests]
  RESEARCHER:
    maxIterations: 8
    confidenceThreshold: 0.6
    tools: [file_system]
`
