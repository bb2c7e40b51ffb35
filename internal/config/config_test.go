package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/kai/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Agents.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.Agents.MaxIterations)
	}
	if cfg.Agents.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Agents.MaxRetries)
	}
	if cfg.Agents.ToolTimeout != 30*time.Second {
		t.Errorf("ToolTimeout = %v, want 30s", cfg.Agents.ToolTimeout)
	}
	if cfg.Agents.ConfidenceThreshold != 0.7 {
		t.Errorf("ConfidenceThreshold = %v, want 0.7", cfg.Agents.ConfidenceThreshold)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cfg.LLM.Provider)
	}
	if cfg.Pipeline.BaseBranch != "main" {
		t.Errorf("BaseBranch = %q, want main", cfg.Pipeline.BaseBranch)
	}
	if cfg.Memory.Embedder.Dimensions != 384 {
		t.Errorf("Dimensions = %d, want 384", cfg.Memory.Embedder.Dimensions)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: ollama
  model: llama3.1
agents:
  max_iterations: 4
  tool_timeout: 5s
storage:
  in_memory: true
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3.1" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Agents.MaxIterations != 4 {
		t.Errorf("MaxIterations = %d, want 4", cfg.Agents.MaxIterations)
	}
	if cfg.Agents.ToolTimeout != 5*time.Second {
		t.Errorf("ToolTimeout = %v, want 5s", cfg.Agents.ToolTimeout)
	}
	// Unset values keep defaults.
	if cfg.Agents.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Agents.MaxRetries)
	}
	if !cfg.Storage.InMemory {
		t.Error("InMemory = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromPath_ExpandsEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MY_GH_TOKEN", "ghp_secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scm:\n  github_token: ${MY_GH_TOKEN}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SCM.GitHubToken != "ghp_secret" {
		t.Errorf("GitHubToken = %q", cfg.SCM.GitHubToken)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, ProjectConfigName)
	if err := os.WriteFile(want, []byte("llm:\n  model: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	got := findProjectConfig()
	gotEval, _ := filepath.EvalSymlinks(got)
	wantEval, _ := filepath.EvalSymlinks(want)
	if gotEval != wantEval {
		t.Errorf("findProjectConfig() = %q, want %q", got, want)
	}
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := GetUserConfigPath(); got != filepath.Join("/tmp/xdg", "kai", "config.yaml") {
		t.Errorf("GetUserConfigPath() = %q", got)
	}
}

func TestParseRoleProfiles(t *testing.T) {
	data := []byte(`
roles:
  code_writer:
    maxIterations: 20
    toolTimeout: 1m
    tools: [file_system, go_compile]
  REVIEWER:
    confidenceThreshold: 0.9
`)
	profiles, err := ParseRoleProfiles(data)
	if err != nil {
		t.Fatalf("ParseRoleProfiles: %v", err)
	}
	cw := profiles[models.RoleCodeWriter]
	if cw.MaxIterations != 20 || cw.ToolTimeout != time.Minute || len(cw.Tools) != 2 {
		t.Errorf("code writer profile = %+v", cw)
	}
	if profiles[models.RoleReviewer].ConfidenceThreshold != 0.9 {
		t.Errorf("reviewer profile = %+v", profiles[models.RoleReviewer])
	}
}

func TestParseRoleProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown role", "roles:\n  janitor:\n    maxIterations: 2\n"},
		{"bad threshold", "roles:\n  planner:\n    confidenceThreshold: 2\n"},
		{"bad yaml", "roles: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRoleProfiles([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadRoleProfiles_MissingFile(t *testing.T) {
	profiles, err := LoadRoleProfiles(filepath.Join(t.TempDir(), "roles.yaml"))
	if err != nil {
		t.Fatalf("LoadRoleProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(profiles))
	}
}
