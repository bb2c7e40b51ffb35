package agent

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/config"
	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Profile is the built-in tool set and limits of a role.
type Profile struct {
	Tools  []string
	Config Config
}

// DefaultProfiles returns the built-in profile of every role.
func DefaultProfiles() map[models.Role]Profile {
	fs, compile, test := tools.FileSystemName, tools.GoCompileName, tools.RunTestsName
	return map[models.Role]Profile{
		models.RolePlanner:    {Tools: []string{fs}, Config: Config{MaxIterations: 5, ConfidenceThreshold: 0.6}},
		models.RoleCodeWriter: {Tools: []string{fs, compile}, Config: Config{MaxIterations: 12}},
		models.RoleReviewer:   {Tools: []string{fs, compile}, Config: Config{MaxIterations: 6, ConfidenceThreshold: 0.8}},
		models.RoleFixer:      {Tools: []string{fs, compile}, Config: Config{MaxIterations: 8, MaxRetries: 5}},
		models.RoleTester:     {Tools: []string{fs, compile, test}, Config: Config{MaxIterations: 8}},
		models.RoleResearcher: {Tools: []string{fs}, Config: Config{MaxIterations: 8, ConfidenceThreshold: 0.6}},
	}
}

// Factory builds one agent per role from shared collaborators.
type Factory struct {
	Reasoner llm.Reasoner
	Memory   memory.Layer
	// Tools is the full catalogue; each role gets a subset.
	Tools *tools.Registry
	// Defaults apply to every role before the role profile.
	Defaults Config
	// Overrides come from the role profiles file.
	Overrides map[models.Role]config.RoleProfile
	Prompts   PromptBuilder
	Decisions DecisionSource
	Logger    *zap.Logger
}

// ConfigFromSettings converts the agents section of the configuration.
func ConfigFromSettings(c config.AgentsConfig) Config {
	return Config{
		MaxIterations:       c.MaxIterations,
		MaxRetries:          c.MaxRetries,
		ToolTimeout:         c.ToolTimeout,
		ConfidenceThreshold: c.ConfidenceThreshold,
		TokenBudget:         c.TokenBudget,
	}
}

// Build creates the agent for role. Limits are layered: DefaultConfig,
// then Defaults, then the built-in role profile, then Overrides.
func (f *Factory) Build(role models.Role) (*Agent, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("build agent: unknown role %q", role)
	}
	profile := DefaultProfiles()[role]
	cfg := DefaultConfig().merge(f.Defaults).merge(profile.Config)
	toolNames := profile.Tools
	var instructions string

	if o, ok := f.Overrides[role]; ok {
		cfg = cfg.merge(Config{
			MaxIterations:       o.MaxIterations,
			MaxRetries:          o.MaxRetries,
			ToolTimeout:         o.ToolTimeout,
			ConfidenceThreshold: o.ConfidenceThreshold,
		})
		if len(o.Tools) > 0 {
			toolNames = o.Tools
		}
		instructions = o.Instructions
	}

	registry, err := f.Tools.Subset(toolNames...)
	if err != nil {
		return nil, fmt.Errorf("build %s agent: %w", role, err)
	}

	return New(Options{
		Role:         role,
		Reasoner:     f.Reasoner,
		Tools:        registry,
		Memory:       f.Memory,
		Config:       cfg,
		Prompts:      f.Prompts,
		Instructions: instructions,
		Decisions:    f.Decisions,
		Logger:       f.Logger,
	}), nil
}

// BuildAll creates an agent for every role.
func (f *Factory) BuildAll() (map[models.Role]*Agent, error) {
	agents := make(map[models.Role]*Agent, len(models.AllRoles))
	for _, role := range models.AllRoles {
		a, err := f.Build(role)
		if err != nil {
			return nil, err
		}
		agents[role] = a
	}
	return agents, nil
}
