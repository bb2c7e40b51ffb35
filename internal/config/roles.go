package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/kai/pkg/models"
)

// RoleProfile overrides agent settings for one role. Zero values keep
// the built-in default.
type RoleProfile struct {
	MaxIterations       int           `yaml:"maxIterations"`
	MaxRetries          int           `yaml:"maxRetries"`
	ToolTimeout         time.Duration `yaml:"toolTimeout"`
	ConfidenceThreshold float64       `yaml:"confidenceThreshold"`
	Tools               []string      `yaml:"tools"`
	// Instructions replaces the built-in role prompt when set.
	Instructions string `yaml:"instructions"`
}

type rolesFile struct {
	Roles map[string]RoleProfile `yaml:"roles"`
}

// LoadRoleProfiles reads role overrides from a YAML file. A missing
// file yields an empty map.
func LoadRoleProfiles(path string) (map[models.Role]RoleProfile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[models.Role]RoleProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read role profiles: %w", err)
	}
	return ParseRoleProfiles(data)
}

// ParseRoleProfiles decodes role overrides keyed by role name.
func ParseRoleProfiles(data []byte) (map[models.Role]RoleProfile, error) {
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse role profiles: %w", err)
	}
	out := make(map[models.Role]RoleProfile, len(f.Roles))
	for name, p := range f.Roles {
		role, err := models.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("parse role profiles: %w", err)
		}
		if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
			return nil, fmt.Errorf("role %s: confidenceThreshold %v out of range", role, p.ConfidenceThreshold)
		}
		out[role] = p
	}
	return out, nil
}
