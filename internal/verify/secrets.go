package verify

import (
	"fmt"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// SecretFinding is one suspected secret in an artifact.
type SecretFinding struct {
	RuleID      string
	Description string
	Line        int
}

// SecretScanner finds credentials in generated files.
type SecretScanner interface {
	Scan(filename, content string) ([]SecretFinding, error)
}

// GitleaksScanner scans with the default gitleaks rule set.
type GitleaksScanner struct{}

// Scan implements SecretScanner. A fresh detector is used per call so
// findings never leak between artifacts.
func (GitleaksScanner) Scan(filename, content string) ([]SecretFinding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("load gitleaks config: %w", err)
	}
	found := detector.DetectString(content)
	out := make([]SecretFinding, 0, len(found))
	for _, f := range found {
		out = append(out, SecretFinding{RuleID: f.RuleID, Description: f.Description, Line: f.StartLine})
	}
	return out, nil
}

var _ SecretScanner = GitleaksScanner{}
