// Package verify checks agent output before it is accepted: static
// compilation, secret scanning, a model judgment and test execution.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Judge answers a plain chat prompt. llm.Reasoner satisfies it.
type Judge interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Options configures a Gate.
type Options struct {
	Judge Judge
	// Tools supplies go_compile and run_tests. Missing tools skip their layer.
	Tools *tools.Registry
	// Secrets is optional.
	Secrets SecretScanner
	Logger  *zap.Logger
}

// Gate runs every verification layer and accumulates their findings.
type Gate struct {
	judge   Judge
	tools   *tools.Registry
	secrets SecretScanner
	logger  *zap.Logger
}

// NewGate creates a verification gate.
func NewGate(opts Options) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		judge:   opts.Judge,
		tools:   opts.Tools,
		secrets: opts.Secrets,
		logger:  logger.Named("verify"),
	}
}

// Verify checks answer as the result of step. Tool and judge failures
// never surface as errors: they are logged and the layer degrades.
func (g *Gate) Verify(ctx context.Context, step models.PlanStep, answer *models.Answer) models.VerificationResult {
	result := models.VerificationResult{Issues: []models.Issue{}, Suggestions: []string{}}
	if answer == nil {
		answer = &models.Answer{}
	}

	result.Issues = append(result.Issues, g.compileCheck(ctx, answer.Artifacts)...)
	result.Issues = append(result.Issues, g.secretScan(answer.Artifacts)...)

	judgment := g.judgeStep(ctx, step, answer)
	result.Score = judgment.Score
	result.Issues = append(result.Issues, judgment.Issues...)
	result.Suggestions = append(result.Suggestions, judgment.Suggestions...)

	result.Issues = append(result.Issues, g.runTests(ctx, answer.Artifacts)...)

	outcome := "failed"
	if result.Passed() {
		outcome = "passed"
	}
	metrics.VerificationResults.WithLabelValues(outcome).Inc()
	g.logger.Info("verification finished",
		zap.String("step", step.ID),
		zap.String("result", outcome),
		zap.Float64("score", result.Score),
		zap.Int("issues", len(result.Issues)))
	return result
}

// IsGoSource reports whether an artifact should be compile-checked.
func IsGoSource(a models.CodeArtifact) bool {
	lang := strings.ToLower(a.Language)
	return lang == "go" || lang == "golang" || strings.HasSuffix(a.Filename, ".go")
}

// IsTestFile reports whether a file name looks like a test.
func IsTestFile(name string) bool {
	return strings.Contains(name, "_test") || strings.Contains(name, "Test")
}

func (g *Gate) compileCheck(ctx context.Context, artifacts []models.CodeArtifact) []models.Issue {
	tool, ok := g.tools.Get(tools.GoCompileName)
	if !ok {
		return nil
	}
	var issues []models.Issue
	for _, a := range artifacts {
		if !IsGoSource(a) {
			continue
		}
		res, err := tool.Execute(ctx, map[string]string{"code": a.Content, "filename": a.Filename})
		if err != nil {
			g.logger.Warn("compile check failed to run", zap.String("file", a.Filename), zap.Error(err))
			continue
		}
		if f, ok := res.(models.Failure); ok {
			issues = append(issues, models.Issue{
				Severity:    models.SeverityCritical,
				Description: "compile error: " + f.Error,
				Location:    a.Filename,
			})
		}
	}
	return issues
}

func (g *Gate) secretScan(artifacts []models.CodeArtifact) []models.Issue {
	if g.secrets == nil {
		return nil
	}
	var issues []models.Issue
	for _, a := range artifacts {
		findings, err := g.secrets.Scan(a.Filename, a.Content)
		if err != nil {
			g.logger.Warn("secret scan failed", zap.String("file", a.Filename), zap.Error(err))
			continue
		}
		for _, f := range findings {
			issues = append(issues, models.Issue{
				Severity:    models.SeverityCritical,
				Description: "possible secret: " + f.Description,
				Location:    fmt.Sprintf("%s:%d", a.Filename, f.Line),
			})
		}
	}
	return issues
}

func (g *Gate) runTests(ctx context.Context, artifacts []models.CodeArtifact) []models.Issue {
	var source, test *models.CodeArtifact
	for i := range artifacts {
		a := &artifacts[i]
		if IsTestFile(a.Filename) {
			if test == nil {
				test = a
			}
		} else if source == nil {
			source = a
		}
	}
	if source == nil || test == nil {
		return nil
	}
	tool, ok := g.tools.Get(tools.RunTestsName)
	if !ok {
		return nil
	}

	res, err := tool.Execute(ctx, map[string]string{
		"source_code":     source.Content,
		"test_code":       test.Content,
		"source_filename": source.Filename,
		"test_filename":   test.Filename,
	})
	if err != nil {
		g.logger.Warn("test run failed to start", zap.Error(err))
		return nil
	}
	if f, ok := res.(models.Failure); ok {
		return []models.Issue{{
			Severity:    models.SeverityCritical,
			Description: "tests failed: " + f.Error,
			Location:    test.Filename,
		}}
	}
	return nil
}
