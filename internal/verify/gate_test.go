package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

type fakeJudge struct {
	reply string
	err   error
	user  string
}

func (f *fakeJudge) Chat(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}

type fakeTool struct {
	name   string
	result models.ToolResult
	err    error
	calls  []map[string]string
}

func (f *fakeTool) Name() string                   { return f.name }
func (f *fakeTool) Description() string            { return "fake" }
func (f *fakeTool) Parameters() []tools.Parameter { return nil }
func (f *fakeTool) Execute(_ context.Context, in map[string]string) (models.ToolResult, error) {
	f.calls = append(f.calls, in)
	return f.result, f.err
}

type fakeScanner struct {
	findings map[string][]SecretFinding
}

func (f fakeScanner) Scan(filename, _ string) ([]SecretFinding, error) {
	return f.findings[filename], nil
}

var step = models.PlanStep{ID: "step_1", Description: "write a cache", AssignedRole: models.RoleCodeWriter}

func TestVerify_JudgeOnlyPasses(t *testing.T) {
	judge := &fakeJudge{reply: "```json\n{\"score\": 0.9, \"issues\": [\"name is vague\"], \"suggestions\": [\"rename\"]}\n```"}
	g := NewGate(Options{Judge: judge})

	res := g.Verify(context.Background(), step, &models.Answer{Content: "done"})

	assert.Equal(t, 0.9, res.Score)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.SeverityWarning, res.Issues[0].Severity)
	assert.Equal(t, []string{"rename"}, res.Suggestions)
	assert.True(t, res.Passed())
	assert.Contains(t, judge.user, "write a cache")
}

func TestVerify_CompileFailureIsCritical(t *testing.T) {
	compile := &fakeTool{name: tools.GoCompileName, result: models.Failure{Error: "undefined: x"}}
	g := NewGate(Options{
		Judge: &fakeJudge{reply: `{"score": 1.0}`},
		Tools: tools.NewRegistry(compile),
	})
	answer := &models.Answer{Artifacts: []models.CodeArtifact{
		models.NewArtifact("cache.go", "go", "package cache"),
		models.NewArtifact("notes.md", "markdown", "# notes"),
	}}

	res := g.Verify(context.Background(), step, answer)

	require.Len(t, compile.calls, 1)
	assert.Equal(t, "cache.go", compile.calls[0]["filename"])
	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.SeverityCritical, res.Issues[0].Severity)
	assert.Equal(t, "compile error: undefined: x", res.Issues[0].Description)
	assert.Equal(t, "cache.go", res.Issues[0].Location)
	assert.False(t, res.Passed())
}

func TestVerify_CompileToolErrorIsSkipped(t *testing.T) {
	compile := &fakeTool{name: tools.GoCompileName, err: errors.New("no disk")}
	g := NewGate(Options{Judge: &fakeJudge{reply: `{"score": 0.8}`}, Tools: tools.NewRegistry(compile)})

	res := g.Verify(context.Background(), step, &models.Answer{Artifacts: []models.CodeArtifact{
		{Filename: "main.go", Language: "golang", Content: "package main"},
	}})
	assert.Empty(t, res.Issues)
	assert.True(t, res.Passed())
}

func TestVerify_JudgeFallback(t *testing.T) {
	tests := []struct {
		name  string
		judge *fakeJudge
	}{
		{"unparsable", &fakeJudge{reply: "looks fine to me"}},
		{"missing score", &fakeJudge{reply: `{"issues": []}`}},
		{"chat error", &fakeJudge{err: errors.New("503")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			before := testutil.ToFloat64(metrics.JudgeFallbacks)
			g := NewGate(Options{Judge: tt.judge, Logger: zap.New(core)})

			res := g.Verify(context.Background(), step, &models.Answer{})

			assert.Equal(t, FallbackScore, res.Score)
			assert.Empty(t, res.Issues)
			assert.True(t, res.Passed())
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.JudgeFallbacks))
			assert.Equal(t, 1, logs.FilterMessage("judge unavailable, using fallback score").Len())
		})
	}
}

func TestVerify_TestLayer(t *testing.T) {
	runTests := &fakeTool{name: tools.RunTestsName, result: models.Failure{Error: "--- FAIL: TestGet"}}
	g := NewGate(Options{Judge: &fakeJudge{reply: `{"score": 0.95}`}, Tools: tools.NewRegistry(runTests)})

	res := g.Verify(context.Background(), step, &models.Answer{Artifacts: []models.CodeArtifact{
		models.NewArtifact("cache.go", "go", "package cache"),
		models.NewArtifact("cache_test.go", "go", "package cache"),
		models.NewArtifact("lru.go", "go", "package cache"),
	}})

	require.Len(t, runTests.calls, 1)
	assert.Equal(t, "cache.go", runTests.calls[0]["source_filename"])
	assert.Equal(t, "cache_test.go", runTests.calls[0]["test_filename"])
	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.SeverityCritical, res.Issues[0].Severity)
	assert.False(t, res.Passed())
}

func TestVerify_TestLayerNeedsBothKinds(t *testing.T) {
	runTests := &fakeTool{name: tools.RunTestsName, result: models.Success{}}
	g := NewGate(Options{Judge: &fakeJudge{reply: `{"score": 0.95}`}, Tools: tools.NewRegistry(runTests)})

	g.Verify(context.Background(), step, &models.Answer{Artifacts: []models.CodeArtifact{
		models.NewArtifact("cache_test.go", "go", "package cache"),
	}})
	assert.Empty(t, runTests.calls)
}

func TestVerify_LayersAccumulate(t *testing.T) {
	compile := &fakeTool{name: tools.GoCompileName, result: models.Failure{Error: "syntax error"}}
	scanner := fakeScanner{findings: map[string][]SecretFinding{
		"config.go": {{RuleID: "slack-bot-token", Description: "Slack Bot token", Line: 3}},
	}}
	g := NewGate(Options{
		Judge:   &fakeJudge{reply: `{"score": 0.4, "issues": [{"severity": "critical", "description": "races", "location": "config.go:10"}]}`},
		Tools:   tools.NewRegistry(compile),
		Secrets: scanner,
	})

	res := g.Verify(context.Background(), step, &models.Answer{Artifacts: []models.CodeArtifact{
		models.NewArtifact("config.go", "go", "package config"),
	}})

	require.Len(t, res.Issues, 3)
	assert.True(t, strings.HasPrefix(res.Issues[0].Description, "compile error"))
	assert.Equal(t, "config.go:3", res.Issues[1].Location)
	assert.Equal(t, "races", res.Issues[2].Description)
	assert.Equal(t, models.SeverityCritical, res.Issues[2].Severity)
	assert.Equal(t, 0.4, res.Score)
}

func TestVerify_NilAnswer(t *testing.T) {
	g := NewGate(Options{Judge: &fakeJudge{reply: `{"score": 0.9}`}})
	res := g.Verify(context.Background(), step, nil)
	assert.True(t, res.Passed())
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("cache_test.go"))
	assert.True(t, IsTestFile("CacheTest.java"))
	assert.False(t, IsTestFile("cache.go"))
}
