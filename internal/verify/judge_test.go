package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/kai/pkg/models"
)

func TestParseJudgment(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore float64
		wantSev   []models.Severity
		wantErr   bool
	}{
		{
			name:      "bare json",
			text:      `{"score": 0.85, "issues": [], "suggestions": []}`,
			wantScore: 0.85,
		},
		{
			name:      "prose around braces",
			text:      "Here you go: {\"score\": 0.5, \"issues\": [\"slow\"]} hope it helps",
			wantScore: 0.5,
			wantSev:   []models.Severity{models.SeverityWarning},
		},
		{
			name:      "mixed issues",
			text:      `{"score": 0.6, "issues": ["minor", {"severity": "INFO", "description": "doc"}, {"severity": "bogus", "description": "x"}, 42]}`,
			wantScore: 0.6,
			wantSev:   []models.Severity{models.SeverityWarning, models.SeverityInfo, models.SeverityWarning},
		},
		{name: "score above range", text: `{"score": 7}`, wantScore: 1},
		{name: "score below range", text: `{"score": -2}`, wantScore: 0},
		{name: "not json", text: "no idea", wantErr: true},
		{name: "no score", text: `{"issues": ["x"]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := ParseJudgment(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, j.Score)
			var sevs []models.Severity
			for _, i := range j.Issues {
				sevs = append(sevs, i.Severity)
			}
			assert.Equal(t, tt.wantSev, sevs)
		})
	}
}

func TestJudgePrompt(t *testing.T) {
	p := JudgePrompt(
		models.PlanStep{Description: "add LRU", Constraints: []string{"no deps"}},
		&models.Answer{Content: "here", Artifacts: []models.CodeArtifact{models.NewArtifact("lru.go", "go", "package lru")}},
	)
	assert.Contains(t, p, "## Task\nadd LRU")
	assert.Contains(t, p, "- no deps")
	assert.Contains(t, p, "File: lru.go\n```go\npackage lru\n```")
	assert.Contains(t, p, `"score"`)
}
