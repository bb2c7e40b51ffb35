package llm

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/kai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "Here:\n```json\n{\"a\": 1}\n```\nbye", `{"a": 1}`},
		{"bare fence", "```\n{\"b\": 2}\n```", `{"b": 2}`},
		{"braces", "plan follows {\"steps\": [{\"id\": \"s1\"}]} done", `{"steps": [{"id": "s1"}]}`},
		{"raw", "  nothing here  ", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestExtractArtifacts(t *testing.T) {
	text := "Cache:\n```go\n// cache.go\npackage cache\n```\nand\n```\npackage main\n```\nplus\n```yaml\nkey: v\n```"

	arts := ExtractArtifacts(text)
	require.Len(t, arts, 3)
	assert.Equal(t, "cache.go", arts[0].Filename)
	assert.Equal(t, "go", arts[0].Language)
	assert.Equal(t, 1, arts[0].Version)
	assert.Equal(t, "generated_2.go", arts[1].Filename)
	assert.Equal(t, "go", arts[1].Language)
	assert.Equal(t, "generated_3.yaml", arts[2].Filename)
}

func TestStepFromText(t *testing.T) {
	short := StepFromText("let me check the files")
	think, ok := short.(models.Think)
	require.True(t, ok, "short text should be a Think, got %T", short)
	assert.Equal(t, 0.5, think.Confidence)

	long := StepFromText(strings.Repeat("done ", 30))
	_, ok = long.(models.Answer)
	assert.True(t, ok, "long text should be an Answer")

	code := StepFromText("```go\npackage x\n```")
	answer, ok := code.(models.Answer)
	require.True(t, ok)
	assert.Len(t, answer.Artifacts, 1)
}

func TestStringifyInput(t *testing.T) {
	got := StringifyInput([]byte(`{"path": "a.go", "limit": 10, "flags": ["x"]}`))
	assert.Equal(t, "a.go", got["path"])
	assert.Equal(t, "10", got["limit"])
	assert.Equal(t, `["x"]`, got["flags"])

	assert.Empty(t, StringifyInput([]byte("not json")))
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, StartMessage, Transcript(nil))

	out := Transcript([]models.Step{
		models.Think{Thought: "inspect"},
		models.Act{ToolName: "file_system", ToolInput: map[string]string{"action": "list"}},
		models.Observe{ToolName: "file_system", Result: models.Failure{Error: "denied"}},
	})
	assert.Contains(t, out, "THOUGHT: inspect")
	assert.Contains(t, out, "ACTION: file_system")
	assert.Contains(t, out, "ERROR: denied")
}
