package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

// minAnswerLength is the length above which plain text counts as an answer.
const minAnswerLength = 100

var (
	jsonFence = regexp.MustCompile("```(?:json)?\\s*\\n([\\s\\S]*?)```")
	codeFence = regexp.MustCompile("```(\\w+)?\\s*\\n([\\s\\S]*?)```")
)

var extensions = map[string]string{
	"go":         "go",
	"golang":     "go",
	"python":     "py",
	"py":         "py",
	"javascript": "js",
	"js":         "js",
	"typescript": "ts",
	"ts":         "ts",
	"sql":        "sql",
	"yaml":       "yaml",
	"yml":        "yaml",
	"json":       "json",
	"bash":       "sh",
	"sh":         "sh",
	"dockerfile": "Dockerfile",
	"makefile":   "mk",
	"proto":      "proto",
	"markdown":   "md",
}

// ExtractJSON returns the JSON payload of a model response: the first
// fenced block, else the span between the outermost braces, else the text.
func ExtractJSON(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ExtractArtifacts turns fenced code blocks into artifacts. A block
// without a language is treated as Go. A leading "// file: name" or
// "// name.go" comment line names the file.
func ExtractArtifacts(text string) []models.CodeArtifact {
	var out []models.CodeArtifact
	for i, m := range codeFence.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(m[1])
		if lang == "" {
			lang = "go"
		}
		if lang == "golang" {
			lang = "go"
		}
		content := m[2]
		name := fileHint(content)
		if name == "" {
			ext, ok := extensions[lang]
			if !ok {
				ext = "txt"
			}
			name = fmt.Sprintf("generated_%d.%s", i+1, ext)
		}
		out = append(out, models.NewArtifact(name, lang, content))
	}
	return out
}

// fileHint returns a file name declared on the first line of content.
func fileHint(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimSpace(first)
	if !strings.HasPrefix(first, "//") && !strings.HasPrefix(first, "#") {
		return ""
	}
	hint := strings.TrimSpace(strings.TrimLeft(first, "/#"))
	hint = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(hint, "file:"), "File:"))
	if hint == "" || strings.ContainsAny(hint, " \t") || !strings.Contains(hint, ".") {
		return ""
	}
	return hint
}

// StepFromText maps final model text to an Answer when it carries code or
// is substantial, and to a low-confidence Think otherwise.
func StepFromText(text string) models.Step {
	artifacts := ExtractArtifacts(text)
	if len(artifacts) > 0 || len(text) > minAnswerLength {
		return models.Answer{Content: text, Artifacts: artifacts}
	}
	return models.Think{Thought: text, Confidence: 0.5}
}
