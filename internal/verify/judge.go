package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/metrics"
	"github.com/ShayCichocki/kai/pkg/models"
)

// FallbackScore is used when the judge gives no usable answer.
const FallbackScore = 0.7

const judgeSystem = "You are a strict Go code reviewer. Return only valid JSON."

// Judgment is the parsed judge answer.
type Judgment struct {
	Score       float64
	Issues      []models.Issue
	Suggestions []string
}

func (g *Gate) judgeStep(ctx context.Context, step models.PlanStep, answer *models.Answer) Judgment {
	if g.judge == nil {
		return g.fallback(errors.New("no judge configured"))
	}
	raw, err := g.judge.Chat(ctx, judgeSystem, JudgePrompt(step, answer))
	if err != nil {
		return g.fallback(fmt.Errorf("judge call: %w", err))
	}
	j, err := ParseJudgment(raw)
	if err != nil {
		return g.fallback(err)
	}
	return j
}

// fallback masks a judge failure with a passing-adjacent score. Every
// occurrence is logged and counted so the masking stays visible.
func (g *Gate) fallback(err error) Judgment {
	metrics.JudgeFallbacks.Inc()
	g.logger.Warn("judge unavailable, using fallback score",
		zap.Float64("score", FallbackScore),
		zap.Error(err))
	return Judgment{Score: FallbackScore}
}

// JudgePrompt asks the judge to grade an answer.
func JudgePrompt(step models.PlanStep, answer *models.Answer) string {
	var sb strings.Builder
	sb.WriteString("# Code Verification\n\n")
	sb.WriteString("## Task\n")
	sb.WriteString(step.Description)
	sb.WriteString("\n\n")

	if len(step.Constraints) > 0 {
		sb.WriteString("## Constraints\n")
		for _, c := range step.Constraints {
			sb.WriteString("- " + c + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Answer\n")
	sb.WriteString(answer.Content)
	sb.WriteString("\n\n")

	for _, a := range answer.Artifacts {
		fmt.Fprintf(&sb, "File: %s\n```%s\n%s\n```\n\n", a.Filename, a.Language, a.Content)
	}

	sb.WriteString(`## Instructions
Score the result from 0.0 to 1.0 on correctness, Go idiom, robustness and
performance. Respond with JSON only:
{"score": 0.0, "issues": [{"severity": "CRITICAL|WARNING|INFO", "description": "...", "location": "file.go:12"}], "suggestions": ["..."]}
`)
	return sb.String()
}

type judgeResponse struct {
	Score       *float64          `json:"score"`
	Issues      []json.RawMessage `json:"issues"`
	Suggestions []string          `json:"suggestions"`
}

type judgeIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// ParseJudgment extracts a Judgment from judge text. Issues may be plain
// strings, which are treated as warnings. The score is clamped to [0, 1].
func ParseJudgment(text string) (Judgment, error) {
	var resp judgeResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &resp); err != nil {
		return Judgment{}, fmt.Errorf("parse judgment: %w", err)
	}
	if resp.Score == nil {
		return Judgment{}, errors.New("parse judgment: missing score")
	}

	j := Judgment{Score: clamp(*resp.Score), Suggestions: resp.Suggestions}
	for _, raw := range resp.Issues {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			j.Issues = append(j.Issues, models.Issue{Severity: models.SeverityWarning, Description: s})
			continue
		}
		var obj judgeIssue
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		sev := models.Severity(strings.ToUpper(strings.TrimSpace(obj.Severity)))
		if !sev.Valid() {
			sev = models.SeverityWarning
		}
		j.Issues = append(j.Issues, models.Issue{Severity: sev, Description: obj.Description, Location: obj.Location})
	}
	return j, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
