package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// LangChain is a Reasoner over any langchaingo model. The trajectory is
// sent as a transcript because not every backend supports tool messages.
type LangChain struct {
	model llms.Model
}

// NewLangChain wraps a langchaingo model.
func NewLangChain(model llms.Model) *LangChain {
	return &LangChain{model: model}
}

// NewOllama connects to a local Ollama server.
func NewOllama(model, serverURL string) (*LangChain, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLangChain(llm), nil
}

func (l *LangChain) Reason(ctx context.Context, system string, trajectory []models.Step, defs []tools.Definition) (models.Step, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, Transcript(trajectory)),
	}
	resp, err := l.model.GenerateContent(ctx, messages, llms.WithTools(functionTools(defs)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return models.Error{Message: err.Error(), Recoverable: true, SuggestedAction: "retry"}, nil
	}
	if len(resp.Choices) == 0 {
		return models.Error{Message: "empty response", Recoverable: true, SuggestedAction: "retry"}, nil
	}

	choice := resp.Choices[0]
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		return models.Act{
			ToolName:  call.FunctionCall.Name,
			ToolInput: StringifyInput(json.RawMessage(call.FunctionCall.Arguments)),
			Reasoning: strings.TrimSpace(choice.Content),
		}, nil
	}
	return StepFromText(choice.Content), nil
}

func (l *LangChain) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := l.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat request: empty response")
	}
	return resp.Choices[0].Content, nil
}

func functionTools(defs []tools.Definition) []llms.Tool {
	out := make([]llms.Tool, 0, len(defs))
	for _, d := range defs {
		props := make(map[string]any, len(d.Parameters))
		var required []string
		for _, p := range d.Parameters {
			prop := map[string]any{"type": "string", "description": p.Description}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
					"required":   required,
				},
			},
		})
	}
	return out
}

// Transcript renders a trajectory as plain text for providers without
// structured tool turns.
func Transcript(trajectory []models.Step) string {
	if len(trajectory) == 0 {
		return StartMessage
	}
	var b strings.Builder
	b.WriteString(StartMessage)
	b.WriteString("\n\nProgress so far:\n")
	for _, step := range trajectory {
		switch s := step.(type) {
		case models.Think:
			fmt.Fprintf(&b, "THOUGHT: %s\n", s.Thought)
		case models.Act:
			input, _ := json.Marshal(s.ToolInput)
			fmt.Fprintf(&b, "ACTION: %s %s\n", s.ToolName, input)
		case models.Observe:
			prefix := ""
			if !s.Result.IsSuccess() {
				prefix = "ERROR: "
			}
			fmt.Fprintf(&b, "OBSERVATION (%s): %s%s\n", s.ToolName, prefix, models.ResultText(s.Result))
		case models.Answer:
			fmt.Fprintf(&b, "ANSWER: %s\n", s.Content)
		case models.Error:
			fmt.Fprintf(&b, "ERROR: %s\n", s.Message)
		case models.Delegate:
			fmt.Fprintf(&b, "DELEGATED to %s: %s\n", s.TargetRole, s.Context.Reason)
		}
	}
	b.WriteString("\nContinue.")
	return b.String()
}

var _ Reasoner = (*LangChain)(nil)
