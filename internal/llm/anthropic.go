package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Anthropic is a Reasoner backed by the Anthropic Messages API.
type Anthropic struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	usage     *Usage
}

// ClientConfig contains configuration for creating an Anthropic reasoner.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// MaxTokens bounds each response. Defaults to 8192.
	MaxTokens int64
	// BaseURL overrides the API endpoint.
	BaseURL string
	// UseAWSBedrock routes requests through AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// NewAnthropic creates a reasoner from cfg.
func NewAnthropic(cfg ClientConfig) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// Retries are owned by the agent loop.
	opts = append(opts, option.WithMaxRetries(0))

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &Anthropic{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		usage:     newUsage("anthropic"),
	}, nil
}

// translateModelForBedrock converts model names to Bedrock inference profiles.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	}
	if m, ok := bedrockModels[model]; ok {
		return anthropic.Model(m)
	}
	return model
}

// Model returns the configured model name.
func (a *Anthropic) Model() string { return string(a.model) }

// Usage returns the tokens consumed by this client.
func (a *Anthropic) Usage() *Usage { return a.usage }

// Reason sends the trajectory and returns the next step.
func (a *Anthropic) Reason(ctx context.Context, system string, trajectory []models.Step, defs []tools.Definition) (models.Step, error) {
	resp, err := a.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  TrajectoryMessages(trajectory),
		Tools:     ToolParams(defs),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return errorStepForStatus(apiErr.StatusCode, fmt.Sprintf("API error %d: %s", apiErr.StatusCode, apiErr.Error())), nil
		}
		return nil, fmt.Errorf("messages request: %w", err)
	}
	a.usage.Record(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	var toolUse *anthropic.ToolUseBlock
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			if toolUse == nil {
				v := variant
				toolUse = &v
			}
		}
	}

	if resp.StopReason == anthropic.StopReasonToolUse {
		if toolUse == nil {
			return models.Error{Message: "expected tool use", Recoverable: true, SuggestedAction: "retry"}, nil
		}
		return models.Act{
			ToolName:  toolUse.Name,
			ToolInput: StringifyInput(toolUse.Input),
			Reasoning: strings.TrimSpace(text.String()),
		}, nil
	}
	return StepFromText(text.String()), nil
}

// Chat sends a single prompt without tools and returns the text reply.
func (a *Anthropic) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := a.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
	})
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	a.usage.Record(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}

// ToolParams converts catalogue entries to API tool definitions.
func ToolParams(defs []tools.Definition) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		props := make(map[string]interface{}, len(d.Parameters))
		var required []string
		for _, p := range d.Parameters {
			prop := map[string]interface{}{
				"type":        "string",
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}
	return params
}

// TrajectoryMessages replays a trajectory as alternating API messages.
// Each Act is paired with the next Observe through a shared tool_use id.
func TrajectoryMessages(trajectory []models.Step) []anthropic.MessageParam {
	b := &messageBuilder{}
	b.add(true, anthropic.NewTextBlock(StartMessage))

	var pending []string
	for i, step := range trajectory {
		switch s := step.(type) {
		case models.Think:
			b.add(false, anthropic.NewTextBlock(s.Thought))
		case models.Act:
			id := fmt.Sprintf("toolu_%03d", i)
			pending = append(pending, id)
			if s.Reasoning != "" {
				b.add(false, anthropic.NewTextBlock(s.Reasoning))
			}
			b.add(false, anthropic.NewToolUseBlock(id, s.ToolInput, s.ToolName))
		case models.Observe:
			content := models.ResultText(s.Result)
			if !s.Result.IsSuccess() {
				content = "ERROR: " + content
			}
			if len(pending) == 0 {
				b.add(true, anthropic.NewTextBlock(fmt.Sprintf("Result of %s: %s", s.ToolName, content)))
				continue
			}
			id := pending[0]
			pending = pending[1:]
			b.add(true, anthropic.NewToolResultBlock(id, content, !s.Result.IsSuccess()))
		case models.Answer:
			b.add(false, anthropic.NewTextBlock(s.Content))
		case models.Error:
			next := s.SuggestedAction
			if next == "" {
				next = "Continue"
			}
			b.add(true, anthropic.NewTextBlock(fmt.Sprintf("ERROR: %s. %s.", s.Message, next)))
		case models.Delegate:
			b.add(false, anthropic.NewTextBlock(fmt.Sprintf("Delegating to %s: %s", s.TargetRole, s.Context.Reason)))
		}
	}
	if !b.lastUser {
		b.add(true, anthropic.NewTextBlock("Continue."))
	}
	return b.flush()
}

// messageBuilder merges consecutive blocks from the same speaker.
type messageBuilder struct {
	messages []anthropic.MessageParam
	blocks   []anthropic.ContentBlockParamUnion
	lastUser bool
	started  bool
}

func (b *messageBuilder) add(user bool, block anthropic.ContentBlockParamUnion) {
	if b.started && user != b.lastUser {
		b.flushCurrent()
	}
	b.started = true
	b.lastUser = user
	b.blocks = append(b.blocks, block)
}

func (b *messageBuilder) flushCurrent() {
	if len(b.blocks) == 0 {
		return
	}
	if b.lastUser {
		b.messages = append(b.messages, anthropic.NewUserMessage(b.blocks...))
	} else {
		b.messages = append(b.messages, anthropic.NewAssistantMessage(b.blocks...))
	}
	b.blocks = nil
}

func (b *messageBuilder) flush() []anthropic.MessageParam {
	b.flushCurrent()
	return b.messages
}

// StringifyInput flattens a JSON object into string values.
func StringifyInput(raw json.RawMessage) map[string]string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}

var _ Reasoner = (*Anthropic)(nil)
