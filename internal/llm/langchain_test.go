package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/pkg/models"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChain_ReasonToolCall(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: "checking",
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "go_compile", Arguments: `{"code": "package x"}`},
		}},
	}}}}

	step, err := NewLangChain(model).Reason(context.Background(), "sys", nil, []tools.Definition{{Name: "go_compile"}})
	require.NoError(t, err)
	act, ok := step.(models.Act)
	require.True(t, ok, "got %T", step)
	assert.Equal(t, "go_compile", act.ToolName)
	assert.Equal(t, "package x", act.ToolInput["code"])
	require.Len(t, model.messages, 2)
}

func TestLangChain_ReasonError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}

	step, err := NewLangChain(model).Reason(context.Background(), "sys", nil, nil)
	require.NoError(t, err)
	e, ok := step.(models.Error)
	require.True(t, ok)
	assert.True(t, e.Recoverable)
}

func TestLangChain_Chat(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"score": 0.9}`}}}}

	out, err := NewLangChain(model).Chat(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.9}`, out)

	_, err = NewLangChain(&fakeModel{resp: &llms.ContentResponse{}}).Chat(context.Background(), "sys", "user")
	assert.Error(t, err)
}
