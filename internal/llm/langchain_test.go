package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap/zaptest"
)

type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     [][]llms.MessageContent
	options   []llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	i := len(f.calls)
	f.calls = append(f.calls, messages)
	f.options = append(f.options, opts)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

var testTools = []ToolSpec{{
	Name:        "check_availability",
	Description: "Consulta disponibilidade",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"check_in_date": map[string]any{"type": "string"},
		},
	},
}}

func TestRespondReturnsText(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("Olá! Como posso ajudar?")}}
	p := NewLangChainProvider(model, zaptest.NewLogger(t))

	resp, err := p.Respond(context.Background(), Request{System: "sys", Prompt: "oi", Tools: testTools})
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", resp.Text)
	assert.Empty(t, resp.ToolCalls)

	require.Len(t, model.calls, 1)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.calls[0][0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.calls[0][1].Role)
	require.Len(t, model.options[0].Tools, 1)
	assert.Equal(t, "check_availability", model.options[0].Tools[0].Function.Name)
}

func TestRespondCollectsToolCallsAcrossChoices(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{{
		Choices: []*llms.ContentChoice{
			{Content: "Vou verificar."},
			{ToolCalls: []llms.ToolCall{{
				ID:           "toolu_1",
				FunctionCall: &llms.FunctionCall{Name: "check_availability", Arguments: `{"check_in_date":"2026-12-15"}`},
			}}},
			{ToolCalls: []llms.ToolCall{{
				FunctionCall: &llms.FunctionCall{Name: "check_availability", Arguments: `not json`},
			}}},
		},
	}}}
	p := NewLangChainProvider(model, nil)

	resp, err := p.Respond(context.Background(), Request{Prompt: "oi", Tools: testTools})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"check_in_date":"2026-12-15"}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, "call_2", resp.ToolCalls[1].ID)
	assert.JSONEq(t, `{}`, string(resp.ToolCalls[1].Arguments))
	assert.Equal(t, "Vou verificar.", resp.Text)
}

func TestRespondSecondPassFoldsResults(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("Temos a Suíte Luxo disponível.")}}
	p := NewLangChainProvider(model, nil)

	_, err := p.Respond(context.Background(), Request{
		Prompt:  "quero reservar",
		Tools:   testTools,
		Calls:   []ToolCall{{ID: "c1", Name: "check_availability", Arguments: json.RawMessage(`{}`)}},
		Results: []ToolResult{{CallID: "c1", Name: "check_availability", Content: "Suíte Luxo: R$ 150"}},
	})
	require.NoError(t, err)

	messages := model.calls[0]
	require.Len(t, messages, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	call, ok := messages[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "c1", call.ID)

	assert.Equal(t, llms.ChatMessageTypeTool, messages[3].Role)
	result, ok := messages[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "Suíte Luxo: R$ 150", result.Content)
}

func TestRespondRepairsStaleContextOnce(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("rpc error: code = InvalidArgument desc = INVALID_ARGUMENT: Cache content 123 is expired")},
		responses: []*llms.ContentResponse{nil, textResponse("ok")},
	}
	p := NewLangChainProvider(model, zaptest.NewLogger(t))
	p.Respond(context.Background(), Request{System: "sys", Prompt: "warm"})

	model.calls, model.options = nil, nil
	model.errs = []error{errors.New("Cache content expired")}
	before := p.prepared

	resp, err := p.Respond(context.Background(), Request{System: "sys", Prompt: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Len(t, model.calls, 2)
	assert.NotSame(t, before, p.prepared)
}

func TestRespondGivesUpAfterOneRepair(t *testing.T) {
	stale := errors.New("INVALID_ARGUMENT: Cache content 42 is expired")
	model := &fakeModel{errs: []error{stale, stale, stale}, responses: []*llms.ContentResponse{textResponse("never")}}
	p := NewLangChainProvider(model, nil)

	_, err := p.Respond(context.Background(), Request{Prompt: "oi"})
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.Len(t, model.calls, 2)
}

func TestRespondDoesNotRetryOtherErrors(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("quota exceeded")}, responses: []*llms.ContentResponse{textResponse("x")}}
	p := NewLangChainProvider(model, nil)

	_, err := p.Respond(context.Background(), Request{Prompt: "oi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleContext)
	assert.Len(t, model.calls, 1)
}

func TestRespondDoesNotRetryInvalidArgument(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("rpc error: code = InvalidArgument desc = INVALID_ARGUMENT: function parameters malformed")},
		responses: []*llms.ContentResponse{textResponse("x")},
	}
	p := NewLangChainProvider(model, nil)

	_, err := p.Respond(context.Background(), Request{Prompt: "oi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleContext)
	assert.Len(t, model.calls, 1)
}

func TestRespondAppliesSamplingOptions(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	p := NewLangChainProvider(model, nil, WithTemperature(0.7), WithMaxTokens(256))

	_, err := p.Respond(context.Background(), Request{Prompt: "oi"})
	require.NoError(t, err)
	require.Len(t, model.options, 1)
	assert.Equal(t, 0.7, model.options[0].Temperature)
	assert.Equal(t, 256, model.options[0].MaxTokens)
}

func TestRespondEmpty(t *testing.T) {
	for _, resp := range []*llms.ContentResponse{{}, textResponse("   ")} {
		p := NewLangChainProvider(&fakeModel{responses: []*llms.ContentResponse{resp}}, nil)
		_, err := p.Respond(context.Background(), Request{Prompt: "oi"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	}
}

func TestPreparedContextReuse(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	p := NewLangChainProvider(model, nil, WithContextTTL(time.Hour), WithClock(func() time.Time { return now }))

	p.Respond(context.Background(), Request{System: "sys", Prompt: "a", Tools: testTools})
	first := p.prepared

	p.Respond(context.Background(), Request{System: "sys", Prompt: "b", Tools: testTools})
	assert.Same(t, first, p.prepared)

	p.Respond(context.Background(), Request{System: "other", Prompt: "c", Tools: testTools})
	assert.NotSame(t, first, p.prepared)
	changed := p.prepared

	now = now.Add(2 * time.Hour)
	p.Respond(context.Background(), Request{System: "other", Prompt: "d", Tools: testTools})
	assert.NotSame(t, changed, p.prepared)
}
