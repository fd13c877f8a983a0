package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// staleMarkers are substrings of provider errors reporting an expired or
// unknown cached context. A bare INVALID_ARGUMENT is not one of them: the
// request itself is wrong and resending it cannot help.
var staleMarkers = []string{"Cache content", "cachedContent", "cache expired", "is expired"}

// LangChainProvider adapts a langchaingo model. The system instruction and
// tool declarations are prepared once and reused until they change or their
// TTL passes; a rejection that looks like staleness rebuilds them and retries
// once.
type LangChainProvider struct {
	model       llms.Model
	timeout     time.Duration
	contextTTL  time.Duration
	temperature float64
	maxTokens   int
	now         func() time.Time
	logger      *zap.Logger

	mu       sync.Mutex
	prepared *preparedContext
}

type preparedContext struct {
	fingerprint string
	system      llms.MessageContent
	tools       []llms.Tool
	createdAt   time.Time
}

// Option configures a LangChainProvider.
type Option func(*LangChainProvider)

func WithTimeout(d time.Duration) Option {
	return func(p *LangChainProvider) { p.timeout = d }
}

func WithContextTTL(d time.Duration) Option {
	return func(p *LangChainProvider) { p.contextTTL = d }
}

func WithTemperature(t float64) Option {
	return func(p *LangChainProvider) { p.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(p *LangChainProvider) { p.maxTokens = n }
}

func WithClock(now func() time.Time) Option {
	return func(p *LangChainProvider) { p.now = now }
}

// NewLangChainProvider wraps model.
func NewLangChainProvider(model llms.Model, logger *zap.Logger, opts ...Option) *LangChainProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &LangChainProvider{
		model:       model,
		timeout:     30 * time.Second,
		contextTTL:  24 * time.Hour,
		temperature: 0.2,
		maxTokens:   1024,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Respond sends one request to the model.
func (p *LangChainProvider) Respond(ctx context.Context, req Request) (*Response, error) {
	prepared := p.contextFor(req, false)

	resp, err := p.generate(ctx, prepared, req)
	if err != nil && isStale(err) {
		p.logger.Warn("prepared context rejected, rebuilding", zap.Error(err))
		prepared = p.contextFor(req, true)
		resp, err = p.generate(ctx, prepared, req)
		if err != nil && isStale(err) {
			return nil, fmt.Errorf("%w: %v", ErrStaleContext, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return parseResponse(resp, req.Tools)
}

// contextFor returns the prepared context for req, rebuilding it when forced,
// expired, or built for a different instruction or tool set.
func (p *LangChainProvider) contextFor(req Request, force bool) *preparedContext {
	fingerprint := fingerprintOf(req.System, req.Tools)

	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.prepared
	if !force && current != nil && current.fingerprint == fingerprint &&
		p.now().Sub(current.createdAt) < p.contextTTL {
		return current
	}

	tools := make([]llms.Tool, 0, len(req.Tools))
	for _, spec := range req.Tools {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}

	p.prepared = &preparedContext{
		fingerprint: fingerprint,
		system:      llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		tools:       tools,
		createdAt:   p.now(),
	}
	p.logger.Debug("prepared model context", zap.String("fingerprint", fingerprint[:12]), zap.Int("tools", len(tools)))
	return p.prepared
}

func (p *LangChainProvider) generate(ctx context.Context, prepared *preparedContext, req Request) (*llms.ContentResponse, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		prepared.system,
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	if len(req.Calls) > 0 {
		ai := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range req.Calls {
			ai.Parts = append(ai.Parts, llms.ToolCall{
				ID:   call.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		messages = append(messages, ai)

		for _, result := range req.Results {
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: result.CallID,
					Name:       result.Name,
					Content:    result.Content,
				}},
			})
		}
	}

	opts := []llms.CallOption{
		llms.WithTemperature(p.temperature),
		llms.WithMaxTokens(p.maxTokens),
	}
	if len(prepared.tools) > 0 {
		opts = append(opts, llms.WithTools(prepared.tools))
	}

	return p.model.GenerateContent(ctx, messages, opts...)
}

// parseResponse collects text and tool calls across all choices; some
// providers return one choice per content block.
func parseResponse(resp *llms.ContentResponse, tools []ToolSpec) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	out := &Response{}
	var texts []string
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		if text := strings.TrimSpace(choice.Content); text != "" {
			texts = append(texts, text)
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: normalizeArguments(tc.FunctionCall.Arguments),
			})
		}
	}
	out.Text = strings.Join(texts, "\n")

	// Some models write the call as JSON in the text instead.
	if len(out.ToolCalls) == 0 && out.Text != "" {
		if call, ok := ExtractToolCall(out.Text, tools); ok {
			out.ToolCalls = []ToolCall{call}
			out.Text = ""
		}
	}

	for i := range out.ToolCalls {
		if out.ToolCalls[i].ID == "" {
			out.ToolCalls[i].ID = fmt.Sprintf("call_%d", i+1)
		}
	}

	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

func normalizeArguments(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

func isStale(err error) bool {
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func fingerprintOf(system string, tools []ToolSpec) string {
	h := sha256.New()
	h.Write([]byte(system))
	for _, spec := range tools {
		params, _ := json.Marshal(spec.Parameters)
		fmt.Fprintf(h, "\x00%s\x00%s\x00%s", spec.Name, spec.Description, params)
	}
	return hex.EncodeToString(h.Sum(nil))
}
