package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/avvvet/staybuddy/internal/dates"
	"github.com/avvvet/staybuddy/internal/llm"
	"github.com/avvvet/staybuddy/internal/memory"
	"github.com/avvvet/staybuddy/internal/metrics"
	"github.com/avvvet/staybuddy/internal/models"
	"github.com/avvvet/staybuddy/internal/prompts"
	"github.com/avvvet/staybuddy/internal/retrieval"
	"github.com/avvvet/staybuddy/internal/tools"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Turn outcomes recorded on the turns metric.
const (
	outcomeReplied     = "replied"
	outcomeToolReply   = "tool_reply"
	outcomeNarrated    = "narrated"
	outcomeToolDigest  = "tool_digest"
	outcomeEscalated   = "escalated"
	outcomeReactivated = "reactivated"
	outcomeFallback    = "fallback"
	outcomeRejected    = "rejected"
	outcomeError       = "error"
)

// Knowledge supplies prompt-ready hotel knowledge and can drop it on demand.
type Knowledge interface {
	Knowledge(ctx context.Context, hotelID string) (string, error)
	Invalidate(hotelID string) bool
}

// Dependencies groups the collaborators of a ConversationHandler. Knowledge,
// Retriever and Metrics are optional.
type Dependencies struct {
	Sessions    *memory.Manager
	History     *memory.HistoryWindow
	Knowledge   Knowledge
	Retriever   retrieval.Retriever
	Provider    llm.Provider
	Dispatcher  *tools.Dispatcher
	Heuristics  *tools.Heuristics
	Calendar    *dates.Calendar
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	TurnTimeout time.Duration
}

// ConversationHandler runs one conversation turn per inbound message.
type ConversationHandler struct {
	sessions    *memory.Manager
	history     *memory.HistoryWindow
	knowledge   Knowledge
	retriever   retrieval.Retriever
	provider    llm.Provider
	dispatcher  *tools.Dispatcher
	heuristics  *tools.Heuristics
	calendar    *dates.Calendar
	metrics     *metrics.Metrics
	logger      *zap.Logger
	turnTimeout time.Duration
	tools       []llm.ToolSpec
}

func NewConversationHandler(deps Dependencies) *ConversationHandler {
	h := &ConversationHandler{
		sessions:    deps.Sessions,
		history:     deps.History,
		knowledge:   deps.Knowledge,
		retriever:   deps.Retriever,
		provider:    deps.Provider,
		dispatcher:  deps.Dispatcher,
		heuristics:  deps.Heuristics,
		calendar:    deps.Calendar,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		turnTimeout: deps.TurnTimeout,
		tools:       tools.Specs(),
	}
	if h.history == nil {
		h.history = memory.NewHistoryWindow(0)
	}
	if h.retriever == nil {
		h.retriever = retrieval.Nop{}
	}
	if h.calendar == nil {
		h.calendar = dates.NewCalendar(time.UTC, nil)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// HandleMessage produces the reply for one inbound message. It always
// returns text; failures become a fixed apology.
func (h *ConversationHandler) HandleMessage(ctx context.Context, req models.MessageRequest) (reply string) {
	turnID := uuid.NewString()
	log := h.logger.With(
		zap.String("turn_id", turnID),
		zap.String("identity", req.Identity),
		zap.String("hotel_id", req.HotelID),
	)

	outcome := outcomeError
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("turn panicked", zap.Any("panic", r), zap.Stack("stack"))
			reply, outcome = prompts.ErrorMessage, outcomeError
		}
		h.metrics.ObserveTurn(outcome)
		log.Info("💬 turn completed", zap.String("outcome", outcome), zap.Duration("took", time.Since(start)))
	}()

	if h.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.turnTimeout)
		defer cancel()
	}

	// The identity keys the session; without it guests would share one.
	if strings.TrimSpace(req.Identity) == "" {
		log.Warn("message without guest identity rejected")
		outcome = outcomeRejected
		return prompts.MissingIdentityMessage
	}

	message := strings.TrimSpace(req.Message)
	turn := &tools.Turn{HotelID: req.HotelID, Identity: req.Identity}
	turn.Session = h.sessions.Load(ctx, req.Identity)
	log.Debug("session loaded", zap.String("stage", string(turn.Session.State())))

	if turn.Session.HumanAgentCalled {
		if h.heuristics.IsReactivation(message) {
			h.dispatcher.Reactivate(ctx, turn)
			outcome = outcomeReactivated
			return tools.ReactivatedReply
		}
		outcome = outcomeEscalated
		return tools.HandoffPendingReply
	}

	tc := h.turnContext(ctx, req, turn.Session, message, log)
	first, err := h.provider.Respond(ctx, llm.Request{
		System: prompts.SystemPrompt,
		Prompt: prompts.BuildTurnContext(tc),
		Tools:  h.tools,
	})
	h.metrics.ObserveLLMCall("first", callResult(err))
	if err != nil {
		log.Error("language model call failed", zap.Error(err))
		return prompts.ErrorMessage
	}

	calls := first.ToolCalls
	if len(calls) == 0 {
		// The model sometimes answers in prose when it should have acted.
		if intent, ok := h.heuristics.Infer(message, turn.Session.HasAvailability()); ok {
			log.Info("🧭 forcing intent from guest text", zap.String("intent", string(intent.Name())))
			calls = []llm.ToolCall{tools.Call("forced_1", intent)}
		}
	}

	if len(calls) == 0 {
		if text := strings.TrimSpace(first.Text); text != "" {
			outcome = outcomeReplied
			return text
		}
		outcome = outcomeFallback
		return prompts.FallbackMessage
	}

	results := make([]llm.ToolResult, 0, len(calls))
	digest := make([]string, 0, len(calls))
	for _, call := range calls {
		res := h.dispatcher.DispatchCall(ctx, turn, call)
		if res.Final {
			outcome = outcomeToolReply
			return res.Message
		}
		results = append(results, llm.ToolResult{CallID: call.ID, Name: call.Name, Content: res.Message})
		digest = append(digest, res.Message)
	}

	tc.Session = turn.Session
	second, err := h.provider.Respond(ctx, llm.Request{
		System:  prompts.SystemPrompt,
		Prompt:  prompts.BuildTurnContext(tc),
		Tools:   h.tools,
		Calls:   calls,
		Results: results,
	})
	h.metrics.ObserveLLMCall("second", callResult(err))
	if err == nil && strings.TrimSpace(second.Text) != "" {
		outcome = outcomeNarrated
		return strings.TrimSpace(second.Text)
	}
	if err != nil {
		log.Warn("second pass failed, replying with tool results", zap.Error(err))
	}

	outcome = outcomeToolDigest
	return strings.Join(digest, "\n\n")
}

// InvalidateKnowledgeCache drops the cached knowledge for hotelID and
// reports whether anything was cached.
func (h *ConversationHandler) InvalidateKnowledgeCache(hotelID string) bool {
	if h.knowledge == nil {
		return false
	}
	found := h.knowledge.Invalidate(hotelID)
	h.logger.Info("🧹 knowledge cache invalidated", zap.String("hotel_id", hotelID), zap.Bool("found", found))
	return found
}

func (h *ConversationHandler) turnContext(ctx context.Context, req models.MessageRequest, session *memory.Session, message string, log *zap.Logger) prompts.TurnContext {
	var knowledge string
	if h.knowledge != nil {
		var err error
		if knowledge, err = h.knowledge.Knowledge(ctx, req.HotelID); err != nil {
			log.Warn("hotel knowledge unavailable", zap.Error(err))
		}
	}

	return prompts.TurnContext{
		Today:     h.calendar.Today(),
		HotelID:   req.HotelID,
		Identity:  req.Identity,
		Knowledge: knowledge,
		Retrieved: h.retriever.Retrieve(ctx, req.HotelID, message),
		Session:   session,
		History:   h.history.Format(ctx, req.Messages()),
		Message:   message,
	}
}

func callResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
