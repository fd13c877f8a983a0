package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/staybuddy/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

// Manager fronts a Store for a conversation turn. Store failures are logged
// and degrade to an empty session so a reply can still be produced.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager creates a new session manager. A nil store runs without memory.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// Load returns the stored session for identity, or an empty one when none
// exists or the store cannot be reached. It never returns nil.
func (m *Manager) Load(ctx context.Context, identity string) *Session {
	if m.store == nil {
		return NewSession(identity)
	}

	session, err := m.store.Load(ctx, identity)
	if err != nil {
		m.logger.Warn("session load failed, continuing without memory",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return NewSession(identity)
	}
	if session == nil {
		return NewSession(identity)
	}
	session.repair()
	return session
}

// Update applies update to the stored session and returns the result. When
// the store fails the update is applied to current instead, so the rest of
// the turn still sees it.
func (m *Manager) Update(ctx context.Context, current *Session, update func(*Session)) *Session {
	if m.store != nil {
		merged, err := m.store.Merge(ctx, current.Identity, update)
		if err == nil {
			return merged
		}
		m.logger.Warn("session merge failed, keeping change in memory only",
			zap.String("identity", current.Identity),
			zap.Error(err),
		)
	}

	update(current)
	current.repair()
	return current
}

// Clear erases the session for identity.
func (m *Manager) Clear(ctx context.Context, identity string) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(ctx, identity); err != nil {
		m.logger.Warn("session delete failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("🗑️ session cleared", zap.String("identity", identity))
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// EmptyHistory is rendered when a conversation has no prior turns.
const EmptyHistory = "Nova conversa - sem histórico anterior"

// HistoryWindow bounds the recent turns handed to the language model.
type HistoryWindow struct {
	size int
}

// NewHistoryWindow keeps the last size messages; size <= 0 keeps ten.
func NewHistoryWindow(size int) *HistoryWindow {
	if size <= 0 {
		size = 10
	}
	return &HistoryWindow{size: size}
}

// Buffer loads the tail of history into a langchaingo conversation buffer.
func (h *HistoryWindow) Buffer(ctx context.Context, history []models.ChatMessage) (*memory.ConversationBuffer, error) {
	if len(history) > h.size {
		history = history[len(history)-h.size:]
	}

	mem := memory.NewConversationBuffer()
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}

		var err error
		switch msg.Role {
		case models.RoleUser:
			err = mem.ChatHistory.AddUserMessage(ctx, content)
		case models.RoleAssistant:
			err = mem.ChatHistory.AddAIMessage(ctx, content)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}
	return mem, nil
}

// Messages returns the windowed history as chat messages.
func (h *HistoryWindow) Messages(ctx context.Context, history []models.ChatMessage) ([]llms.ChatMessage, error) {
	mem, err := h.Buffer(ctx, history)
	if err != nil {
		return nil, err
	}
	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// Format renders the windowed history as speaker-prefixed lines.
func (h *HistoryWindow) Format(ctx context.Context, history []models.ChatMessage) string {
	messages, err := h.Messages(ctx, history)
	if err != nil || len(messages) == 0 {
		return EmptyHistory
	}

	var b strings.Builder
	for _, msg := range messages {
		switch m := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "Usuário: %s\n", m.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Alfred: %s\n", m.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
