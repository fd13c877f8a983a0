package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/staybuddy/internal/config"
	"github.com/avvvet/staybuddy/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSTransport serves the conversation over NATS request/reply.
type NATSTransport struct {
	conn         *nats.Conn
	config       *config.Config
	conversation Conversation
	logger       *zap.Logger
	subs         []*nats.Subscription
}

func NewNATSTransport(cfg *config.Config, conversation Conversation, logger *zap.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("📡 connected to NATS", zap.String("url", cfg.NatsURL))
	return NewNATSTransportWithConn(conn, cfg, conversation, logger), nil
}

// NewNATSTransportWithConn wraps an existing connection.
func NewNATSTransportWithConn(conn *nats.Conn, cfg *config.Config, conversation Conversation, logger *zap.Logger) *NATSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSTransport{
		conn:         conn,
		config:       cfg,
		conversation: conversation,
		logger:       logger,
	}
}

func (nt *NATSTransport) Start() error {
	routes := map[string]nats.MsgHandler{
		nt.config.NatsMessageSubject:    nt.handleMessage,
		nt.config.NatsInvalidateSubject: nt.handleInvalidate,
	}
	for subject, handler := range routes {
		sub, err := nt.conn.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("👂 subscribed", zap.String("subject", subject))
	}
	return nt.conn.Flush()
}

func (nt *NATSTransport) handleMessage(msg *nats.Msg) {
	var req models.MessageRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		nt.logger.Warn("invalid message request", zap.Error(err))
		nt.respond(msg, models.MessageResponse{Response: msgInvalidBody})
		return
	}
	if !complete(req) {
		nt.logger.Warn("incomplete message request", zap.String("hotel_id", req.HotelID))
		nt.respond(msg, models.MessageResponse{Identity: req.Identity, Response: msgMissingIdentity})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	reply := nt.conversation.HandleMessage(ctx, req)
	nt.respond(msg, models.MessageResponse{Identity: req.Identity, Response: reply})
}

func (nt *NATSTransport) handleInvalidate(msg *nats.Msg) {
	var req models.InvalidateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.HotelID == "" {
		nt.logger.Warn("invalid cache invalidation request", zap.Error(err))
		nt.respond(msg, models.InvalidateResponse{Message: msgInvalidBody})
		return
	}
	nt.respond(msg, invalidate(nt.conversation, req.HotelID))
}

func (nt *NATSTransport) respond(msg *nats.Msg, response any) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		nt.logger.Error("failed to send response", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		_ = sub.Unsubscribe()
	}
	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
