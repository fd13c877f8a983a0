package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/staybuddy/internal/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	headerAPIKey = "x-api-key"

	msgInvalidAPIKey   = "Chave de API inválida ou ausente."
	msgInvalidBody     = "Corpo da requisição inválido."
	msgMissingIdentity = "Os campos user_id, lead_whatsapp_number e message são obrigatórios."
)

// Conversation is what the transports need from the orchestrator.
type Conversation interface {
	HandleMessage(ctx context.Context, req models.MessageRequest) string
	InvalidateKnowledgeCache(hotelID string) bool
}

// HTTPServer exposes the conversation over HTTP.
type HTTPServer struct {
	conversation Conversation
	apiKey       string
	serviceName  string
	gatherer     prometheus.Gatherer
	logger       *zap.Logger
	server       *http.Server

	checks []healthCheck
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// NewHTTPServer creates the server. A nil gatherer serves the default
// Prometheus registry.
func NewHTTPServer(addr, apiKey, serviceName string, conversation Conversation, gatherer prometheus.Gatherer, logger *zap.Logger) *HTTPServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HTTPServer{
		conversation: conversation,
		apiKey:       apiKey,
		serviceName:  serviceName,
		gatherer:     gatherer,
		logger:       logger,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	protected := r.PathPrefix("").Subrouter()
	protected.Use(s.requireAPIKey)
	protected.HandleFunc("/process_whatsapp_message", s.handleMessage).Methods(http.MethodPost)
	protected.HandleFunc("/invalidate-cache/{hotelId}", s.handleInvalidate).Methods(http.MethodPost)

	return r
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (s *HTTPServer) ListenAndServe() error {
	s.logger.Info("🌐 HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// AddHealthCheck registers a dependency probed by /health. A failing
// dependency marks the service degraded; it keeps answering, so the status
// code stays 200. Register checks before serving.
func (s *HTTPServer) AddHealthCheck(name string, check func(ctx context.Context) error) {
	s.checks = append(s.checks, healthCheck{name: name, check: check})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := make(map[string]string, len(s.checks))
	for _, hc := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := hc.check(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", zap.String("check", hc.name), zap.Error(err))
			checks[hc.name] = err.Error()
			status = "degraded"
			continue
		}
		checks[hc.name] = "ok"
	}

	body := map[string]any{
		"status":  status,
		"service": s.serviceName,
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("POST /process_whatsapp_message - invalid body", zap.Error(err))
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": msgInvalidBody})
		return
	}
	if !complete(req) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": msgMissingIdentity})
		return
	}

	reply := s.conversation.HandleMessage(r.Context(), req)
	respondJSON(w, http.StatusOK, models.MessageResponse{Identity: req.Identity, Response: reply})
}

func (s *HTTPServer) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	hotelID := mux.Vars(r)["hotelId"]
	resp := invalidate(s.conversation, hotelID)
	status := http.StatusOK
	if !resp.Found {
		status = http.StatusNotFound
	}
	respondJSON(w, status, resp)
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerAPIKey)
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.logger.Warn("rejected request without a valid api key", zap.String("path", r.URL.Path))
			respondJSON(w, http.StatusUnauthorized, map[string]string{"detail": msgInvalidAPIKey})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// complete reports whether req names the hotel, the guest and a message.
// The guest identity keys the session, so it can never be blank.
func complete(req models.MessageRequest) bool {
	return strings.TrimSpace(req.HotelID) != "" &&
		strings.TrimSpace(req.Identity) != "" &&
		strings.TrimSpace(req.Message) != ""
}

// invalidate is shared by the HTTP and NATS transports.
func invalidate(conversation Conversation, hotelID string) models.InvalidateResponse {
	if conversation.InvalidateKnowledgeCache(hotelID) {
		return models.InvalidateResponse{
			HotelID: hotelID,
			Found:   true,
			Message: fmt.Sprintf("Cache para o usuário %s foi limpo.", hotelID),
		}
	}
	return models.InvalidateResponse{
		HotelID: hotelID,
		Message: fmt.Sprintf("Nenhum cache encontrado para o usuário %s.", hotelID),
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
