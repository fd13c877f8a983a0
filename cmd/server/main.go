package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/staybuddy/internal/config"
	"github.com/avvvet/staybuddy/internal/dates"
	"github.com/avvvet/staybuddy/internal/gateway"
	"github.com/avvvet/staybuddy/internal/handlers"
	"github.com/avvvet/staybuddy/internal/knowledge"
	"github.com/avvvet/staybuddy/internal/llm"
	"github.com/avvvet/staybuddy/internal/logger"
	"github.com/avvvet/staybuddy/internal/memory"
	"github.com/avvvet/staybuddy/internal/metrics"
	"github.com/avvvet/staybuddy/internal/retrieval"
	"github.com/avvvet/staybuddy/internal/tools"
	"github.com/avvvet/staybuddy/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("❌ service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("🚀 starting StayBuddy",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("llm_model", cfg.LLMModel),
	)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	calendar := dates.NewCalendar(loc, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("staybuddy", reg)

	gw := gateway.NewClient(cfg.BackendURL, cfg.APISecretKey, cfg.GatewayTimeout, calendar, m, log.Named("gateway"))

	// Without Redis every turn starts from an empty session.
	var store memory.Store
	redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		log.Warn("⚠️ redis unavailable, running without session memory", zap.Error(err))
	} else {
		store = redisStore
		log.Info("💾 redis connected", zap.Duration("session_ttl", cfg.SessionTTL))
	}
	sessions := memory.NewManager(store, log.Named("memory"))
	defer sessions.Close()

	ctx := context.Background()
	backend, err := llm.NewBackend(ctx, cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		return err
	}
	provider := llm.NewLangChainProvider(backend.Model, log.Named("llm"),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithContextTTL(cfg.LLMContextTTL),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
	)

	var retriever retrieval.Retriever = retrieval.Nop{}
	if backend.Embedder != nil {
		retriever = retrieval.NewGatewayRetriever(backend.Embedder, gw, cfg.RetrievalTopK, log.Named("retrieval"))
	}

	cache, err := knowledge.NewCache(gw, cfg.KnowledgeCacheSize, m, log.Named("knowledge"))
	if err != nil {
		return err
	}

	heuristics, err := tools.NewHeuristics(cfg.Heuristics)
	if err != nil {
		return fmt.Errorf("invalid heuristics: %w", err)
	}

	conversation := handlers.NewConversationHandler(handlers.Dependencies{
		Sessions:    sessions,
		History:     memory.NewHistoryWindow(cfg.HistoryWindow),
		Knowledge:   cache,
		Retriever:   retriever,
		Provider:    provider,
		Dispatcher:  tools.NewDispatcher(sessions, gw, calendar, m, log.Named("tools")),
		Heuristics:  heuristics,
		Calendar:    calendar,
		Metrics:     m,
		Logger:      log.Named("conversation"),
		TurnTimeout: cfg.TurnTimeout,
	})

	var nt *transport.NATSTransport
	if cfg.NatsEnabled {
		nt, err = transport.NewNATSTransport(cfg, conversation, log.Named("nats"))
		if err != nil {
			return err
		}
		defer nt.Close()
		if err := nt.Start(); err != nil {
			return err
		}
	}

	server := transport.NewHTTPServer(cfg.HTTPAddr, cfg.APISecretKey, cfg.ServiceName, conversation, reg, log.Named("http"))
	if store != nil {
		server.AddHealthCheck("redis", redisStore.Ping)
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	log.Info("✅ StayBuddy is running", zap.String("http_addr", cfg.HTTPAddr), zap.Bool("nats", cfg.NatsEnabled))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("🛑 received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("⚠️ http server forced to shut down", zap.Error(err))
	}

	log.Info("👋 StayBuddy stopped")
	return nil
}
