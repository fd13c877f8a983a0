package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Service configuration
	ServiceName string
	Env         string
	LogLevel    string
	HTTPAddr    string
	Timezone    string

	// Hotel gateway
	BackendURL     string
	APISecretKey   string
	GatewayTimeout time.Duration

	// Session store
	RedisURL   string
	SessionTTL time.Duration

	// NATS configuration
	NatsEnabled           bool
	NatsURL               string
	NatsMessageSubject    string
	NatsInvalidateSubject string
	NatsTimeout           time.Duration

	// Language capability
	LLMProvider    string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMContextTTL  time.Duration
	LLMTemperature float64
	LLMMaxTokens   int

	// Conversation
	TurnTimeout        time.Duration
	HistoryWindow      int
	KnowledgeCacheSize int
	RetrievalTopK      int

	Heuristics Heuristics
}

// Heuristics holds the keyword vocabularies used when the language model
// answers with plain text instead of a structured tool call.
type Heuristics struct {
	ReactivationKeywords []string
	EscalationKeywords   []string
	ConfirmationKeywords []string
	ConfirmationPatterns []string
}

var (
	ErrMissingBackendURL = errors.New("BACKEND_URL is required")
	ErrMissingAPISecret  = errors.New("API_SECRET_KEY is required")
	ErrMissingLLMKey     = errors.New("LLM_API_KEY is required")
)

// DefaultHeuristics is the vocabulary shipped with the service.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ReactivationKeywords: []string{"reativar bot", "voltar bot", "bot ativo", "quero falar com bot"},
		EscalationKeywords: []string{
			"falar com um atendente", "falar com atendente", "falar com um humano",
			"falar com humano", "atendente humano", "chamar atendente", "pessoa real",
		},
		ConfirmationKeywords: []string{
			"sim", "quero", "gostaria", "fazer", "reservar", "confirmar",
			"aceito", "ok", "beleza", "vamos", "pode", "pode ser",
			"gostei", "perfeito", "ótimo", "excelente", "vou", "vou fazer",
		},
		ConfirmationPatterns: []string{
			`quero\s+(fazer|reservar)`,
			`gostaria\s+de\s+(fazer|reservar)`,
			`vou\s+(fazer|reservar)`,
			`pode\s+(ser|fazer)`,
			`fazer\s+a\s+reserva`,
			`reservar\s+o?\s*quarto`,
		},
	}
}

// Load reads the configuration from the environment, loading .env first
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	defaults := DefaultHeuristics()
	cfg := &Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		Timezone:    v.GetString("TIMEZONE"),

		BackendURL:     strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		APISecretKey:   v.GetString("API_SECRET_KEY"),
		GatewayTimeout: v.GetDuration("GATEWAY_TIMEOUT"),

		RedisURL:   v.GetString("REDIS_URL"),
		SessionTTL: v.GetDuration("SESSION_TTL"),

		NatsEnabled:           v.GetBool("NATS_ENABLED"),
		NatsURL:               v.GetString("NATS_URL"),
		NatsMessageSubject:    v.GetString("NATS_MESSAGE_SUBJECT"),
		NatsInvalidateSubject: v.GetString("NATS_INVALIDATE_SUBJECT"),
		NatsTimeout:           v.GetDuration("NATS_TIMEOUT"),

		LLMProvider:    v.GetString("LLM_PROVIDER"),
		LLMAPIKey:      v.GetString("LLM_API_KEY"),
		LLMModel:       v.GetString("LLM_MODEL"),
		LLMTimeout:     v.GetDuration("LLM_TIMEOUT"),
		LLMContextTTL:  v.GetDuration("LLM_CONTEXT_TTL"),
		LLMTemperature: v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:   v.GetInt("LLM_MAX_TOKENS"),

		TurnTimeout:        v.GetDuration("TURN_TIMEOUT"),
		HistoryWindow:      v.GetInt("HISTORY_WINDOW"),
		KnowledgeCacheSize: v.GetInt("KNOWLEDGE_CACHE_SIZE"),
		RetrievalTopK:      v.GetInt("RETRIEVAL_TOP_K"),

		Heuristics: Heuristics{
			ReactivationKeywords: getListEnv(v, "REACTIVATION_KEYWORDS", defaults.ReactivationKeywords),
			EscalationKeywords:   getListEnv(v, "ESCALATION_KEYWORDS", defaults.EscalationKeywords),
			ConfirmationKeywords: getListEnv(v, "CONFIRMATION_KEYWORDS", defaults.ConfirmationKeywords),
			ConfirmationPatterns: getListEnv(v, "CONFIRMATION_PATTERNS", defaults.ConfirmationPatterns),
		},
	}

	return cfg, nil
}

// Validate checks the settings without which no turn can be served.
func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, ErrMissingBackendURL)
	}
	if c.APISecretKey == "" {
		errs = append(errs, ErrMissingAPISecret)
	}
	if c.LLMAPIKey == "" {
		errs = append(errs, ErrMissingLLMKey)
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "staybuddy")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")

	v.SetDefault("GATEWAY_TIMEOUT", 15*time.Second)

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", time.Hour)

	v.SetDefault("NATS_ENABLED", false)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_MESSAGE_SUBJECT", "booking.message")
	v.SetDefault("NATS_INVALIDATE_SUBJECT", "booking.cache.invalidate")
	v.SetDefault("NATS_TIMEOUT", 30*time.Second)

	v.SetDefault("LLM_PROVIDER", "googleai")
	v.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	v.SetDefault("LLM_TIMEOUT", 30*time.Second)
	v.SetDefault("LLM_CONTEXT_TTL", 24*time.Hour)
	v.SetDefault("LLM_TEMPERATURE", 0.2)
	v.SetDefault("LLM_MAX_TOKENS", 1024)

	v.SetDefault("TURN_TIMEOUT", 60*time.Second)
	v.SetDefault("HISTORY_WINDOW", 10)
	v.SetDefault("KNOWLEDGE_CACHE_SIZE", 100)
	v.SetDefault("RETRIEVAL_TOP_K", 3)
}

// getListEnv reads a comma separated list, falling back to defaultValue when
// the variable is unset or blank.
func getListEnv(v *viper.Viper, key string, defaultValue []string) []string {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}

	var values []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
