package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Gateway       GatewayConfig
	CRM           CRMConfig
	Reasoning     ReasoningConfig
	Orchestration OrchestrationConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// GatewayConfig points at the chat gateway that actually talks to the lead.
type GatewayConfig struct {
	BaseURL string
	Token   string
}

type CRMConfig struct {
	BaseURL string
	Token   string

	// BotUserId is the CRM user the assistant writes notes as. Notes from any
	// other user mean a human operator has taken over the conversation.
	BotUserId string

	// Raw CRM pipeline status ids mapped into stage classifications.
	HumanAttentionStages []int
	NotInterestedStages  []int
	MeetingLockedStages  []int
}

type ReasoningConfig struct {
	Provider     string // "ollama" or any chat-completions compatible server
	BaseURL      string
	Model        string
	SystemPrompt string
}

// OrchestrationConfig carries the cadence policy. The defaults below are the
// empirically tuned reference values; all of them are business policy and
// overridable per deployment.
type OrchestrationConfig struct {
	QuietPeriod    time.Duration
	MaxFragments   int
	BufferCacheTTL time.Duration

	TypingMin            time.Duration
	TypingMax            time.Duration
	TypingShort          time.Duration
	TypingMedium         time.Duration
	TypingLong           time.Duration
	TypingShortMaxRunes  int
	TypingMediumMaxRunes int

	PauseDuration time.Duration

	FollowUpDelays    []time.Duration
	FollowUpTick      time.Duration
	BusinessStartHour int
	BusinessEndHour   int
	BusinessTimezone  string

	OptOutKeywords []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Gateway: GatewayConfig{
			BaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:8081"),
			Token:   getEnv("GATEWAY_TOKEN", ""),
		},
		CRM: CRMConfig{
			BaseURL:              getEnv("CRM_BASE_URL", ""),
			Token:                getEnv("CRM_TOKEN", ""),
			BotUserId:            getEnv("CRM_BOT_USER_ID", ""),
			HumanAttentionStages: getEnvAsIntList("CRM_STAGES_HUMAN_ATTENTION", "142"),
			NotInterestedStages:  getEnvAsIntList("CRM_STAGES_NOT_INTERESTED", "143"),
			MeetingLockedStages:  getEnvAsIntList("CRM_STAGES_MEETING_LOCKED", "144"),
		},
		Reasoning: ReasoningConfig{
			Provider:     getEnv("LLM_PROVIDER", "ollama"),
			BaseURL:      getEnv("LLM_BASE_URL", "http://localhost:11434"),
			Model:        getEnv("LLM_MODEL", "llama3"),
			SystemPrompt: getEnv("LLM_SYSTEM_PROMPT", "You are a friendly sales assistant qualifying leads over chat."),
		},
		Orchestration: OrchestrationConfig{
			QuietPeriod:    getEnvAsDuration("BUFFER_QUIET_PERIOD", 8*time.Second),
			MaxFragments:   getEnvAsInt("BUFFER_MAX_FRAGMENTS", 15),
			BufferCacheTTL: getEnvAsDuration("BUFFER_CACHE_TTL", 10*time.Minute),

			TypingMin:            getEnvAsDuration("TYPING_MIN", 1*time.Second),
			TypingMax:            getEnvAsDuration("TYPING_MAX", 15*time.Second),
			TypingShort:          getEnvAsDuration("TYPING_SHORT", 2*time.Second),
			TypingMedium:         getEnvAsDuration("TYPING_MEDIUM", 6*time.Second),
			TypingLong:           getEnvAsDuration("TYPING_LONG", 12*time.Second),
			TypingShortMaxRunes:  getEnvAsInt("TYPING_SHORT_MAX_RUNES", 80),
			TypingMediumMaxRunes: getEnvAsInt("TYPING_MEDIUM_MAX_RUNES", 280),

			PauseDuration: getEnvAsDuration("HANDOFF_PAUSE_DURATION", 24*time.Hour),

			FollowUpDelays: []time.Duration{
				getEnvAsDuration("FOLLOWUP_DELAY_1", 30*time.Minute),
				getEnvAsDuration("FOLLOWUP_DELAY_2", 24*time.Hour),
				getEnvAsDuration("FOLLOWUP_DELAY_3", 72*time.Hour),
			},
			FollowUpTick:      getEnvAsDuration("FOLLOWUP_TICK_INTERVAL", 30*time.Second),
			BusinessStartHour: getEnvAsInt("BUSINESS_START_HOUR", 8),
			BusinessEndHour:   getEnvAsInt("BUSINESS_END_HOUR", 20),
			BusinessTimezone:  getEnv("BUSINESS_TIMEZONE", "America/Sao_Paulo"),

			OptOutKeywords: getEnvAsList("OPT_OUT_KEYWORDS", "stop,unsubscribe,sair"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsIntList(key, fallback string) []int {
	out := make([]int, 0)
	for _, p := range getEnvAsList(key, fallback) {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	return out
}
