package configs

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

var global *Config

// defaultPersona seeds the bot's character when no override is configured or
// stored.
const defaultPersona = "Eres Doctor Scum, un asistente de chat sarcástico pero servicial. " +
	"Respondes siempre en español, con respuestas breves y directas, y nunca inventas datos."

type Config struct {
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	APIKey   string `env:"API_KEY"`

	DBPath string `env:"DB_PATH" envDefault:"data/doctor-scum.db"`

	// OwnerIDs are phone numbers or full JIDs; bare numbers are normalized
	// at wiring time.
	OwnerIDs []string `env:"OWNER_IDS" envSeparator:","`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY,notEmpty"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4.1"`

	DefaultPersona     string  `env:"DEFAULT_PERSONA"`
	DefaultTemperature float64 `env:"DEFAULT_TEMPERATURE" envDefault:"0.7"`

	MaxTurns            int           `env:"MAX_TURNS" envDefault:"18"`
	KeepRecentTurns     int           `env:"KEEP_RECENT_TURNS" envDefault:"12"`
	SessionInactivity   time.Duration `env:"SESSION_INACTIVITY" envDefault:"1h"`
	MaxResponseTokens   int           `env:"MAX_RESPONSE_TOKENS" envDefault:"500"`
	SummaryTargetTokens int           `env:"SUMMARY_TARGET_TOKENS" envDefault:"150"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if strings.TrimSpace(cfg.DefaultPersona) == "" {
		cfg.DefaultPersona = defaultPersona
	}

	owners := make([]string, 0, len(cfg.OwnerIDs))
	for _, id := range cfg.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			owners = append(owners, id)
		}
	}
	cfg.OwnerIDs = owners

	global = cfg
	return cfg, nil
}

func GetGlobal() *Config {
	return global
}
