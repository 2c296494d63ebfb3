// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	CorpusEmbedded = "embedded"
	CorpusFile     = "file"
	CorpusPostgres = "postgres"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-20250514",
}

type Config struct {
	Provider        string        `env:"LLM_PROVIDER" validate:"oneof=openai anthropic"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY" validate:"required_if=Provider openai"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY" validate:"required_if=Provider anthropic"`
	Model           string        `env:"GONGJA_MODEL" validate:"required"`
	Temperature     float64       `env:"GONGJA_TEMPERATURE" validate:"gte=0,lte=2"`
	TopP            float64       `env:"GONGJA_TOP_P" validate:"gt=0,lte=1"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" validate:"gt=0"`
	LLMMaxRetries   int           `env:"LLM_MAX_RETRIES" validate:"gte=0,lte=10"`

	CorpusSource string `env:"CORPUS_SOURCE" validate:"oneof=embedded file postgres"`
	CorpusPath   string `env:"CORPUS_PATH" validate:"required_if=CorpusSource file"`
	SampleSize   int    `env:"SAMPLE_SIZE" validate:"gt=0"`

	// KnowledgePath replaces the built-in knowledge base when set.
	KnowledgePath string `env:"KNOWLEDGE_PATH"`

	LogDir      string `env:"LOG_DIR" validate:"required"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=CorpusSource postgres"`
	NatsURL     string `env:"NATS_URL"`
	NatsToken   string `env:"NATS_TOKEN"`

	Port     int    `env:"GONGJA_PORT" validate:"gt=0,lte=65535"`
	APIToken string `env:"GONGJA_API_TOKEN"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`

	// Email is validated separately by ValidateEmail since only email mode needs it.
	Email EmailConfig `validate:"-"`
}

type EmailConfig struct {
	Account      string        `env:"EMAIL_ACCOUNT" validate:"required,email"`
	Password     string        `env:"EMAIL_PASSWORD" validate:"required"`
	IMAPServer   string        `env:"IMAP_SERVER" validate:"required"`
	SMTPServer   string        `env:"SMTP_SERVER" validate:"required"`
	SMTPPort     int           `env:"SMTP_PORT" validate:"gt=0,lte=65535"`
	Triggers     []string      `env:"MAIL_TRIGGERS" validate:"min=1"`
	Lookback     time.Duration `env:"MAIL_LOOKBACK" validate:"gt=0"`
	StatePath    string        `env:"MAIL_STATE_PATH" validate:"required"`
	TemplatePath string        `env:"MAIL_TEMPLATE"`
}

// ConfigurationError names the environment variables that are missing or
// hold unusable values.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Load reads the given env files (".env" when none are named; a missing file
// is not an error), then the environment, and validates everything except
// the email block.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	provider := strings.ToLower(envStr("LLM_PROVIDER", ProviderOpenAI))
	cfg := &Config{
		Provider:        provider,
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		Model:           envStr("GONGJA_MODEL", defaultModels[provider]),
		Temperature:     envFloat("GONGJA_TEMPERATURE", 0.8),
		TopP:            envFloat("GONGJA_TOP_P", 1),
		LLMTimeout:      envDuration("LLM_TIMEOUT", 120*time.Second),
		LLMMaxRetries:   envInt("LLM_MAX_RETRIES", 0),
		CorpusSource:    strings.ToLower(envStr("CORPUS_SOURCE", CorpusEmbedded)),
		CorpusPath:      envStr("CORPUS_PATH", ""),
		SampleSize:      envInt("SAMPLE_SIZE", 20),
		KnowledgePath:   envStr("KNOWLEDGE_PATH", ""),
		LogDir:          envStr("LOG_DIR", "txtfiles"),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		Port:            envInt("GONGJA_PORT", 8750),
		APIToken:        envStr("GONGJA_API_TOKEN", ""),
		LogLevel:        strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogFile:         envStr("LOG_FILE", ""),
		Email: EmailConfig{
			Account:      envStr("EMAIL_ACCOUNT", ""),
			Password:     envStr("EMAIL_PASSWORD", ""),
			IMAPServer:   envStr("IMAP_SERVER", ""),
			SMTPServer:   envStr("SMTP_SERVER", ""),
			SMTPPort:     envInt("SMTP_PORT", 587),
			Triggers:     envList("MAIL_TRIGGERS", []string{"고민", "상담"}),
			Lookback:     envDuration("MAIL_LOOKBACK", 24*time.Hour),
			StatePath:    envStr("MAIL_STATE_PATH", "data/mail-state.json"),
			TemplatePath: envStr("MAIL_TEMPLATE", ""),
		},
	}

	if err := check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseURL loads env files like Load but only requires DATABASE_URL, for
// commands that never call a model.
func DatabaseURL(envFiles ...string) (string, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("load env file: %w", err)
	}
	url := envStr("DATABASE_URL", "")
	if url == "" {
		return "", &ConfigurationError{Missing: []string{"DATABASE_URL"}}
	}
	return url, nil
}

// ValidateEmail checks the settings email mode needs.
func (c *Config) ValidateEmail() error {
	return check(&c.Email)
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	cerr := &ConfigurationError{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			cerr.Missing = append(cerr.Missing, fe.Field())
		default:
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s (%s)", fe.Field(), describe(fe)))
		}
	}
	return cerr
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
