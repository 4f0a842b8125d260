package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	AppEnv string
	Port   string

	PostgresURL string
	StoreDriver string

	AIProvider        string
	GeminiAPIKey      string
	GeminiReportModel string
	GeminiImageModel  string
	OpenAIAPIKey      string
	OpenAIModel       string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	PriceReportGeneration decimal.Decimal
	PriceImageGeneration  decimal.Decimal

	ProviderTimeout time.Duration
	LeaseTTL        time.Duration

	SMTP       SMTPConfig
	AlertEmail string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseSSL   bool
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Port > 0
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnvWithDefault("APP_ENV", "development"),
		Port:              getEnvWithDefault("PORT", "8080"),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		StoreDriver:       strings.ToLower(getEnvWithDefault("STORE_DRIVER", StoreDriverPostgres)),
		AIProvider:        strings.ToLower(getEnvWithDefault("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiReportModel: getEnvWithDefault("GEMINI_REPORT_MODEL", "gemini-2.0-flash"),
		GeminiImageModel:  getEnvWithDefault("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		SupabaseBucket:    getEnvWithDefault("SUPABASE_BUCKET", "client-images"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AlertEmail:        os.Getenv("ALERT_EMAIL"),
	}

	var err error
	if cfg.PriceReportGeneration, err = getDecimal("PRICE_REPORT_GENERATION", "0.16"); err != nil {
		return nil, err
	}
	if cfg.PriceImageGeneration, err = getDecimal("PRICE_IMAGE_GENERATION", "0.39"); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getDuration("PROVIDER_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.LeaseTTL, err = getDuration("LEASE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.LeaseTTL <= cfg.ProviderTimeout {
		// the lease must outlive the slowest provider call plus persistence
		cfg.LeaseTTL = cfg.ProviderTimeout + 30*time.Second
	}

	smtpPort, err := strconv.Atoi(getEnvWithDefault("SMTP_PORT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     smtpPort,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnvWithDefault("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		UseSSL:   smtpPort == 465,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s. Use 'postgres' or 'memory'", c.StoreDriver)
	}

	switch c.AIProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported AI_PROVIDER: %s. Use 'openai' or 'gemini'", c.AIProvider)
	}

	if !c.PriceReportGeneration.IsPositive() || !c.PriceImageGeneration.IsPositive() {
		return fmt.Errorf("service prices must be positive")
	}
	if !c.PriceReportGeneration.Equal(c.PriceReportGeneration.Round(2)) ||
		!c.PriceImageGeneration.Equal(c.PriceImageGeneration.Round(2)) {
		return fmt.Errorf("service prices must have at most 2 decimal places")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// getEnvWithDefault returns environment variable or default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDecimal(key, defaultValue string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
