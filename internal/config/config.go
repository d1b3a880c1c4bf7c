// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App         AppConfig         `koanf:"app"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	State       StateConfig       `koanf:"state"`
	Telegram    TelegramConfig    `koanf:"telegram"`
	Gemini      GeminiConfig      `koanf:"gemini"`
	Audio       AudioConfig       `koanf:"audio"`
	Mixpanel    MixpanelConfig    `koanf:"mixpanel"`
	Entitlement EntitlementConfig `koanf:"entitlement"`
	Products    []ProductConfig   `koanf:"products"`
	Promo       PromoConfig       `koanf:"promo"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	Log         LogConfig         `koanf:"log"`
	Otel        OtelConfig        `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

type StateConfig struct {
	Backend   string        `koanf:"backend"`
	KeyPrefix string        `koanf:"key_prefix"`
	WaitTTL   time.Duration `koanf:"wait_ttl"`
}

const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

type TelegramConfig struct {
	Token          string `koanf:"token"`
	Mode           string `koanf:"mode"`
	APIEndpoint    string `koanf:"api_endpoint"`
	WebhookURL     string `koanf:"webhook_url"`
	WebhookSecret  string `koanf:"webhook_secret"`
	PollTimeout    int    `koanf:"poll_timeout"`
	SupportContact string `koanf:"support_contact"`
}

type GeminiConfig struct {
	APIKey        string  `koanf:"api_key"`
	BaseURL       string  `koanf:"base_url"`
	AnalysisModel string  `koanf:"analysis_model"`
	TTSModel      string  `koanf:"tts_model"`
	Voice         string  `koanf:"voice"`
	SystemPrompt  string  `koanf:"system_prompt"`
	Temperature   float64 `koanf:"temperature"`
}

type AudioConfig struct {
	FFmpegPath string `koanf:"ffmpeg_path"`
	SampleRate int    `koanf:"sample_rate"`
	Channels   int    `koanf:"channels"`
}

type MixpanelConfig struct {
	Token  string `koanf:"token"`
	APIURL string `koanf:"api_url"`
}

type EntitlementConfig struct {
	Timezone       string `koanf:"timezone"`
	RecheckOnRetry bool   `koanf:"recheck_on_retry"`
}

type ProductConfig struct {
	Code         string `koanf:"code"          validate:"required,startswith=sub_"`
	Kind         string `koanf:"kind"          validate:"required,oneof=monthly yearly"`
	DurationDays int    `koanf:"duration_days" validate:"required,min=1"`
	Title        string `koanf:"title"         validate:"required"`
	Description  string `koanf:"description"`
	Label        string `koanf:"label"         validate:"required"`
	Price        int    `koanf:"price"         validate:"required,min=1"`
	Currency     string `koanf:"currency"      validate:"required,len=3"`
}

type PromoConfig struct {
	Seed []PromoSeedConfig `koanf:"seed"`
}

type PromoSeedConfig struct {
	Code         string `koanf:"code"          validate:"required,alphanum,max=100"`
	DurationDays int    `koanf:"duration_days" validate:"required,min=1"`
	MaxUses      int    `koanf:"max_uses"      validate:"min=0"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Voice Tutor Bot",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"state.backend":    StateBackendMemory,
		"state.key_prefix": "voicetutor:",
		"state.wait_ttl":   "15m",

		"telegram.mode":            TelegramModePolling,
		"telegram.api_endpoint":    "https://api.telegram.org/bot%s/%s",
		"telegram.poll_timeout":    25,
		"telegram.support_contact": "@kamancho_dev",

		"gemini.base_url":       "https://generativelanguage.googleapis.com/v1beta",
		"gemini.analysis_model": "gemini-3-flash-preview",
		"gemini.tts_model":      "gemini-2.5-flash-preview-tts",
		"gemini.voice":          "Aoede",
		"gemini.temperature":    0.5,
		"gemini.system_prompt":  defaultSystemPrompt,

		"audio.ffmpeg_path": "ffmpeg",
		"audio.sample_rate": 24000,
		"audio.channels":    1,

		"mixpanel.api_url": "https://api.mixpanel.com",

		"entitlement.timezone":         "Local",
		"entitlement.recheck_on_retry": false,

		"products": []map[string]any{
			{
				"code":          "sub_yearly",
				"kind":          "yearly",
				"duration_days": 365,
				"title":         "🌟 Premium Yearly Subscription",
				"description":   "(Save 58%) Get access to premium features for 1 year",
				"label":         "Yearly",
				"price":         2499,
				"currency":      "XTR",
			},
			{
				"code":          "sub_monthly",
				"kind":          "monthly",
				"duration_days": 30,
				"title":         "🌟 Premium Monthly Subscription",
				"description":   "Get access to premium features for 30 days",
				"label":         "Monthly",
				"price":         499,
				"currency":      "XTR",
			},
		},

		"promo.seed": []map[string]any{
			{"code": "FREE30", "duration_days": 30, "max_uses": 1000},
			{"code": "WELCOME7", "duration_days": 7, "max_uses": 1000},
			{"code": "TRIAL3", "duration_days": 3, "max_uses": 1000},
		},

		"rate_limit.requests": 600,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    100,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "voice-tutor",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

const defaultSystemPrompt = "You are an expert Spanish language tutor. " +
	"Listen to the user, give grammatical corrections and feedback in English, " +
	"then write a natural conversational reply in Spanish of 15-30 words that ends with a question. " +
	"Return strictly a JSON object with exactly two string keys: " +
	"\"text_analysis\" and \"dialogue_to_speak\"."

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"STATE_BACKEND":               "state.backend",
	"TELEGRAM_BOT_TOKEN":          "telegram.token",
	"TELEGRAM_MODE":               "telegram.mode",
	"TELEGRAM_WEBHOOK_URL":        "telegram.webhook_url",
	"TELEGRAM_WEBHOOK_SECRET":     "telegram.webhook_secret",
	"GEMINI_API_KEY":              "gemini.api_key",
	"GEMINI_BASE_URL":             "gemini.base_url",
	"MAIN_PROMPT":                 "gemini.system_prompt",
	"FFMPEG_PATH":                 "audio.ffmpeg_path",
	"MIXPANEL_TOKEN":              "mixpanel.token",
	"ENTITLEMENT_TIMEZONE":        "entitlement.timezone",
	"ENTITLEMENT_RECHECK_RETRY":   "entitlement.recheck_on_retry",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	switch c.Telegram.Mode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("TELEGRAM_WEBHOOK_URL is required in webhook mode")
		}
		if c.Telegram.WebhookSecret == "" {
			return fmt.Errorf("TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
		}
	default:
		return fmt.Errorf("telegram.mode must be %q or %q", TelegramModePolling, TelegramModeWebhook)
	}

	switch c.State.Backend {
	case StateBackendMemory:
	case StateBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when state.backend is redis")
		}
	default:
		return fmt.Errorf("state.backend must be %q or %q", StateBackendMemory, StateBackendRedis)
	}

	if _, err := c.Entitlement.Location(); err != nil {
		return err
	}

	v := validator.New(validator.WithRequiredStructEnabled())

	if len(c.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}
	seen := make(map[string]bool, len(c.Products))
	for i, p := range c.Products {
		if err := v.Struct(p); err != nil {
			return fmt.Errorf("products[%d]: %w", i, err)
		}
		if seen[p.Code] {
			return fmt.Errorf("products[%d]: duplicate code %q", i, p.Code)
		}
		seen[p.Code] = true
	}

	for i, s := range c.Promo.Seed {
		if err := v.Struct(s); err != nil {
			return fmt.Errorf("promo.seed[%d]: %w", i, err)
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (e EntitlementConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(e.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("entitlement.timezone: %w", err)
	}
	return loc, nil
}
