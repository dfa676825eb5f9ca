package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV     string
		BaseURL string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Telegram struct {
		BotToken      string
		APIBaseURL    string
		WebhookSecret string
	}

	AI struct {
		BaseURL        string
		APIKey         string
		Model          string
		MaxConcurrent  int
		AttemptTimeout time.Duration
		MaxAttempts    int
		PromptPath     string
	}

	Payment struct {
		Provider      string
		APIID         string
		APIKey        string
		ProjectID     string
		InvoiceURL    string
		WebhookSecret string
		SuccessURL    string
		FailURL       string
		PriceRUB      int
	}

	Sympathy struct {
		AuthToken string
	}
}

func New() *Config {
	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "production")
	cfg.App.BaseURL = getEnvDefault("APP_BASE_URL", "http://127.0.0.1:8080")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "http_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "amica")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.APIBaseURL = getEnvDefault("TELEGRAM_API_BASE_URL", "https://api.telegram.org")
	cfg.Telegram.WebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")

	// AI backend
	cfg.AI.BaseURL = getEnvDefault("AI_BASE_URL", "https://api.openai.com/v1")
	cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.Model = getEnvDefault("AI_MODEL", "gpt-4o-mini")
	cfg.AI.MaxConcurrent = getEnvInt("AI_MAX_CONCURRENT", 1)
	cfg.AI.AttemptTimeout = getEnvDuration("AI_ATTEMPT_TIMEOUT", 25*time.Second)
	cfg.AI.MaxAttempts = getEnvInt("AI_MAX_ATTEMPTS", 3)
	cfg.AI.PromptPath = getEnvDefault("AI_PROMPT_PATH", "system_prompts/dating_ru.txt")

	// Payments
	cfg.Payment.Provider = getEnvDefault("PAYMENT_PROVIDER", "hmac")
	cfg.Payment.APIID = os.Getenv("PAYMENT_API_ID")
	cfg.Payment.APIKey = os.Getenv("PAYMENT_API_KEY")
	cfg.Payment.ProjectID = os.Getenv("PAYMENT_PROJECT_ID")
	cfg.Payment.InvoiceURL = os.Getenv("PAYMENT_INVOICE_URL")
	cfg.Payment.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	cfg.Payment.SuccessURL = os.Getenv("PAYMENT_SUCCESS_URL")
	cfg.Payment.FailURL = os.Getenv("PAYMENT_FAIL_URL")
	cfg.Payment.PriceRUB = getEnvInt("PAYMENT_PRICE_RUB", 1000)

	// Auth token shared with the main bot (sympathy + profile webhooks)
	cfg.Sympathy.AuthToken = os.Getenv("MAIN_BOT_AUTH_TOKEN")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
