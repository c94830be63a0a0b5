// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth (Discord)
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	// Session
	// SessionSecretはセッショントークンの署名鍵。必須で、ソースコードには埋め込まない。
	SessionSecret string
	SessionTTL    time.Duration

	// Frontend
	FrontendURL string

	// LLM
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Reader（記事本文抽出サービス）
	ReaderBaseURL string
	ReaderTimeout time.Duration
	ReaderMaxSize int64

	// Rate Limit（req/min/user）
	RateLimitGeneral    int
	RateLimitCompletion int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は不足している変数名をすべて含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.DiscordClientID = required("DISCORD_CLIENT_ID")
	cfg.DiscordClientSecret = required("DISCORD_CLIENT_SECRET")
	cfg.DiscordRedirectURL = required("DISCORD_REDIRECT_URL")
	cfg.SessionSecret = required("SESSION_SECRET")
	cfg.OpenAIAPIKey = required("OPENAI_API_KEY")
	cfg.FrontendURL = required("FRONTEND_URL")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 7*24*time.Hour)
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4-turbo")
	cfg.ReaderBaseURL = getEnvString("READER_BASE_URL", "https://r.jina.ai/")
	cfg.ReaderTimeout = getEnvDuration("READER_TIMEOUT", 20*time.Second)
	cfg.ReaderMaxSize = getEnvInt64("READER_MAX_SIZE", 2<<20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCompletion = getEnvInt("RATE_LIMIT_COMPLETION", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "80")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.RateLimitGeneral <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL must be positive, got %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitCompletion <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_COMPLETION must be positive, got %d", cfg.RateLimitCompletion)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
