// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	LLM         LLMConfig
	Voice       VoiceConfig
	// ConfirmPauseDelay is how long the confirmation detector waits before
	// pausing an active voice call, so a detection effect cannot re-trigger
	// pause while it is still settling.
	ConfirmPauseDelay time.Duration
}

// LLMConfig configures the hosted LLM text-completion provider.
type LLMConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	MaxTokens          int
	RequestTimeout     time.Duration
	MaxAttempts        int
	RetryBaseDelay     time.Duration
	RateLimitPerMinute int
}

// VoiceConfig configures the hosted real-time voice-call provider.
type VoiceConfig struct {
	ServerURL   string
	PublicKey   string
	AssistantID string
	// SettleDelay is the fixed wait after a resumed call is confirmed active
	// before the "I'm back" message is sent.
	SettleDelay    time.Duration
	ConnectTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		DBPath:            getEnv("DB_PATH", "./data/codejitsu.db"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 60*time.Minute),
		ConfirmPauseDelay: getEnvDuration("CONFIRM_PAUSE_DELAY", time.Second),
		LLM: LLMConfig{
			APIKey:             getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:            getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:              getEnv("LLM_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens:          getEnvInt("LLM_MAX_TOKENS", 2000),
			RequestTimeout:     getEnvDuration("LLM_REQUEST_TIMEOUT", 120*time.Second),
			MaxAttempts:        getEnvInt("LLM_MAX_ATTEMPTS", 3),
			RetryBaseDelay:     getEnvDuration("LLM_RETRY_BASE_DELAY", 3*time.Second),
			RateLimitPerMinute: getEnvInt("LLM_RATE_LIMIT_PER_MINUTE", 60),
		},
		Voice: VoiceConfig{
			ServerURL:      getEnv("VOICE_SERVER_URL", "wss://voice.codejitsu.dev/ws"),
			PublicKey:      getEnv("VOICE_PUBLIC_KEY", ""),
			AssistantID:    getEnv("VOICE_ASSISTANT_ID", ""),
			SettleDelay:    getEnvDuration("VOICE_SETTLE_DELAY", time.Second),
			ConnectTimeout: getEnvDuration("VOICE_CONNECT_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. Provider
// credentials are deliberately not validated here: their absence disables
// the corresponding gateway with an explicit configuration error at call
// time rather than preventing the rest of the server from starting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be > 0")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be > 0")
	}
	if c.LLM.RetryBaseDelay <= 0 {
		return fmt.Errorf("LLM_RETRY_BASE_DELAY must be > 0")
	}
	if c.LLM.RateLimitPerMinute <= 0 {
		return fmt.Errorf("LLM_RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.ConfirmPauseDelay < 0 {
		return fmt.Errorf("CONFIRM_PAUSE_DELAY cannot be negative")
	}
	return nil
}

// LLMEnabled reports whether the LLM gateway credentials are configured.
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}

// VoiceEnabled reports whether the voice provider credentials are configured.
func (c *Config) VoiceEnabled() bool {
	return c.Voice.PublicKey != "" && c.Voice.AssistantID != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
