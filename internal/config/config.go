// Package config provides application configuration loaded from environment
// variables with defaults and validation.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port string

	// Storage
	MongoURI string
	DBName   string

	// Auth
	JWTSecret     string
	JWTTTL        time.Duration // dashboard session lifetime
	LoginTokenTTL time.Duration // magic-link validity
	LoginRateMax  int64         // max login requests per email per window
	LoginRateWin  time.Duration

	// URLs
	BaseURL      string // public URL of this API, used in login emails
	DashboardURL string // where /auth/redirect sends the browser

	// Email
	ResendAPIKey string
	FromEmail    string

	// Logging
	LogLevel  string // debug|info|warn|error
	LogPretty bool   // console logs in dev

	// Rate limiting (public feedback submission)
	RateRPS   float64
	RateBurst int

	// CORS
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables, applies defaults,
// and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		MongoURI: getenv("MONGODB_URI", ""),
		DBName:   getenv("DB_NAME", "qrfeedback"),

		JWTSecret:     getenv("JWT_SECRET", ""),
		JWTTTL:        getdur("JWT_TTL", 30*24*time.Hour),
		LoginTokenTTL: getdur("LOGIN_TOKEN_TTL", 15*time.Minute),
		LoginRateMax:  int64(getint("LOGIN_RATE_MAX", 5)),
		LoginRateWin:  getdur("LOGIN_RATE_WINDOW", 10*time.Minute),

		BaseURL:      getenv("BASE_URL", ""),
		DashboardURL: getenv("DASHBOARD_URL", "http://localhost:5173"),

		ResendAPIKey: getenv("RESEND_API_KEY", ""),
		FromEmail:    getenv("FROM_EMAIL", ""),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORSAllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.MongoURI == "" {
		return Config{}, errors.New("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.RateRPS < 0 {
		return Config{}, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return Config{}, errors.New("RATE_BURST must be >= 1")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
