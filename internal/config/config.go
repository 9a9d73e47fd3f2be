// Package config loads the server configuration from environment
// variables. Empty backend URLs mean the corresponding adapter is not
// wired and the in-memory fallback is used.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	NatsURL       string
	NatsToken     string
	LogLevel      string
	GraphFile     string
	SessionTTL    time.Duration
	LockTTL       time.Duration
	APIToken      string

	// EncryptionKey is a base64-encoded 32-byte key. When set, session
	// data is encrypted at rest.
	EncryptionKey string

	// PIIMask holds regex patterns; session data keys matching any of
	// them are masked before persistence.
	PIIMask []string
}

func Load() Config {
	return Config{
		Port:          envInt("PARLEY_PORT", 8780),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		GraphFile:     envStr("PARLEY_GRAPH", ""),
		SessionTTL:    envDuration("PARLEY_SESSION_TTL", 0),
		LockTTL:       envDuration("PARLEY_LOCK_TTL", 30*time.Second),
		APIToken:      envStr("PARLEY_API_TOKEN", ""),
		EncryptionKey: envStr("PARLEY_ENCRYPTION_KEY", ""),
		PIIMask:       envList("PARLEY_PII_MASK"),
	}
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
