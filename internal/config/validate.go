package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for problems that would make the chat endpoint unusable.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Service credentials
	if c.Embedding.APIKey == "" {
		errs = append(errs, "MIXEDBREAD_API_KEY is required")
	}
	if c.Completion.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}

	switch c.Vector.Backend {
	case BackendPinecone:
		if c.Pinecone.APIKey == "" {
			errs = append(errs, "PINECONE_API_KEY is required")
		}
	case BackendPGVector:
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required for the pgvector backend")
		}
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("VECTOR_BACKEND must be %q or %q, got %q", BackendPinecone, BackendPGVector, c.Vector.Backend))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.RateLimit.Enabled() && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Chat.MaxMessages < 1 {
		errs = append(errs, fmt.Sprintf("CHAT_MAX_MESSAGES must be positive, got %d", c.Chat.MaxMessages))
	}
	if c.Upstream.RetryMax < 0 {
		errs = append(errs, fmt.Sprintf("UPSTREAM_RETRY_MAX must not be negative, got %d", c.Upstream.RetryMax))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, "UPSTREAM_TIMEOUT must be positive")
	}

	// CORS wildcard: warn only
	for _, o := range c.CORS.AllowedOrigins {
		if o == "*" {
			slog.Warn("CORS_ALLOWED_ORIGINS contains *, any site can call /api/chat")
			break
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
