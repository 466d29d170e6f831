package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Vector index backends.
const (
	BackendPinecone = "pinecone"
	BackendPGVector = "pgvector"
)

type Config struct {
	Server     ServerConfig
	Chat       ChatConfig
	Embedding  EmbeddingConfig
	Pinecone   PineconeConfig
	Completion CompletionConfig
	Upstream   UpstreamConfig
	Vector     VectorConfig
	DB         DBConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	NATS       NATSConfig
	CORS       CORSConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	// WriteTimeout is derived from Upstream.Timeout so a chat request can
	// spend the full timeout on each of its three service calls.
	WriteTimeout time.Duration
}

type ChatConfig struct {
	Profile     string
	MaxMessages int
}

type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type PineconeConfig struct {
	APIKey     string
	Index      string
	Namespace  string
	IndexHost  string
	ControlURL string
}

type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// UpstreamConfig tunes the HTTP client shared by every external service call.
type UpstreamConfig struct {
	Timeout  time.Duration
	RetryMax int
}

type VectorConfig struct {
	Backend string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	// MigrationsPath is applied on startup when the pgvector backend is selected.
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig enables the per-IP chat limiter when Requests > 0.
type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

func (c RateLimitConfig) Enabled() bool {
	return c.Requests > 0
}

// NATSConfig enables chat event publishing when URL is set.
type NATSConfig struct {
	URL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.ParserEnv("", ".", envKey))

	// Load environment variables (override .env)
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

// envKey maps MIXEDBREAD_API_KEY to mixedbread.api.key.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "."))
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		Chat: ChatConfig{
			Profile:     k.String("chat.profile"),
			MaxMessages: k.Int("chat.max.messages"),
		},
		Embedding: EmbeddingConfig{
			APIKey:  k.String("mixedbread.api.key"),
			BaseURL: k.String("embedding.base.url"),
			Model:   k.String("embedding.model"),
		},
		Pinecone: PineconeConfig{
			APIKey:     k.String("pinecone.api.key"),
			Index:      k.String("pinecone.index"),
			Namespace:  k.String("pinecone.namespace"),
			IndexHost:  k.String("pinecone.host"),
			ControlURL: k.String("pinecone.control.url"),
		},
		Completion: CompletionConfig{
			APIKey:  k.String("openai.api.key"),
			BaseURL: k.String("completion.base.url"),
			Model:   k.String("completion.model"),
		},
		Upstream: UpstreamConfig{
			RetryMax: k.Int("upstream.retry.max"),
		},
		Vector: VectorConfig{
			Backend: k.String("vector.backend"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),

			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		RateLimit: RateLimitConfig{
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chat.Profile == "" {
		cfg.Chat.Profile = "movie"
	}
	if cfg.Chat.MaxMessages == 0 {
		cfg.Chat.MaxMessages = 50
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.mixedbread.ai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "mixedbread-ai/mxbai-embed-large-v1"
	}
	if cfg.Pinecone.Index == "" {
		cfg.Pinecone.Index = "rag"
	}
	if cfg.Pinecone.Namespace == "" {
		cfg.Pinecone.Namespace = "ns1"
	}
	if cfg.Pinecone.ControlURL == "" {
		cfg.Pinecone.ControlURL = "https://api.pinecone.io"
	}
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "openai/gpt-3.5-turbo"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = BackendPinecone
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "ragchat"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "ragchat"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	timeoutStr := k.String("upstream.timeout")
	if timeoutStr == "" {
		timeoutStr = "60s"
	}
	var err error
	cfg.Upstream.Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream timeout: %w", err)
	}
	cfg.Server.WriteTimeout = 3*cfg.Upstream.Timeout + 15*time.Second

	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
