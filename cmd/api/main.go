package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/moviebox/ragchat/internal/api"
	"github.com/moviebox/ragchat/internal/chat"
	"github.com/moviebox/ragchat/internal/completion"
	"github.com/moviebox/ragchat/internal/config"
	"github.com/moviebox/ragchat/internal/database"
	"github.com/moviebox/ragchat/internal/embedding"
	"github.com/moviebox/ragchat/internal/httpclient"
	mw "github.com/moviebox/ragchat/internal/middleware"
	inats "github.com/moviebox/ragchat/internal/nats"
	"github.com/moviebox/ragchat/internal/rag"
	iredis "github.com/moviebox/ragchat/internal/redis"
	"github.com/moviebox/ragchat/internal/server"
	"github.com/moviebox/ragchat/internal/vectorindex"
	"github.com/moviebox/ragchat/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	profile, err := rag.LookupProfile(cfg.Chat.Profile)
	if err != nil {
		slog.Error("selecting chat profile", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	upstream := httpclient.New(cfg.Upstream)

	// Vector index
	var (
		index vectorindex.Index
		pool  *pgxpool.Pool
	)
	switch cfg.Vector.Backend {
	case config.BackendPGVector:
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("migrating database", "error", err)
			os.Exit(1)
		}
		pool, err = database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		index = vectorindex.NewPGVector(pool, cfg.Pinecone.Namespace)
	default:
		index = vectorindex.NewPinecone(upstream, cfg.Pinecone)
	}

	responder := rag.NewResponder(
		embedding.NewMixedbread(upstream, cfg.Embedding),
		index,
		completion.NewOpenAI(upstream, cfg.Completion),
		profile,
	)

	// Redis (optional, rate limiting)
	var (
		redisClient *goredis.Client
		chatLimiter func(http.Handler) http.Handler
	)
	if cfg.RateLimit.Enabled() {
		redisClient, err = iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		chatLimiter = mw.NewRateLimiter(redisClient, "ratelimit:chat:", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec).Middleware
	}

	// NATS (optional, chat events)
	var (
		natsClient *inats.Client
		events     chat.EventPublisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		events = inats.NewPublisher(natsClient.JetStream())
	}

	chatHandler := chat.NewHandler(responder, chat.NewValidator(cfg.Chat.MaxMessages), profile.Info(), events)

	router := api.NewRouter(
		api.Dependencies{Pool: pool, Redis: redisClient, NATS: natsClient},
		api.RouterConfig{
			CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
			ChatRateLimiter:    chatLimiter,
		},
		api.HandlerSet{
			Chat:    chatHandler.Chat,
			Profile: chatHandler.Profile,
			Widget:  web.Handler(),
		},
	)

	slog.Info("chat service configured",
		"profile", profile.Name,
		"vector_backend", cfg.Vector.Backend,
		"completion_model", cfg.Completion.Model,
		"rate_limit", cfg.RateLimit.Enabled(),
		"events", natsClient != nil,
	)

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
