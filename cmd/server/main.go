package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/billing"
	"github.com/oggyb/amica/internal/cache"
	"github.com/oggyb/amica/internal/config"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/genai"
	"github.com/oggyb/amica/internal/logger"
	"github.com/oggyb/amica/internal/prompt"
	"github.com/oggyb/amica/internal/server"
	"github.com/oggyb/amica/internal/service/chat"
	"github.com/oggyb/amica/internal/service/match"
	"github.com/oggyb/amica/internal/service/payment"
	"github.com/oggyb/amica/internal/service/profile"
	"github.com/oggyb/amica/internal/telegram"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	// Match state machine
	matchSvc := match.NewService(appCtx)

	// Payment pipeline
	provider := billing.New(cfg, nil)
	paymentSvc := payment.NewService(appCtx, matchSvc, provider, cfg.Payment.PriceRUB)

	// Generation gateway: one process-wide gate in front of the backend
	retry := genai.DefaultRetryConfig()
	retry.MaxAttempts = cfg.AI.MaxAttempts
	retry.AttemptTimeout = cfg.AI.AttemptTimeout
	gateway := genai.NewGateway(
		genai.NewClient(genai.ClientConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
		}, nil),
		genai.WithGate(genai.NewGate(cfg.AI.MaxConcurrent)),
		genai.WithRetryConfig(retry),
		genai.WithLogger(log),
	)

	// Conversation orchestrator and its worker pool
	sender := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL, nil)
	prompts := prompt.NewBuilderFromFile(cfg.AI.PromptPath)
	chatSvc := chat.NewService(appCtx, matchSvc, paymentSvc, gateway, sender, prompts, cfg.Payment.PriceRUB)
	queue := chat.NewQueue(chatSvc, log, 256)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx, 4)

	profileSvc := profile.NewService(appCtx)

	registrars := []server.Registrar{
		chat.NewRegistrar(appCtx, chatSvc, queue, cfg.Telegram.WebhookSecret),
		match.NewRegistrar(appCtx, matchSvc, cfg.Sympathy.AuthToken),
		payment.NewRegistrar(appCtx, paymentSvc),
		profile.NewRegistrar(appCtx, profileSvc, cfg.Sympathy.AuthToken),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
