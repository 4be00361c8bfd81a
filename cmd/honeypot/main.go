package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/api"
	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/classifier"
	"github.com/MikeSquared-Agency/honeypot/internal/config"
	"github.com/MikeSquared-Agency/honeypot/internal/hermes"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/responder"
	"github.com/MikeSquared-Agency/honeypot/internal/slack"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("honeypot starting", "port", cfg.Port, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := store.Open(ctx, cfg.StoreDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("store ready", "driver", cfg.StoreDriver)

	book, err := phrases.Load(cfg.PhrasesFile)
	if err != nil {
		slog.Error("failed to load phrase book", "path", cfg.PhrasesFile, "error", err)
		os.Exit(1)
	}

	registry := state.NewRegistry(state.Options{
		Similarity: cfg.Similarity(),
		Tactics:    book.TacticPools(),
	}, cfg.RandomSeed)

	opts := processor.Options{
		Registry: registry,
		Store:    db,
		Book:     book,
		Policy:   callback.Policy{MinTurns: cfg.MinEngagementTurns},
	}

	// Anthropic client (optional: without it every reply is built locally)
	var llm *classifier.LLM
	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		opts.Generator = responder.New(client, book, cfg.LLMTimeout, slog.Default())
		if cfg.LLMClassifier {
			llm = classifier.NewLLM(client)
		}
		slog.Info("anthropic client ready", "model", cfg.AnthropicModel, "llm_classifier", llm != nil)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, replies come from the phrase book only")
	}
	opts.Classifier = classifier.NewHybrid(llm, classifier.NewRules(classifier.DefaultThreshold), slog.Default())

	if cfg.CallbackURL != "" {
		opts.Reporter = callback.NewReporter(cfg.CallbackURL, slog.Default())
		slog.Info("callback reporter ready", "url", cfg.CallbackURL, "min_turns", cfg.MinEngagementTurns)
	}

	// Slack poster (optional: operators see delivered reports in a channel)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		opts.Notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	// NATS/Hermes (optional)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts.Publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	proc := processor.New(opts, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectMessageReceived, proc.HandleInbound); err != nil {
			slog.Error("failed to subscribe to inbound messages", "error", err)
			os.Exit(1)
		}
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	srv := api.NewServer(cfg.Port, cfg.APIKey, proc, slog.Default())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("honeypot ready", "port", cfg.Port)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
	}

	// Let pending result reports finish before the store closes.
	proc.Wait()
	if hermesClient != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := hermesClient.Flush(flushCtx); err != nil {
			slog.Warn("pending events not flushed", "error", err)
		}
		cancel()
	}
	slog.Info("honeypot stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
