package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mauv0809/pairup/internal/config"
	"github.com/mauv0809/pairup/internal/database"
	server "github.com/mauv0809/pairup/internal/http"
	"github.com/mauv0809/pairup/internal/inngest"
	"github.com/mauv0809/pairup/internal/lifecycle"
	"github.com/mauv0809/pairup/internal/matchmaking"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/mauv0809/pairup/internal/notifier/slack"
	tgnotifier "github.com/mauv0809/pairup/internal/notifier/telegram"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/pubsub"
	"github.com/mauv0809/pairup/internal/store"
	"github.com/mauv0809/pairup/internal/telegram"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	policy, err := matchmaking.ParsePolicy(cfg.Matching.RematchPolicy)
	if err != nil {
		log.Fatalf("Failed to parse rematch policy: %s", err)
	}

	mainStore := store.New(db)
	statsStore := metrics.New(db)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	matchmaker := matchmaking.New(mainStore, metricsSvc,
		matchmaking.WithPolicy(policy),
		matchmaking.WithMaxAttempts(cfg.Matching.MaxAttempts),
	)
	controller := lifecycle.New(mainStore, metricsSvc, lifecycle.WithMaxAttempts(cfg.Matching.MaxAttempts))

	// Chat notifiers deliver to people. With Pub/Sub configured, commands only
	// publish and the push endpoints deliver.
	var delivery notifier.Multi
	if cfg.Slack.Enabled() {
		delivery = append(delivery, slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc))
	}
	var tgAPI *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" {
		tgAPI, err = telegram.NewAPI(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("Failed to initialize telegram: %s", err)
		}
		delivery = append(delivery, tgnotifier.NewNotifier(tgAPI, metricsSvc))
	}
	if len(delivery) == 0 {
		log.Warn("No chat notifier configured, notifications are dropped")
	}

	var commandNotifier processor.Notifier = delivery
	var ps pubsub.PubSubClient
	if cfg.ProjectID != "" {
		client, teardown, err := pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
		defer teardown()
		ps = client
		commandNotifier = pubsub.NewPublisher(client)
	}

	proc := processor.New(mainStore, matchmaker, controller, commandNotifier, metricsSvc, statsStore).
		WithMaxAttempts(cfg.Matching.MaxAttempts)

	var inngestClient inngest.InngestClient
	if cfg.Inngest.Enabled() {
		provider, err := inngest.NewClient(cfg.Inngest.AppID, cfg.Inngest.SigningKey, cfg.Inngest.EventKey, cfg.Inngest.Dev)
		if err != nil {
			log.Fatalf("Failed to initialize inngest: %s", err)
		}
		inngestClient, err = inngest.New(provider, proc)
		if err != nil {
			log.Fatalf("Failed to register inngest functions: %s", err)
		}
	}

	s := server.NewServer(proc, metricsSvc, metricsHandler, delivery, ps, inngestClient)

	if tgAPI != nil {
		bot := telegram.New(tgAPI, proc, false)
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("Telegram bot stopped", "error", err)
			}
		}()
	}

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")

		// Create a context with a timeout for the shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
