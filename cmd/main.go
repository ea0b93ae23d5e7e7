package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/ai"
	"github.com/Bharath-S-J/Intent-Chat/pkg/auth"
	"github.com/Bharath-S-J/Intent-Chat/pkg/contacts"
	"github.com/Bharath-S-J/Intent-Chat/pkg/hub"
	"github.com/Bharath-S-J/Intent-Chat/pkg/mailer"
	"github.com/Bharath-S-J/Intent-Chat/pkg/messaging"
	"github.com/Bharath-S-J/Intent-Chat/pkg/routes"
	"github.com/Bharath-S-J/Intent-Chat/pkg/store"
	"github.com/Bharath-S-J/Intent-Chat/pkg/upload"

	_ "github.com/Bharath-S-J/Intent-Chat/docs"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Server.Level()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting Intent Chat server", "port", cfg.Server.Port, "env", cfg.Server.Env)

	// 1. Initialize Storage
	storage, err := store.NewStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.InitSchema(ctx); err != nil {
		return err
	}

	// 2. Initialize WebSocket Hub
	wsHub := hub.NewHub(storage, hub.NewPresence(), cfg.WebSocket, logger)
	if storage.RDB != nil {
		wsHub.EnableRedisSync(storage.RDB, cfg.Redis.Channel)
		go wsHub.ListenToRedis(ctx)
	}

	// 3. External services
	aiClient := ai.NewClient(cfg.AI, logger)
	if cfg.AI.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, tones will resolve to unknown")
	}

	cloud, err := upload.NewCloudinary(cfg.Upload, logger)
	if err != nil {
		return err
	}
	var uploader messaging.Uploader
	if cloud.Configured() {
		uploader = cloud
	} else {
		logger.Warn("Cloudinary credentials not set, image messages are disabled")
	}

	mail := mailer.NewSMTPMailer(cfg.Mail, logger)

	// 4. Messaging pipeline
	gate := messaging.NewGate(storage, storage, cfg.Messaging.UnansweredLimit, logger)
	enricher := messaging.NewToneEnricher(aiClient, storage, wsHub, logger)
	messages := messaging.NewService(storage, storage, gate, uploader, wsHub, enricher, logger)
	contactSvc := contacts.NewService(storage, mail, wsHub, cfg.ClientURL, logger)

	// 5. Initialize HTTP router
	router := routes.NewRouter(routes.Deps{
		Hub:      wsHub,
		Verifier: auth.NewVerifier(cfg.JWT),
		Messages: messages,
		Contacts: contactSvc,
		Replier:  aiClient,
		Config:   cfg,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server is ready to accept connections", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := enricher.Wait(shutdownCtx); err != nil {
		logger.Warn("Tone tasks still running at shutdown", "error", err)
	}
	return nil
}
