package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/opnlabs/donorbot/config"
	"github.com/opnlabs/donorbot/llm"
	"github.com/opnlabs/donorbot/payments"
	"github.com/opnlabs/donorbot/policy"
	"github.com/opnlabs/donorbot/rag"
	"github.com/opnlabs/donorbot/session"
	"github.com/opnlabs/donorbot/store"
	"github.com/opnlabs/donorbot/transcribe"
	"github.com/opnlabs/donorbot/webhook"
	"github.com/opnlabs/donorbot/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	log.Info().
		Int("port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Str("model", cfg.LLMModel).
		Str("org", cfg.OrgName).
		Msg("starting donorbot")

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	// Initialize clients
	model := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	provider := payments.NewClient(cfg.AsaasBaseURL, cfg.AsaasAPIKey, cfg.OrgName, cfg.AsaasTimeout)
	knowledge := rag.NewClient(cfg.KnowledgeURL, cfg.KnowledgeTimeout)
	channel := whatsapp.NewClient(cfg.GraphBaseURL, cfg.PhoneNumberID, cfg.AccessToken, cfg.GraphTimeout)
	transcriber := transcribe.NewClient(cfg.TranscribeBaseURL, cfg.TranscribeAPIKey, cfg.TranscribeModel, cfg.LLMTimeout)

	// Initialize policy engine
	ctx := context.Background()
	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize policy engine")
	}

	// Initialize conversation engine
	handlers := session.NewHandlers(provider, knowledge, db, log)
	engine := session.NewEngine(session.Options{
		Model:         model,
		ModelName:     cfg.LLMModel,
		Handlers:      handlers,
		Gate:          gate,
		Store:         db,
		OrgName:       cfg.OrgName,
		HistoryLimit:  cfg.HistoryLimit,
		SummaryWindow: cfg.SummaryWindow,
		DonationCap:   cfg.DonationCapBRL,
		Logger:        log,
	})

	// Initialize webhook handler
	h := webhook.NewHandler(engine, channel, transcriber, cfg.VerifyToken, log)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Msg("webhook listening")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	log.Info().Msg("donorbot stopped")
}
