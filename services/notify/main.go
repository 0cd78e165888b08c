package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	mw "github.com/innkeep/innkeep/pkg/middleware"
	"github.com/innkeep/innkeep/services/notify/internal/mailer"
	"github.com/innkeep/innkeep/services/notify/internal/sms"
	"github.com/innkeep/innkeep/services/notify/internal/worker"
)

func buildMailer(cfg *config.Config) mailer.Mailer {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS,
	)
}

func buildSMS(cfg *config.Config) sms.Sender {
	if cfg.SMS.DevMode || cfg.SMS.GatewayURL == "" {
		return sms.NewDevSender()
	}
	return sms.NewGatewaySender(cfg.SMS.GatewayURL, cfg.SMS.APIKey, cfg.SMS.Sender)
}

func main() {
	cfg := config.Load()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.New(eventBus, buildMailer(cfg), buildSMS(cfg))
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start notification worker", "error", err)
		os.Exit(1)
	}
	defer w.Stop()

	// Tiny HTTP surface so orchestration can health-check the consumer.
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)

	srv := &http.Server{
		Addr:         ":8084",
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")
		cancel()

		sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer scancel()

		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", "8084")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
