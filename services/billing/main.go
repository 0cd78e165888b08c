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
	"github.com/innkeep/innkeep/pkg/database"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	mw "github.com/innkeep/innkeep/pkg/middleware"
	"github.com/innkeep/innkeep/services/billing/internal/handlers"
	"github.com/innkeep/innkeep/services/billing/internal/repository"
	"github.com/innkeep/innkeep/services/billing/internal/service"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	folioRepo := repository.NewFolioRepository(pool)

	// Initialize services
	billingService := service.NewBillingService(folioRepo, eventBus, cfg)

	// Initialize handlers
	h := handlers.New(billingService, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("billing"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)

	// Routes
	r.Post("/webhooks/stripe", h.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireStaffJWT("staff"))
		r.Get("/folios/{reservation_id}", h.GetFolio)
		r.Post("/checkout", h.Checkout)
	})

	// Start server
	srv := &http.Server{
		Addr:         ":8082",
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

		logger.Info("Shutting down billing service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Billing service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting billing service", "port", "8082")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Billing service error", "error", err)
		os.Exit(1)
	}
}
