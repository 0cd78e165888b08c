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
	"github.com/innkeep/innkeep/services/portal/internal/handlers"
	"github.com/innkeep/innkeep/services/portal/internal/repository"
	"github.com/innkeep/innkeep/services/portal/internal/service"
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

	// Idempotency replays are shared across replicas via redis
	idemStore, err := mw.NewRedisIdempotencyStore(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer idemStore.Close()

	// Initialize repositories
	qrRepo := repository.NewQRRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	scanLogRepo := repository.NewScanLogRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)

	// Expired rate limit rows accumulate forever without a sweep.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go repository.SweepExpired(sweepCtx, rateLimitRepo, time.Hour)

	// Initialize services
	sessionService := service.NewSessionService(qrRepo, sessionRepo, scanLogRepo, rateLimitRepo, cfg)
	requestService := service.NewRequestService(requestRepo, eventBus, cfg)

	// Initialize handlers
	h := handlers.New(sessionService, requestService, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("portal"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)

	// Routes
	r.Get("/q/{code}", h.ResolveShortlink)

	r.Route("/guest", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)

		r.Route("/requests", func(r chi.Router) {
			r.Use(h.RequireGuestSession)
			r.With(mw.IdempotencyMiddleware(idemStore)).Post("/", h.CreateRequest)
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
		})
	})

	r.Route("/staff", func(r chi.Router) {
		r.Use(h.RequireStaffJWT("staff"))
		r.Get("/requests", h.ListTenantRequests)
		r.Get("/requests/{id}", h.GetTenantRequest)
		r.Patch("/requests/{id}/status", h.UpdateRequestStatus)
	})

	// Start server
	srv := &http.Server{
		Addr:         ":8081",
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

		logger.Info("Shutting down portal service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Portal service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting portal service", "port", "8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Portal service error", "error", err)
		os.Exit(1)
	}
}
