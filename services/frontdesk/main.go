package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/database"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	mw "github.com/innkeep/innkeep/pkg/middleware"
	"github.com/innkeep/innkeep/services/frontdesk/internal/clients"
	"github.com/innkeep/innkeep/services/frontdesk/internal/handlers"
	"github.com/innkeep/innkeep/services/frontdesk/internal/projector"
	"github.com/innkeep/innkeep/services/frontdesk/internal/repository"
	"github.com/innkeep/innkeep/services/frontdesk/internal/service"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
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

	// Upstream clients and the console state cache
	billingClient := clients.NewBillingClient(cfg.Frontdesk.BillingURL)
	portalClient := clients.NewPortalClient(cfg.Frontdesk.PortalURL)
	cache := statecache.New()

	// Initialize repositories and services
	staffRepo := repository.NewStaffRepository(pool)
	authService := service.NewAuthService(staffRepo, cfg)
	checkoutService := service.NewCheckoutService(billingClient, cache, cfg)

	// Projector keeps the cache fed from events, with polling as fallback.
	// Its upstream reads use a service-minted staff token.
	tokenSource := func() (string, error) {
		return auth.NewStaffToken(cfg.Frontdesk.TenantID, "projector@frontdesk", "staff", cfg.Auth.JWTSecret, 5*time.Minute)
	}
	proj := projector.New(eventBus, portalClient, cache, tokenSource, projector.Options{
		PollInterval:   cfg.Frontdesk.PollInterval,
		SafetyInterval: cfg.Frontdesk.SafetyInterval,
		WatchTTL:       cfg.Frontdesk.WatchTTL,
	})
	if err := proj.Start(ctx); err != nil {
		logger.Error("Failed to start projector", "error", err)
		os.Exit(1)
	}
	defer proj.Stop()

	// Initialize handlers
	h := handlers.New(authService, checkoutService, cache, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("frontdesk"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)

	// Routes
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireStaffJWT("staff"))
		r.Get("/board", h.Board)
		r.Post("/checkout/{reservation_id}", h.Checkout)
	})

	r.Route("/admin/users", func(r chi.Router) {
		r.Use(h.RequireStaffJWT("admin"))
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Patch("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})

	// Start server
	srv := &http.Server{
		Addr:         ":8083",
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

		logger.Info("Shutting down frontdesk service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Frontdesk service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting frontdesk service", "port", "8083")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Frontdesk service error", "error", err)
		os.Exit(1)
	}
}
