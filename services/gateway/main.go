package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	mw "github.com/innkeep/innkeep/pkg/middleware"
	"github.com/innkeep/innkeep/services/gateway/internal/proxy"
)

// newRouter maps the public surface onto the three upstream services.
func newRouter(cfg *config.Config, portal, billing, frontdesk http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Guest-facing portal: QR validation, sessions, shortlinks, requests.
	r.Handle("/guest/*", portal)
	r.Handle("/q/*", portal)
	r.Handle("/staff/requests", portal)
	r.Handle("/staff/requests/*", portal)

	// Billing: folios, the checkout decision and the Stripe webhook.
	r.Handle("/folios/*", billing)
	r.Handle("/checkout", billing)
	r.Handle("/webhooks/*", billing)

	// Front-desk console. Console checkout carries a reservation id in the
	// path, which keeps it distinct from billing's bare /checkout.
	r.Handle("/login", frontdesk)
	r.Handle("/board", frontdesk)
	r.Handle("/checkout/*", frontdesk)
	r.Handle("/admin/*", frontdesk)

	return r
}

func main() {
	cfg := config.Load()

	r := newRouter(cfg,
		proxy.NewServiceProxy(cfg.Gateway.PortalURL),
		proxy.NewServiceProxy(cfg.Gateway.BillingURL),
		proxy.NewServiceProxy(cfg.Gateway.FrontdeskURL),
	)

	srv := &http.Server{
		Addr:         ":8080",
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

		logger.Info("Shutting down gateway...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway",
		"port", "8080",
		"portal", cfg.Gateway.PortalURL,
		"billing", cfg.Gateway.BillingURL,
		"frontdesk", cfg.Gateway.FrontdeskURL,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway error", "error", err)
		os.Exit(1)
	}
}
