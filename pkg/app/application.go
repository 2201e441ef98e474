package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"navalha/pkg/config"
	"navalha/pkg/contracts"
	"navalha/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Application assembles three handler chains: health endpoints with minimal
// middleware, tenant-facing endpoints behind unit auth and idempotency, and
// provider webhooks which carry their own idempotency and no unit scope.
type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	healthHandler    http.Handler
	appHandler       http.Handler
	webhookHandler   http.Handler
}

func NewApplication() *Application {
	return &Application{}
}

func (a *Application) SetApp(cfg *config.Config, appHandler contracts.Handler, webhookHandler contracts.Handler) {
	a.cfg = cfg
	a.setHealthHandler(cfg)
	a.setAppHandler(cfg, appHandler)
	a.setWebhookHandler(cfg, webhookHandler)
	a.setAppServer()
}

func (a *Application) setHealthHandler(cfg *config.Config) {
	healthRouter := httprouter.New()
	healthHandler := NewHealthHandler(cfg.Client.Mongo, cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.healthHandler = h
}

func (a *Application) setAppHandler(cfg *config.Config, appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	if cfg.RedisAddr != "" {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log)
		cfg.Log.Info("Idempotency store backed by Redis", "addr", cfg.RedisAddr)
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
		cfg.Log.Info("Idempotency store backed by memory")
	}

	var h http.Handler = appRouter
	h = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(h)
	h = middleware.RequestTimeout(cfg.RequestTimeout)(h)
	h = middleware.UnitAuth(cfg.JWTSecret, cfg.Log)(h)
	h = middleware.ContentTypeValidation(cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.appHandler = h
	cfg.Log.Info("Application endpoints configured with unit auth middleware stack")
}

func (a *Application) setWebhookHandler(cfg *config.Config, webhookHandler contracts.Handler) {
	if webhookHandler == nil {
		return
	}

	webhookRouter := httprouter.New()
	webhookHandler.RegisterRoutes(webhookRouter)

	var h http.Handler = webhookRouter
	h = middleware.RequestTimeout(cfg.RequestTimeout)(h)
	h = middleware.ContentTypeValidation(cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.webhookHandler = h
	cfg.Log.Info("Webhook endpoints configured without unit auth")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.webhookHandler != nil {
		mux.Handle("/api/v1/webhooks/", a.webhookHandler)
	}
	mux.Handle("/", a.appHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Run blocks until the server fails or a shutdown signal arrives. Cleanup
// callbacks run after the HTTP server has drained, in the order given.
func (a *Application) Run(cleanup ...func()) {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown(cleanup...)
	}
}

func (a *Application) gracefulShutdown(cleanup ...func()) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.idempotencyStore.Stop()
	for _, fn := range cleanup {
		fn()
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
