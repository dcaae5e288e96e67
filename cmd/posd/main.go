// Command posd runs the storefront API server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/mohammeioi/Market-Management-sub000/internal/app"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/httpapi"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/metrics"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage/postgres"
	storesupabase "github.com/mohammeioi/Market-Management-sub000/internal/app/storage/supabase"
	"github.com/mohammeioi/Market-Management-sub000/internal/config"
	"github.com/mohammeioi/Market-Management-sub000/internal/middleware"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
	"github.com/mohammeioi/Market-Management-sub000/supabase/client"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		envFile    = flag.String("env", ".env", "path to an optional .env file")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("posd").WithError(err).Fatal("load configuration")
	}

	log := logger.New(logger.Config{
		Component: "posd",
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, realtimeClient, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("initialise storage")
	}
	defer cleanup()

	application, err := app.New(stores, app.Options{
		AttendancePath: cfg.Attendance.StatePath,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("initialise application")
	}
	if realtimeClient != nil {
		if err := application.AttachRealtime(realtimeClient); err != nil {
			log.WithError(err).Fatal("attach realtime watcher")
		}
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("stop application")
		}
	}()

	handler := buildHandler(application, cfg, log)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}

// gatewayIntrospector resolves bearer tokens through the gateway's auth API.
type gatewayIntrospector struct {
	auth *client.AuthClient
}

func (g gatewayIntrospector) Introspect(ctx context.Context, token string) (middleware.TokenIdentity, error) {
	u, err := g.auth.GetUser(ctx, token)
	if err != nil {
		return middleware.TokenIdentity{}, err
	}
	return middleware.TokenIdentity{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func buildStores(ctx context.Context, cfg config.Config, log *logger.Logger) (app.Stores, *client.RealtimeClient, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "supabase":
		c, err := client.New(client.Config{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.APIKey,
		})
		if err != nil {
			return app.Stores{}, nil, noop, err
		}
		store := storesupabase.New(c)
		var rc *client.RealtimeClient
		if cfg.Supabase.Realtime {
			rc = client.NewRealtimeClient(cfg.Supabase.URL, cfg.Supabase.APIKey)
		}
		return app.Stores{Catalog: store, Orders: store}, rc, noop, nil

	case "postgres":
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return app.Stores{}, nil, noop, err
		}
		return app.Stores{Catalog: store, Orders: store}, nil, func() { _ = store.Close() }, nil

	default:
		log.Warn("using in-memory storage; data will not survive a restart")
		return app.Stores{}, nil, noop, nil
	}
}

func buildHandler(application *app.Application, cfg config.Config, log *logger.Logger) http.Handler {
	api := httpapi.NewHandlerWithAudit(application, cfg.Audit.Path)

	var handler http.Handler = api
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst, log)
	limiter.StartCleanup(10 * time.Minute)
	handler = limiter.Handler(handler)

	switch {
	case cfg.Supabase.JWTSecret != "":
		auth := middleware.NewAuthMiddleware([]byte(cfg.Supabase.JWTSecret), log, []string{
			"/health", "/metrics",
		})
		handler = auth.Handler(handler)

	case cfg.Storage.Backend == "supabase":
		// No shared secret; validate each token against the gateway instead.
		c, err := client.New(client.Config{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.APIKey,
		})
		if err != nil {
			log.WithError(err).Fatal("initialise auth client")
		}
		auth := middleware.NewIntrospectingAuthMiddleware(gatewayIntrospector{auth: c.Auth()}, log, []string{
			"/health", "/metrics",
		})
		handler = auth.Handler(handler)
		log.Info("validating tokens against the gateway; set SUPABASE_JWT_SECRET to verify locally")

	default:
		log.Warn("SUPABASE_JWT_SECRET not set; API authentication disabled")
	}

	handler = middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins).Handler(handler)
	handler = middleware.NewTracingMiddleware(log).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", handler)
	return root
}
