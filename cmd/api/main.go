// Package main is the entry point for the ticket counter API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"

	"github.com/busops/ticket-counter/internal/backend"
	"github.com/busops/ticket-counter/internal/config"
	"github.com/busops/ticket-counter/internal/handler"
	"github.com/busops/ticket-counter/internal/middleware"
	"github.com/busops/ticket-counter/internal/repo"
	"github.com/busops/ticket-counter/internal/service"
	"github.com/busops/ticket-counter/internal/session"
	"github.com/busops/ticket-counter/internal/telemetry"
	"github.com/busops/ticket-counter/migrations"
)

const serviceName = "ticket-counter"

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Tracing ----------------------------------------------------------
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		slog.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := migrate(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	checks := []handler.Check{{Name: "postgres", Ping: pool.Ping}}

	// --- Session store ----------------------------------------------------
	var sessions session.Store
	if cfg.RedisURL != "" {
		rdb, err := session.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		slog.Info("using redis session store")
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		slog.Info("using in-memory session store")
	}

	// --- Services ---------------------------------------------------------
	client, err := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	if err != nil {
		slog.Error("invalid backend configuration", "error", err)
		os.Exit(1)
	}
	sales := repo.NewSaleRepo(pool)
	search := service.NewSearchService(client)
	booking := service.NewBookingService(service.BookingDeps{
		Sessions:     sessions,
		Search:       search,
		Seats:        service.NewSeatService(client),
		Reservations: service.NewReservationService(client, logger),
		Sales:        sales,
		Logger:       logger,
		RecheckSeats: cfg.RecheckSeats,
		// Re-check and submission are one backend call each.
		CheckoutTimeout: 3*cfg.BackendTimeout + 15*time.Second,
	})

	srv := handler.NewServer(handler.Deps{
		Booking:   booking,
		Search:    search,
		Reference: client,
		Sales:     service.NewSalesService(sales),
		Checks:    checks,
		Logger:    logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Tracing → Logger →
	// Recoverer → CORS → MaxBodySize. Authentication wraps only the API
	// routes; health and the OpenAPI document stay public.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTracing(otel.GetTracerProvider()))
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", handler.NewRouter(srv, middleware.NewActorHandler([]byte(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout leaves room for a checkout that waits on the backend.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.BackendTimeout*3 + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// migrate applies every pending goose migration through a database/sql
// handle borrowed from pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}
