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

	"street-dispatch/internal/api"
	apimw "street-dispatch/internal/api/middleware"
	"street-dispatch/internal/bootstrap"
	"street-dispatch/internal/config"
	"street-dispatch/internal/database"
	"street-dispatch/internal/logger"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"
	"street-dispatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. --- Configuration ---
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET must be set for the API server")
		os.Exit(1)
	}

	// 2. --- Database Connection ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("unable to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("connected to the database")

	// 3. --- Dependency Injection ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	mods, err := bootstrap.New(ctx, dbPool, cfg, log, collector)
	if err != nil {
		log.Error("failed to wire modules", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. --- Echo and Middleware ---
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.GetValidator()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Error("request failed", append(attrs, slog.String("error", v.Error.Error()))...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(apimw.Metrics(collector))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 5. --- Router ---
	api.SetupRoutes(e, api.Handlers{
		Users:    users.NewHandler(mods.Users),
		Streets:  streets.NewHandler(mods.Streets),
		Routes:   routes.NewHandler(mods.Routes),
		Requests: requests.NewHandler(mods.Requests),
		Reports:  reports.NewHandler(mods.Reports),
	}, cfg.JWTSecret, registry, log)

	// 6. --- Start Server with graceful shutdown ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	log.Info("server exiting")
}
