package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"street-dispatch/internal/bootstrap"
	"street-dispatch/internal/cli"
	"street-dispatch/internal/config"
	"street-dispatch/internal/database"
	"street-dispatch/internal/logger"
	"street-dispatch/internal/metrics"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return cli.New(cli.Services{}, os.Stdout, logger.Discard()).Run(context.Background(), args)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stdout, "Error: %v\n", err)
		return 1
	}

	// stdout carries command output, so logs go to stderr
	log := logger.Setup(os.Stderr, cfg.LogLevel).With(slog.String("invocation_id", uuid.NewString()))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database unavailable", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stdout, "Error: database unavailable: %v\n", err)
		return 1
	}
	defer pool.Close()

	mods, err := bootstrap.New(ctx, pool, cfg, log, metrics.Nop{})
	if err != nil {
		fmt.Fprintf(os.Stdout, "Error: %v\n", err)
		return 1
	}

	initSchema := func(context.Context) error {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("database schema is up to date")
		return nil
	}

	return cli.New(mods.CLIServices(initSchema), os.Stdout, log).Run(ctx, args)
}
