// Package bootstrap wires repositories and services over one connection pool for the
// API server and the command-line tool.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"street-dispatch/internal/cli"
	"street-dispatch/internal/config"
	"street-dispatch/internal/database"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/modules/dataimport"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"
	"street-dispatch/pkg/email"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Modules struct {
	Users    *users.Service
	Streets  *streets.Service
	Routes   *routes.Service
	Requests *requests.Service
	Reports  *reports.Service
	Importer *dataimport.Importer

	// Notifier is nil unless both notification addresses are configured.
	Notifier routes.Notifier
}

func New(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*Modules, error) {
	streetRepo := streets.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	routeRepo := routes.NewRepository(pool)
	requestRepo := requests.NewRepository(pool)
	resolver := lookup.NewResolver(userRepo, streetRepo, routeRepo)

	var notifier routes.Notifier
	if cfg.NotificationsEnabled() {
		sender, err := email.NewSESV2Sender(ctx, cfg.AWSRegion, cfg.NotifyFromEmail)
		if err != nil {
			return nil, fmt.Errorf("bootstrap.EmailSender: %w", err)
		}
		templates, err := email.NewTemplateManager()
		if err != nil {
			return nil, fmt.Errorf("bootstrap.EmailTemplates: %w", err)
		}
		notifier = routes.NewEmailNotifier(sender, templates, resolver, cfg.DispatcherEmail)
		logger.Info("route status notifications enabled", slog.String("to", cfg.DispatcherEmail))
	}

	return &Modules{
		Users:    users.NewService(userRepo, resolver, cfg.JWTSecret, cfg.TokenTTL, logger),
		Streets:  streets.NewService(streetRepo, logger),
		Routes:   routes.NewService(routeRepo, resolver, notifier, recorder, logger),
		Requests: requests.NewService(requestRepo, resolver, cfg.StrictRequestTransitions, recorder, logger),
		Reports:  reports.NewService(userRepo, streetRepo, routeRepo, requestRepo),
		Importer: dataimport.NewImporter(streetRepo, userRepo, routeRepo, requestRepo, logger).
			WithTransactor(importTransactor(pool)),
		Notifier: notifier,
	}, nil
}

// importTransactor runs an import on repositories bound to a single transaction.
func importTransactor(pool *pgxpool.Pool) dataimport.Transactor {
	return func(ctx context.Context, fn func(dataimport.Stores) error) error {
		return database.InTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(dataimport.Stores{
				Streets:  streets.NewRepository(tx),
				Users:    users.NewRepository(tx),
				Routes:   routes.NewRepository(tx),
				Requests: requests.NewRepository(tx),
			})
		})
	}
}

// CLIServices exposes the modules to the command table; initSchema prepares the database.
func (m *Modules) CLIServices(initSchema func(ctx context.Context) error) cli.Services {
	return cli.Services{
		Users:    m.Users,
		Streets:  m.Streets,
		Routes:   m.Routes,
		Requests: m.Requests,
		Reports:  m.Reports,
		Importer: m.Importer,
		Init:     initSchema,
	}
}
