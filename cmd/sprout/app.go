package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/api/handlers"
	"github.com/hoanghai1803/sprout/internal/config"
	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/notify"
	"github.com/hoanghai1803/sprout/internal/pipeline"
	"github.com/hoanghai1803/sprout/internal/storage"
	"github.com/hoanghai1803/sprout/internal/storage/postgres"
)

// appStore is everything the commands need from a storage backend.
type appStore interface {
	pipeline.Store
	handlers.Store
	ActivateModelConfig(ctx context.Context, cfg *models.ModelConfig) error
}

var (
	_ appStore = (*storage.Store)(nil)
	_ appStore = (*postgres.Store)(nil)
)

type app struct {
	cfg   *config.Config
	db    *sql.DB
	store appStore
}

// openApp opens the configured database and applies pending migrations.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.OpenDatabase(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
		return &app{cfg: cfg, db: db, store: postgres.NewStore(db)}, nil

	case "sqlite":
		db, err := storage.OpenDatabase(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := storage.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &app{cfg: cfg, db: db, store: storage.NewStore(db)}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (a *app) Close() error {
	return a.db.Close()
}

// generator wires the pipeline with the provider adapter and notifier.
func (a *app) generator() *pipeline.Generator {
	adapter := ai.NewAdapter(a.cfg.AITimeout(), nil)
	return pipeline.NewGenerator(a.store, adapter, a.cfg.Pipeline(),
		pipeline.WithNotifier(newNotifier(a.cfg)),
	)
}

// newNotifier builds the publish chain. A misconfigured social generator is
// logged and left out so webhooks still fire.
func newNotifier(cfg *config.Config) *notify.Dispatcher {
	var social notify.SocialGenerator
	p := cfg.Publish

	switch p.SocialMode {
	case config.SocialHTTP:
		social = notify.NewHTTPSocialGenerator(p.SocialURL, cfg.WebhookTimeout())
	case config.SocialOpenAI:
		gen, err := notify.NewOpenAISocialGenerator(p.SocialAPIKey, p.SocialBaseURL, p.SocialModel, cfg.WebhookTimeout())
		if err != nil {
			slog.Warn("social generator disabled", "error", err)
		} else {
			social = gen
		}
	}

	return notify.NewDispatcher(social, notify.NewWebhookClient(cfg.WebhookTimeout()))
}
