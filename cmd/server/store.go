package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/SurveyForge/internal/api"
	"github.com/soaringjerry/SurveyForge/internal/config"
	dbstore "github.com/soaringjerry/SurveyForge/internal/db"
	"github.com/soaringjerry/SurveyForge/internal/services"
)

// openStore builds the configured backend. For sqlite the parent directory is
// created and pending migrations run before the store is returned.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger) (api.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return dbstore.NewMemoryStore(), nil
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(cfg.SQLitePath))
		store, err := dbstore.OpenSQLite(ctx, dsn, cfg.MigrationsDir, logger)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("sqlite store ready")
		return store, nil
	case config.StoreMongo:
		store, err := dbstore.OpenMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		logger.WithField("database", cfg.MongoDatabase).Info("mongo store ready")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newCompletionClient returns nil when no key is configured. Calls carry no
// client-side timeout; the request context bounds them.
func newCompletionClient(cfg config.AIConfig) services.CompletionClient {
	if cfg.APIKey == "" {
		return nil
	}
	return services.NewOpenAIClient(nil, cfg.BaseURL, cfg.APIKey, cfg.Model)
}
