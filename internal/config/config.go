package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/SurveyForge/internal/middleware"
	"github.com/soaringjerry/SurveyForge/internal/services"
	"github.com/soaringjerry/SurveyForge/internal/utils"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	// DevJWTSecret is used when no secret is configured. Tokens signed with it
	// are only fit for local development.
	DevJWTSecret = "surveyforge-dev-secret-change-me"

	defaultCORSOrigins = "http://localhost:3000, https://survey-forge-inky.vercel.app"
)

// Config holds all process configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	LogLevel        logrus.Level
	CORSOrigins     []string
	MetricsEnabled  bool

	Auth    AuthConfig
	Storage StorageConfig
	AI      AIConfig

	// Warnings collects non-fatal problems found while loading, logged once
	// the logger exists.
	Warnings []string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type StorageConfig struct {
	Driver        string
	SQLitePath    string
	MigrationsDir string
	MongoURL      string
	MongoDatabase string
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:           utils.SafeEnv("SURVEYFORGE_ADDR", ":8000"),
		CORSOrigins:    utils.SplitList(utils.SafeEnv("SURVEYFORGE_CORS_ORIGINS", defaultCORSOrigins)),
		MetricsEnabled: utils.EnvBool("SURVEYFORGE_METRICS", true),
		Auth: AuthConfig{
			JWTSecret: os.Getenv("SURVEYFORGE_JWT_SECRET"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(utils.SafeEnv("SURVEYFORGE_STORE", StoreSQLite)),
			SQLitePath:    utils.SafeEnv("SURVEYFORGE_SQLITE_PATH", "data/surveyforge.db"),
			MigrationsDir: os.Getenv("SURVEYFORGE_MIGRATIONS_DIR"),
			MongoURL:      os.Getenv("MONGODB_URL"),
			MongoDatabase: utils.SafeEnv("SURVEYFORGE_MONGO_DB", "survey_db"),
		},
		AI: AIConfig{
			APIKey:  utils.FirstEnv("", "SURVEYFORGE_AI_KEY", "GEMINI_API_KEY"),
			BaseURL: utils.SafeEnv("SURVEYFORGE_AI_BASE", services.DefaultCompletionBase),
			Model:   utils.SafeEnv("SURVEYFORGE_AI_MODEL", services.DefaultCompletionModel),
		},
	}

	cfg.ShutdownTimeout = cfg.duration("SURVEYFORGE_SHUTDOWN_TIMEOUT", 15*time.Second)
	cfg.Auth.TokenTTL = cfg.duration("SURVEYFORGE_TOKEN_TTL", middleware.DefaultTokenTTL)

	level, err := logrus.ParseLevel(utils.SafeEnv("SURVEYFORGE_LOG_LEVEL", "info"))
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown SURVEYFORGE_LOG_LEVEL, using info: %v", err))
		level = logrus.InfoLevel
	}
	cfg.LogLevel = level

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = DevJWTSecret
		cfg.Warnings = append(cfg.Warnings, "SURVEYFORGE_JWT_SECRET not set, using the development secret")
	}
	if cfg.AI.APIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "no AI key configured, /support/ai will answer 500")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) duration(key string, fallback time.Duration) time.Duration {
	d, ok := utils.EnvDuration(key, fallback)
	if !ok {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s, using %s", key, fallback))
	}
	return d
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	switch c.Storage.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case StoreMongo:
		if c.Storage.MongoURL == "" {
			return fmt.Errorf("MONGODB_URL is required for mongo storage")
		}
		if c.Storage.MongoDatabase == "" {
			return fmt.Errorf("mongo database name is required for mongo storage")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be memory, sqlite, or mongo)", c.Storage.Driver)
	}
	return nil
}
