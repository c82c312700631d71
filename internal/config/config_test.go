package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/SurveyForge/internal/services"
)

var configKeys = []string{
	"SURVEYFORGE_ADDR", "SURVEYFORGE_JWT_SECRET", "SURVEYFORGE_TOKEN_TTL", "SURVEYFORGE_STORE",
	"SURVEYFORGE_SQLITE_PATH", "SURVEYFORGE_MIGRATIONS_DIR", "MONGODB_URL", "SURVEYFORGE_MONGO_DB",
	"SURVEYFORGE_CORS_ORIGINS", "SURVEYFORGE_AI_KEY", "GEMINI_API_KEY", "SURVEYFORGE_AI_BASE",
	"SURVEYFORGE_AI_MODEL", "SURVEYFORGE_METRICS", "SURVEYFORGE_SHUTDOWN_TIMEOUT", "SURVEYFORGE_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000", "https://survey-forge-inky.vercel.app"}, cfg.CORSOrigins)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 60*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, StoreSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/surveyforge.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "survey_db", cfg.Storage.MongoDatabase)
	assert.Equal(t, services.DefaultCompletionBase, cfg.AI.BaseURL)
	assert.Equal(t, services.DefaultCompletionModel, cfg.AI.Model)
	assert.Len(t, cfg.Warnings, 2, "dev secret and missing AI key are reported")
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SURVEYFORGE_ADDR", ":9000")
	t.Setenv("SURVEYFORGE_JWT_SECRET", "s3cret")
	t.Setenv("SURVEYFORGE_TOKEN_TTL", "2h")
	t.Setenv("SURVEYFORGE_STORE", "Mongo")
	t.Setenv("MONGODB_URL", "mongodb://localhost:27017")
	t.Setenv("SURVEYFORGE_CORS_ORIGINS", "*")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("SURVEYFORGE_METRICS", "false")
	t.Setenv("SURVEYFORGE_LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, StoreMongo, cfg.Storage.Driver)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "gem", cfg.AI.APIKey, "falls back to GEMINI_API_KEY")
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Warnings)

	t.Setenv("SURVEYFORGE_AI_KEY", "primary")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.AI.APIKey)
}

func TestFromEnvInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SURVEYFORGE_TOKEN_TTL", "forever")
	t.Setenv("SURVEYFORGE_LOG_LEVEL", "chatty")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Len(t, cfg.Warnings, 4)

	t.Setenv("SURVEYFORGE_STORE", "postgres")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "invalid storage driver")

	t.Setenv("SURVEYFORGE_STORE", "mongo")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "MONGODB_URL")

	t.Setenv("SURVEYFORGE_STORE", "memory")
	t.Setenv("SURVEYFORGE_TOKEN_TTL", "-1m")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "token TTL")
}
