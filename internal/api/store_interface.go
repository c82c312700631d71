package api

import (
	"context"

	"github.com/soaringjerry/SurveyForge/internal/services"
)

// Store is the persistence surface the router needs. Each backend in
// internal/db satisfies it directly; the services only see their own slice.
type Store interface {
	services.UserStore
	services.SurveyStore
	services.ResponseStore
	services.ChatStore

	Ping(ctx context.Context) error
	Close() error
}
