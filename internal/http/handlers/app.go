package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"studio/internal/entitlement"
	"studio/internal/generation"
	"studio/internal/infra"
	"studio/internal/middleware"
)

// Authorizer is the entitlement ledger surface the handlers need.
type Authorizer interface {
	AuthorizeAndConsume(ctx context.Context, userID string) (entitlement.Decision, error)
}

// Generator runs the full generation pipeline after quota has been consumed.
type Generator interface {
	Generate(ctx context.Context, in generation.Input) (*generation.Outcome, error)
}

// BlobReader reads stored image bytes back for the export endpoint.
type BlobReader interface {
	Read(key string) ([]byte, error)
}

type App struct {
	SQL       infra.SQLExecutor
	Config    *infra.Config
	Logger    zerolog.Logger
	Ledger    Authorizer
	Generator Generator
	Blobs     BlobReader
	Validate  *validator.Validate
}

func NewApp(sql infra.SQLExecutor, cfg *infra.Config, logger zerolog.Logger, ledger Authorizer, gen Generator, blobs BlobReader) *App {
	return &App{
		SQL:       sql,
		Config:    cfg,
		Logger:    logger,
		Ledger:    ledger,
		Generator: gen,
		Blobs:     blobs,
		Validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errCode, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
