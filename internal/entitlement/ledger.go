// Package entitlement owns the per-user usage record and the single atomic
// authorize-and-consume operation that gates image generation.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// Decision reports whether a generation request may proceed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decision reasons surfaced to callers.
const (
	ReasonAdmin          = "admin"
	ReasonTempPass       = "tempPass"
	ReasonQuota          = "quota"
	ReasonQuotaExhausted = "quota_exhausted"
	ReasonPlanInactive   = "plan_inactive"
	ReasonNoEntitlement  = "no_entitlement"
)

// TxBeginner abstracts pgxpool.Pool for transaction control.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Ledger is the sole mutator of entitlement records.
type Ledger struct {
	db     TxBeginner
	logger zerolog.Logger
	now    func() time.Time
}

// NewLedger constructs a Ledger backed by the given transaction beginner.
func NewLedger(db TxBeginner, logger zerolog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger, now: time.Now}
}

const maxSerializationRetries = 3

// AuthorizeAndConsume decides whether the user may generate an image and
// atomically consumes quota when applicable. It runs under serializable
// isolation so concurrent requests from the same user cannot both observe
// remaining quota and decrement past zero. A missing record fails closed.
func (l *Ledger) AuthorizeAndConsume(ctx context.Context, userID string) (Decision, error) {
	var lastErr error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		decision, err := l.authorizeOnce(ctx, userID)
		if err == nil {
			return decision, nil
		}
		if !infra.IsSerializationFailure(err) {
			return Decision{}, err
		}
		lastErr = err
		l.logger.Warn().
			Str("user_id", userID).
			Int("attempt", attempt+1).
			Msg("entitlement: serialization conflict, retrying")
	}
	return Decision{}, fmt.Errorf("entitlement: authorize retries exhausted: %w", lastErr)
}

func (l *Ledger) authorizeOnce(ctx context.Context, userID string) (Decision, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return Decision{}, fmt.Errorf("entitlement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, sqlinline.QSelectEntitlementForUpdate, userID)
	rec, err := scanEntitlement(row)
	if err != nil {
		if infra.IsNoRows(err) {
			// Fail closed: absent records never get a fallback entitlement.
			return Decision{Allowed: false, Reason: ReasonNoEntitlement}, nil
		}
		return Decision{}, fmt.Errorf("entitlement: load record: %w", err)
	}

	now := l.now().UTC()
	decision := Apply(rec, now, domain.BaselineForPlan(rec.PlanID))

	if _, err := tx.Exec(ctx, sqlinline.QUpdateEntitlement,
		rec.UserID,
		rec.ImagesRemaining,
		rec.ResetsAt,
		rec.GeneratedImages,
		rec.LastGeneratedAt,
	); err != nil {
		return Decision{}, fmt.Errorf("entitlement: write record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Decision{}, fmt.Errorf("entitlement: commit: %w", err)
	}

	l.logger.Debug().
		Str("user_id", userID).
		Bool("allowed", decision.Allowed).
		Str("reason", decision.Reason).
		Int("images_remaining", rec.ImagesRemaining).
		Msg("entitlement: authorized")

	return decision, nil
}

func scanEntitlement(row pgx.Row) (*domain.Entitlement, error) {
	var rec domain.Entitlement
	var kind *string
	if err := row.Scan(
		&rec.UserID,
		&rec.PlanID,
		&rec.PlanActivated,
		&rec.ImagesRemaining,
		&rec.ResetsAt,
		&kind,
		&rec.TempPassExpiresAt,
		&rec.GeneratedImages,
		&rec.LastGeneratedAt,
		&rec.Role,
	); err != nil {
		return nil, err
	}
	if kind != nil {
		k := domain.TempPassKind(*kind)
		rec.TempPassKind = &k
	}
	return &rec, nil
}
