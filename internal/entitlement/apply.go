package entitlement

import (
	"time"

	"studio/internal/domain"
)

// Apply runs the authorization rules against a record and mutates it in
// place. It is pure apart from the record mutation, so the transaction
// wrapper in the ledger stays thin and the rules stay table-testable.
//
// Rule order: admin bypass, then monthly reset, then temp pass, then plan
// quota. The caller persists the mutated record in the same transaction that
// loaded it.
func Apply(rec *domain.Entitlement, now time.Time, baseline int) Decision {
	if rec.IsAdmin() {
		// Quota untouched; usage counters still move for observability.
		rec.GeneratedImages++
		rec.LastGeneratedAt = &now
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}

	// A stale window resets even when the request ends up denied.
	if rec.ResetsAt != nil && rec.ResetsAt.Before(now) {
		rec.ImagesRemaining = baseline
		next := domain.FirstOfNextMonth(now)
		rec.ResetsAt = &next
	}

	if rec.HasActiveTempPass(now) {
		// Temp passes are unlimited-use until expiry.
		return Decision{Allowed: true, Reason: ReasonTempPass}
	}

	if !rec.PlanActivated {
		return Decision{Allowed: false, Reason: ReasonPlanInactive}
	}

	if rec.ImagesRemaining > 0 {
		rec.ImagesRemaining--
		rec.GeneratedImages++
		rec.LastGeneratedAt = &now
		return Decision{Allowed: true, Reason: ReasonQuota}
	}

	return Decision{Allowed: false, Reason: ReasonQuotaExhausted}
}
