package domain

import (
	"strings"
	"time"
)

// Role enumerates supported account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// TempPassKind enumerates the supported temporary-pass durations.
type TempPassKind string

const (
	TempPass10m TempPassKind = "10m"
	TempPass1h  TempPassKind = "1h"
	TempPass2h  TempPassKind = "2h"
)

// Duration returns the wall-clock validity of the pass kind.
func (k TempPassKind) Duration() time.Duration {
	switch k {
	case TempPass10m:
		return 10 * time.Minute
	case TempPass1h:
		return time.Hour
	case TempPass2h:
		return 2 * time.Hour
	default:
		return 0
	}
}

// Entitlement is the per-user usage record gating image generation. It is
// mutated exclusively inside the ledger transaction.
type Entitlement struct {
	UserID            string
	PlanID            string
	PlanActivated     bool
	ImagesRemaining   int
	ResetsAt          *time.Time
	TempPassKind      *TempPassKind
	TempPassExpiresAt *time.Time
	GeneratedImages   int
	LastGeneratedAt   *time.Time
	Role              Role
	UpdatedAt         time.Time
}

// IsAdmin reports whether the record belongs to an admin account.
func (e *Entitlement) IsAdmin() bool {
	return e.Role == RoleAdmin
}

// HasActiveTempPass reports whether an unexpired temporary pass is attached.
func (e *Entitlement) HasActiveTempPass(now time.Time) bool {
	return e.TempPassKind != nil && e.TempPassExpiresAt != nil && e.TempPassExpiresAt.After(now)
}

// PlanBaselines maps plan ids to their monthly image quota.
var PlanBaselines = map[string]int{
	"free":    15,
	"starter": 100,
	"pro":     400,
}

// DefaultPlanBaseline applies to plans without an explicit baseline entry.
const DefaultPlanBaseline = 15

// BaselineForPlan resolves the monthly quota for a plan id.
func BaselineForPlan(planID string) int {
	if n, ok := PlanBaselines[strings.TrimSpace(strings.ToLower(planID))]; ok {
		return n
	}
	return DefaultPlanBaseline
}

// FirstOfNextMonth returns the first instant of the UTC month following t.
func FirstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
