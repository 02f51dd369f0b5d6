package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrPlanInactive      = errors.New("plan inactive")
	ErrProviderFailure   = errors.New("provider failure")
	ErrNoImageInResponse = errors.New("no image in model response")
)
