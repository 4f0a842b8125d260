package utils

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMissingInput         = errors.New("missing required input")
	ErrConsentRequired      = errors.New("image consent required")
	ErrUnsupportedImage     = errors.New("unsupported image type")
	ErrUnknownCatalogEntry  = errors.New("unknown catalog entry")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrProviderFailure      = errors.New("ai provider failure")
	ErrStorageFailure       = errors.New("object storage failure")
	ErrPersistence          = errors.New("failed to persist generation result")
	ErrChargeFailed         = errors.New("charge failed")
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrInvalidTransition    = errors.New("invalid workflow transition")
	ErrForbidden            = errors.New("forbidden")
	ErrDatabaseError        = errors.New("database error")
)
