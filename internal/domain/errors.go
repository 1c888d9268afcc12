package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Not-found errors — fatal to the single operation, propagate, no retry.
	ErrUserNotFound      = errors.New("user not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrTemplateNotFound  = errors.New("challenge template not found")
	ErrAnalyticsNotFound = errors.New("analytics record not found")

	// Business-rule rejections — expected outcomes, not system failures.
	ErrDailyChallengeLimit = errors.New("daily challenge limit reached")
	ErrDailyPointCap       = errors.New("daily point cap reached")
	ErrChallengeTerminal   = errors.New("challenge already in a terminal state")
	ErrInsufficientPoints  = errors.New("insufficient points for redemption")

	// Collaborator failures.
	ErrAIUnavailable = errors.New("text generation unavailable")
	ErrStoreConflict = errors.New("concurrent update conflict on user state")
)
