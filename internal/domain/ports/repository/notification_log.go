package repository

import (
	"context"

	"masterclass-reconciler/internal/domain/model"
)

// -----------------------------
// Reminder Log
// -----------------------------

// ReminderLog tracks which user already received which reminder window of a resource.
type ReminderLog interface {
	// Claim marks the reminder as taken. It returns false when another sweep already claimed it.
	Claim(ctx context.Context, resourceID string, w model.Window, userID string) (bool, error)
	// Release drops a claim after a failed send so a later sweep can retry.
	Release(ctx context.Context, resourceID string, w model.Window, userID string) error
}
