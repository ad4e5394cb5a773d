package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrTestModeDisabled = errors.New("test mode is not enabled")
	ErrRateLimited      = errors.New("too many requests")

	// ErrConflict marks an idempotent skip or a refused overwrite of a terminal state.
	ErrConflict = errors.New("conflicting state")
	// ErrVersionConflict is returned by stores when a conditional write lost a race.
	ErrVersionConflict = errors.New("document version conflict")

	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("read database row")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrDownstream         = errors.New("downstream service failed")
	ErrSweepInProgress    = errors.New("reminder sweep already running")
)
