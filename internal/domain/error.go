package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNoPendingInvoice   = errors.New("no pending invoice for subscription")
	ErrQueueFull          = errors.New("job queue is saturated")
	ErrLockHeld           = errors.New("subscription is locked by another job")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
