package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// AI pipeline errors
	ErrNoModelAvailable  = errors.New("no active AI model available")
	ErrEmptyAIResponse   = errors.New("AI backend returned an empty response")
	ErrProviderNotFound  = errors.New("no AI provider configured for model")
	ErrInvalidContactJID = errors.New("invalid whatsapp contact identifier")
)
