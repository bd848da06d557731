package contract

import "errors"

var (
	ErrNotFound          = errors.New("contract not found")
	ErrInvalidTransition = errors.New("invalid contract state transition")
	ErrSignatureRequired = errors.New("signature hash is required")
	ErrCycleDetected     = errors.New("renewal chain cycle detected")
	ErrAlreadyLinked     = errors.New("contract already has a successor")
	ErrValidation        = errors.New("invalid contract data")
)
