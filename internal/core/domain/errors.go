package domain

import (
	"errors"
	"fmt"
)

var (
	ErrClaimNotFound = errors.New("claim not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUpstream      = errors.New("upstream failure")
	ErrRender        = errors.New("document render failed")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ValidationError carries a client-facing reason and matches ErrInvalidInput.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvalidInput, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid builds an ErrInvalidInput error with a human readable reason.
func Invalid(operation, reason string) error {
	return &ValidationError{Op: operation, Reason: reason}
}
