package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while applying a transaction.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FactID identifies the affected fact, if any.
	FactID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownFact indicates a retraction named a fact that is not live.
	ErrCodeUnknownFact RuntimeErrorCode = "UNKNOWN_FACT"

	// ErrCodeDuplicateFact indicates the ID generator produced a live ID.
	ErrCodeDuplicateFact RuntimeErrorCode = "DUPLICATE_FACT"

	// ErrCodeVersionMismatch indicates a journal written by another IR version.
	ErrCodeVersionMismatch RuntimeErrorCode = "VERSION_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FactID != "" {
		return fmt.Sprintf("%s: %s (fact=%s)", e.Code, e.Message, e.FactID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a RuntimeError with the given code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownFact reports whether err is an unknown-fact error.
func IsUnknownFact(err error) bool {
	return HasCode(err, ErrCodeUnknownFact)
}

func newUnknownFactError(id string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownFact,
		Message: "fact is not in working memory",
		FactID:  id,
	}
}
