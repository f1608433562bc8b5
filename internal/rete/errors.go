package rete

import (
	"errors"
	"fmt"
)

// NetworkError is returned by construction and working memory operations
// that the network refuses. Activation itself never fails: a failed join
// test is control flow, not an error.
type NetworkError struct {
	// Code identifies the error category.
	Code NetworkErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the offending node, or NoNode.
	Node NodeID
}

// NetworkErrorCode categorizes network errors.
type NetworkErrorCode string

const (
	// ErrCodeArity indicates a WME or pattern whose width differs from the schema.
	ErrCodeArity NetworkErrorCode = "ARITY_MISMATCH"

	// ErrCodeUnknownNode indicates a NodeID that is out of range or deleted.
	ErrCodeUnknownNode NetworkErrorCode = "UNKNOWN_NODE"

	// ErrCodeWrongNodeKind indicates a parent of the wrong kind
	// (a join under a join, a memory under a memory).
	ErrCodeWrongNodeKind NetworkErrorCode = "WRONG_NODE_KIND"

	// ErrCodeUnknownAlpha indicates an AlphaID that is out of range or deleted.
	ErrCodeUnknownAlpha NetworkErrorCode = "UNKNOWN_ALPHA_MEMORY"

	// ErrCodeBadField indicates a test on a field index outside the schema.
	ErrCodeBadField NetworkErrorCode = "BAD_FIELD"

	// ErrCodeDuplicateProduction indicates a production name already in use.
	ErrCodeDuplicateProduction NetworkErrorCode = "DUPLICATE_PRODUCTION"

	// ErrCodeUnknownProduction indicates removal of a production never added.
	ErrCodeUnknownProduction NetworkErrorCode = "UNKNOWN_PRODUCTION"

	// ErrCodeInvalidRule indicates a rule that fails validation.
	ErrCodeInvalidRule NetworkErrorCode = "INVALID_RULE"
)

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Node != NoNode {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a NetworkError with the given code.
func HasCode(err error, code NetworkErrorCode) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}

func newError(code NetworkErrorCode, node NodeID, format string, args ...any) *NetworkError {
	return &NetworkError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}
