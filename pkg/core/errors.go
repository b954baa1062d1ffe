package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed classification of wallet operation failures.
type Kind string

const (
	KindInvalidAccount      Kind = "INVALID_ACCOUNT"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindBlockNotFound       Kind = "BLOCK_NOT_FOUND"
	KindAccountNotFound     Kind = "ACCOUNT_NOT_FOUND"
	KindFork                Kind = "FORK"
	KindNetwork             Kind = "NETWORK"
	KindTimeout             Kind = "TIMEOUT"
	KindUnexpected          Kind = "UNEXPECTED_ERROR"
)

// Error is a classified operation failure. Code carries a finer-grained
// machine label than Kind (for example MAX_RETRIES_EXCEEDED on an
// exhausted FORK retry, or RPC_ERROR for unmapped node responses).
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

// Retryable reports whether the retry controller may reattempt the
// operation after refreshing account state. Only frontier conflicts
// qualify; everything else surfaces immediately.
func (e *Error) Retryable() bool {
	return e.Kind == KindFork
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: string(kind), Message: fmt.Sprintf(format, args...)}
}

func NewErrorWithCode(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an arbitrary error into the closed taxonomy. Errors that
// are already classified pass through unchanged so the original kind and
// code survive wrapping.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var werr *Error
	if errors.As(err, &werr) {
		return werr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "operation deadline exceeded: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindTimeout, "operation canceled: %v", err)
	}
	return NewError(KindUnexpected, "%v", err)
}
