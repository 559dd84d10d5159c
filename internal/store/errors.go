package store

import (
	"context"
	"errors"
	"fmt"
)

// RepositoryError wraps a driver failure with the operation that produced it.
// All storage failures surface through this one kind; callers branch on the
// operation string for logging only, never for control flow.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// WrapErr wraps err into a RepositoryError carrying the operation context.
// Cancellation and deadline errors pass through unchanged so callers can
// distinguish "operation cancelled" from "operation failed". An error that is
// already a RepositoryError is returned as-is.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
