package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/listkeeper-go/apperror"
)

// Translate maps a store error onto the application taxonomy. what names the
// operation or resource and ends up in the internal message only.
//
//   - ErrNotFound           -> NotFoundError
//   - *DuplicateKeyError    -> DuplicateError
//   - *apperror.AppError    -> unchanged
//   - context deadline      -> retryable DatabaseError
//   - anything else         -> fatal DatabaseError
func Translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.FromError(err); ok {
		return err
	}
	var dup *DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		return apperror.NewDuplicateError(fmt.Sprintf("%s: %s already taken", what, dup.Field), err)
	case errors.Is(err, ErrNotFound):
		return apperror.NewNotFoundError(what+": not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.NewDatabaseError(what+": timed out", err, true)
	case errors.Is(err, context.Canceled):
		return apperror.NewDatabaseError(what+": canceled", err, true)
	default:
		return apperror.NewDatabaseError(what, err, false)
	}
}
